package stats

import "math"

// ZScore returns the two-sided critical value for a confidence level given
// as a percentage. Unsupported levels fall back to the 95% value.
//   - 90 -> 1.645
//   - 95 -> 1.96
//   - 99 -> 2.576
func ZScore(confidenceLevel int) float64 {
	switch confidenceLevel {
	case 90:
		return 1.645
	case 95:
		return 1.96
	case 99:
		return 2.576
	default:
		return 1.96
	}
}

// WaldInterval calculates the Wald confidence interval for a binomial
// proportion: rate ± z * sqrt(rate*(1-rate)/n), clamped to [0, 1].
func WaldInterval(conversions, impressions int64, confidenceLevel int) (lower, upper float64) {
	if impressions == 0 {
		return 0, 0
	}

	p := float64(conversions) / float64(impressions)
	n := float64(impressions)
	spread := ZScore(confidenceLevel) * math.Sqrt(p*(1-p)/n)

	lower = p - spread
	upper = p + spread

	if lower < 0 {
		lower = 0
	}
	if upper > 1 {
		upper = 1
	}

	return lower, upper
}
