package stats

import (
	"math"

	"github.com/sunsplit/sunsplit/internal/experiment"
)

// VariantResult contains the derived statistics for a single variant.
// Rate and the interval bounds are fractions in [0, 1]; PValue compares the
// variant against the control (1 for the control itself and with no data).
type VariantResult struct {
	VariantID   string  `json:"variant_id"`
	Name        string  `json:"name"`
	IsControl   bool    `json:"is_control"`
	Impressions int64   `json:"impressions"`
	Conversions int64   `json:"conversions"`
	Rate        float64 `json:"rate"`
	CILower     float64 `json:"ci_lower"`
	CIUpper     float64 `json:"ci_upper"`
	PValue      float64 `json:"p_value"`
	IsWinner    bool    `json:"is_winner"`
}

// Comparison is the significance verdict for the leading variant against
// the control. Computable is false when the control has no conversions, in
// which case ImprovementPct degrades to 0 instead of going non-finite.
type Comparison struct {
	ImprovementPct float64 `json:"improvement_pct"`
	PValue         float64 `json:"p_value"`
	Significant    bool    `json:"significant"`
	Computable     bool    `json:"computable"`
}

// Analysis is the full statistical view of an experiment at one instant.
type Analysis struct {
	Variants   []VariantResult `json:"variants"`
	Leader     *VariantResult  `json:"leader,omitempty"`
	Comparison Comparison      `json:"comparison"`
}

// PValue runs a two-sided two-proportion z-test with a pooled standard
// error and returns the p-value under the standard normal reference
// distribution. The second return is false when either sample is empty;
// the p-value is then 1 (no evidence either way).
func PValue(convA, nA, convB, nB int64) (float64, bool) {
	if nA == 0 || nB == 0 {
		return 1, false
	}

	pA := float64(convA) / float64(nA)
	pB := float64(convB) / float64(nB)
	pooled := float64(convA+convB) / float64(nA+nB)

	se := math.Sqrt(pooled * (1 - pooled) * (1/float64(nA) + 1/float64(nB)))
	if se == 0 {
		// Pooled proportion of 0 or 1 forces both rates equal.
		return 1, true
	}

	z := (pA - pB) / se
	return 2 * (1 - normalCDF(math.Abs(z))), true
}

// Improvement returns the relative lift of candidate over control in
// percent. Not computable when the control rate is zero; the caller gets 0
// rather than a non-finite value.
func Improvement(controlRate, candidateRate float64) (float64, bool) {
	if controlRate == 0 {
		return 0, false
	}
	return (candidateRate - controlRate) / controlRate * 100, true
}

// normalCDF approximates the cumulative distribution function of the
// standard normal distribution (Abramowitz and Stegun, formula 7.1.26).
func normalCDF(x float64) float64 {
	a1 := 0.254829592
	a2 := -0.284496736
	a3 := 1.421413741
	a4 := -1.453152027
	a5 := 1.061405429
	p := 0.3275911

	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	x = math.Abs(x) / math.Sqrt(2)

	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)

	return 0.5 * (1.0 + sign*y)
}

// Analyze computes per-variant statistics and the experiment-level verdict.
// The leader is the variant with the highest conversion rate across all
// variants; its significance is always judged against the control. When the
// control itself leads, the test runs against the best challenger so a
// decisively winning control still produces a significant verdict.
func Analyze(exp *experiment.Experiment) *Analysis {
	a := &Analysis{Comparison: Comparison{PValue: 1, Computable: true}}
	control := exp.Control()

	leader := -1
	for _, v := range exp.Variants {
		lower, upper := WaldInterval(v.Conversions, v.Impressions, exp.ConfidenceLevel)
		vr := VariantResult{
			VariantID:   v.ID,
			Name:        v.Name,
			IsControl:   v.IsControl,
			Impressions: v.Impressions,
			Conversions: v.Conversions,
			Rate:        v.ConversionRate(),
			CILower:     lower,
			CIUpper:     upper,
			PValue:      1,
		}
		if control != nil && !v.IsControl {
			vr.PValue, _ = PValue(v.Conversions, v.Impressions, control.Conversions, control.Impressions)
		}
		a.Variants = append(a.Variants, vr)

		i := len(a.Variants) - 1
		if leader < 0 || vr.Rate > a.Variants[leader].Rate {
			leader = i
		}
	}

	if leader < 0 {
		a.Comparison.Computable = false
		return a
	}
	a.Variants[leader].IsWinner = true
	a.Leader = &a.Variants[leader]

	if control == nil {
		a.Comparison.Computable = false
		return a
	}

	lead := exp.Variant(a.Leader.VariantID)
	if lead.IsControl {
		// Control is leading: its improvement over itself is zero, and the
		// verdict comes from testing it against the best challenger.
		challenger := bestChallenger(exp)
		if challenger != nil {
			a.Comparison.PValue, _ = PValue(lead.Conversions, lead.Impressions, challenger.Conversions, challenger.Impressions)
		}
		a.Comparison.ImprovementPct = 0
	} else {
		a.Comparison.PValue, _ = PValue(lead.Conversions, lead.Impressions, control.Conversions, control.Impressions)
		a.Comparison.ImprovementPct, a.Comparison.Computable = Improvement(control.ConversionRate(), lead.ConversionRate())
	}

	alpha := 1 - float64(exp.ConfidenceLevel)/100
	a.Comparison.Significant = a.Comparison.PValue < alpha
	return a
}

func bestChallenger(exp *experiment.Experiment) *experiment.Variant {
	var best *experiment.Variant
	for _, v := range exp.Variants {
		if v.IsControl {
			continue
		}
		if best == nil || v.ConversionRate() > best.ConversionRate() {
			best = v
		}
	}
	return best
}
