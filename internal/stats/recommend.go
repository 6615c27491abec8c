package stats

import "fmt"

// Recommend turns an analysis into ordered operator guidance. The branches
// are stackable notices, not a single verdict: the small-sample caution is
// appended on top of whichever outcome branch applies.
func Recommend(a *Analysis, minSample int64) []string {
	if a.Leader == nil {
		return nil
	}

	var recs []string
	c := a.Comparison

	switch {
	case !c.Significant:
		recs = append(recs, "No statistically significant difference yet. Extend the run to grow the sample before acting on these numbers.")
	case !c.Computable:
		recs = append(recs, fmt.Sprintf("%q converts where the control does not. Roll it out to all traffic now.", a.Leader.Name))
	case c.ImprovementPct > 10:
		recs = append(recs, fmt.Sprintf("%q beats the control by %.1f%%. Roll it out to all traffic now.", a.Leader.Name, c.ImprovementPct))
	case c.ImprovementPct > 0:
		recs = append(recs, fmt.Sprintf("%q shows a moderate %.1f%% lift. Roll it out, but keep monitoring conversion after the switch.", a.Leader.Name, c.ImprovementPct))
	default:
		recs = append(recs, "The control held its ground. Re-examine the hypothesis before running a follow-up test.")
	}

	if a.Leader.Impressions < minSample {
		recs = append(recs, fmt.Sprintf("The leading variant has only %d participants (below the %d minimum). Treat these results with caution.", a.Leader.Impressions, minSample))
	}

	return recs
}
