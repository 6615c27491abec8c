package engine

import (
	"context"
	"time"

	"github.com/sunsplit/sunsplit/internal/experiment"
	"github.com/sunsplit/sunsplit/internal/stats"
)

// Winner summarizes the leading variant at the moment a result was built.
type Winner struct {
	VariantID      string  `json:"variant_id"`
	Name           string  `json:"name"`
	ConversionRate float64 `json:"conversion_rate"`
	ImprovementPct float64 `json:"improvement_pct"`
	Confidence     int     `json:"confidence"`
	IsSignificant  bool    `json:"is_significant"`
}

// Result is a view over experiment state at the moment of computation. It
// is never persisted on its own; completed experiments rebuild it from
// their frozen counters and winner fields.
type Result struct {
	ExperimentID      string                `json:"experiment_id"`
	Name              string                `json:"name"`
	Status            experiment.Status     `json:"status"`
	DurationDays      int                   `json:"duration_days"`
	TotalParticipants int64                 `json:"total_participants"`
	TotalConversions  int64                 `json:"total_conversions"`
	Winner            *Winner               `json:"winner,omitempty"`
	Variants          []stats.VariantResult `json:"variants"`
	Recommendations   []string              `json:"recommendations"`
}

// GetResult computes the current result. Callable at any time: mid-run it
// is provisional, after completion it reflects the frozen verdict.
func (e *Engine) GetResult(ctx context.Context, id string) (*Result, error) {
	ent, err := e.entryFor(ctx, id)
	if err != nil {
		return nil, err
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()
	return e.buildResult(ent.exp), nil
}

// buildResult runs under the entry lock.
func (e *Engine) buildResult(exp *experiment.Experiment) *Result {
	a := stats.Analyze(exp)

	res := &Result{
		ExperimentID:      exp.ID,
		Name:              exp.Name,
		Status:            exp.Status,
		DurationDays:      durationDays(exp.StartDate, exp.EndDate),
		TotalParticipants: exp.TotalImpressions(),
		TotalConversions:  exp.TotalConversions(),
		Variants:          a.Variants,
		Recommendations:   stats.Recommend(a, e.minSample),
	}

	if a.Leader != nil {
		res.Winner = &Winner{
			VariantID:      a.Leader.VariantID,
			Name:           a.Leader.Name,
			ConversionRate: a.Leader.Rate,
			ImprovementPct: a.Comparison.ImprovementPct,
			Confidence:     exp.ConfidenceLevel,
			IsSignificant:  a.Comparison.Significant,
		}
		// Counters never move after completion, so the recomputed leader
		// matches the frozen fields; the frozen verdict stays authoritative.
		if exp.Status == experiment.StatusCompleted && exp.WinnerVariantID != "" {
			res.Winner.VariantID = exp.WinnerVariantID
			res.Winner.IsSignificant = exp.StatisticalSignificance > 0
		}
	}

	return res
}

func durationDays(start, end *time.Time) int {
	if start == nil || end == nil {
		return 0
	}
	return int(end.Sub(*start).Hours() / 24)
}
