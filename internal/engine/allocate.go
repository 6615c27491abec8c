package engine

import (
	"context"
	"fmt"

	"github.com/sunsplit/sunsplit/internal/experiment"
)

// Assign picks a variant for one visitor exposure on a running experiment.
// It draws a uniform value in [0, 100) and walks the variant list in
// definition order, accumulating traffic weights. If the weights sum below
// 100 and the draw lands in the unassigned tail, the first variant takes it
// (deterministic fallback, not an error).
//
// Assignment is memoryless: sticky bucketing across repeat visits belongs
// to the caller.
func (e *Engine) Assign(ctx context.Context, id string) (*experiment.Variant, error) {
	ent, err := e.entryFor(ctx, id)
	if err != nil {
		return nil, err
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()

	exp := ent.exp
	if exp.Status != experiment.StatusRunning {
		return nil, fmt.Errorf("experiment %q is %s, not running: %w", exp.ID, exp.Status, experiment.ErrInvalidState)
	}
	if len(exp.Variants) == 0 {
		return nil, fmt.Errorf("experiment %q has no variants: %w", exp.ID, experiment.ErrValidation)
	}

	r := e.randFloat() * 100
	cumulative := 0.0
	for _, v := range exp.Variants {
		cumulative += v.TrafficWeight
		if r < cumulative {
			return v.Clone(), nil
		}
	}
	return exp.Variants[0].Clone(), nil
}
