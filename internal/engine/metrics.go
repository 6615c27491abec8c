package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sunsplit/sunsplit/internal/experiment"
)

// RecordImpression increments a variant's impression counter.
func (e *Engine) RecordImpression(ctx context.Context, id, variantID string) error {
	return e.update(ctx, id, variantID, func(v *experiment.Variant) error {
		v.Impressions++
		return nil
	})
}

// RecordConversion increments a variant's conversion counter. Conversion
// beacons may land before their impression beacon, so ordering against
// impressions is not checked here; SetCounts is the strict path.
func (e *Engine) RecordConversion(ctx context.Context, id, variantID string) error {
	return e.update(ctx, id, variantID, func(v *experiment.Variant) error {
		v.Conversions++
		return nil
	})
}

// SetCounts replaces a variant's counters wholesale. Counts are monotonic
// within a run: a value below the stored one is rejected and leaves state
// unchanged, so a stale concurrent writer cannot erase evidence.
func (e *Engine) SetCounts(ctx context.Context, id, variantID string, impressions, conversions int64) error {
	return e.update(ctx, id, variantID, func(v *experiment.Variant) error {
		if impressions < v.Impressions || conversions < v.Conversions {
			return fmt.Errorf("counts for variant %q would decrease (%d/%d -> %d/%d): %w",
				v.Name, v.Impressions, v.Conversions, impressions, conversions, experiment.ErrRegression)
		}
		if conversions > impressions {
			return fmt.Errorf("conversions %d exceed impressions %d: %w", conversions, impressions, experiment.ErrValidation)
		}
		v.Impressions = impressions
		v.Conversions = conversions
		return nil
	})
}

// update applies a counter mutation and runs the post-update hooks under
// the experiment lock, then persists the snapshot. The store write is
// asynchronous relative to the in-memory counters: a failed write is an
// accepted at-most-once durability gap, logged rather than returned.
func (e *Engine) update(ctx context.Context, id, variantID string, apply func(*experiment.Variant) error) error {
	ent, err := e.entryFor(ctx, id)
	if err != nil {
		return err
	}

	ent.mu.Lock()
	exp := ent.exp
	if exp.Status.Terminal() {
		status := exp.Status
		ent.mu.Unlock()
		return fmt.Errorf("experiment %q is %s: %w", id, status, experiment.ErrInvalidState)
	}
	v := exp.Variant(variantID)
	if v == nil {
		ent.mu.Unlock()
		return fmt.Errorf("variant %q: %w", variantID, experiment.ErrNotFound)
	}
	if err := apply(v); err != nil {
		ent.mu.Unlock()
		return err
	}
	exp.UpdatedAt = e.now()

	for _, hook := range e.hooks {
		hook(ctx, exp)
	}
	snap := exp.Clone()
	ent.mu.Unlock()

	if err := e.store.Put(ctx, snap); err != nil {
		e.log.Warn("failed to persist counters",
			zap.String("experiment", id),
			zap.Error(err))
	}
	return nil
}
