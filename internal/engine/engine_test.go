package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunsplit/sunsplit/internal/engine"
	"github.com/sunsplit/sunsplit/internal/experiment"
	"github.com/sunsplit/sunsplit/internal/store"
)

func newTestEngine(t *testing.T, opts engine.Options) *engine.Engine {
	t.Helper()
	return engine.New(store.NewMemory(), opts)
}

func definition(controlWeight, variantWeight float64) experiment.Definition {
	return experiment.Definition{
		Name: "hero",
		Variants: []experiment.VariantDefinition{
			{Name: "Control", IsControl: true, TrafficWeight: controlWeight},
			{Name: "Variant A", TrafficWeight: variantWeight},
		},
	}
}

func TestCreateValidates(t *testing.T) {
	eng := newTestEngine(t, engine.Options{})
	ctx := context.Background()

	def := definition(50, 50)
	def.Variants[0].IsControl = false
	_, err := eng.Create(ctx, def)
	assert.ErrorIs(t, err, experiment.ErrValidation)

	def = definition(50, 50)
	def.ConfidenceLevel = 80
	_, err = eng.Create(ctx, def)
	assert.ErrorIs(t, err, experiment.ErrValidation)
}

func TestLifecycleTransitions(t *testing.T) {
	eng := newTestEngine(t, engine.Options{})
	ctx := context.Background()

	exp, err := eng.Create(ctx, definition(50, 50))
	require.NoError(t, err)
	assert.Equal(t, experiment.StatusDraft, exp.Status)

	started, err := eng.Start(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, experiment.StatusRunning, started.Status)
	require.NotNil(t, started.StartDate)

	// Starting a running experiment is an invalid transition.
	_, err = eng.Start(ctx, exp.ID)
	assert.ErrorIs(t, err, experiment.ErrInvalidState)

	res, err := eng.Stop(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, experiment.StatusCompleted, res.Status)

	got, err := eng.Get(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, experiment.StatusCompleted, got.Status)
	require.NotNil(t, got.EndDate)
}

func TestStopIsIdempotent(t *testing.T) {
	eng := newTestEngine(t, engine.Options{})
	ctx := context.Background()

	exp, err := eng.Create(ctx, definition(50, 50))
	require.NoError(t, err)
	_, err = eng.Start(ctx, exp.ID)
	require.NoError(t, err)
	require.NoError(t, eng.SetCounts(ctx, exp.ID, exp.Variants[0].ID, 1000, 28))
	require.NoError(t, eng.SetCounts(ctx, exp.ID, exp.Variants[1].ID, 1000, 35))

	first, err := eng.Stop(ctx, exp.ID)
	require.NoError(t, err)

	second, err := eng.Stop(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	got, err := eng.Get(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, experiment.StatusCompleted, got.Status)
}

func TestStartCompletedFails(t *testing.T) {
	eng := newTestEngine(t, engine.Options{})
	ctx := context.Background()

	exp, err := eng.Create(ctx, definition(50, 50))
	require.NoError(t, err)
	_, err = eng.Start(ctx, exp.ID)
	require.NoError(t, err)
	_, err = eng.Stop(ctx, exp.ID)
	require.NoError(t, err)

	before, err := eng.Get(ctx, exp.ID)
	require.NoError(t, err)

	_, err = eng.Start(ctx, exp.ID)
	assert.ErrorIs(t, err, experiment.ErrInvalidState)

	after, err := eng.Get(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after, "failed start must not mutate state")
}

func TestPauseResumeKeepsStartDate(t *testing.T) {
	eng := newTestEngine(t, engine.Options{})
	ctx := context.Background()

	exp, err := eng.Create(ctx, definition(50, 50))
	require.NoError(t, err)

	started, err := eng.Start(ctx, exp.ID)
	require.NoError(t, err)
	originalStart := *started.StartDate

	paused, err := eng.Pause(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, experiment.StatusPaused, paused.Status)

	resumed, err := eng.Start(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, experiment.StatusRunning, resumed.Status)
	require.NotNil(t, resumed.StartDate)
	assert.True(t, resumed.StartDate.Equal(originalStart))
}

func TestPauseRequiresRunning(t *testing.T) {
	eng := newTestEngine(t, engine.Options{})
	ctx := context.Background()

	exp, err := eng.Create(ctx, definition(50, 50))
	require.NoError(t, err)

	_, err = eng.Pause(ctx, exp.ID)
	assert.ErrorIs(t, err, experiment.ErrInvalidState)
}

func TestCancel(t *testing.T) {
	eng := newTestEngine(t, engine.Options{})
	ctx := context.Background()

	exp, err := eng.Create(ctx, definition(50, 50))
	require.NoError(t, err)

	cancelled, err := eng.Cancel(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, experiment.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.EndDate)

	// Cancelling a terminal experiment fails.
	_, err = eng.Cancel(ctx, exp.ID)
	assert.ErrorIs(t, err, experiment.ErrInvalidState)
}

func TestUnknownExperiment(t *testing.T) {
	eng := newTestEngine(t, engine.Options{})
	ctx := context.Background()

	_, err := eng.Start(ctx, "missing")
	assert.ErrorIs(t, err, experiment.ErrNotFound)

	_, err = eng.Get(ctx, "missing")
	assert.ErrorIs(t, err, experiment.ErrNotFound)
}

func TestEngineLoadsFromStore(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	// A record written by an earlier process.
	exp, err := experiment.New(definition(50, 50), false)
	require.NoError(t, err)
	exp.Status = experiment.StatusRunning
	now := time.Now()
	exp.StartDate = &now
	require.NoError(t, s.Put(ctx, exp))

	eng := engine.New(s, engine.Options{})
	got, err := eng.Get(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, experiment.StatusRunning, got.Status)
	assert.Equal(t, exp.ID, got.ID)
}

func TestListMergesCachedState(t *testing.T) {
	eng := newTestEngine(t, engine.Options{})
	ctx := context.Background()

	exp, err := eng.Create(ctx, definition(50, 50))
	require.NoError(t, err)
	_, err = eng.Start(ctx, exp.ID)
	require.NoError(t, err)
	require.NoError(t, eng.RecordImpression(ctx, exp.ID, exp.Variants[0].ID))

	exps, err := eng.List(ctx)
	require.NoError(t, err)
	require.Len(t, exps, 1)
	assert.Equal(t, int64(1), exps[0].TotalImpressions())
}
