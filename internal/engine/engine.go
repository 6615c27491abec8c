package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sunsplit/sunsplit/internal/experiment"
	"github.com/sunsplit/sunsplit/internal/stats"
	"github.com/sunsplit/sunsplit/internal/store"
)

// UpdateHook runs synchronously after a counter update, under the same
// experiment lock as the update itself. That ordering is what makes the
// auto-stop transition race-free: no two updates can both observe
// pre-significant state.
type UpdateHook func(ctx context.Context, exp *experiment.Experiment)

// Options tune engine policy.
type Options struct {
	// AutoStop is the default auto-stop policy for experiments whose
	// definition leaves it unset.
	AutoStop bool
	// MinSample is the participant threshold below which results carry a
	// small-sample caution. Defaults to 1000.
	MinSample int64
	// Logger defaults to a nop logger for library use.
	Logger *zap.Logger
	// Rand draws uniform values in [0, 1) for traffic allocation.
	// Defaults to math/rand. Tests inject a seeded source here.
	Rand func() float64
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// Engine owns the experiment lifecycle: creation, state transitions,
// traffic allocation, counter updates and result reporting. Persistence
// goes through the injected Store; live counters stay in per-experiment
// cache entries.
type Engine struct {
	store     store.Store
	minSample int64
	autoStop  bool
	log       *zap.Logger
	randFloat func() float64
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	hooks   []UpdateHook
}

// entry is the cached runtime state for one experiment. Its lock is the
// synchronization unit for that experiment's counters and for the hooks
// that follow each update. Different experiments proceed fully in parallel.
type entry struct {
	mu  sync.Mutex
	exp *experiment.Experiment
}

func New(s store.Store, opts Options) *Engine {
	if opts.MinSample == 0 {
		opts.MinSample = 1000
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Rand == nil {
		opts.Rand = rand.Float64
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	e := &Engine{
		store:     s,
		minSample: opts.MinSample,
		autoStop:  opts.AutoStop,
		log:       opts.Logger,
		randFloat: opts.Rand,
		now:       opts.Now,
		entries:   make(map[string]*entry),
	}
	e.hooks = append(e.hooks, e.autoStopHook)
	return e
}

// OnUpdate registers an additional post-update hook. Hooks run in
// registration order under the experiment lock.
func (e *Engine) OnUpdate(hook UpdateHook) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hooks = append(e.hooks, hook)
}

// Create validates the definition, persists the draft and returns it.
func (e *Engine) Create(ctx context.Context, def experiment.Definition) (*experiment.Experiment, error) {
	exp, err := experiment.New(def, e.autoStop)
	if err != nil {
		return nil, err
	}
	if err := e.store.Put(ctx, exp); err != nil {
		return nil, fmt.Errorf("failed to persist experiment: %w", err)
	}

	e.mu.Lock()
	e.entries[exp.ID] = &entry{exp: exp}
	e.mu.Unlock()

	return exp.Clone(), nil
}

// Get returns a snapshot of the experiment's current state.
func (e *Engine) Get(ctx context.Context, id string) (*experiment.Experiment, error) {
	ent, err := e.entryFor(ctx, id)
	if err != nil {
		return nil, err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	return ent.exp.Clone(), nil
}

// List returns snapshots of all experiments, newest first. Cached entries
// take precedence over the stored copy, which may lag behind the counters.
func (e *Engine) List(ctx context.Context) ([]*experiment.Experiment, error) {
	stored, err := e.store.List(ctx)
	if err != nil {
		return nil, err
	}

	exps := make([]*experiment.Experiment, 0, len(stored))
	for _, exp := range stored {
		e.mu.Lock()
		ent, ok := e.entries[exp.ID]
		e.mu.Unlock()
		if ok {
			ent.mu.Lock()
			exp = ent.exp.Clone()
			ent.mu.Unlock()
		}
		exps = append(exps, exp)
	}
	return exps, nil
}

// Start moves a draft or paused experiment to running. The start date is
// set on the first start only, so resuming after a pause keeps the
// original run duration.
func (e *Engine) Start(ctx context.Context, id string) (*experiment.Experiment, error) {
	return e.transition(ctx, id, func(exp *experiment.Experiment) error {
		switch exp.Status {
		case experiment.StatusDraft, experiment.StatusPaused:
		default:
			return fmt.Errorf("cannot start experiment in state %q: %w", exp.Status, experiment.ErrInvalidState)
		}
		exp.Status = experiment.StatusRunning
		if exp.StartDate == nil {
			now := e.now()
			exp.StartDate = &now
		}
		return nil
	})
}

// Pause suspends a running experiment.
func (e *Engine) Pause(ctx context.Context, id string) (*experiment.Experiment, error) {
	return e.transition(ctx, id, func(exp *experiment.Experiment) error {
		if exp.Status != experiment.StatusRunning {
			return fmt.Errorf("cannot pause experiment in state %q: %w", exp.Status, experiment.ErrInvalidState)
		}
		exp.Status = experiment.StatusPaused
		return nil
	})
}

// Cancel terminates an experiment without declaring a winner.
func (e *Engine) Cancel(ctx context.Context, id string) (*experiment.Experiment, error) {
	return e.transition(ctx, id, func(exp *experiment.Experiment) error {
		if exp.Status.Terminal() {
			return fmt.Errorf("cannot cancel experiment in state %q: %w", exp.Status, experiment.ErrInvalidState)
		}
		exp.Status = experiment.StatusCancelled
		now := e.now()
		exp.EndDate = &now
		return nil
	})
}

// Stop completes a running experiment, freezes the winner and returns the
// final result. Stopping an already-completed experiment is a no-op that
// returns the frozen result again.
func (e *Engine) Stop(ctx context.Context, id string) (*Result, error) {
	ent, err := e.entryFor(ctx, id)
	if err != nil {
		return nil, err
	}

	ent.mu.Lock()
	exp := ent.exp
	if exp.Status == experiment.StatusCompleted {
		res := e.buildResult(exp)
		ent.mu.Unlock()
		return res, nil
	}
	if exp.Status != experiment.StatusRunning {
		status := exp.Status
		ent.mu.Unlock()
		return nil, fmt.Errorf("cannot stop experiment in state %q: %w", status, experiment.ErrInvalidState)
	}

	e.complete(exp)
	res := e.buildResult(exp)
	snap := exp.Clone()
	ent.mu.Unlock()

	if err := e.store.Put(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to persist experiment: %w", err)
	}
	return res, nil
}

// complete freezes the terminal state. Caller holds the entry lock.
func (e *Engine) complete(exp *experiment.Experiment) {
	now := e.now()
	exp.Status = experiment.StatusCompleted
	exp.EndDate = &now
	exp.UpdatedAt = now

	a := stats.Analyze(exp)
	if a.Leader != nil {
		exp.WinnerVariantID = a.Leader.VariantID
		if a.Comparison.Significant {
			exp.StatisticalSignificance = exp.ConfidenceLevel
		}
	}
}

// autoStopHook completes a running experiment as soon as the evaluator
// reports significance, provided its auto-stop policy is on. It runs under
// the entry lock, so concurrent updates serialize through it and the
// second one sees the terminal state instead of stopping twice.
func (e *Engine) autoStopHook(_ context.Context, exp *experiment.Experiment) {
	if !exp.AutoStop || exp.Status != experiment.StatusRunning {
		return
	}
	a := stats.Analyze(exp)
	if !a.Comparison.Significant {
		return
	}

	e.complete(exp)
	e.log.Info("auto-stopped experiment",
		zap.String("experiment", exp.ID),
		zap.String("winner", exp.WinnerVariantID),
		zap.Float64("p_value", a.Comparison.PValue))
}

func (e *Engine) transition(ctx context.Context, id string, apply func(*experiment.Experiment) error) (*experiment.Experiment, error) {
	ent, err := e.entryFor(ctx, id)
	if err != nil {
		return nil, err
	}

	ent.mu.Lock()
	if err := apply(ent.exp); err != nil {
		ent.mu.Unlock()
		return nil, err
	}
	ent.exp.UpdatedAt = e.now()
	snap := ent.exp.Clone()
	ent.mu.Unlock()

	if err := e.store.Put(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to persist experiment: %w", err)
	}
	return snap, nil
}

// entryFor returns the cached entry for id, loading it from the store on
// first access.
func (e *Engine) entryFor(ctx context.Context, id string) (*entry, error) {
	e.mu.Lock()
	if ent, ok := e.entries[id]; ok {
		e.mu.Unlock()
		return ent, nil
	}
	e.mu.Unlock()

	exp, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if ent, ok := e.entries[id]; ok {
		return ent, nil
	}
	ent := &entry{exp: exp}
	e.entries[id] = ent
	return ent, nil
}
