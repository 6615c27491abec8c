package store

import (
	"context"

	"github.com/sunsplit/sunsplit/internal/experiment"
)

// Store is durable keyed storage for experiment records. The engine owns
// the live counters in memory; implementations only need last-write-wins
// persistence of whole records.
type Store interface {
	Put(ctx context.Context, exp *experiment.Experiment) error
	Get(ctx context.Context, id string) (*experiment.Experiment, error)
	List(ctx context.Context) ([]*experiment.Experiment, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
