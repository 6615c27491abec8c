package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sunsplit/sunsplit/internal/experiment"
)

// MemoryStore keeps experiments in a map. It backs tests and callers that
// embed the engine without durable storage. Records are cloned on the way
// in and out so callers never share state with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	exps map[string]*experiment.Experiment
}

func NewMemory() *MemoryStore {
	return &MemoryStore{exps: make(map[string]*experiment.Experiment)}
}

func (s *MemoryStore) Put(_ context.Context, exp *experiment.Experiment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exps[exp.ID] = exp.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*experiment.Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exp, ok := s.exps[id]
	if !ok {
		return nil, fmt.Errorf("experiment %q: %w", id, experiment.ErrNotFound)
	}
	return exp.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]*experiment.Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exps := make([]*experiment.Experiment, 0, len(s.exps))
	for _, exp := range s.exps {
		exps = append(exps, exp.Clone())
	}
	sort.Slice(exps, func(i, j int) bool {
		if !exps[i].CreatedAt.Equal(exps[j].CreatedAt) {
			return exps[i].CreatedAt.After(exps[j].CreatedAt)
		}
		return exps[i].ID < exps[j].ID
	})
	return exps, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exps[id]; !ok {
		return fmt.Errorf("experiment %q: %w", id, experiment.ErrNotFound)
	}
	delete(s.exps, id)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
