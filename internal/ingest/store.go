package ingest

import (
	"context"
	"sync"

	"vigil/internal/ingest/models"
	dErrors "vigil/pkg/domain-errors"
)

// ErrRunNotFound is returned for unknown run IDs.
var ErrRunNotFound = dErrors.New(dErrors.CodeNotFound, "ingestion run not found")

// RunStore keeps ingestion runs. Runs are operational state, not durable
// data, so the in-memory store is the only implementation.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*models.Run
}

// NewRunStore creates an empty run store.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]*models.Run)}
}

// Save stores a run snapshot, replacing any previous state.
func (s *RunStore) Save(_ context.Context, run models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := run
	s.runs[run.ID] = &copied
	return nil
}

// Get returns a snapshot of the run.
func (s *RunStore) Get(_ context.Context, id string) (models.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return models.Run{}, ErrRunNotFound
	}
	return *run, nil
}

// Update applies fn to the run under the store lock and returns the result.
func (s *RunStore) Update(_ context.Context, id string, fn func(*models.Run)) (models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return models.Run{}, ErrRunNotFound
	}
	fn(run)
	return *run, nil
}

// List returns snapshots of all runs, for operational inspection.
func (s *RunStore) List(_ context.Context) []models.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Run, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, *run)
	}
	return out
}
