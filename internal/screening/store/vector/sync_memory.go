package vector

import (
	"context"
	"sync"
)

// InMemorySyncState tracks last-indexed version tokens in memory.
type InMemorySyncState struct {
	mu    sync.RWMutex
	state map[string]map[string]string // dataset -> record ID -> token
}

// NewInMemorySyncState creates an empty in-memory sync state store.
func NewInMemorySyncState() *InMemorySyncState {
	return &InMemorySyncState{state: make(map[string]map[string]string)}
}

// GetMany returns last-indexed tokens keyed by record ID; absent records are
// omitted.
func (s *InMemorySyncState) GetMany(_ context.Context, dataset string, ids []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID := s.state[dataset]
	result := make(map[string]string, len(ids))
	for _, id := range ids {
		if token, ok := byID[id]; ok {
			result[id] = token
		}
	}
	return result, nil
}

// SetMany records last-indexed tokens for flushed records.
func (s *InMemorySyncState) SetMany(_ context.Context, dataset string, changes map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID := s.state[dataset]
	if byID == nil {
		byID = make(map[string]string, len(changes))
		s.state[dataset] = byID
	}
	for id, token := range changes {
		byID[id] = token
	}
	return nil
}

// DeleteDataset clears sync state for a dataset.
func (s *InMemorySyncState) DeleteDataset(_ context.Context, dataset string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state, dataset)
	return nil
}
