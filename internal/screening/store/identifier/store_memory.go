package identifier

import (
	"context"
	"sync"

	"vigil/internal/screening/models"
)

// InMemoryIndex keeps normalized identifier mappings in memory.
type InMemoryIndex struct {
	mu      sync.RWMutex
	entries map[string][]models.IdentifierEntry // keyed by normalized value
}

// NewInMemoryIndex creates an empty in-memory identifier index.
func NewInMemoryIndex() *InMemoryIndex {
	return &InMemoryIndex{
		entries: make(map[string][]models.IdentifierEntry),
	}
}

// InsertMany adds entries, skipping exact duplicates.
func (s *InMemoryIndex) InsertMany(_ context.Context, entries []models.IdentifierEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		if entry.Norm == "" {
			continue
		}
		if containsEntry(s.entries[entry.Norm], entry) {
			continue
		}
		s.entries[entry.Norm] = append(s.entries[entry.Norm], entry)
	}
	return nil
}

// DeleteDataset clears all entries for a dataset.
func (s *InMemoryIndex) DeleteDataset(_ context.Context, dataset string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for norm, entries := range s.entries {
		kept := entries[:0]
		for _, entry := range entries {
			if entry.Dataset != dataset {
				kept = append(kept, entry)
			}
		}
		if len(kept) == 0 {
			delete(s.entries, norm)
		} else {
			s.entries[norm] = kept
		}
	}
	return nil
}

// LookupMany resolves normalized values to owning records.
func (s *InMemoryIndex) LookupMany(_ context.Context, norms []string) ([]models.IdentifierEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var hits []models.IdentifierEntry
	for _, norm := range norms {
		hits = append(hits, s.entries[norm]...)
	}
	return hits, nil
}

func containsEntry(entries []models.IdentifierEntry, entry models.IdentifierEntry) bool {
	for _, e := range entries {
		if e == entry {
			return true
		}
	}
	return false
}
