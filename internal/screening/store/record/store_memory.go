package record

import (
	"context"
	"sync"

	"vigil/internal/screening/models"
	"vigil/internal/screening/ports"
)

// InMemoryStore keeps watchlist records in memory. Intended for development
// and tests; production deployments use the Postgres store.
type InMemoryStore struct {
	mu       sync.RWMutex
	datasets map[string]map[string]models.WatchlistRecord
}

// NewInMemoryStore creates an empty in-memory record store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		datasets: make(map[string]map[string]models.WatchlistRecord),
	}
}

// Upsert writes a record unless the stored version is not strictly older.
func (s *InMemoryStore) Upsert(_ context.Context, record models.WatchlistRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(record), nil
}

// UpsertMany applies Upsert semantics row by row. In-memory writes cannot
// fail partially, so failed is always zero.
func (s *InMemoryStore) UpsertMany(_ context.Context, records []models.WatchlistRecord) (written, failed int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range records {
		if s.upsertLocked(record) {
			written++
		}
	}
	return written, 0, nil
}

// upsertLocked applies the conditional-update rule. Must be called while
// holding s.mu.
func (s *InMemoryStore) upsertLocked(record models.WatchlistRecord) bool {
	ds := s.datasets[record.Dataset]
	if ds == nil {
		ds = make(map[string]models.WatchlistRecord)
		s.datasets[record.Dataset] = ds
	}
	if existing, ok := ds[record.ID]; ok {
		// A present version that is not strictly older wins; re-ingesting
		// unchanged or older data is a no-op.
		if existing.LastChange != "" && !models.NewerThan(record.LastChange, existing.LastChange) {
			return false
		}
	}
	ds[record.ID] = record
	return true
}

// Get fetches one record.
func (s *InMemoryStore) Get(_ context.Context, dataset, id string) (models.WatchlistRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.datasets[dataset][id]; ok {
		return record, nil
	}
	return models.WatchlistRecord{}, ports.ErrNotFound
}

// GetMany fetches records in bulk; missing IDs are silently excluded.
func (s *InMemoryStore) GetMany(_ context.Context, dataset string, ids []string) ([]models.WatchlistRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]models.WatchlistRecord, 0, len(ids))
	for _, id := range ids {
		if record, ok := s.datasets[dataset][id]; ok {
			records = append(records, record)
		}
	}
	return records, nil
}

// ListDataset returns every record of a dataset.
func (s *InMemoryStore) ListDataset(_ context.Context, dataset string) ([]models.WatchlistRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]models.WatchlistRecord, 0, len(s.datasets[dataset]))
	for _, record := range s.datasets[dataset] {
		records = append(records, record)
	}
	return records, nil
}

// DeleteDataset removes every record of a dataset.
func (s *InMemoryStore) DeleteDataset(_ context.Context, dataset string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.datasets, dataset)
	return nil
}
