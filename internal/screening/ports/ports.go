// Package ports defines shared interfaces for the screening module.
// Interfaces are placed here when consumed by multiple services to avoid duplication.
package ports

import (
	"context"

	"vigil/internal/screening/models"
	dErrors "vigil/pkg/domain-errors"
)

// ErrNotFound keeps store-specific 404s consistent across in-memory and
// Postgres implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "record not found")

// RecordStore persists watchlist records with conditional-update semantics on
// the last-change version token.
type RecordStore interface {
	// Upsert writes a record unless a stored version with the same key is not
	// strictly older. Reports whether the write happened.
	Upsert(ctx context.Context, record models.WatchlistRecord) (bool, error)

	// UpsertMany applies Upsert semantics to a batch, isolating row failures.
	// written counts rows actually written, failed counts rows that could not
	// be written even one at a time.
	UpsertMany(ctx context.Context, records []models.WatchlistRecord) (written, failed int, err error)

	// Get fetches one record. Returns ErrNotFound if absent.
	Get(ctx context.Context, dataset, id string) (models.WatchlistRecord, error)

	// GetMany fetches records in bulk; missing IDs are silently excluded.
	GetMany(ctx context.Context, dataset string, ids []string) ([]models.WatchlistRecord, error)

	// ListDataset returns every record of a dataset, for full reindexes.
	ListDataset(ctx context.Context, dataset string) ([]models.WatchlistRecord, error)

	// DeleteDataset removes every record of a dataset (full-reindex truncate).
	DeleteDataset(ctx context.Context, dataset string) error
}

// IdentifierIndex maps normalized identifier values to owning records.
// Lookups must use the same normalization as writes.
type IdentifierIndex interface {
	// InsertMany adds entries. Entries with an empty Norm must be rejected by
	// the caller before insertion.
	InsertMany(ctx context.Context, entries []models.IdentifierEntry) error

	// DeleteDataset clears all entries for a dataset before re-insertion.
	DeleteDataset(ctx context.Context, dataset string) error

	// LookupMany resolves normalized values to (dataset, recordID) pairs.
	LookupMany(ctx context.Context, norms []string) ([]models.IdentifierEntry, error)
}

// VectorIndex stores and queries record embeddings.
type VectorIndex interface {
	// Upsert writes entries in bulk, overwriting by (dataset, recordID).
	Upsert(ctx context.Context, entries []models.VectorEntry) error

	// Query returns the topK nearest neighbors of vector, optionally
	// restricted to the given datasets. Scores are cosine similarities.
	Query(ctx context.Context, vector []float32, topK int, datasets []string) ([]models.VectorHit, error)

	// DeleteDataset removes every vector of a dataset (full-reindex truncate).
	DeleteDataset(ctx context.Context, dataset string) error
}

// SyncStateStore tracks the last-indexed version token per record, used
// solely to decide whether re-embedding is necessary.
type SyncStateStore interface {
	// GetMany returns lastIndexedChange keyed by record ID; absent records
	// are omitted from the result.
	GetMany(ctx context.Context, dataset string, ids []string) (map[string]string, error)

	// SetMany records lastIndexedChange for successfully flushed records.
	SetMany(ctx context.Context, dataset string, changes map[string]string) error

	// DeleteDataset clears sync state for a dataset (full-reindex truncate).
	DeleteDataset(ctx context.Context, dataset string) error
}

// Embedder turns texts into vectors. Implementations must return one vector
// per input text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// WorkPublisher hands follow-up work items to an external dispatcher. The
// core never waits on delivery.
type WorkPublisher interface {
	PublishReindex(ctx context.Context, dataset, runID string) error
}
