package identifier

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"vigil/internal/screening/models"
)

// PostgresIndex persists normalized identifier mappings in PostgreSQL.
type PostgresIndex struct {
	db *sql.DB
}

// NewPostgresIndex constructs a PostgreSQL-backed identifier index.
func NewPostgresIndex(db *sql.DB) *PostgresIndex {
	return &PostgresIndex{db: db}
}

// Schema returns the DDL this index expects.
func Schema() string {
	return `
		CREATE TABLE IF NOT EXISTS watchlist_identifiers (
			norm      TEXT NOT NULL,
			dataset   TEXT NOT NULL,
			record_id TEXT NOT NULL,
			PRIMARY KEY (norm, dataset, record_id)
		);
		CREATE INDEX IF NOT EXISTS watchlist_identifiers_dataset_idx
			ON watchlist_identifiers (dataset)
	`
}

// InsertMany adds entries with one unnest round trip.
func (s *PostgresIndex) InsertMany(ctx context.Context, entries []models.IdentifierEntry) error {
	if len(entries) == 0 {
		return nil
	}

	norms := make([]string, 0, len(entries))
	datasets := make([]string, 0, len(entries))
	recordIDs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Norm == "" {
			continue
		}
		norms = append(norms, entry.Norm)
		datasets = append(datasets, entry.Dataset)
		recordIDs = append(recordIDs, entry.RecordID)
	}
	if len(norms) == 0 {
		return nil
	}

	query := `
		INSERT INTO watchlist_identifiers (norm, dataset, record_id)
		SELECT unnest($1::text[]), unnest($2::text[]), unnest($3::text[])
		ON CONFLICT (norm, dataset, record_id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, pq.Array(norms), pq.Array(datasets), pq.Array(recordIDs)); err != nil {
		return fmt.Errorf("insert identifier entries: %w", err)
	}
	return nil
}

// DeleteDataset clears all entries for a dataset.
func (s *PostgresIndex) DeleteDataset(ctx context.Context, dataset string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM watchlist_identifiers WHERE dataset = $1`, dataset); err != nil {
		return fmt.Errorf("delete identifier entries for %s: %w", dataset, err)
	}
	return nil
}

// LookupMany resolves normalized values to owning records.
func (s *PostgresIndex) LookupMany(ctx context.Context, norms []string) ([]models.IdentifierEntry, error) {
	if len(norms) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT norm, dataset, record_id FROM watchlist_identifiers WHERE norm = ANY($1)`,
		pq.Array(norms))
	if err != nil {
		return nil, fmt.Errorf("lookup identifiers: %w", err)
	}
	defer rows.Close()

	var hits []models.IdentifierEntry
	for rows.Next() {
		var entry models.IdentifierEntry
		if err := rows.Scan(&entry.Norm, &entry.Dataset, &entry.RecordID); err != nil {
			return nil, fmt.Errorf("scan identifier entry: %w", err)
		}
		hits = append(hits, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identifier entries: %w", err)
	}
	return hits, nil
}
