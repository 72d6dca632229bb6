package vector

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresSyncState persists last-indexed version tokens in PostgreSQL.
type PostgresSyncState struct {
	db *sql.DB
}

// NewPostgresSyncState constructs a PostgreSQL-backed sync state store.
func NewPostgresSyncState(db *sql.DB) *PostgresSyncState {
	return &PostgresSyncState{db: db}
}

// SyncStateSchema returns the DDL the sync state store expects.
func SyncStateSchema() string {
	return `
		CREATE TABLE IF NOT EXISTS vector_sync_state (
			dataset             TEXT NOT NULL,
			record_id           TEXT NOT NULL,
			last_indexed_change TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (dataset, record_id)
		)
	`
}

// GetMany returns last-indexed tokens keyed by record ID; absent records are
// omitted.
func (s *PostgresSyncState) GetMany(ctx context.Context, dataset string, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_id, last_indexed_change FROM vector_sync_state WHERE dataset = $1 AND record_id = ANY($2)`,
		dataset, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get sync state for %s: %w", dataset, err)
	}
	defer rows.Close()

	result := make(map[string]string, len(ids))
	for rows.Next() {
		var id, token string
		if err := rows.Scan(&id, &token); err != nil {
			return nil, fmt.Errorf("scan sync state: %w", err)
		}
		result[id] = token
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync state: %w", err)
	}
	return result, nil
}

// SetMany records last-indexed tokens for flushed records.
func (s *PostgresSyncState) SetMany(ctx context.Context, dataset string, changes map[string]string) error {
	if len(changes) == 0 {
		return nil
	}

	ids := make([]string, 0, len(changes))
	tokens := make([]string, 0, len(changes))
	for id, token := range changes {
		ids = append(ids, id)
		tokens = append(tokens, token)
	}

	query := `
		INSERT INTO vector_sync_state (dataset, record_id, last_indexed_change)
		SELECT $1, unnest($2::text[]), unnest($3::text[])
		ON CONFLICT (dataset, record_id) DO UPDATE SET
			last_indexed_change = EXCLUDED.last_indexed_change
	`
	if _, err := s.db.ExecContext(ctx, query, dataset, pq.Array(ids), pq.Array(tokens)); err != nil {
		return fmt.Errorf("set sync state for %s: %w", dataset, err)
	}
	return nil
}

// DeleteDataset clears sync state for a dataset.
func (s *PostgresSyncState) DeleteDataset(ctx context.Context, dataset string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vector_sync_state WHERE dataset = $1`, dataset); err != nil {
		return fmt.Errorf("delete sync state for %s: %w", dataset, err)
	}
	return nil
}
