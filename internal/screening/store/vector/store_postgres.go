package vector

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"vigil/internal/screening/models"
)

// PostgresIndex persists embeddings in PostgreSQL with the pgvector
// extension. Cosine distance drives similarity search.
type PostgresIndex struct {
	db         *sql.DB
	dimensions int
}

// NewPostgresIndex constructs a pgvector-backed index. dimensions must match
// the embedding model in use.
func NewPostgresIndex(db *sql.DB, dimensions int) *PostgresIndex {
	return &PostgresIndex{db: db, dimensions: dimensions}
}

// Schema returns the DDL this index expects.
func (s *PostgresIndex) Schema() string {
	return fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS watchlist_vectors (
			dataset   TEXT NOT NULL,
			record_id TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			payload   TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (dataset, record_id)
		)
	`, s.dimensions)
}

// Upsert stores entries, replacing any existing vector for the same record.
func (s *PostgresIndex) Upsert(ctx context.Context, entries []models.VectorEntry) error {
	query := `
		INSERT INTO watchlist_vectors (dataset, record_id, embedding, payload)
		VALUES ($1, $2, $3::vector, $4)
		ON CONFLICT (dataset, record_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			payload   = EXCLUDED.payload
	`
	for _, entry := range entries {
		if _, err := s.db.ExecContext(ctx, query,
			entry.Dataset, entry.RecordID, encodeVector(entry.Vector), entry.Payload); err != nil {
			return fmt.Errorf("upsert vector %s/%s: %w", entry.Dataset, entry.RecordID, err)
		}
	}
	return nil
}

// DeleteDataset removes every vector of a dataset.
func (s *PostgresIndex) DeleteDataset(ctx context.Context, dataset string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM watchlist_vectors WHERE dataset = $1`, dataset); err != nil {
		return fmt.Errorf("delete vectors for %s: %w", dataset, err)
	}
	return nil
}

// Query returns the topK most similar entries by cosine similarity,
// optionally restricted to a set of datasets.
func (s *PostgresIndex) Query(ctx context.Context, vector []float32, topK int, datasets []string) ([]models.VectorHit, error) {
	if topK <= 0 || len(vector) == 0 {
		return nil, nil
	}

	// pgvector's <=> operator yields cosine distance; similarity is 1 - distance.
	query := `
		SELECT record_id, dataset, 1 - (embedding <=> $1::vector) AS score
		FROM watchlist_vectors
	`
	args := []any{encodeVector(vector)}
	if len(datasets) > 0 {
		query += ` WHERE dataset = ANY($2)`
		args = append(args, pq.Array(datasets))
	}
	query += fmt.Sprintf(` ORDER BY embedding <=> $1::vector, record_id LIMIT %d`, topK)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()

	var hits []models.VectorHit
	for rows.Next() {
		var hit models.VectorHit
		if err := rows.Scan(&hit.RecordID, &hit.Dataset, &hit.Score); err != nil {
			return nil, fmt.Errorf("scan vector hit: %w", err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vector hits: %w", err)
	}
	return hits, nil
}

// encodeVector renders a float32 slice in pgvector's text format, e.g.
// "[0.1,0.2,0.3]".
func encodeVector(vector []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vector {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
