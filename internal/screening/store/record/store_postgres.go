package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"vigil/internal/screening/models"
	"vigil/internal/screening/ports"
)

// maxBatchRows bounds the parameter count of one multi-row upsert statement.
// Postgres caps statements at 65535 bind parameters; at ten parameters per
// row this stays far below the limit while keeping round trips low.
const maxBatchRows = 200

// PostgresStore persists watchlist records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed record store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema returns the DDL this store expects. Applied by deployment tooling
// and by integration tests.
func Schema() string {
	return `
		CREATE TABLE IF NOT EXISTS watchlist_records (
			dataset      TEXT NOT NULL,
			id           TEXT NOT NULL,
			primary_name TEXT NOT NULL DEFAULT '',
			aliases      TEXT[] NOT NULL DEFAULT '{}',
			birth_date   DATE,
			countries    TEXT[] NOT NULL DEFAULT '{}',
			addresses    TEXT[] NOT NULL DEFAULT '{}',
			identifiers  JSONB NOT NULL DEFAULT '[]',
			remarks      TEXT NOT NULL DEFAULT '',
			last_change  TEXT NOT NULL DEFAULT '',
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (dataset, id)
		)
	`
}

const upsertQuery = `
	INSERT INTO watchlist_records
		(dataset, id, primary_name, aliases, birth_date, countries, addresses, identifiers, remarks, last_change, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
	ON CONFLICT (dataset, id) DO UPDATE SET
		primary_name = EXCLUDED.primary_name,
		aliases      = EXCLUDED.aliases,
		birth_date   = EXCLUDED.birth_date,
		countries    = EXCLUDED.countries,
		addresses    = EXCLUDED.addresses,
		identifiers  = EXCLUDED.identifiers,
		remarks      = EXCLUDED.remarks,
		last_change  = EXCLUDED.last_change,
		updated_at   = now()
	WHERE watchlist_records.last_change = ''
	   OR EXCLUDED.last_change > watchlist_records.last_change
`

// Upsert writes a record unless the stored version is not strictly older.
// Reports whether the write happened.
func (s *PostgresStore) Upsert(ctx context.Context, record models.WatchlistRecord) (bool, error) {
	args, err := upsertArgs(record)
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, upsertQuery, args...)
	if err != nil {
		return false, fmt.Errorf("upsert record %s/%s: %w", record.Dataset, record.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert record rows affected: %w", err)
	}
	return affected > 0, nil
}

// UpsertMany writes records in sub-batches. A failed sub-batch falls back to
// one-row-at-a-time upserts so the failure stays isolated to the offending
// rows.
func (s *PostgresStore) UpsertMany(ctx context.Context, records []models.WatchlistRecord) (written, failed int, err error) {
	for start := 0; start < len(records); start += maxBatchRows {
		end := min(start+maxBatchRows, len(records))
		chunk := records[start:end]

		n, chunkErr := s.upsertChunk(ctx, chunk)
		if chunkErr == nil {
			written += n
			continue
		}

		// Retry the chunk row by row; only the rows that genuinely cannot be
		// written are counted as failures.
		for _, record := range chunk {
			wrote, rowErr := s.Upsert(ctx, record)
			if rowErr != nil {
				failed++
				continue
			}
			if wrote {
				written++
			}
		}
	}
	return written, failed, nil
}

func (s *PostgresStore) upsertChunk(ctx context.Context, records []models.WatchlistRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	var (
		placeholders strings.Builder
		args         = make([]any, 0, len(records)*10)
	)
	for i, record := range records {
		rowArgs, err := upsertArgs(record)
		if err != nil {
			return 0, err
		}
		if i > 0 {
			placeholders.WriteString(", ")
		}
		base := i * 10
		fmt.Fprintf(&placeholders, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, now())",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10)
		args = append(args, rowArgs...)
	}

	query := fmt.Sprintf(`
		INSERT INTO watchlist_records
			(dataset, id, primary_name, aliases, birth_date, countries, addresses, identifiers, remarks, last_change, updated_at)
		VALUES %s
		ON CONFLICT (dataset, id) DO UPDATE SET
			primary_name = EXCLUDED.primary_name,
			aliases      = EXCLUDED.aliases,
			birth_date   = EXCLUDED.birth_date,
			countries    = EXCLUDED.countries,
			addresses    = EXCLUDED.addresses,
			identifiers  = EXCLUDED.identifiers,
			remarks      = EXCLUDED.remarks,
			last_change  = EXCLUDED.last_change,
			updated_at   = now()
		WHERE watchlist_records.last_change = ''
		   OR EXCLUDED.last_change > watchlist_records.last_change
	`, placeholders.String())

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("upsert record chunk: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("upsert record chunk rows affected: %w", err)
	}
	return int(affected), nil
}

func upsertArgs(record models.WatchlistRecord) ([]any, error) {
	identifiers, err := json.Marshal(record.Identifiers)
	if err != nil {
		return nil, fmt.Errorf("marshal identifiers for %s/%s: %w", record.Dataset, record.ID, err)
	}

	var birthDate sql.NullTime
	if record.BirthDate != nil {
		birthDate = sql.NullTime{Time: *record.BirthDate, Valid: true}
	}

	return []any{
		record.Dataset,
		record.ID,
		record.PrimaryName,
		pq.Array(record.Aliases),
		birthDate,
		pq.Array(record.Countries),
		pq.Array(record.Addresses),
		identifiers,
		record.Remarks,
		record.LastChange,
	}, nil
}

const selectColumns = `dataset, id, primary_name, aliases, birth_date, countries, addresses, identifiers, remarks, last_change`

// Get fetches one record. Returns ports.ErrNotFound if absent.
func (s *PostgresStore) Get(ctx context.Context, dataset, id string) (models.WatchlistRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM watchlist_records WHERE dataset = $1 AND id = $2`,
		dataset, id)
	record, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.WatchlistRecord{}, ports.ErrNotFound
		}
		return models.WatchlistRecord{}, fmt.Errorf("get record %s/%s: %w", dataset, id, err)
	}
	return record, nil
}

// GetMany fetches records in bulk; missing IDs are silently excluded.
func (s *PostgresStore) GetMany(ctx context.Context, dataset string, ids []string) ([]models.WatchlistRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM watchlist_records WHERE dataset = $1 AND id = ANY($2)`,
		dataset, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get records for %s: %w", dataset, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListDataset returns every record of a dataset.
func (s *PostgresStore) ListDataset(ctx context.Context, dataset string) ([]models.WatchlistRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM watchlist_records WHERE dataset = $1 ORDER BY id`,
		dataset)
	if err != nil {
		return nil, fmt.Errorf("list records for %s: %w", dataset, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// DeleteDataset removes every record of a dataset.
func (s *PostgresStore) DeleteDataset(ctx context.Context, dataset string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM watchlist_records WHERE dataset = $1`, dataset); err != nil {
		return fmt.Errorf("delete records for %s: %w", dataset, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (models.WatchlistRecord, error) {
	var (
		record      models.WatchlistRecord
		aliases     pq.StringArray
		countries   pq.StringArray
		addresses   pq.StringArray
		identifiers []byte
		birthDate   sql.NullTime
	)
	if err := row.Scan(
		&record.Dataset,
		&record.ID,
		&record.PrimaryName,
		&aliases,
		&birthDate,
		&countries,
		&addresses,
		&identifiers,
		&record.Remarks,
		&record.LastChange,
	); err != nil {
		return models.WatchlistRecord{}, err
	}

	record.Aliases = aliases
	record.Countries = countries
	record.Addresses = addresses
	if birthDate.Valid {
		t := birthDate.Time
		record.BirthDate = &t
	}
	if len(identifiers) > 0 {
		if err := json.Unmarshal(identifiers, &record.Identifiers); err != nil {
			return models.WatchlistRecord{}, fmt.Errorf("unmarshal identifiers: %w", err)
		}
	}
	return record, nil
}

func scanRecords(rows *sql.Rows) ([]models.WatchlistRecord, error) {
	var records []models.WatchlistRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}
