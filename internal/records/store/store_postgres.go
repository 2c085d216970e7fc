package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"anchorgate/internal/records/models"
	"anchorgate/pkg/platform/sentinel"
)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id          TEXT PRIMARY KEY,
	subject     TEXT NOT NULL,
	kind        TEXT NOT NULL,
	attributes  JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at  TIMESTAMPTZ NOT NULL,
	created_by  BIGINT NOT NULL
)`

// Postgres persists records in PostgreSQL via pgx.
type Postgres struct {
	db DB
}

// NewPostgres constructs a PostgreSQL-backed record store.
func NewPostgres(db DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the records table when missing.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create records schema: %w", err)
	}
	return nil
}

func (s *Postgres) Put(ctx context.Context, record *models.Record) error {
	if record == nil {
		return fmt.Errorf("record is required: %w", sentinel.ErrInvalidState)
	}
	attrs, err := json.Marshal(record.Attributes)
	if err != nil {
		return fmt.Errorf("encode attributes: %w", err)
	}
	query := `
		INSERT INTO records (id, subject, kind, attributes, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			subject = EXCLUDED.subject,
			kind = EXCLUDED.kind,
			attributes = EXCLUDED.attributes,
			created_at = EXCLUDED.created_at,
			created_by = EXCLUDED.created_by
	`
	_, err = s.db.Exec(ctx, query,
		record.ID, record.Subject, record.Kind, attrs, record.CreatedAt, int64(record.CreatedBy))
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, id string) (*models.Record, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, subject, kind, attributes, created_at, created_by
		FROM records WHERE id = $1`, id)
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("record %s not found: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get record: %w", err)
	}
	return record, nil
}

func (s *Postgres) List(ctx context.Context) ([]*models.Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, subject, kind, attributes, created_at, created_by
		FROM records ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return out, nil
}

func (s *Postgres) Delete(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM records WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

func scanRecord(row pgx.Row) (*models.Record, error) {
	var (
		record    models.Record
		attrs     []byte
		createdBy int64
	)
	if err := row.Scan(&record.ID, &record.Subject, &record.Kind, &attrs, &record.CreatedAt, &createdBy); err != nil {
		return nil, err
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &record.Attributes); err != nil {
			return nil, fmt.Errorf("decode attributes: %w", err)
		}
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.CreatedBy = uint64(createdBy)
	return &record, nil
}
