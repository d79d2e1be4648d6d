package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check that PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)

// PostgresRepository persists job records in a jobs table.
// Parameters, result and failure detail are stored as jsonb. Update takes a
// row lock (SELECT ... FOR UPDATE) so concurrent read-modify-write cycles on
// the same id are serialized by the database.
//
// Expected schema:
//
//	CREATE TABLE jobs (
//	    id              text PRIMARY KEY,
//	    provider_job_id text,
//	    kind            text NOT NULL,
//	    status          text NOT NULL,
//	    parameters      jsonb,
//	    result          jsonb,
//	    failure         jsonb,
//	    owner_id        text NOT NULL DEFAULT '',
//	    workspace_id    text NOT NULL DEFAULT '',
//	    created_at      timestamptz NOT NULL,
//	    updated_at      timestamptz NOT NULL,
//	    completed_at    timestamptz
//	);
//	CREATE INDEX jobs_owner_idx ON jobs (owner_id, created_at DESC);
//	CREATE INDEX jobs_workspace_idx ON jobs (workspace_id, created_at DESC);
//	CREATE INDEX jobs_status_idx ON jobs (status);
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a repository backed by the given pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const jobColumns = `id, provider_job_id, kind, status, parameters, result, failure,
	owner_id, workspace_id, created_at, updated_at, completed_at`

// Create persists a new record.
func (r *PostgresRepository) Create(ctx context.Context, rec *Record) error {
	params, result, failure, err := marshalJSONFields(rec)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.ID, nullable(rec.ProviderJobID), string(rec.Kind), string(rec.Status),
		params, result, failure,
		rec.OwnerID, rec.WorkspaceID, rec.CreatedAt, rec.UpdatedAt, rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("job: insert: %w", err)
	}
	return nil
}

// FindByID retrieves a record by its ID.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*Record, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	return scanRecord(row)
}

// Update applies fn to the row under a row lock and persists the result.
func (r *PostgresRepository) Update(ctx context.Context, id string, fn func(*Record) error) (*Record, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("job: begin update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1 FOR UPDATE`, id)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, err
	}

	if err := fn(rec); err != nil {
		return nil, err
	}

	params, result, failure, err := marshalJSONFields(rec)
	if err != nil {
		return nil, err
	}
	_, err = tx.Exec(ctx, `
		UPDATE jobs
		SET provider_job_id = $2, status = $3, parameters = $4, result = $5,
		    failure = $6, updated_at = $7, completed_at = $8
		WHERE id = $1`,
		rec.ID, nullable(rec.ProviderJobID), string(rec.Status),
		params, result, failure, rec.UpdatedAt, rec.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("job: update: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("job: commit update: %w", err)
	}
	return rec, nil
}

// List returns records matching the filter, newest first.
func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]*Record, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	args := make([]any, 0, 5)
	if f.OwnerID != "" {
		args = append(args, f.OwnerID)
		query += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}
	if f.WorkspaceID != "" {
		args = append(args, f.WorkspaceID)
		query += fmt.Sprintf(" AND workspace_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("job: list: %w", err)
	}
	defer rows.Close()

	records := make([]*Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("job: list rows: %w", err)
	}
	return records, nil
}

// ListActive returns ids of all non-terminal records.
func (r *PostgresRepository) ListActive(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM jobs
		WHERE status NOT IN ($1, $2, $3)
		ORDER BY created_at`,
		string(StatusCompleted), string(StatusFailed), string(StatusCancelled),
	)
	if err != nil {
		return nil, fmt.Errorf("job: list active: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("job: scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("job: list active rows: %w", err)
	}
	return ids, nil
}

// scanRecord reads one record from a row, mapping pgx.ErrNoRows to ErrNotFound.
func scanRecord(row pgx.Row) (*Record, error) {
	var (
		rec           Record
		providerJobID *string
		kind, status  string
		params        []byte
		result        []byte
		failure       []byte
		completedAt   *time.Time
	)
	err := row.Scan(
		&rec.ID, &providerJobID, &kind, &status, &params, &result, &failure,
		&rec.OwnerID, &rec.WorkspaceID, &rec.CreatedAt, &rec.UpdatedAt, &completedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("job: scan: %w", err)
	}
	if providerJobID != nil {
		rec.ProviderJobID = *providerJobID
	}
	rec.Kind = Kind(kind)
	rec.Status = Status(status)
	rec.CompletedAt = completedAt
	if len(params) > 0 {
		if err := json.Unmarshal(params, &rec.Parameters); err != nil {
			return nil, fmt.Errorf("job: decode parameters: %w", err)
		}
	}
	if len(result) > 0 {
		if err := json.Unmarshal(result, &rec.Result); err != nil {
			return nil, fmt.Errorf("job: decode result: %w", err)
		}
	}
	if len(failure) > 0 {
		if err := json.Unmarshal(failure, &rec.Failure); err != nil {
			return nil, fmt.Errorf("job: decode failure: %w", err)
		}
	}
	return &rec, nil
}

// marshalJSONFields encodes the jsonb columns. Nil values stay NULL.
func marshalJSONFields(rec *Record) (params, result, failure []byte, err error) {
	if rec.Parameters != nil {
		if params, err = json.Marshal(rec.Parameters); err != nil {
			return nil, nil, nil, fmt.Errorf("job: encode parameters: %w", err)
		}
	}
	if rec.Result != nil {
		if result, err = json.Marshal(rec.Result); err != nil {
			return nil, nil, nil, fmt.Errorf("job: encode result: %w", err)
		}
	}
	if rec.Failure != nil {
		if failure, err = json.Marshal(rec.Failure); err != nil {
			return nil, nil, nil, fmt.Errorf("job: encode failure: %w", err)
		}
	}
	return params, result, failure, nil
}

// nullable maps the empty string to NULL for optional text columns.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
