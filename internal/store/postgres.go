package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"casemap/internal/models"
)

//go:embed schema.sql
var schemaSQL string

const pgUniqueViolation = "23505"

const selectColumns = `id, title, summary, state, region, municipality, organization,
	value_estimated, status, date, source, url, created_at`

// PostgresStore persists cases in PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn, checks the connection and applies the
// schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %w", ErrStorage, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrStorage, err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Migrate creates the cases table and its indexes if missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("%w: apply schema: %w", ErrStorage, err)
	}

	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// FindByTitleOrURL returns the lowest-id row matching title or url.
func (s *PostgresStore) FindByTitleOrURL(ctx context.Context, title, url string) (*models.CaseRecord, error) {
	if title == "" && url == "" {
		return nil, nil
	}

	row := s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM cases
		WHERE ($1 <> '' AND title = $1) OR ($2 <> '' AND url = $2)
		ORDER BY id LIMIT 1`, title, url)

	rec, err := scanCase(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%w: find by title or url: %w", ErrStorage, err)
	}

	return rec, nil
}

// Insert adds rec and returns its id. Unique index violations are reported
// as ErrConflict.
func (s *PostgresStore) Insert(ctx context.Context, rec *models.CaseRecord) (int64, error) {
	if rec == nil {
		return 0, fmt.Errorf("%w: nil record", ErrStorage)
	}

	var id int64

	err := s.pool.QueryRow(ctx, `INSERT INTO cases
		(title, summary, state, region, municipality, organization,
		 value_estimated, status, date, source, url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		rec.Title, rec.Summary, rec.State, rec.Region, rec.Municipality, rec.Organization,
		rec.ValueEstimated, rec.Status, rec.Date, rec.Source, rec.URL,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return 0, fmt.Errorf("%w: %w: %s", ErrStorage, ErrConflict, pgErr.ConstraintName)
		}

		return 0, fmt.Errorf("%w: insert: %w", ErrStorage, err)
	}

	return id, nil
}

// UpdateGeography sets state and region in a single statement.
func (s *PostgresStore) UpdateGeography(ctx context.Context, id int64, geo models.Geography) error {
	tag, err := s.pool.Exec(ctx, `UPDATE cases SET state = $1, region = $2 WHERE id = $3`,
		geo.State, geo.Region, id)
	if err != nil {
		return fmt.Errorf("%w: update geography: %w", ErrStorage, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %w: id %d", ErrStorage, ErrNotFound, id)
	}

	return nil
}

// ListAll returns every row in id order.
func (s *PostgresStore) ListAll(ctx context.Context) ([]models.CaseRecord, error) {
	return s.query(ctx, `SELECT `+selectColumns+` FROM cases ORDER BY id`)
}

// ListByState returns the rows whose state equals state exactly.
func (s *PostgresStore) ListByState(ctx context.Context, state string) ([]models.CaseRecord, error) {
	return s.query(ctx, `SELECT `+selectColumns+` FROM cases WHERE state = $1 ORDER BY id`, state)
}

func (s *PostgresStore) query(ctx context.Context, sql string, args ...any) ([]models.CaseRecord, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", ErrStorage, err)
	}
	defer rows.Close()

	out := []models.CaseRecord{}

	for rows.Next() {
		rec, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrStorage, err)
		}

		out = append(out, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %w", ErrStorage, err)
	}

	return out, nil
}

func scanCase(row pgx.Row) (*models.CaseRecord, error) {
	var rec models.CaseRecord

	err := row.Scan(
		&rec.ID, &rec.Title, &rec.Summary, &rec.State, &rec.Region,
		&rec.Municipality, &rec.Organization, &rec.ValueEstimated,
		&rec.Status, &rec.Date, &rec.Source, &rec.URL, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// Truncate removes every row and resets the id sequence.
func (s *PostgresStore) Truncate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE cases RESTART IDENTITY`); err != nil {
		return fmt.Errorf("%w: truncate: %w", ErrStorage, err)
	}

	return nil
}
