package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock's pool
// satisfies it, which keeps the query layer testable without a server.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool. Used when multiple
// bridge instances share poll state.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(5)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS poll_cursors (
	name       TEXT PRIMARY KEY,
	cursor_at  TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS dead_letters (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	review_id  TEXT NOT NULL,
	payload    JSONB NOT NULL,
	reason     TEXT NOT NULL,
	error_type TEXT NOT NULL DEFAULT 'transient',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_dead_letters_created_at ON dead_letters(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetCursor(ctx context.Context, name string) (time.Time, error) {
	var cursor time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT cursor_at FROM poll_cursors WHERE name = $1`, name,
	).Scan(&cursor)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, eris.Wrapf(err, "postgres: get cursor %s", name)
	}
	return cursor.UTC(), nil
}

func (s *PostgresStore) SetCursor(ctx context.Context, name string, ts time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO poll_cursors (name, cursor_at, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (name) DO UPDATE SET cursor_at = $2, updated_at = now()`,
		name, ts.UTC(),
	)
	return eris.Wrapf(err, "postgres: set cursor %s", name)
}

func (s *PostgresStore) AddDeadLetter(ctx context.Context, entry DeadLetter) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO dead_letters (id, review_id, payload, reason, error_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.ReviewID, []byte(entry.Payload), entry.Reason, entry.ErrorType, entry.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: add dead letter %s", entry.ReviewID)
}

func (s *PostgresStore) ListDeadLetters(ctx context.Context, limit int) ([]DeadLetter, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, review_id, payload, reason, error_type, created_at
		 FROM dead_letters ORDER BY created_at ASC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list dead letters")
	}
	defer rows.Close()

	var entries []DeadLetter
	for rows.Next() {
		var entry DeadLetter
		var payload []byte
		if err := rows.Scan(&entry.ID, &entry.ReviewID, &payload, &entry.Reason, &entry.ErrorType, &entry.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dead letter")
		}
		entry.Payload = payload
		entries = append(entries, entry)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list dead letters iterate")
}

func (s *PostgresStore) DeleteDeadLetter(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM dead_letters WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete dead letter %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: dead letter %s not found", id)
	}
	return nil
}
