package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite. Default backend
// for single-instance deployments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path in WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS poll_cursors (
	name       TEXT PRIMARY KEY,
	cursor_at  DATETIME NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS dead_letters (
	id         TEXT PRIMARY KEY,
	review_id  TEXT NOT NULL,
	payload    TEXT NOT NULL,
	reason     TEXT NOT NULL,
	error_type TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_dead_letters_created_at ON dead_letters(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetCursor(ctx context.Context, name string) (time.Time, error) {
	var cursor time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT cursor_at FROM poll_cursors WHERE name = ?`, name,
	).Scan(&cursor)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "sqlite: get cursor %s", name)
	}
	return cursor.UTC(), nil
}

func (s *SQLiteStore) SetCursor(ctx context.Context, name string, ts time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO poll_cursors (name, cursor_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET cursor_at = excluded.cursor_at, updated_at = excluded.updated_at`,
		name, ts.UTC(), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: set cursor %s", name)
}

func (s *SQLiteStore) AddDeadLetter(ctx context.Context, entry DeadLetter) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dead_letters (id, review_id, payload, reason, error_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ReviewID, string(entry.Payload), entry.Reason, entry.ErrorType, entry.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: add dead letter %s", entry.ReviewID)
}

func (s *SQLiteStore) ListDeadLetters(ctx context.Context, limit int) ([]DeadLetter, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, review_id, payload, reason, error_type, created_at
		 FROM dead_letters ORDER BY created_at ASC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list dead letters")
	}
	defer rows.Close()

	var entries []DeadLetter
	for rows.Next() {
		var entry DeadLetter
		var payload string
		if err := rows.Scan(&entry.ID, &entry.ReviewID, &payload, &entry.Reason, &entry.ErrorType, &entry.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dead letter")
		}
		entry.Payload = []byte(payload)
		entries = append(entries, entry)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: iterate dead letters")
}

func (s *SQLiteStore) DeleteDeadLetter(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM dead_letters WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete dead letter %s", id)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return eris.Errorf("sqlite: dead letter %s not found", id)
	}
	return nil
}
