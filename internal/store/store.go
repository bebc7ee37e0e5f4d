// Package store persists the bridge's small operational state: the poll
// watermark per location and the dead letters left by failed reviews.
// Ticket state itself lives in the helpdesk; nothing here is needed for
// idempotency, which rides entirely on the external key.
package store

import (
	"context"
	"encoding/json"
	"time"
)

// DeadLetter is a review the poll pipeline could not process. The raw
// payload is kept verbatim so a retry reprocesses exactly what failed.
type DeadLetter struct {
	ID        string          `json:"id"`
	ReviewID  string          `json:"review_id"`
	Payload   json.RawMessage `json:"payload"`
	Reason    string          `json:"reason"`
	ErrorType string          `json:"error_type"` // "transient" or "permanent"
	CreatedAt time.Time       `json:"created_at"`
}

// Store is the persistence interface for the bridge.
type Store interface {
	// GetCursor returns the poll watermark for name, or the zero time
	// when no poll has completed yet.
	GetCursor(ctx context.Context, name string) (time.Time, error)
	// SetCursor advances the poll watermark for name.
	SetCursor(ctx context.Context, name string, ts time.Time) error

	// Dead letters
	AddDeadLetter(ctx context.Context, entry DeadLetter) error
	ListDeadLetters(ctx context.Context, limit int) ([]DeadLetter, error)
	DeleteDeadLetter(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
