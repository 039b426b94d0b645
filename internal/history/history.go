// Package history keeps a persistent log of summarized videos. It backs the
// /api/v1/history endpoint and is entirely optional: with no store wired the
// package is a no-op.
package history

import (
	"context"
	"errors"
	"time"
)

// Entry is one summarized video.
type Entry struct {
	ID          int64     `json:"id"`
	VideoID     string    `json:"video_id"`
	Title       string    `json:"title,omitempty"`
	Channel     string    `json:"channel,omitempty"`
	ContentType string    `json:"content_type"`
	SummaryLen  int       `json:"summary_len"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists history entries. Implementations: SQLite (default, local
// file) and PostgreSQL (when DATABASE_URL is set).
type Store interface {
	Record(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// Package-level store, set from main.
var store Store

// SetStore installs the history backend. Pass nil to disable.
func SetStore(s Store) { store = s }

// Enabled reports whether a history backend is wired.
func Enabled() bool { return store != nil }

// Record appends an entry. No-op without a store.
func Record(ctx context.Context, e Entry) error {
	if store == nil {
		return nil
	}
	if e.VideoID == "" {
		return errors.New("history: video id is required")
	}
	return store.Record(ctx, e)
}

// Recent returns the newest entries, most recent first.
func Recent(ctx context.Context, limit int) ([]Entry, error) {
	if store == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return store.Recent(ctx, limit)
}
