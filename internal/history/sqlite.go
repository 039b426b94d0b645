package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteStore is the default local backend: a single-file database under the
// user's home directory.
type sqliteStore struct {
	db *sql.DB
}

// DefaultSQLitePath returns the standard location of the history database.
func DefaultSQLitePath() string {
	return filepath.Join(os.Getenv("HOME"), ".go_recap", "history.db")
}

// OpenSQLite opens (or creates) the SQLite history database at path.
func OpenSQLite(path string) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("history: mkdir %s: %w", filepath.Dir(path), err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSQLiteSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: init schema: %w", err)
	}
	return &sqliteStore{db: db}, nil
}

func initSQLiteSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS summaries (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		video_id     TEXT NOT NULL,
		title        TEXT,
		channel      TEXT,
		content_type TEXT NOT NULL,
		summary_len  INTEGER NOT NULL,
		created_at   TEXT NOT NULL
	)`)
	return err
}

func (s *sqliteStore) Record(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO summaries (video_id, title, channel, content_type, summary_len, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.VideoID, e.Title, e.Channel, e.ContentType, e.SummaryLen,
		e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"))
	return err
}

func (s *sqliteStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, video_id, title, channel, content_type, summary_len, created_at
		 FROM summaries ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.ID, &e.VideoID, &e.Title, &e.Channel, &e.ContentType, &e.SummaryLen, &created); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse("2006-01-02T15:04:05Z", created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *sqliteStore) Close() error { return s.db.Close() }
