package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// postgresStore keeps history in PostgreSQL, for deployments where the
// local filesystem is ephemeral.
type postgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgres creates a pgx pool and ensures the schema exists.
func ConnectPostgres(ctx context.Context, databaseURL string) (Store, error) {
	if databaseURL == "" {
		return nil, errors.New("history: DATABASE_URL is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("history: parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 5
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("history: create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS summaries (
		id           BIGSERIAL PRIMARY KEY,
		video_id     TEXT NOT NULL,
		title        TEXT,
		channel      TEXT,
		content_type TEXT NOT NULL,
		summary_len  INTEGER NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL
	)`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: init schema: %w", err)
	}

	return &postgresStore{pool: pool}, nil
}

func (s *postgresStore) Record(ctx context.Context, e Entry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO summaries (video_id, title, channel, content_type, summary_len, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.VideoID, e.Title, e.Channel, e.ContentType, e.SummaryLen, e.CreatedAt)
	return err
}

func (s *postgresStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, video_id, COALESCE(title, ''), COALESCE(channel, ''), content_type, summary_len, created_at
		 FROM summaries ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.VideoID, &e.Title, &e.Channel, &e.ContentType, &e.SummaryLen, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *postgresStore) Close() error {
	s.pool.Close()
	return nil
}
