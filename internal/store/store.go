// Package store keeps the history of file loads in PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/fileopen/internal/config"
	"github.com/JonMunkholm/fileopen/internal/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS open_history (
	id          uuid PRIMARY KEY,
	path        text        NOT NULL,
	anchor      text        NOT NULL DEFAULT '',
	encoding    text        NOT NULL DEFAULT '',
	kind        text        NOT NULL,
	extension   text        NOT NULL DEFAULT '',
	bytes       bigint      NOT NULL DEFAULT 0,
	duration_ms bigint      NOT NULL DEFAULT 0,
	warning     text        NOT NULL DEFAULT '',
	error_code  text        NOT NULL DEFAULT '',
	ip          text        NOT NULL DEFAULT '',
	user_agent  text        NOT NULL DEFAULT '',
	created_at  timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS open_history_created_at_idx ON open_history (created_at DESC);
`

// Store is a core.HistoryStore backed by a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to the database described by cfg and verifies the
// connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	if cfg.URL == "" {
		return nil, errors.New("database url is empty")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("connected to database", "name", databaseName(cfg.URL))
	return &Store{pool: pool}, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// EnsureSchema creates the history table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Insert stores one entry.
func (s *Store) Insert(ctx context.Context, e core.HistoryEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO open_history
			(id, path, anchor, encoding, kind, extension, bytes, duration_ms,
			 warning, error_code, ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		pgtype.UUID{Bytes: e.ID, Valid: true},
		e.Path, e.Anchor, e.Encoding, e.Kind, e.Extension, e.Bytes, e.DurationMS,
		e.Warning, e.ErrorCode, e.IPAddress, e.UserAgent, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]core.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, path, anchor, encoding, kind, extension, bytes, duration_ms,
		       warning, error_code, ip, user_agent, created_at
		FROM open_history
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	entries, err := pgx.CollectRows(rows, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	return entries, nil
}

func scanEntry(row pgx.CollectableRow) (core.HistoryEntry, error) {
	var (
		e  core.HistoryEntry
		id pgtype.UUID
	)
	err := row.Scan(&id, &e.Path, &e.Anchor, &e.Encoding, &e.Kind, &e.Extension,
		&e.Bytes, &e.DurationMS, &e.Warning, &e.ErrorCode, &e.IPAddress,
		&e.UserAgent, &e.CreatedAt)
	e.ID = id.Bytes
	return e, err
}

// PurgeOlderThan deletes entries older than days and returns how many
// were removed.
func (s *Store) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM open_history WHERE created_at < now() - make_interval(days => $1)`,
		int32(days))
	if err != nil {
		return 0, fmt.Errorf("purge history: %w", err)
	}
	return tag.RowsAffected(), nil
}

// databaseName returns the database name from a connection URL for logging.
func databaseName(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}
