package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const createKVTable = `CREATE TABLE IF NOT EXISTS portal_kv (
	namespace  TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	value      TEXT        NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (namespace, key)
)`

// Postgres stores keys in the portal_kv table, one row per (namespace, key).
type Postgres struct {
	db        *sqlx.DB
	namespace string
}

var _ Backend = (*Postgres)(nil)

// NewPostgres wraps an open connection and ensures the table exists
func NewPostgres(ctx context.Context, db *sqlx.DB, namespace string) (*Postgres, error) {
	if _, err := db.ExecContext(ctx, createKVTable); err != nil {
		return nil, fmt.Errorf("failed to create portal_kv table: %w", err)
	}
	return &Postgres{db: db, namespace: namespace}, nil
}

// OpenPostgres connects with connStr and prepares the table
func OpenPostgres(ctx context.Context, connStr, namespace string) (*Postgres, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// A CLI holds at most a couple of connections.
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store, err := NewPostgres(ctx, db, namespace)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (p *Postgres) Get(ctx context.Context, key string) (string, error) {
	var value string
	query := `SELECT value FROM portal_kv WHERE namespace = $1 AND key = $2`

	err := p.db.GetContext(ctx, &value, query, p.namespace, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

func (p *Postgres) Set(ctx context.Context, key, value string) error {
	query := `INSERT INTO portal_kv (namespace, key, value, updated_at)
			  VALUES ($1, $2, $3, now())
			  ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	if _, err := p.db.ExecContext(ctx, query, p.namespace, key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) Del(ctx context.Context, keys ...string) error {
	query := `DELETE FROM portal_kv WHERE namespace = $1 AND key = ANY($2)`

	if _, err := p.db.ExecContext(ctx, query, p.namespace, pq.Array(keys)); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
