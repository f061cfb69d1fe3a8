package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/comitanigiacomo/kanso-programs/internal/core/domain"
)

var _ domain.KeyValueStore = (*PostgresStore)(nil)

const (
	pgUniqueViolation = "23505"
	pgDuplicateTable  = "42P07"

	queryTimeout = 3 * time.Second
)

const schemaKV = `
	CREATE TABLE IF NOT EXISTS kv_store (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the key/value table. Two instances racing on the
// same empty database both succeed.
func (r *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaKV); err != nil {
		if code := pgErrorCode(err); code == pgUniqueViolation || code == pgDuplicateTable {
			return nil
		}
		return fmt.Errorf("repository: create kv_store failed: %w", err)
	}
	return nil
}

// pgErrorCode extracts the SQLSTATE from either driver.
func pgErrorCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func (r *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var value string
	err := r.db.GetContext(ctx, &value, `SELECT value FROM kv_store WHERE key = $1`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrKeyNotFound
		}
		return "", fmt.Errorf("repository: get %s failed: %w", key, err)
	}
	return value, nil
}

func (r *PostgresStore) Set(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at`

	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("repository: set %s failed: %w", key, err)
	}
	return nil
}

func (r *PostgresStore) Remove(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = $1`, key); err != nil {
		return fmt.Errorf("repository: remove %s failed: %w", key, err)
	}
	return nil
}
