package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/product-detail/internal/domain/prefs"
)

const (
	getPrefSQL = `SELECT value FROM preferences WHERE key = $1`

	setPrefSQL = `INSERT INTO preferences (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	deletePrefSQL = `DELETE FROM preferences WHERE key = $1`
)

var _ prefs.Store = (*PrefsStore)(nil)

// PrefsStore implements prefs.Store backed by the preferences table.
type PrefsStore struct {
	pool *pgxpool.Pool
}

// NewPrefsStore returns a PrefsStore that uses the given pool.
func NewPrefsStore(pool *pgxpool.Pool) *PrefsStore {
	return &PrefsStore{pool: pool}
}

// Get returns the value stored under key, or prefs.ErrNotFound.
func (s *PrefsStore) Get(ctx context.Context, key string) (string, error) {
	var v string
	if err := s.pool.QueryRow(ctx, getPrefSQL, key).Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", prefs.ErrNotFound
		}
		return "", errors.Wrapf(err, "get preference %q", key)
	}
	return v, nil
}

// Set upserts value under key.
func (s *PrefsStore) Set(ctx context.Context, key, value string) error {
	if _, err := s.pool.Exec(ctx, setPrefSQL, key, value); err != nil {
		return errors.Wrapf(err, "set preference %q", key)
	}
	return nil
}

// Delete removes key.
func (s *PrefsStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, deletePrefSQL, key); err != nil {
		return errors.Wrapf(err, "delete preference %q", key)
	}
	return nil
}

// Ping checks database connectivity.
func (s *PrefsStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
