// Package redis implements a preferences store on top of Redis, for
// deployments where several detail-server replicas share one token.
package redis

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/product-detail/internal/domain/prefs"
)

// DefaultPrefix namespaces preference keys.
const DefaultPrefix = "prefs:"

var _ prefs.Store = (*PrefsStore)(nil)

// PrefsStore stores each preference as a plain string key without expiry.
type PrefsStore struct {
	client *redis.Client
	prefix string
}

// NewPrefsStore returns a store using client. An empty prefix selects
// DefaultPrefix.
func NewPrefsStore(client *redis.Client, prefix string) *PrefsStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &PrefsStore{client: client, prefix: prefix}
}

// Get returns the value for key or prefs.ErrNotFound.
func (s *PrefsStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", prefs.ErrNotFound
	}
	if err != nil {
		return "", errors.Wrapf(err, "redis get %q", key)
	}
	return v, nil
}

// Set stores value under key.
func (s *PrefsStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return errors.Wrapf(err, "redis set %q", key)
	}
	return nil
}

// Delete removes key.
func (s *PrefsStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return errors.Wrapf(err, "redis del %q", key)
	}
	return nil
}

// Ping checks connectivity.
func (s *PrefsStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
