package app

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/product-detail/internal/domain/prefs"
	"github.com/xenking/product-detail/internal/storage/file"
	"github.com/xenking/product-detail/internal/storage/memory"
	"github.com/xenking/product-detail/internal/storage/postgres"
	"github.com/xenking/product-detail/internal/storage/redis"
	"github.com/xenking/product-detail/pkg/health"
)

// Store is an opened preferences store with its connection lifecycle.
type Store struct {
	prefs.Store
	// Pinger is nil for stores without a connection to check.
	Pinger health.Pinger
	close  func()
}

// Close releases the store's connections.
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStore opens the preferences store selected by cfg.
func OpenStore(ctx context.Context, cfg StoreConfig) (*Store, error) {
	lg := zctx.From(ctx)

	switch cfg.Kind {
	case StoreMemory:
		lg.Warn("Using in-memory token store, no token will be found until one is set")
		return &Store{Store: memory.NewPrefsStore(nil)}, nil
	case StoreFile:
		lg.Info("Using file token store", zap.String("path", cfg.Path))
		return &Store{Store: file.NewPrefsStore(cfg.Path)}, nil
	case StoreRedis:
		lg.Info("Using redis token store", zap.String("addr", cfg.RedisAddr))
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		s := redis.NewPrefsStore(client, cfg.RedisPrefix)
		return &Store{
			Store:  s,
			Pinger: s,
			close:  func() { _ = client.Close() },
		}, nil
	case StorePostgres:
		lg.Info("Using postgres token store")
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		s := postgres.NewPrefsStore(pool)
		return &Store{Store: s, Pinger: s, close: pool.Close}, nil
	default:
		return nil, errors.Errorf("unknown store kind %q", cfg.Kind)
	}
}
