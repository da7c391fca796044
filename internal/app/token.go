package app

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/product-detail/internal/domain/auth"
	"github.com/xenking/product-detail/internal/domain/prefs"
)

// UpdateToken stores or clears the bearer token in the configured store.
func UpdateToken(ctx context.Context, lg *zap.Logger, cfg *TokenConfig) error {
	store, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return errors.Wrap(err, "open token store")
	}
	defer store.Close()

	return applyToken(ctx, lg, store, cfg)
}

func applyToken(ctx context.Context, lg *zap.Logger, store prefs.Store, cfg *TokenConfig) error {
	if cfg.Clear {
		if err := store.Delete(ctx, auth.TokenKey); err != nil {
			return errors.Wrap(err, "clear token")
		}
		lg.Info("Token cleared", zap.String("store", cfg.Store.Kind))
		return nil
	}

	if err := store.Set(ctx, auth.TokenKey, cfg.Token); err != nil {
		return errors.Wrap(err, "store token")
	}
	lg.Info("Token stored", zap.String("store", cfg.Store.Kind))
	return nil
}
