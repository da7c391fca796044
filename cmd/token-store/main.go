// Command token-store saves or clears the bearer token used for product API
// requests.
package main

import (
	"context"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/xenking/product-detail/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := appkg.LoadTokenConfig()
		if err != nil {
			return err
		}
		return appkg.UpdateToken(ctx, lg, cfg)
	})
}
