// Command product-detail prints the product detail screen for one product
// as JSON, fetching the product and the rest of the catalog concurrently.
package main

import (
	"context"
	"os"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/xenking/product-detail/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := appkg.LoadCLIConfig()
		if err != nil {
			return err
		}
		return appkg.PrintScreen(ctx, lg, m, cfg, os.Stdout)
	})
}
