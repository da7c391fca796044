package app

import (
	"context"
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/product-detail/internal/catalog"
	"github.com/xenking/product-detail/internal/domain/auth"
	"github.com/xenking/product-detail/internal/screen"
)

// PrintScreen loads one product detail screen and writes it to out as JSON.
// Fetch failures are part of the output; only setup errors are returned.
func PrintScreen(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *CLIConfig, out io.Writer) error {
	store, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return errors.Wrap(err, "open token store")
	}
	defer store.Close()

	client, err := catalog.NewClient(cfg.API.BaseURL, auth.NewTokenProvider(store), catalog.Options{
		Timeout:        cfg.API.Timeout,
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create catalog client")
	}

	return writeScreen(ctx, lg, client, cfg, out)
}

func writeScreen(ctx context.Context, lg *zap.Logger, fetcher screen.Fetcher, cfg *CLIConfig, out io.Writer) error {
	loader := screen.NewLoader(fetcher, screen.Config{
		ImageBaseURL: cfg.API.ImageRoot(),
		Currency:     cfg.API.Currency,
	})
	view := loader.Load(ctx, cfg.ProductID)
	lg.Debug("Screen loaded",
		zap.Int64("product_id", cfg.ProductID),
		zap.Bool("product_ok", view.ProductErr == nil),
		zap.Int("other_products", len(view.OtherProducts)),
	)

	e := jx.Encoder{}
	e.SetIdent(cfg.Indent)
	view.Encode(&e)

	if _, err := out.Write(append(e.Bytes(), '\n')); err != nil {
		return errors.Wrap(err, "write output")
	}
	return nil
}
