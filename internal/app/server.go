package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/product-detail/internal/catalog"
	"github.com/xenking/product-detail/internal/domain/auth"
	"github.com/xenking/product-detail/internal/handler"
	"github.com/xenking/product-detail/internal/screen"
	"github.com/xenking/product-detail/pkg/health"
	"github.com/xenking/product-detail/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the detail server.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *ServerConfig) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("api", cfg.API.BaseURL),
		zap.String("store", cfg.Store.Kind),
	)

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

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("product-api", 5*time.Second,
		health.UpstreamCheck(&http.Client{}, client.BaseURL()),
	)
	if store.Pinger != nil {
		healthSvc.AddReadinessCheck("token-store", 5*time.Second, health.PingCheck(store.Pinger))
	}
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	loader := screen.NewLoader(client, screen.Config{
		ImageBaseURL: cfg.API.ImageRoot(),
		Currency:     cfg.API.Currency,
	})
	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           newHTTPHandler(ctx, cfg, loader, healthSvc, m.TracerProvider(), m.MeterProvider()),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newHTTPHandler mounts the health endpoints and screen routes behind the
// middleware chain.
func newHTTPHandler(
	ctx context.Context,
	cfg *ServerConfig,
	loader handler.ScreenLoader,
	healthSvc *health.Health,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	handler.NewHandler(loader).Register(mux)

	return httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "Authorization"},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           24 * time.Hour,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:     cfg.RateLimit.Max,
			Window:  cfg.RateLimit.Window,
			KeyFunc: httpmiddleware.BearerKeyFunc,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.Instrument("product-detail", tp, mp),
		httpmiddleware.LogRequests(),
	)
}
