// Package app wires the configuration, storage, domain services and HTTP
// server of the API process.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/jersey-orders/internal/domain/order"
	"github.com/xenking/jersey-orders/internal/domain/preview"
	"github.com/xenking/jersey-orders/internal/domain/stats"
	"github.com/xenking/jersey-orders/internal/handler"
	"github.com/xenking/jersey-orders/internal/storage/localfs"
	"github.com/xenking/jersey-orders/internal/storage/objectstore"
	"github.com/xenking/jersey-orders/internal/storage/postgres"
	"github.com/xenking/jersey-orders/internal/storage/rediscache"
	"github.com/xenking/jersey-orders/pkg/health"
	"github.com/xenking/jersey-orders/pkg/httpmiddleware"
)

const (
	serviceName    = "jersey-orders"
	serviceTitle   = "Jersey Orders API"
	serviceVersion = "1.0.0"

	postgresCheck = "postgres"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(pool, lg); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Preview images.
	backend, err := newPreviewBackend(ctx, lg, cfg)
	if err != nil {
		return errors.Wrap(err, "create preview backend")
	}
	previews := preview.NewStore(backend)

	// Health checks. The stats cache and the preview store fail soft, so
	// they only degrade readiness.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck(postgresCheck, 5*time.Second, health.PingCheck("database", func(ctx context.Context) error {
		return postgres.Ping(ctx, pool)
	}))
	healthSvc.AddOptionalCheck("previews", 5*time.Second, health.PingCheck("preview store", backend.Ping))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc_pause", time.Second, health.GCMaxPauseCheck(time.Second, time.Minute))

	// Repositories.
	orderRepo := postgres.NewOrderRepository(pool)
	statsRepo := postgres.NewStatsRepository(pool)
	sequencer := postgres.NewSequencer(pool)

	// Domain services.
	var statsOpts []stats.Option
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()

		if err := rdb.Ping(ctx).Err(); err != nil {
			// Cache failures fall back to the database, so start anyway.
			lg.Warn("Redis unavailable, stats cache degraded", zap.Error(err))
		}
		healthSvc.AddOptionalCheck("stats_cache", time.Second, health.PingCheck("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}))
		statsOpts = append(statsOpts, stats.WithCache(rediscache.New(rdb, cfg.Redis.TTL)))
		lg.Info("Stats cache enabled", zap.String("redis", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.TTL))
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	statsOpts = append(statsOpts, stats.WithLocation(loc))
	statsService := stats.NewService(statsRepo, m.TracerProvider(), statsOpts...)

	orderService, err := order.NewService(orderRepo, sequencer, previews,
		m.MeterProvider().Meter(serviceName),
		order.WithChangeHook(statsService.Invalidate),
	)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// HTTP handlers.
	h := handler.New(
		handler.Config{Name: serviceTitle, Version: serviceVersion},
		orderService,
		statsService,
		handler.PingerFunc(func(ctx context.Context) error {
			return healthSvc.CheckNow(ctx, postgresCheck)
		}),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	if cfg.Preview.Driver == PreviewDriverFS {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))
	}
	h.Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "X-Request-ID"},
				ExposeHeaders:    []string{"X-Request-ID"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RequestID(cfg.TrustRequestID),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.RateLimitWithCleanup(ctx, cfg.RateLimit.Limits()),
			httpmiddleware.Instrument(serviceName, m),
			httpmiddleware.LogRequests(),
		),
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

// previewBackend is a preview store that can report its health.
type previewBackend interface {
	preview.Backend
	Ping(ctx context.Context) error
}

// newPreviewBackend returns the preview backend selected by the
// configuration.
func newPreviewBackend(ctx context.Context, lg *zap.Logger, cfg *Config) (previewBackend, error) {
	switch cfg.Preview.Driver {
	case PreviewDriverS3:
		store, err := objectstore.New(ctx, cfg.Preview.S3, lg.Named("objectstore"))
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, errors.Wrap(err, "ensure bucket")
		}
		lg.Info("Storing previews in bucket", zap.String("bucket", cfg.Preview.S3.Bucket))
		return store, nil
	default:
		store, err := localfs.New(cfg.Preview.Dir, cfg.Preview.URLPrefix)
		if err != nil {
			return nil, err
		}
		lg.Info("Storing previews on disk", zap.String("dir", store.Dir()))
		return store, nil
	}
}
