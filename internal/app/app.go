package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shailyverma/art-studio/db"
	"github.com/shailyverma/art-studio/internal/domain/cart"
	"github.com/shailyverma/art-studio/internal/domain/catalog"
	"github.com/shailyverma/art-studio/internal/domain/checkout"
	"github.com/shailyverma/art-studio/internal/handler"
	"github.com/shailyverma/art-studio/internal/payment"
	"github.com/shailyverma/art-studio/internal/storage"
	"github.com/shailyverma/art-studio/internal/storage/memory"
	"github.com/shailyverma/art-studio/internal/storage/postgres"
	"github.com/shailyverma/art-studio/internal/storage/redis"
	"github.com/shailyverma/art-studio/pkg/health"
	"github.com/shailyverma/art-studio/pkg/httpmiddleware"
)

const serviceName = "art-studio"

// Run creates all dependencies, starts the HTTP server and the background
// sweepers, and handles graceful shutdown. It is the single wiring point for
// the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("catalog", cfg.Catalog.Source),
	)

	var pool *pgxpool.Pool
	if cfg.needsPostgres() {
		var err error
		pool, err = postgres.NewPool(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
	}

	kv, closeKV, err := openStorage(cfg.Storage, pool)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer closeKV()

	products, err := loadCatalog(ctx, cfg.Catalog, pool)
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.Register(health.Readiness, health.Check{
		Name:    "storage",
		Timeout: 5 * time.Second,
		Func:    health.PingCheck(kv),
	})
	healthSvc.Register(health.Liveness, health.Check{
		Name: "goroutines",
		Func: health.GoroutineCountCheck(10000),
	})

	// Domain services.
	meter := m.MeterProvider().Meter(serviceName)
	cartMetrics, err := cart.NewMetricsObserver(meter)
	if err != nil {
		return errors.Wrap(err, "create cart metrics")
	}
	sessions := cart.NewSessions(kv, products, lg.Named("cart"), cart.WithObserver(cartMetrics))

	gateway, err := payment.NewHosted(cfg.Payment.CheckoutURL, cfg.Payment.WebhookSecret, lg.Named("payment"))
	if err != nil {
		return errors.Wrap(err, "create payment gateway")
	}
	if cfg.Payment.WebhookSecret == "" {
		lg.Warn("Payment webhook signatures are not verified: webhook secret is empty")
	}
	checkoutSvc, err := checkout.NewService(sessions, gateway, checkout.Config{
		Merchant:  cfg.Payment.Merchant,
		Currency:  cfg.Payment.Currency,
		Timeout:   cfg.Payment.Timeout,
		Retention: cfg.Payment.Retention,
	}, lg.Named("checkout"),
		checkout.WithTracerProvider(m.TracerProvider()),
		checkout.WithMeterProvider(m.MeterProvider()),
	)
	if err != nil {
		return errors.Wrap(err, "create checkout service")
	}

	// HTTP handlers.
	h := handler.New(handler.Config{
		SessionCookie: cfg.Session.Cookie,
		SecureCookie:  cfg.Session.SecureCookie,
	}, products, sessions, checkoutSvc, gateway)

	router := mux.NewRouter()
	router.HandleFunc("/livez", healthSvc.LiveEndpoint).Methods(http.MethodGet)
	router.HandleFunc("/readyz", healthSvc.ReadyEndpoint).Methods(http.MethodGet)
	h.Register(router)

	routeFinder := httpmiddleware.MuxRouteFinder(router)
	rateLimiter := httpmiddleware.NewRateLimiter(httpmiddleware.RateLimitConfig{
		Max:     cfg.RateLimit.Max,
		Window:  cfg.RateLimit.Window,
		Methods: []string{http.MethodPost, http.MethodPut, http.MethodDelete},
		KeyFunc: httpmiddleware.SessionOrIP(cfg.Session.Cookie, handler.SessionHeader),
	})

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.RequestID(),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", handler.SessionHeader, httpmiddleware.RequestIDHeader},
				ExposeHeaders:    []string{handler.SessionHeader, httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			rateLimiter.Middleware(),
			httpmiddleware.Instrument(serviceName, routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
		),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return healthSvc.Run(gctx, 10*time.Second)
	})
	g.Go(func() error {
		return sessions.Run(gctx, cfg.Session.IdleTTL, cfg.Session.IdleTTL/2)
	})
	g.Go(func() error {
		return checkoutSvc.Run(gctx, cfg.Payment.SweepInterval)
	})
	g.Go(func() error {
		return rateLimiter.Run(gctx)
	})

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	g.Go(func() error {
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		healthSvc.SetReady(true)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	return g.Wait()
}

// openStorage returns the KV backend selected by cfg and a function that
// releases it. pool is non-nil whenever the postgres backend is selected.
func openStorage(cfg StorageConfig, pool *pgxpool.Pool) (storage.KV, func(), error) {
	switch cfg.Backend {
	case BackendMemory:
		return memory.New(), func() {}, nil
	case BackendPostgres:
		return postgres.NewKV(pool), func() {}, nil
	case BackendRedis:
		client := redis.NewClient(cfg.RedisURL)
		return redis.NewKV(client, cfg.RedisPrefix), func() { _ = client.Close() }, nil
	default:
		return nil, nil, errors.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// loadCatalog builds the catalog provider from the embedded seed or from a
// PostgreSQL snapshot taken at startup.
func loadCatalog(ctx context.Context, cfg CatalogConfig, pool *pgxpool.Pool) (*catalog.Static, error) {
	switch cfg.Source {
	case CatalogEmbedded:
		return catalog.FromSeed(db.Catalog)
	case CatalogPostgres:
		seed, err := postgres.LoadCatalog(ctx, pool)
		if err != nil {
			return nil, err
		}
		return catalog.NewStatic(seed.Paintings, seed.Courses)
	default:
		return nil, errors.Errorf("unknown catalog source %q", cfg.Source)
	}
}
