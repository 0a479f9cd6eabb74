package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/league-pricing/internal/cache"
	"github.com/xenking/league-pricing/internal/domain/auth"
	"github.com/xenking/league-pricing/internal/domain/catalog"
	"github.com/xenking/league-pricing/internal/domain/discount"
	"github.com/xenking/league-pricing/internal/domain/pricing"
	"github.com/xenking/league-pricing/internal/domain/season"
	"github.com/xenking/league-pricing/internal/handler"
	"github.com/xenking/league-pricing/internal/repository"
	"github.com/xenking/league-pricing/pkg/health"
	"github.com/xenking/league-pricing/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("currency", cfg.Currency),
		zap.Duration("cache_ttl", cfg.Pricing.CacheTTL),
	)

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Catalog and season reads go through the TTL cache, writes invalidate it.
	var (
		discounts discount.Repository = repository.NewDiscountRepository(pool)
		seasons   season.Repository   = repository.NewSeasonRepository(pool)
	)
	if ttl := cfg.Pricing.CacheTTL; ttl > 0 {
		discounts = cache.NewDiscounts(discounts, ttl)
		seasons = cache.NewSeasons(seasons, ttl)
	}
	programs := repository.NewProgramRepository(pool)
	plans := repository.NewPaymentPlanRepository(pool)
	checkouts := repository.NewCheckoutRepository(pool)
	audits := repository.NewAuditRepository(pool)
	apikeys := repository.NewAPIKeyRepository(pool)

	// Domain services.
	opts := pricing.Options{
		FetchTimeout:   cfg.Pricing.FetchTimeout,
		Concurrency:    cfg.Pricing.Concurrency,
		Currency:       cfg.Currency,
		TracerProvider: m.TracerProvider(),
	}
	resolver := pricing.NewResolver(seasons, discounts, opts)
	pricingSvc := pricing.NewService(programs, seasons, plans, checkouts, resolver, opts)
	catalogSvc := catalog.NewService(repository.NewTransactor(pool), discounts, seasons, audits)

	// HTTP.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)

	security := handler.NewSecurityHandler(apikeys, []byte(cfg.APIKeyPepper))
	handler.NewHandler(pricingSvc, resolver, catalogSvc).Register(mux, security.Require(auth.ScopeAdmin))

	routeFinder := httpmiddleware.MakeRouteFinder(mux)
	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		// Request contexts carry the base logger and outlive ctx.
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", handler.APIKeyHeader, "api_key", httpmiddleware.RequestIDHeader},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader, "Location"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("league-pricing", routeFinder, m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
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
