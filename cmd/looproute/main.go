// Command looproute bootstraps the route-generation service's dependency
// graph (POI repository, route cache, road-router client, generator) from
// environment configuration and keeps it alive behind the monitoring
// endpoints. The generation pipeline itself is consumed as a Go package
// (generator.Generator.GenerateLoop) by an embedding caller; this binary
// owns wiring and observability, not request transport.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/loopcircuit/looproute/pkg/cache"
	"github.com/loopcircuit/looproute/pkg/config"
	"github.com/loopcircuit/looproute/pkg/generator"
	"github.com/loopcircuit/looproute/pkg/monitoring"
	"github.com/loopcircuit/looproute/pkg/poirepo"
	"github.com/loopcircuit/looproute/pkg/router"
	"github.com/loopcircuit/looproute/pkg/snapping"
	"github.com/loopcircuit/looproute/pkg/tracing"
	"golang.org/x/time/rate"
)

const serviceVersion = "dev"

var (
	debug            bool
	enableMonitoring bool
)

func init() {
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&enableMonitoring, "enable-monitoring", true, "Enable Prometheus metrics and health endpoints")
}

func main() {
	flag.Parse()

	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	ctx := context.Background()
	shutdownTracing, err := tracing.InitTracing(ctx, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
	} else {
		defer func() {
			if err := shutdownTracing(ctx); err != nil {
				logger.Error("error shutting down tracing", "error", err)
			}
		}()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	var healthChecker *monitoring.HealthChecker
	if enableMonitoring {
		healthChecker = monitoring.NewHealthChecker()
		defer healthChecker.Shutdown()
	}

	repo, closeRepo, err := buildRepository(ctx, cfg, logger, healthChecker)
	if err != nil {
		logger.Error("failed to build POI repository", "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	cacheBackend, closeCache, err := buildCache(ctx, cfg, logger, healthChecker)
	if err != nil {
		logger.Error("failed to build route cache", "error", err)
		os.Exit(1)
	}
	defer closeCache()

	routerClient := buildRouterClient(cfg)

	snapper := snapping.NewService(repo, logger)

	genConfig := generatorConfigFrom(cfg.Generator)
	generator.New(repo, routerClient, snapper, cacheBackend, genConfig, nil, logger)

	logger.Info("looproute service initialized",
		"postgres_backend", cfg.Postgres.Backend,
		"redis_backend", cfg.Redis.Backend,
		"router_base_url", cfg.Router.BaseURL,
		"monitoring_enabled", enableMonitoring,
		"monitoring_addr", cfg.Server.MonitoringAddr())

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var monitoringServer *http.Server
	if enableMonitoring {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/health", healthChecker.HealthHandler())
		mux.HandleFunc("/ready", healthChecker.ReadinessHandler())
		mux.HandleFunc("/live", healthChecker.LivenessHandler())

		monitoringServer = &http.Server{
			Addr:              cfg.Server.MonitoringAddr(),
			Handler:           mux,
			ReadHeaderTimeout: 30 * time.Second,
		}

		go func() {
			logger.Info("starting monitoring server", "addr", cfg.Server.MonitoringAddr())
			if err := monitoringServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("monitoring server error", "error", err)
			}
		}()
	}

	<-runCtx.Done()
	logger.Info("shutdown signal received")

	if monitoringServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := monitoringServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown monitoring server", "error", err)
		}
	}

	logger.Info("looproute service stopped")
}

func buildRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger, hc *monitoring.HealthChecker) (poirepo.Repository, func(), error) {
	if cfg.Postgres.Backend != "postgres" {
		return poirepo.NewMemory(), func() {}, nil
	}

	pool, err := config.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, err
	}
	if hc != nil {
		monitoring.NewConnectionMonitor("postgres", hc, func(ctx context.Context) error {
			return config.PostgresHealthCheck(ctx, pool)
		}, 30*time.Second).Start()
	}
	return poirepo.NewPostgres(pool, cfg.Postgres.Table, logger), pool.Close, nil
}

func buildCache(ctx context.Context, cfg *config.Config, logger *slog.Logger, hc *monitoring.HealthChecker) (cache.Cache, func(), error) {
	if cfg.Redis.Backend != "redis" {
		return cache.NewMemory(cfg.Redis.MemoryCapacity, cfg.Redis.MemoryTTL), func() {}, nil
	}

	client, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if hc != nil {
		monitoring.NewConnectionMonitor("redis", hc, func(ctx context.Context) error {
			return config.RedisHealthCheck(ctx, client)
		}, 30*time.Second).Start()
	}
	return cache.NewRedis(client), func() { _ = client.Close() }, nil
}

func buildRouterClient(cfg *config.Config) *router.Client {
	authMode := router.AuthDirectToken
	if cfg.Router.AuthMode == "bearer_header" {
		authMode = router.AuthBearerHeader
	}
	return router.New(cfg.Router.APIKey, cfg.Router.BaseURL, authMode,
		router.WithRateLimiter(rate.NewLimiter(rate.Limit(cfg.Router.RateLimitPerSec), cfg.Router.RateLimitBurst)),
	)
}

func generatorConfigFrom(g config.GeneratorConfig) generator.Config {
	cfg := generator.DefaultConfig()
	cfg.POISearchRadiusMultiplier = g.POISearchRadiusMultiplier
	cfg.POILimitMin = g.POILimitMin
	cfg.POILimitMax = g.POILimitMax
	cfg.CandidateLimitMin = g.CandidateLimitMin
	cfg.CandidateLimitMax = g.CandidateLimitMax
	cfg.ToleranceLevelRelaxed = g.ToleranceLevelRelaxed
	cfg.ToleranceLevelVeryRelaxed = g.ToleranceLevelVeryRelaxed
	cfg.MaxRouteGenerationRetries = g.MaxRouteGenerationRetries
	cfg.SnapRadiusMeters = g.SnapRadiusMeters
	return cfg
}
