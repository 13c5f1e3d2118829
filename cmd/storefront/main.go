package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront/api/routes"
	"github.com/angelmondragon/storefront/api/views"
	"github.com/angelmondragon/storefront/internal/admin"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/session"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/gateway"
	"github.com/angelmondragon/storefront/pkg/instance"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/redis"
	"github.com/angelmondragon/storefront/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       cfg.App.LogLevel,
		Env:         cfg.App.Env,
		Instance:    instance.GetID(),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		backend     storage.Backend
		snapshots   catalog.SnapshotCache
		redisClient *redis.Client
	)
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		redisBackend, err := storage.NewRedis(redisClient, cfg.Session.StorageTTL, logg)
		if err != nil {
			logg.Error(ctx, "failed to create redis storage", err)
			os.Exit(1)
		}
		redisSnapshots, err := catalog.NewRedisSnapshots(redisClient, cfg.Catalog.CacheTTL)
		if err != nil {
			logg.Error(ctx, "failed to create catalog snapshots", err)
			os.Exit(1)
		}
		backend, snapshots = redisBackend, redisSnapshots
	} else {
		logg.Warn(ctx, "redis not configured, client storage kept in memory")
		backend = storage.NewMemory()
		snapshots = catalog.NewMemorySnapshots(cfg.Catalog.CacheTTL, nil)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	gw, err := gateway.New(gateway.Options{
		BaseURL:       cfg.Backend.BaseURL,
		Timeout:       cfg.Backend.Timeout,
		RetryMaxTries: cfg.Backend.RetryMaxTries,
		Metrics:       metrics.NewGatewayMetrics(reg),
		Logger:        logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create backend gateway", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Products: gw.As(nil),
		Cache:    snapshots,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create catalog service", err)
		os.Exit(1)
	}

	registry, err := session.NewRegistry(session.RegistryParams{
		Storage: backend,
		Gateway: gw,
		Catalog: catalogService,
		IdleTTL: cfg.Session.IdleTTL,
		Metrics: metrics.NewClientMetrics(reg),
		Logger:  logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create client registry", err)
		os.Exit(1)
	}
	go registry.Run(ctx)

	renderer, err := views.New()
	if err != nil {
		logg.Error(ctx, "failed to parse page templates", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"addr":    addr,
		"backend": gw.BaseURL(),
	})
	logg.Info(ctx, "starting storefront server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:   cfg,
			Logger:   logg,
			Registry: registry,
			Catalog:  catalogService,
			Images:   admin.NewImagePolicy(cfg.Media.MaxImageBytes()),
			Renderer: renderer,
			Metrics:  reg,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case err := <-serveErr:
		if err != nil {
			logg.Error(ctx, "storefront server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-ctx.Done():
		logg.Info(ctx, "storefront server shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	registry.Close()
	if redisClient != nil {
		err = multierr.Append(err, redisClient.Close())
	}
	if err != nil {
		logg.Error(ctx, "error during shutdown", err)
		exitCode = 1
	}
	if exitCode != 0 {
		stop()
		os.Exit(exitCode)
	}
}
