package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/velmora/unicart/api/controllers"
	"github.com/velmora/unicart/api/routes"
	"github.com/velmora/unicart/internal/cart"
	"github.com/velmora/unicart/pkg/commerce"
	"github.com/velmora/unicart/pkg/config"
	"github.com/velmora/unicart/pkg/db"
	"github.com/velmora/unicart/pkg/logger"
	"github.com/velmora/unicart/pkg/metrics"
	"github.com/velmora/unicart/pkg/migrate"
	"github.com/velmora/unicart/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("loading .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logg := logger.New(logger.Options{
		ServiceName: "unicart-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]controllers.Pinger{}

	var storage cart.Storage
	switch cfg.Cart.StorageBackend {
	case config.StorageBackendRedis:
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "redis.connect_failed", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		checks["redis"] = redisClient

		storage, err = cart.NewRedisStorage(redisClient)
		if err != nil {
			logg.Error(ctx, "storage.init_failed", err)
			os.Exit(1)
		}
	case config.StorageBackendDB:
		dbClient, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			logg.Error(ctx, "db.connect_failed", err)
			os.Exit(1)
		}
		defer dbClient.Close()
		checks["db"] = dbClient

		if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
			logg.Error(ctx, "db.migrate_failed", err)
			os.Exit(1)
		}

		storage, err = cart.NewDBStorage(dbClient.DB())
		if err != nil {
			logg.Error(ctx, "storage.init_failed", err)
			os.Exit(1)
		}
	}

	commerceClient, err := commerce.NewClient(cfg.Commerce, logg)
	if err != nil {
		logg.Error(ctx, "commerce.init_failed", err)
		os.Exit(1)
	}

	cartMetrics := metrics.NewCartMetrics(prometheus.DefaultRegisterer)

	registry, err := cart.NewRegistry(cart.RegistryParams{
		Storage:     storage,
		Gateway:     commerceClient,
		Variants:    commerceClient,
		Logger:      logg,
		Metrics:     cartMetrics,
		MergePolicy: cfg.Cart.Policy(),
		StockCeil:   cfg.Cart.StockCeiling,
		GuestTTL:    cfg.Cart.GuestTTL,
	})
	if err != nil {
		logg.Error(ctx, "registry.init_failed", err)
		os.Exit(1)
	}

	cartController, err := controllers.NewCartController(registry, logg)
	if err != nil {
		logg.Error(ctx, "controller.init_failed", err)
		os.Exit(1)
	}
	healthController := controllers.NewHealthController(logg, checks)

	handler := routes.New(routes.Deps{
		Config:  cfg,
		Logger:  logg,
		Cart:    cartController,
		Health:  healthController,
		Metrics: prometheus.DefaultGatherer,
	})

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go sweepLoop(ctx, logg, registry, cfg.Cart.IdleEviction)

	go func() {
		logg.Info(logg.WithField(ctx, "addr", server.Addr), "server.listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "server.failed", err)
			stop()
		}
	}()

	<-ctx.Done()
	logg.Info(context.Background(), "server.shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "server.shutdown_failed", err)
	}
}

// sweepLoop evicts idle per-device reconcilers on a fixed cadence.
func sweepLoop(ctx context.Context, logg *logger.Logger, registry *cart.Registry, maxIdle time.Duration) {
	if maxIdle <= 0 {
		return
	}

	ticker := time.NewTicker(maxIdle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evicted := registry.Sweep(maxIdle); evicted > 0 {
				logg.Info(logg.WithFields(ctx, map[string]any{
					"evicted": evicted,
					"live":    registry.Len(),
				}), "registry.swept")
			}
		}
	}
}
