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

	"github.com/magisurprise/backend/api/responses"
	"github.com/magisurprise/backend/api/routes"
	"github.com/magisurprise/backend/internal/catalogcache"
	"github.com/magisurprise/backend/internal/negocios"
	"github.com/magisurprise/backend/internal/orders"
	product "github.com/magisurprise/backend/internal/products"
	"github.com/magisurprise/backend/pkg/config"
	"github.com/magisurprise/backend/pkg/db"
	"github.com/magisurprise/backend/pkg/env"
	"github.com/magisurprise/backend/pkg/logger"
	"github.com/magisurprise/backend/pkg/metrics"
	"github.com/magisurprise/backend/pkg/migrate"
	"github.com/magisurprise/backend/pkg/outbox"
	"github.com/magisurprise/backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	responses.ExposeErrors(!cfg.App.IsProd())

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	events := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	policy, err := orders.NewPolicy(cfg.Orders)
	if err != nil {
		logg.Error(context.Background(), "failed to build transition policy", err)
		os.Exit(1)
	}
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:       orders.NewRepository(dbClient.DB()),
		Tx:         dbClient,
		Events:     events,
		Policy:     policy,
		PriceCheck: cfg.Orders.PriceCheck,
		Metrics:    metrics.NewOrderMetrics(prometheus.DefaultRegisterer),
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	negociosService, err := negocios.NewService(negocios.ServiceParams{
		Repo:   negocios.NewRepository(dbClient.DB()),
		Tx:     dbClient,
		Events: events,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create negocios service", err)
		os.Exit(1)
	}

	productRepo := product.NewRepository(dbClient.DB())
	productService, err := product.NewService(productRepo, dbClient, events, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	catalog, err := catalogcache.Build(context.Background(), cfg.Catalog, redisClient, productRepo, logg, metrics.NewCatalogMetrics(prometheus.DefaultRegisterer))
	if err != nil {
		logg.Error(context.Background(), "failed to build catalog cache", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := env.Get("K_REVISION", "local")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			DB:          dbClient,
			Redis:       redisClient,
			Catalog:     catalog,
			Negocios:    negociosService,
			Products:    productService,
			Orders:      ordersService,
			DeadLetters: outbox.NewDLQRepository(dbClient.DB()),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		catalog.Wait()
		logg.Info(ctx, "api server shut down gracefully")
	}
}
