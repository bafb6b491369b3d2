package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/magisurprise/backend/internal/catalogcache"
	catalogconsumer "github.com/magisurprise/backend/internal/consumers/catalog"
	product "github.com/magisurprise/backend/internal/products"
	"github.com/magisurprise/backend/pkg/config"
	"github.com/magisurprise/backend/pkg/db"
	"github.com/magisurprise/backend/pkg/instance"
	"github.com/magisurprise/backend/pkg/logger"
	"github.com/magisurprise/backend/pkg/metrics"
	"github.com/magisurprise/backend/pkg/outbox/idempotency"
	"github.com/magisurprise/backend/pkg/pubsub"
	"github.com/magisurprise/backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "catalog-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "catalog-worker"

	logg = logger.New(logger.Options{
		ServiceName: "catalog-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "failed to close database", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	subscription := pubsubClient.CatalogSubscriber()
	if subscription == nil {
		requireResource(ctx, logg, "catalog subscription", errors.New("subscription not configured"))
	}

	catalog, err := catalogcache.Build(ctx, cfg.Catalog, redisClient, product.NewRepository(dbClient.DB()), logg, metrics.NewCatalogMetrics(prometheus.DefaultRegisterer))
	requireResource(ctx, logg, "catalog cache", err)

	guard, err := idempotency.NewGuard(redisClient, idempotency.ConsumerCatalogCache, cfg.Catalog.ProcessedTTL)
	requireResource(ctx, logg, "idempotency guard", err)

	consumer, err := catalogconsumer.NewConsumer(catalog, guard, logg)
	requireResource(ctx, logg, "catalog consumer", err)

	worker, err := catalogconsumer.NewWorker(subscription, consumer, logg)
	requireResource(ctx, logg, "catalog worker", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(runCtx, "catalog worker ready")

	if err := worker.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "catalog worker failed", err)
		os.Exit(1)
	}
	catalog.Wait()
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
