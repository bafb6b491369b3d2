package catalogcache

import (
	"context"
	"fmt"
	"strings"

	"github.com/magisurprise/backend/pkg/config"
	"github.com/magisurprise/backend/pkg/logger"
	"github.com/magisurprise/backend/pkg/metrics"
)

// Build assembles the storefront catalog service from configuration. The
// redis client is only required for the redis backend.
func Build(ctx context.Context, cfg config.CatalogConfig, client redisKV, source catalogSource, logg *logger.Logger, m *metrics.CatalogMetrics) (*Service, error) {
	store, err := newStore(cfg.Backend, client)
	if err != nil {
		return nil, err
	}
	cache, err := Open(ctx, store, Options{
		ProductsTTL:   cfg.ProductsTTL,
		CardsTTL:      cfg.CardsTTL,
		SchemaVersion: cfg.SchemaVersion,
		Logger:        logg,
		Metrics:       m,
	})
	if err != nil {
		return nil, err
	}
	loader, err := NewLoader(source, nil)
	if err != nil {
		return nil, err
	}
	return NewService(cache, loader, logg, m)
}

func newStore(backend string, client redisKV) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", config.CatalogBackendRedis:
		return NewRedisStore(client)
	case config.CatalogBackendMemory:
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown catalog cache backend %q", backend)
}
