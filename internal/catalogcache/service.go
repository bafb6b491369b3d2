package catalogcache

import (
	"context"
	"errors"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"

	pkgerrors "github.com/magisurprise/backend/pkg/errors"
	"github.com/magisurprise/backend/pkg/logger"
	"github.com/magisurprise/backend/pkg/metrics"
)

type loader interface {
	Load(ctx context.Context, c Collection) ([]Entry, error)
}

// Service serves catalog snapshots. Only an empty collection blocks on the
// database; a stale one is served as is while a refresh runs behind it.
type Service struct {
	cache   Cache
	loader  loader
	logg    *logger.Logger
	metrics *metrics.CatalogMetrics

	group    singleflight.Group
	inflight sync.WaitGroup
}

func NewService(cache Cache, loader loader, logg *logger.Logger, m *metrics.CatalogMetrics) (*Service, error) {
	if cache == nil {
		return nil, errors.New("catalog cache required")
	}
	if loader == nil {
		return nil, errors.New("catalog loader required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Service{cache: cache, loader: loader, logg: logg, metrics: m}, nil
}

// Snapshot returns the cached collection, loading it synchronously when
// empty and refreshing it in the background when stale.
func (s *Service) Snapshot(ctx context.Context, c Collection) ([]Entry, error) {
	if err := c.valid(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "Catálogo no encontrado")
	}
	entries, err := s.cache.Get(ctx, c)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		rows, err := s.Refresh(ctx, c)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "No se pudo cargar el catálogo")
		}
		return rows, nil
	}
	if s.cache.IsStale(ctx, c) {
		s.refreshAsync(ctx, c)
	}
	return entries, nil
}

// Refresh reloads c from the database and replaces the cached copy.
// Concurrent calls for the same collection share one load, which runs
// detached from the caller's cancellation since other callers wait on it.
func (s *Service) Refresh(ctx context.Context, c Collection) ([]Entry, error) {
	loadCtx := context.WithoutCancel(ctx)
	value, err, _ := s.group.Do(string(c), func() (any, error) {
		rows, err := s.loader.Load(loadCtx, c)
		if err != nil {
			return nil, err
		}
		s.metrics.IncRebuild()
		if err := s.cache.Put(loadCtx, c, rows); err != nil {
			// The fresh rows are still good to serve.
			s.logg.Error(s.logg.WithField(loadCtx, "collection", string(c)), "catalog snapshot not stored", err)
		}
		return lo.Map(rows, func(e Entry, _ int) Entry { return normalize(c, e) }), nil
	})
	if err != nil {
		return nil, err
	}
	return value.([]Entry), nil
}

// RefreshStale refreshes every stale collection.
func (s *Service) RefreshStale(ctx context.Context) error {
	var errs error
	for _, c := range Collections() {
		if !s.cache.IsStale(ctx, c) {
			continue
		}
		if _, err := s.Refresh(ctx, c); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// Wait blocks until background refreshes started by Snapshot finish.
func (s *Service) Wait() {
	s.inflight.Wait()
}

func (s *Service) refreshAsync(ctx context.Context, c Collection) {
	bg := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if _, err := s.Refresh(bg, c); err != nil {
			s.logg.Error(s.logg.WithField(bg, "collection", string(c)), "background catalog refresh failed", err)
		}
	}()
}
