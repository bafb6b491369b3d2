package catalogcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/magisurprise/backend/pkg/logger"
	"github.com/magisurprise/backend/pkg/metrics"
)

const (
	defaultProductsTTL   = 2 * time.Hour
	defaultCardsTTL      = 48 * time.Hour
	defaultSchemaVersion = 1

	schemaVersionKey = "schema_version"
)

// Cache reads and replaces whole catalog collections. Backend failures are
// logged and surface as an empty, stale collection.
type Cache interface {
	Get(ctx context.Context, c Collection) ([]Entry, error)
	Put(ctx context.Context, c Collection, entries []Entry) error
	LastSync(ctx context.Context, c Collection) (time.Time, bool)
	IsStale(ctx context.Context, c Collection) bool
}

// Options configure Open. Zero values fall back to the defaults.
type Options struct {
	ProductsTTL   time.Duration
	CardsTTL      time.Duration
	SchemaVersion int
	Logger        *logger.Logger
	Metrics       *metrics.CatalogMetrics
	Now           func() time.Time
}

type cache struct {
	store   Store
	ttls    map[Collection]time.Duration
	logg    *logger.Logger
	metrics *metrics.CatalogMetrics
	now     func() time.Time
}

// Open binds a cache to store. When the stored schema version differs from
// opts.SchemaVersion every collection is dropped before the new version is
// written.
func Open(ctx context.Context, store Store, opts Options) (Cache, error) {
	if store == nil {
		return nil, errors.New("catalog store required")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger required")
	}
	c := &cache{
		store: store,
		ttls: map[Collection]time.Duration{
			CollectionProducts: lo.Ternary(opts.ProductsTTL > 0, opts.ProductsTTL, defaultProductsTTL),
			CollectionCards:    lo.Ternary(opts.CardsTTL > 0, opts.CardsTTL, defaultCardsTTL),
		},
		logg:    opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Now,
	}
	if c.now == nil {
		c.now = time.Now
	}
	version := lo.Ternary(opts.SchemaVersion > 0, opts.SchemaVersion, defaultSchemaVersion)
	if err := c.migrate(ctx, version); err != nil {
		c.storeFailed(ctx, "open", err)
	}
	return c, nil
}

func (c *cache) migrate(ctx context.Context, version int) error {
	want := strconv.Itoa(version)
	stored, ok, err := c.store.Get(ctx, schemaVersionKey)
	if err != nil {
		return err
	}
	if ok && stored == want {
		return nil
	}

	keys := make([]string, 0, 2*len(Collections()))
	for _, col := range Collections() {
		keys = append(keys, rowsKey(col), syncedKey(col))
	}
	if err := c.store.Del(ctx, keys...); err != nil {
		return err
	}
	c.logg.Info(c.logg.WithFields(ctx, map[string]any{
		"previous_version": stored,
		"schema_version":   want,
	}), "catalog cache schema changed; collections dropped")
	return c.store.Set(ctx, schemaVersionKey, want)
}

func (c *cache) Get(ctx context.Context, col Collection) ([]Entry, error) {
	if err := col.valid(); err != nil {
		return nil, err
	}
	raw, ok, err := c.store.Get(ctx, rowsKey(col))
	if err != nil {
		c.storeFailed(ctx, "get", err)
		c.metrics.IncMiss(string(col))
		return []Entry{}, nil
	}
	if !ok {
		c.metrics.IncMiss(string(col))
		return []Entry{}, nil
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		c.storeFailed(ctx, "decode", err)
		c.metrics.IncMiss(string(col))
		return []Entry{}, nil
	}
	c.metrics.IncHit(string(col))
	return lo.Map(entries, func(e Entry, _ int) Entry { return normalize(col, e) }), nil
}

// Put replaces the whole collection and stamps its sync time.
func (c *cache) Put(ctx context.Context, col Collection, entries []Entry) error {
	if err := col.valid(); err != nil {
		return err
	}
	rows := lo.Map(entries, func(e Entry, _ int) Entry { return normalize(col, e) })
	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode %s: %w", col, err)
	}
	if err := c.store.Set(ctx, rowsKey(col), string(payload)); err != nil {
		c.storeFailed(ctx, "put", err)
		return fmt.Errorf("store %s rows: %w", col, err)
	}
	if err := c.store.Set(ctx, syncedKey(col), c.now().UTC().Format(time.RFC3339Nano)); err != nil {
		c.storeFailed(ctx, "put", err)
		return fmt.Errorf("store %s sync time: %w", col, err)
	}
	return nil
}

func (c *cache) LastSync(ctx context.Context, col Collection) (time.Time, bool) {
	if col.valid() != nil {
		return time.Time{}, false
	}
	raw, ok, err := c.store.Get(ctx, syncedKey(col))
	if err != nil {
		c.storeFailed(ctx, "last_sync", err)
		return time.Time{}, false
	}
	if !ok {
		return time.Time{}, false
	}
	synced, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return synced, true
}

// IsStale is true when the collection was never synced or its TTL elapsed.
func (c *cache) IsStale(ctx context.Context, col Collection) bool {
	synced, ok := c.LastSync(ctx, col)
	if !ok {
		return true
	}
	return c.now().Sub(synced) >= c.ttls[col]
}

func (c *cache) storeFailed(ctx context.Context, op string, err error) {
	c.metrics.IncStoreError(op)
	c.logg.Warn(c.logg.WithFields(ctx, map[string]any{"op": op, "error": err.Error()}), "catalog cache store failed")
}

func rowsKey(c Collection) string   { return string(c) + ":rows" }
func syncedKey(c Collection) string { return string(c) + ":synced_at" }
