package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CatalogMetrics tracks catalog cache effectiveness.
type CatalogMetrics struct {
	hits       *prometheus.CounterVec
	misses     *prometheus.CounterVec
	rebuilds   prometheus.Counter
	storeError *prometheus.CounterVec
}

func NewCatalogMetrics(reg prometheus.Registerer) *CatalogMetrics {
	if reg == nil {
		return &CatalogMetrics{}
	}
	hits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "catalog_cache_hits_total",
		Help:      "Catalog cache reads served from the store.",
	}, []string{"entry"})
	misses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "catalog_cache_misses_total",
		Help:      "Catalog cache reads that were missing, expired or stale.",
	}, []string{"entry"})
	rebuilds := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "catalog_cache_rebuilds_total",
		Help:      "Catalog snapshots rebuilt from the database.",
	})
	storeError := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "catalog_cache_store_errors_total",
		Help:      "Cache store operations that failed and were ignored.",
	}, []string{"op"})
	reg.MustRegister(hits, misses, rebuilds, storeError)
	return &CatalogMetrics{hits: hits, misses: misses, rebuilds: rebuilds, storeError: storeError}
}

func (m *CatalogMetrics) IncHit(entry string) {
	if m == nil || m.hits == nil {
		return
	}
	m.hits.WithLabelValues(normalizeLabel(entry)).Inc()
}

func (m *CatalogMetrics) IncMiss(entry string) {
	if m == nil || m.misses == nil {
		return
	}
	m.misses.WithLabelValues(normalizeLabel(entry)).Inc()
}

func (m *CatalogMetrics) IncRebuild() {
	if m == nil || m.rebuilds == nil {
		return
	}
	m.rebuilds.Inc()
}

func (m *CatalogMetrics) IncStoreError(op string) {
	if m == nil || m.storeError == nil {
		return
	}
	m.storeError.WithLabelValues(normalizeLabel(op)).Inc()
}
