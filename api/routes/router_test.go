package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/magisurprise/backend/internal/catalogcache"
	"github.com/magisurprise/backend/internal/orders"
	pkgAuth "github.com/magisurprise/backend/pkg/auth"
	"github.com/magisurprise/backend/pkg/config"
	"github.com/magisurprise/backend/pkg/db/models"
	"github.com/magisurprise/backend/pkg/enums"
	"github.com/magisurprise/backend/pkg/logger"
	"github.com/magisurprise/backend/pkg/outbox"
)

type memoryStore struct {
	mu     sync.Mutex
	values map[string]string
	counts map[string]int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, counts: map[string]int64{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string { return "idem:" + scope + ":" + id }

func (m *memoryStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memoryStore) Ping(context.Context) error { return nil }

type countingOrders struct {
	orders.Service
	mu      sync.Mutex
	created int
}

func (c *countingOrders) CreateOrder(_ context.Context, _ orders.CreateOrderInput) (*orders.OrderDTO, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created++
	return &orders.OrderDTO{ID: uuid.New(), Estado: enums.OrderStateRecibida}, nil
}

type emptyCatalog struct{}

func (emptyCatalog) Snapshot(context.Context, catalogcache.Collection) ([]catalogcache.Entry, error) {
	return []catalogcache.Entry{}, nil
}

type emptyDeadLetters struct{}

func (emptyDeadLetters) List(context.Context, outbox.DLQFilter) ([]models.OutboxDLQ, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "magi-identity"},
		Orders: config.OrdersConfig{
			RateLimitWindow:   time.Minute,
			RateLimitPerIP:    100,
			RateLimitPerPhone: 100,
		},
	}
}

func newTestRouter(t *testing.T, svc *countingOrders) http.Handler {
	t.Helper()
	return NewRouter(testConfig(), logger.New(logger.Options{ServiceName: "test", Output: io.Discard}), Dependencies{
		Redis:       newMemoryStore(),
		Catalog:     emptyCatalog{},
		Orders:      svc,
		DeadLetters: emptyDeadLetters{},
		Gatherer:    prometheus.NewRegistry(),
	})
}

func bearer(t *testing.T, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testConfig().JWT, time.Now(), time.Hour, pkgAuth.AccessTokenPayload{UserID: uuid.New(), Role: role})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	return "Bearer " + token
}

func TestPublicRoutesAreOpen(t *testing.T) {
	router := newTestRouter(t, &countingOrders{})

	for _, path := range []string{"/health/live", "/health/ready", "/metrics", "/api/public/catalog/products"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestOwnerRoutesRequireNegocioOrAdmin(t *testing.T) {
	router := newTestRouter(t, &countingOrders{})
	path := "/api/v1/orders/" + uuid.NewString() + "/history"

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", bearer(t, enums.UserRoleCliente))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cliente, got %d", rec.Code)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	router := newTestRouter(t, &countingOrders{})
	path := "/api/admin/v1/notifications/dead-letters"

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", bearer(t, enums.UserRoleNegocio))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for negocio, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", bearer(t, enums.UserRoleAdmin))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rec.Code)
	}
}

func TestPublicOrderReplaysWithIdempotencyKey(t *testing.T) {
	svc := &countingOrders{}
	router := newTestRouter(t, svc)
	body := `{"items":[{"nombre":"Globo","quantity":1,"unitPrice":"5000","isCustom":true}],"delivery":{"senderName":"Luis","senderPhone":"3001234567"}}`

	var first string
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/public/orders", strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "checkout-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201, got %d: %s", i, rec.Code, rec.Body.String())
		}
		if i == 0 {
			first = rec.Body.String()
		} else if rec.Body.String() != first {
			t.Fatalf("expected replayed body")
		}
	}
	if svc.created != 1 {
		t.Fatalf("expected one order, got %d", svc.created)
	}
}
