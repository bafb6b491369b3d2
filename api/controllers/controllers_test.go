package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magisurprise/backend/api/middleware"
	"github.com/magisurprise/backend/internal/catalogcache"
	product "github.com/magisurprise/backend/internal/products"
	"github.com/magisurprise/backend/pkg/config"
	"github.com/magisurprise/backend/pkg/db/models"
	"github.com/magisurprise/backend/pkg/enums"
	pkgerrors "github.com/magisurprise/backend/pkg/errors"
	"github.com/magisurprise/backend/pkg/logger"
	"github.com/magisurprise/backend/pkg/outbox"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func withRouteParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	rec := httptest.NewRecorder()
	HealthReady(cfg, ok, ok, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decodeBody(t, rec)["status"])

	rec = httptest.NewRecorder()
	HealthReady(cfg, ok, down, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, string(pkgerrors.CodeDependency), body["code"])
}

type stubCatalog struct {
	entries []catalogcache.Entry
	err     error
	asked   catalogcache.Collection
}

func (s *stubCatalog) Snapshot(_ context.Context, c catalogcache.Collection) ([]catalogcache.Entry, error) {
	s.asked = c
	return s.entries, s.err
}

func TestPublicCatalog(t *testing.T) {
	stub := &stubCatalog{entries: []catalogcache.Entry{{ID: uuid.New(), Nombre: "Ramo"}}}
	req := withRouteParams(httptest.NewRequest(http.MethodGet, "/api/public/catalog/Products", nil), map[string]string{"collection": "Products"})
	rec := httptest.NewRecorder()

	PublicCatalog(stub, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, catalogcache.CollectionProducts, stub.asked)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Len(t, body["items"], 1)

	stub.err = pkgerrors.New(pkgerrors.CodeNotFound, "Catálogo no encontrado")
	rec = httptest.NewRecorder()
	PublicCatalog(stub, testLogger()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type stubProducts struct {
	product.Service
	actor     product.Actor
	negocioID uuid.UUID
	created   product.CreateProductInput
	deleted   uuid.UUID
	err       error
}

func (s *stubProducts) CreateProduct(_ context.Context, actor product.Actor, negocioID uuid.UUID, input product.CreateProductInput) (*product.ProductDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.actor, s.negocioID, s.created = actor, negocioID, input
	return &product.ProductDTO{ID: uuid.New(), NegocioID: negocioID, Nombre: input.Nombre, Slug: "ramo-abcd"}, nil
}

func (s *stubProducts) DeleteProduct(_ context.Context, actor product.Actor, productID uuid.UUID) error {
	s.actor, s.deleted = actor, productID
	return s.err
}

func TestCreateProduct(t *testing.T) {
	userID := uuid.New()
	negocioID := uuid.New()
	stub := &stubProducts{}

	newRequest := func(ctx context.Context) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"nombre":"Ramo","precio":"45000","status":"available"}`))
		req = req.WithContext(ctx)
		return withRouteParams(req, map[string]string{"negocioId": negocioID.String()})
	}

	t.Run("missing identity", func(t *testing.T) {
		rec := httptest.NewRecorder()
		CreateProduct(stub, testLogger()).ServeHTTP(rec, newRequest(context.Background()))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("created", func(t *testing.T) {
		ctx := middleware.WithIdentity(context.Background(), userID.String(), string(enums.UserRoleNegocio))
		rec := httptest.NewRecorder()
		CreateProduct(stub, testLogger()).ServeHTTP(rec, newRequest(ctx))

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, userID, stub.actor.UserID)
		assert.Equal(t, enums.UserRoleNegocio, stub.actor.Role)
		assert.Equal(t, negocioID, stub.negocioID)
		assert.Equal(t, "Ramo", stub.created.Nombre)
		body := decodeBody(t, rec)
		assert.Equal(t, "Producto creado", body["message"])
		assert.NotNil(t, body["product"])
	})

	t.Run("forbidden from service", func(t *testing.T) {
		stub.err = pkgerrors.New(pkgerrors.CodeForbidden, "Acceso denegado")
		defer func() { stub.err = nil }()
		ctx := middleware.WithIdentity(context.Background(), userID.String(), string(enums.UserRoleNegocio))
		rec := httptest.NewRecorder()
		CreateProduct(stub, testLogger()).ServeHTTP(rec, newRequest(ctx))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Acceso denegado", decodeBody(t, rec)["message"])
	})
}

func TestDeleteProductRejectsBadID(t *testing.T) {
	stub := &stubProducts{}
	ctx := middleware.WithIdentity(context.Background(), uuid.NewString(), string(enums.UserRoleAdmin))
	req := httptest.NewRequest(http.MethodDelete, "/", nil).WithContext(ctx)
	req = withRouteParams(req, map[string]string{"productId": "nope"})
	rec := httptest.NewRecorder()

	DeleteProduct(stub, testLogger()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, uuid.Nil, stub.deleted)
}

type stubDeadLetters struct {
	filter outbox.DLQFilter
	rows   []models.OutboxDLQ
}

func (s *stubDeadLetters) List(_ context.Context, filter outbox.DLQFilter) ([]models.OutboxDLQ, error) {
	s.filter = filter
	return s.rows, nil
}

func TestAdminDeadLetters(t *testing.T) {
	msg := "resend: 422"
	stub := &stubDeadLetters{rows: []models.OutboxDLQ{{
		ID:           uuid.New(),
		EventID:      uuid.New(),
		EventType:    enums.EventOrderCreated,
		Payload:      json.RawMessage(`{"version":1}`),
		ErrorReason:  enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage: &msg,
		AttemptCount: 1,
		FailedAt:     time.Now().UTC(),
	}}}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/notifications/dead-letters?limit=10&eventType=order.created", nil)
	AdminDeadLetters(stub, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, stub.filter.Limit)
	assert.Equal(t, enums.EventOrderCreated, stub.filter.EventType)
	rows, ok := decodeBody(t, rec)["deadLetters"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, msg, rows[0].(map[string]any)["errorMessage"])

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/admin/v1/notifications/dead-letters?eventType=bogus", nil)
	AdminDeadLetters(stub, testLogger()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
