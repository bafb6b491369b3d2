package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/magisurprise/backend/pkg/logger"
)

func TestRequestIDKeepsPlainCallerIDs(t *testing.T) {
	handler := RequestID(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/public/catalog/products", nil)
	req.Header.Set(requestIDHeader, "checkout-7f3a91c2")
	req.Header.Set(cloudTraceHeader, "105445AA7843BC8BF206B12000100000/1;o=1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(requestIDHeader); got != "checkout-7f3a91c2" {
		t.Fatalf("expected caller id to be echoed, got %q", got)
	}
}

func TestRequestIDReplacesUnsafeCallerIDs(t *testing.T) {
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for _, bad := range []string{"", "short", "id with spaces and\nnewline", string(make([]byte, 80))} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestIDHeader, bad)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if _, err := uuid.Parse(rec.Header().Get(requestIDHeader)); err != nil {
			t.Fatalf("expected generated uuid for %q, got %q", bad, rec.Header().Get(requestIDHeader))
		}
	}
}

func TestCloudTraceID(t *testing.T) {
	if got := cloudTraceID("105445AA7843BC8BF206B12000100000/1;o=1"); got != "105445aa7843bc8bf206b12000100000" {
		t.Fatalf("unexpected trace id %q", got)
	}
	if got := cloudTraceID("not-a-trace/1"); got != "" {
		t.Fatalf("expected malformed trace to be dropped, got %q", got)
	}
}

func TestRecovererWritesInternalEnvelope(t *testing.T) {
	handler := Recoverer(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil negocio")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/negocios/x", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var payload struct {
		OK   bool   `json:"ok"`
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.OK || payload.Code != "INTERNAL_ERROR" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestRecovererRepanicsAbortHandler(t *testing.T) {
	handler := Recoverer(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
