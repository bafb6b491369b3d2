package responses

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/magisurprise/backend/pkg/errors"
	"github.com/magisurprise/backend/pkg/types"
)

func TestWriteSuccessFlattensPayload(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, "Pedido creado", map[string]any{"order": map[string]string{"estado": "RECIBIDA"}})

	if got := w.Code; got != http.StatusCreated {
		t.Fatalf("expected status 201 but got %d", got)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode success envelope: %v", err)
	}
	if body["ok"] != true || body["message"] != "Pedido creado" {
		t.Fatalf("unexpected envelope %v", body)
	}
	if body["order"].(map[string]any)["estado"] != "RECIBIDA" {
		t.Fatalf("unexpected payload %v", body["order"])
	}
}

func TestWriteErrorMapsTypedError(t *testing.T) {
	ExposeErrors(false)
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "Datos del pedido inválidos").
		WithDetails(map[string]string{"items": "requerido"})
	WriteError(t.Context(), nil, w, err)

	if got := w.Code; got != http.StatusBadRequest {
		t.Fatalf("expected status 400 but got %d", got)
	}

	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.OK {
		t.Fatal("expected ok=false")
	}
	if body.Code != string(pkgerrors.CodeValidation) || body.Message != "Datos del pedido inválidos" {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.Details == nil {
		t.Fatalf("expected details in public payload")
	}
	if body.Error != "" {
		t.Fatalf("raw error must be hidden, got %q", body.Error)
	}
}

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := map[pkgerrors.Code]int{
		pkgerrors.CodeUnauthorized:  http.StatusUnauthorized,
		pkgerrors.CodeForbidden:     http.StatusForbidden,
		pkgerrors.CodeNotFound:      http.StatusNotFound,
		pkgerrors.CodeConflict:      http.StatusConflict,
		pkgerrors.CodeStateConflict: http.StatusUnprocessableEntity,
	}
	for code, status := range cases {
		w := httptest.NewRecorder()
		WriteError(t.Context(), nil, w, pkgerrors.New(code, "x"))
		if w.Code != status {
			t.Fatalf("%s: expected %d got %d", code, status, w.Code)
		}
	}
}

func TestWriteErrorDefaultsToInternalForUntrustedErrors(t *testing.T) {
	ExposeErrors(true)
	t.Cleanup(func() { ExposeErrors(false) })
	w := httptest.NewRecorder()
	WriteError(t.Context(), nil, w, errors.New("pq: connection reset"))

	if got := w.Code; got != http.StatusInternalServerError {
		t.Fatalf("expected status 500 but got %d", got)
	}

	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("unexpected code %s", body.Code)
	}
	if body.Message != "Error interno del servidor" {
		t.Fatalf("expected generic message, got %q", body.Message)
	}
	if body.Details != nil {
		t.Fatalf("details should be omitted for internal errors")
	}
	if body.Error == "" {
		t.Fatalf("expected raw error outside production")
	}
}
