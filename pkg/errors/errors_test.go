package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "Datos inválidos", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "No autorizado"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "Acceso denegado"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "Recurso no encontrado"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "Conflicto con el estado actual"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "Transición de estado no permitida", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "Error interno del servidor", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "Servicio no disponible", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "Producto no encontrado")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "Producto no encontrado" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	base.WithDetails(map[string]any{"field": "productId"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "El slug ya está en uso")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsAndIsCodeWalkTheChain(t *testing.T) {
	err := fmt.Errorf("update negocio: %w", New(CodeForbidden, "no entry"))
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if !IsCode(err, CodeForbidden) {
		t.Fatalf("expected IsCode to find forbidden")
	}
	if IsCode(err, CodeNotFound) {
		t.Fatalf("expected IsCode to reject other codes")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestDiagnoseExtractsPostgresDetails(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "negocios_slug_key", TableName: "negocios", Message: "duplicate key"}
	err := Wrap(CodeConflict, fmt.Errorf("save: %w", pgErr), "El slug ya está en uso")

	d := Diagnose(err)
	if d.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", d.Code)
	}
	if d.Store == nil || d.Store.Driver != "pgx" || d.Store.SQLState != "23505" || d.Store.Constraint != "negocios_slug_key" {
		t.Fatalf("unexpected store detail %+v", d.Store)
	}
	if len(d.Chain) != 3 || d.Chain[2] != "*pgconn.PgError" {
		t.Fatalf("unexpected chain %v", d.Chain)
	}

	fields := d.Fields()
	if fields["pg_table"] != "negocios" || fields["error_code"] != CodeConflict {
		t.Fatalf("unexpected fields %v", fields)
	}
	if _, ok := fields["pg_column"]; ok {
		t.Fatalf("empty store fields must be omitted: %v", fields)
	}
}

func TestDiagnosePlainErrorIsInternal(t *testing.T) {
	d := Diagnose(stdErrors.New("boom"))
	if d.Code != CodeInternal || d.Store != nil {
		t.Fatalf("unexpected diagnostics %+v", d)
	}
	if _, ok := d.Fields()["pg_code"]; ok {
		t.Fatal("plain errors must not carry store fields")
	}
	if Diagnose(nil).Message != "" {
		t.Fatal("nil error must diagnose to zero value")
	}
}
