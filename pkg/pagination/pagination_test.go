package pagination

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorIsBoundToItsListing(t *testing.T) {
	negocioID := uuid.NewString()
	scope := Scope(negocioID, "")
	cursor := Cursor{
		CreatedAt: time.Date(2026, 5, 10, 18, 4, 5, 123456789, time.UTC),
		ID:        uuid.New(),
	}

	encoded := Encode(cursor, scope)
	decoded, err := Decode(encoded, scope)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded == nil || !decoded.CreatedAt.Equal(cursor.CreatedAt) || decoded.ID != cursor.ID {
		t.Fatalf("decoded cursor mismatch: %+v", decoded)
	}

	for _, other := range []string{Scope(uuid.NewString(), ""), Scope(negocioID, "CANCELADA")} {
		if _, err := Decode(encoded, other); !errors.Is(err, ErrInvalidCursor) {
			t.Fatalf("expected cursor to be rejected for scope %q, got %v", other, err)
		}
	}
}

func TestDecodeEdges(t *testing.T) {
	if c, err := Decode("  ", "x"); err != nil || c != nil {
		t.Fatalf("blank cursor should be the first page, got %+v %v", c, err)
	}
	for _, bad := range []string{"%%%", Encode(Cursor{}, "x")[:4], "djF8YWJj"} {
		if _, err := Decode(bad, "x"); !errors.Is(err, ErrInvalidCursor) {
			t.Fatalf("Decode(%q): expected ErrInvalidCursor, got %v", bad, err)
		}
	}
}

func TestParamsSizes(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -3: DefaultLimit, 10: 10, 1000: MaxLimit}
	for in, want := range cases {
		if got := (Params{Limit: in}).PageSize(); got != want {
			t.Fatalf("PageSize(%d) = %d, want %d", in, got, want)
		}
	}
	if (Params{Limit: 10}).FetchSize() != 11 {
		t.Fatal("expected one look-ahead row")
	}
}

func TestTrimEmitsCursorOnlyWhenMoreRowsExist(t *testing.T) {
	type row struct {
		id uuid.UUID
		at time.Time
	}
	key := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }
	base := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	rows := []row{{uuid.New(), base}, {uuid.New(), base.Add(-time.Minute)}, {uuid.New(), base.Add(-2 * time.Minute)}}

	page, next := Trim(rows, Params{Limit: 2}, "s", key)
	if len(page) != 2 || next == "" {
		t.Fatalf("expected full page with cursor, got %d %q", len(page), next)
	}
	c, err := Decode(next, "s")
	if err != nil || c.ID != rows[1].id {
		t.Fatalf("cursor must point at the last served row: %+v %v", c, err)
	}

	page, next = Trim(rows[:2], Params{Limit: 2}, "s", key)
	if len(page) != 2 || next != "" {
		t.Fatalf("last page must not carry a cursor, got %q", next)
	}
}
