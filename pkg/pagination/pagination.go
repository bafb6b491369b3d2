// Package pagination pages listings newest first by (created_at, id).
// A cursor is bound to the listing that issued it, so a cursor taken from
// one negocio's orders or one estado filter is rejected elsewhere.
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultLimit is the page size when the request does not ask for one.
	DefaultLimit = 25
	// MaxLimit caps any requested page size.
	MaxLimit = 100

	cursorVersion = "v2"
)

// ErrInvalidCursor covers malformed, foreign and outdated cursors.
var ErrInvalidCursor = errors.New("invalid cursor")

// Params is a page request.
type Params struct {
	Limit  int
	Cursor string
}

// PageSize is Limit clamped to [1, MaxLimit], DefaultLimit when unset.
func (p Params) PageSize() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	default:
		return p.Limit
	}
}

// FetchSize is PageSize plus the one look-ahead row that tells whether
// another page exists.
func (p Params) FetchSize() int {
	return p.PageSize() + 1
}

// Cursor is the sort key of the last row served.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Scope names a listing, e.g. Scope(negocioID, estado). Empty parts are
// kept so that "no filter" and "filter" differ.
func Scope(parts ...string) string {
	return strings.Join(parts, "/")
}

// Encode builds the opaque cursor for c within scope.
func Encode(c Cursor, scope string) string {
	payload := strings.Join([]string{
		cursorVersion,
		scopeTag(scope),
		c.CreatedAt.UTC().Format(time.RFC3339Nano),
		c.ID.String(),
	}, "|")
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// Decode parses value issued for scope. A blank value is the first page
// and returns nil.
func Decode(value, scope string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: not base64", ErrInvalidCursor)
	}
	parts := strings.Split(string(raw), "|")
	if len(parts) != 4 || parts[0] != cursorVersion {
		return nil, fmt.Errorf("%w: unknown format", ErrInvalidCursor)
	}
	if parts[1] != scopeTag(scope) {
		return nil, fmt.Errorf("%w: issued for another listing", ErrInvalidCursor)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: bad timestamp", ErrInvalidCursor)
	}
	id, err := uuid.Parse(parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: bad id", ErrInvalidCursor)
	}
	return &Cursor{CreatedAt: createdAt, ID: id}, nil
}

// Trim cuts rows fetched with FetchSize down to the page and returns the
// cursor for the next one, empty on the last page.
func Trim[T any](rows []T, p Params, scope string, key func(T) Cursor) ([]T, string) {
	size := p.PageSize()
	if len(rows) <= size {
		return rows, ""
	}
	page := rows[:size]
	return page, Encode(key(page[len(page)-1]), scope)
}

func scopeTag(scope string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(scope))
	return fmt.Sprintf("%08x", h.Sum32())
}
