// Package slug builds URL-safe identifiers for negocios and products.
package slug

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// FallbackBase is used when a name normalizes to nothing (e.g. "¡¡¡").
	FallbackBase = "item"

	suffixLength       = 4
	suffixAlphabet     = "0123456789abcdefghijklmnopqrstuvwxyz"
	defaultMaxAttempts = 50
)

// ErrExhausted is returned when every counter candidate up to MaxAttempts was taken.
var ErrExhausted = errors.New("slug: no free candidate")

// Normalize lowercases, strips diacritics and joins every non-alphanumeric
// run into a single hyphen. Empty parts are skipped so an optional
// qualifier (the city) can be passed blindly.
func Normalize(parts ...string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, part := range parts {
		folded, _, err := transform.String(foldChain(), part)
		if err != nil {
			folded = part
		}
		for _, r := range strings.ToLower(folded) {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				if pendingHyphen && b.Len() > 0 {
					b.WriteByte('-')
				}
				pendingHyphen = false
				b.WriteRune(r)
				continue
			}
			pendingHyphen = true
		}
		pendingHyphen = true
	}
	return b.String()
}

// transform.Chain keeps state, so each call gets its own.
func foldChain() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// ExistsFunc reports whether candidate is already taken.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Generator produces unique slugs of the form base-xxxx, falling back to
// base-xxxx-1, base-xxxx-2... while the store reports a collision.
type Generator struct {
	Exists      ExistsFunc
	MaxAttempts int
	// Rand overrides the suffix source; tests pin it.
	Rand func() string
}

// NewGenerator wires a generator to a uniqueness check.
func NewGenerator(exists ExistsFunc) *Generator {
	return &Generator{Exists: exists, MaxAttempts: defaultMaxAttempts}
}

// Generate returns a slug that the exists check reported free. Exists errors are
// returned as-is without retrying.
func (g *Generator) Generate(ctx context.Context, name string, qualifier ...string) (string, error) {
	if g == nil || g.Exists == nil {
		return "", errors.New("slug: exists check required")
	}

	base := Normalize(append([]string{name}, qualifier...)...)
	if base == "" {
		base = FallbackBase
	}
	stem := base + "-" + g.suffix()

	taken, err := g.Exists(ctx, stem)
	if err != nil {
		return "", err
	}
	if !taken {
		return stem, nil
	}

	limit := g.MaxAttempts
	if limit <= 0 {
		limit = defaultMaxAttempts
	}
	for counter := 1; counter <= limit; counter++ {
		candidate := fmt.Sprintf("%s-%d", stem, counter)
		taken, err := g.Exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w for %q after %d attempts", ErrExhausted, stem, limit)
}

func (g *Generator) suffix() string {
	if g.Rand != nil {
		return g.Rand()
	}
	return RandomSuffix()
}

// RandomSuffix returns four base-36 characters.
func RandomSuffix() string {
	buf := make([]byte, suffixLength)
	for i := range buf {
		buf[i] = suffixAlphabet[rand.IntN(len(suffixAlphabet))]
	}
	return string(buf)
}
