package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/magisurprise/backend/api/responses"
	"github.com/magisurprise/backend/internal/catalogcache"
	"github.com/magisurprise/backend/pkg/logger"
)

type catalogReader interface {
	Snapshot(ctx context.Context, c catalogcache.Collection) ([]catalogcache.Entry, error)
}

// PublicCatalog serves the cached storefront snapshot for one collection.
func PublicCatalog(svc catalogReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collection := catalogcache.Collection(strings.ToLower(strings.TrimSpace(chi.URLParam(r, "collection"))))
		entries, err := svc.Snapshot(r.Context(), collection)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "ok", map[string]any{
			"collection": collection,
			"items":      entries,
		})
	}
}
