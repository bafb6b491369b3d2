package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/magisurprise/backend/api/responses"
	"github.com/magisurprise/backend/api/validators"
	"github.com/magisurprise/backend/internal/negocios"
	pkgerrors "github.com/magisurprise/backend/pkg/errors"
	"github.com/magisurprise/backend/pkg/logger"
)

// PublicNegocio renders a storefront profile by slug.
func PublicNegocio(svc negocios.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		if slug == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "El slug es requerido"))
			return
		}
		profile, err := svc.GetProfileBySlug(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "ok", map[string]any{"negocio": profile})
	}
}

// GetNegocio returns the profile the owner edits. Profiles are public data,
// so any authenticated caller may read them.
func GetNegocio(svc negocios.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		negocioID, err := validators.ParseUUIDParam(r, "negocioId", "negocio")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profile, err := svc.GetProfile(r.Context(), negocioID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "ok", map[string]any{"negocio": profile})
	}
}

// UpdateNegocio applies a partial profile edit.
func UpdateNegocio(svc negocios.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := Identity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		negocioID, err := validators.ParseUUIDParam(r, "negocioId", "negocio")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input negocios.UpdateProfileInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithNegocioID(ctx, negocioID.String())
		}
		profile, err := svc.UpdateProfile(ctx, negocios.Actor{UserID: userID, Role: role}, negocioID, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, "Perfil actualizado", map[string]any{"negocio": profile})
	}
}
