package middleware

import (
	"net/http"
	"slices"

	"github.com/magisurprise/backend/api/responses"
	"github.com/magisurprise/backend/pkg/enums"
	pkgerrors "github.com/magisurprise/backend/pkg/errors"
	"github.com/magisurprise/backend/pkg/logger"
)

// RequireRole admits only the listed platform roles.
func RequireRole(logg *logger.Logger, roles ...enums.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := enums.UserRole(RoleFromContext(r.Context()))
			if !slices.Contains(roles, role) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "No tienes permisos para esta acción"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
