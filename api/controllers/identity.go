package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/magisurprise/backend/api/middleware"
	"github.com/magisurprise/backend/pkg/enums"
	pkgerrors "github.com/magisurprise/backend/pkg/errors"
)

// Identity reads the verified caller placed on the context by middleware.Auth.
func Identity(r *http.Request) (uuid.UUID, enums.UserRole, error) {
	userID, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "Sesión requerida")
	}
	role, err := enums.ParseUserRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "Rol no reconocido")
	}
	return userID, role, nil
}
