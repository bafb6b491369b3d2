package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/magisurprise/backend/api/responses"
	pkgAuth "github.com/magisurprise/backend/pkg/auth"
	"github.com/magisurprise/backend/pkg/config"
	pkgerrors "github.com/magisurprise/backend/pkg/errors"
	"github.com/magisurprise/backend/pkg/logger"
)

// Auth validates a bearer token issued by the identity provider and seeds
// the request context with the verified identity.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Token de acceso requerido"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "Token inválido o expirado"))
				return
			}

			ctx := WithIdentity(r.Context(), claims.UserID.String(), string(claims.Role))
			if claims.NegocioID != nil {
				ctx = context.WithValue(ctx, ctxNegocioID, claims.NegocioID.String())
			}

			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
				ctx = logg.WithRole(ctx, string(claims.Role))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
