package middleware

import (
	"net/http"

	"github.com/angelmondragon/folio-backend/api/responses"
	"github.com/angelmondragon/folio-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/folio-backend/pkg/errors"
	"github.com/angelmondragon/folio-backend/pkg/logger"
)

// RequireRole admits callers whose role satisfies role. Superadmins satisfy
// every admin requirement.
func RequireRole(role enums.AdminRole, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !RoleFromContext(r.Context()).Satisfies(role) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, string(role)+" role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
