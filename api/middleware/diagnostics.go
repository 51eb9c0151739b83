package middleware

import (
	"net/http"

	"github.com/angelmondragon/folio-backend/api/responses"
)

// Diagnostics attaches error cause chains to responses. Enabled outside
// production only.
func Diagnostics(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(responses.WithDiagnostics(r.Context())))
		})
	}
}
