package middleware

import (
	"net/http"

	"clinic-records/internal/domain/access"
)

// RequireScope corta con 401 si no hay actor y con 403 si su rol no
// incluye el scope.
func RequireScope(scope access.Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := GetActor(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if !access.HasScope(actor.Role, scope) {
				LoggerFrom(r.Context()).Debug("scope denied", map[string]any{
					"user_id": actor.ID,
					"role":    string(actor.Role),
					"scope":   string(scope),
				})
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
