package middleware

import (
	"net/http"

	"github.com/angelmondragon/packfinderz-fulfillment/api/responses"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-fulfillment/pkg/errors"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/logger"
)

// RequireRole gates privileged routes such as overrides and reassignment.
// Denials are logged so override attempts leave an audit trail.
func RequireRole(role enums.MemberRole, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actual := RoleFromContext(r.Context())
			if actual == string(role) {
				next.ServeHTTP(w, r)
				return
			}
			if logg != nil {
				ctx := logg.WithFields(r.Context(), map[string]any{
					"required_role": string(role),
					"actor_role":    actual,
					"path":          r.URL.Path,
				})
				logg.Warn(ctx, "role check denied")
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required").
				WithDetails(map[string]any{"requiredRole": string(role)}))
		})
	}
}
