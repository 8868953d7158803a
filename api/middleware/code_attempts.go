package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/packfinderz-fulfillment/api/responses"
	pkgerrors "github.com/angelmondragon/packfinderz-fulfillment/pkg/errors"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/logger"
)

type codeAttemptStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	ResetWindow(ctx context.Context, scope string) error
	CodeAttemptScope(employeeID, orderID string) string
}

// CodeAttemptPolicy bounds how many one-time codes an employee may try against
// one order within a window.
type CodeAttemptPolicy struct {
	Limit  int
	Window time.Duration
}

func (p CodeAttemptPolicy) enabled() bool {
	return p.Limit > 0 && p.Window > 0
}

// CodeAttemptLimit counts every code submission for (employee, order) in a
// fixed window and rejects further attempts once the limit is reached. A
// successful fulfillment clears the window.
func CodeAttemptLimit(policy CodeAttemptPolicy, store codeAttemptStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			employeeID := UserIDFromContext(ctx)
			orderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
			if employeeID == "" || orderID == "" {
				next.ServeHTTP(w, r)
				return
			}

			scope := store.CodeAttemptScope(employeeID, orderID)
			allowed, count, err := store.FixedWindowAllow(ctx, scope, int64(policy.Limit), policy.Window)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if !allowed {
				if logg != nil {
					logCtx := logg.WithFields(ctx, map[string]any{
						"order_id":       orderID,
						"attempts":       count,
						"limit":          policy.Limit,
						"window_seconds": int(policy.Window.Seconds()),
					})
					logg.Warn(logCtx, "fulfillment.code_attempts.blocked")
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many code attempts"))
				return
			}

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			if status := defaultStatus(rec.status); status >= 200 && status < 300 {
				if err := store.ResetWindow(ctx, scope); err != nil && logg != nil {
					logg.Error(ctx, "reset code attempt window", err)
				}
			}
		})
	}
}
