// Package caller trusts the identity the upstream gateway already
// authenticated and puts it on the request context.
package caller

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/google/uuid"

	id "parrainage/pkg/domain"
	dErrors "parrainage/pkg/domain-errors"
	"parrainage/pkg/platform/httputil"
	"parrainage/pkg/requestcontext"
)

const (
	HeaderCallerID   = "X-Caller-ID"
	HeaderCallerRole = "X-Caller-Role"
)

// Identify reads the caller headers. Requests without a valid identity are
// rejected with 401.
func Identify(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			callerID, err := uuid.Parse(r.Header.Get(HeaderCallerID))
			if err != nil || callerID == uuid.Nil {
				logger.WarnContext(ctx, "unauthorized access - missing caller id",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "caller identity required"))
				return
			}
			role, err := id.ParseRole(r.Header.Get(HeaderCallerRole))
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid caller role",
					"request_id", requestcontext.RequestID(ctx),
					"caller_id", callerID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "caller role required"))
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, callerID, role)))
		})
	}
}

// RequireRole rejects callers whose role is not listed with 403.
// It must run after Identify.
func RequireRole(logger *slog.Logger, roles ...id.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			role := requestcontext.CallerRole(ctx)
			if !slices.Contains(roles, role) {
				logger.WarnContext(ctx, "forbidden - role not allowed",
					"request_id", requestcontext.RequestID(ctx),
					"caller_id", requestcontext.CallerID(ctx),
					"role", role,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "operation not allowed for this caller"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
