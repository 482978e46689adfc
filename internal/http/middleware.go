package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/confidential-scheduler/internal/application"
	"github.com/example/confidential-scheduler/internal/logging"
)

// RequireIdentity resolves the acting principal from the request. The
// employee identity arrives in the X-Employee-ID header, set by the identity
// gateway fronting this service; administrator calls additionally present a
// bearer token checked against the configured argon2id hash. Requests with
// neither are rejected.
func RequireIdentity(adminTokenHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := application.Principal{
				UserID: strings.TrimSpace(r.Header.Get("X-Employee-ID")),
			}

			if token := bearerToken(r); token != "" {
				if err := application.VerifyToken(adminTokenHash, token); err != nil {
					if errors.Is(err, application.ErrInvalidToken) {
						responder.writeError(r.Context(), w, http.StatusUnauthorized, errInvalidAdminToken)
					} else {
						responder.writeError(r.Context(), w, http.StatusInternalServerError, err)
					}
					return
				}
				principal.IsAdmin = true
			}

			if principal.UserID == "" && !principal.IsAdmin {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingIdentity)
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

// RequestLogger attaches a request-scoped logger to the context and records
// request boundaries.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := logging.ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}
