package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/college-admin/internal/application"
)

const (
	// UserIDHeader carries the authenticated user id set by the gateway.
	UserIDHeader = "X-User-ID"
	// RequestIDHeader is echoed back on every response.
	RequestIDHeader = "X-Request-ID"
)

// PrincipalResolver maps an upstream user id to a principal.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, userID string) (application.Principal, error)
}

var errUnknownUser = errors.New("ユーザーを認証できません。")

// RequirePrincipal rejects requests without a resolvable X-User-ID header and
// stores the principal on the request context.
func RequirePrincipal(resolver PrincipalResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
			if userID == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingIdentity)
				return
			}

			principal, err := resolver.ResolvePrincipal(r.Context(), userID)
			if err != nil {
				if errors.Is(err, application.ErrUnauthorized) {
					responder.writeError(r.Context(), w, http.StatusUnauthorized, errUnknownUser)
					return
				}
				responder.loggerFor(r.Context()).ErrorContext(r.Context(), "principal resolution failed", "error", err)
				body := newErrorResponse(http.StatusInternalServerError)
				body.Message = "認証中にエラーが発生しました。"
				responder.writeJSON(r.Context(), w, http.StatusInternalServerError, body)
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			if logger := LoggerFromContext(ctx); logger != nil {
				ctx = ContextWithLogger(ctx, logger.With("principal_id", principal.UserID))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger attaches a request scoped logger and logs each request's
// outcome. An incoming X-Request-ID is reused, otherwise a new one is minted.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.DebugContext(ctx, "request started")

			recorder := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(recorder, r.WithContext(ctx))

			logger.InfoContext(ctx, "request completed",
				"status", recorder.statusCode(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	if s.status == 0 {
		s.status = status
	}
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) statusCode() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}
