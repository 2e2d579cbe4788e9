package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/college-admin/internal/application"
)

func TestRequirePrincipal(t *testing.T) {
	t.Parallel()

	newHandler := func(resolver PrincipalResolver) (http.Handler, *application.Principal) {
		var seen application.Principal
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				t.Errorf("expected principal in context")
			}
			seen = principal
			w.WriteHeader(http.StatusNoContent)
		})
		return RequirePrincipal(resolver, discardLogger())(next), &seen
	}

	t.Run("missing header is unauthenticated", func(t *testing.T) {
		t.Parallel()
		handler, _ := newHandler(testResolver())

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schedule", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		var body errorResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.ErrorCode != codeUnauthorized || body.Message != errMissingIdentity.Error() {
			t.Fatalf("unexpected body %#v", body)
		}
	})

	t.Run("unknown user is unauthenticated", func(t *testing.T) {
		t.Parallel()
		handler, _ := newHandler(testResolver())

		req := httptest.NewRequest(http.MethodGet, "/schedule", nil)
		req.Header.Set(UserIDHeader, "ghost")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("resolver failure is an internal error", func(t *testing.T) {
		t.Parallel()
		handler, _ := newHandler(principalResolverStub{err: errors.New("db down")})

		req := httptest.NewRequest(http.MethodGet, "/schedule", nil)
		req.Header.Set(UserIDHeader, "student-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})

	t.Run("resolved principal reaches the handler", func(t *testing.T) {
		t.Parallel()
		handler, seen := newHandler(testResolver())

		req := httptest.NewRequest(http.MethodGet, "/schedule", nil)
		req.Header.Set(UserIDHeader, " prof-1 ")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if *seen != professorPrincipal {
			t.Fatalf("unexpected principal %#v", *seen)
		}
	})
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	t.Run("logs status and echoes request id", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if LoggerFromContext(r.Context()) == nil {
				t.Errorf("expected request logger in context")
			}
			w.WriteHeader(http.StatusTeapot)
		}))

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(RequestIDHeader, "req-42")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get(RequestIDHeader); got != "req-42" {
			t.Fatalf("expected echoed request id, got %q", got)
		}
		out := buf.String()
		for _, want := range []string{"request started", "request completed", "status=418", "request_id=req-42", "duration_ms="} {
			if !strings.Contains(out, want) {
				t.Fatalf("expected %q in log output %s", want, out)
			}
		}
	})

	t.Run("mints a request id when absent", func(t *testing.T) {
		t.Parallel()

		handler := RequestLogger(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if len(rec.Header().Get(RequestIDHeader)) != 36 {
			t.Fatalf("expected uuid request id, got %q", rec.Header().Get(RequestIDHeader))
		}
	})
}
