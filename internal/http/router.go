package http

import (
	"context"
	"net/http"
)

type RouterConfig struct {
	Schedules     *ScheduleHandler
	Notifications *NotificationHandler
	Courses       *CourseHandler
	PushTokens    *PushTokenHandler
	// Authenticate wraps every route except /healthz. Typically RequirePrincipal.
	Authenticate func(http.Handler) http.Handler
	// Health reports readiness for GET /healthz. Nil always reports ok.
	Health     func(ctx context.Context) error
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	protect := func(h http.HandlerFunc) http.Handler {
		if cfg.Authenticate == nil {
			return h
		}
		return cfg.Authenticate(h)
	}

	mux.HandleFunc("GET /healthz", healthHandler(cfg.Health))

	if cfg.Schedules != nil {
		mux.Handle("GET /schedule", protect(cfg.Schedules.Get))
		mux.Handle("GET /schedule.ics", protect(cfg.Schedules.Calendar))
		mux.Handle("POST /schedule/events", protect(cfg.Schedules.CreateEvent))
		mux.Handle("PUT /schedule/events/{id}", protect(cfg.Schedules.UpdateEvent))
		mux.Handle("DELETE /schedule/events/{id}", protect(cfg.Schedules.DeleteEvent))
	}

	if cfg.Notifications != nil {
		mux.Handle("GET /notifications", protect(cfg.Notifications.List))
		mux.Handle("GET /notifications/unread-count", protect(cfg.Notifications.UnreadCount))
		mux.Handle("PUT /notifications/read-all", protect(cfg.Notifications.MarkAllRead))
		mux.Handle("PUT /notifications/{id}/read", protect(cfg.Notifications.MarkRead))
		mux.Handle("DELETE /notifications/read", protect(cfg.Notifications.ClearRead))
		mux.Handle("DELETE /notifications/{id}", protect(cfg.Notifications.Delete))
		mux.Handle("POST /courses/{id}/notifications", protect(cfg.Notifications.NotifyCourse))
		mux.Handle("POST /users/{id}/notifications", protect(cfg.Notifications.NotifyUser))
	}

	if cfg.Courses != nil {
		mux.Handle("POST /courses/{id}/enrollment", protect(cfg.Courses.Enroll))
		mux.Handle("DELETE /courses/{id}/enrollment", protect(cfg.Courses.Drop))
	}

	if cfg.PushTokens != nil {
		mux.Handle("PUT /me/push-token", protect(cfg.PushTokens.Register))
		mux.Handle("DELETE /me/push-token", protect(cfg.PushTokens.Clear))
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	responder := newResponder(nil)
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				responder.loggerFor(r.Context()).WarnContext(r.Context(), "health check failed", "error", err)
				responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
				return
			}
		}
		responder.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

type healthResponse struct {
	Status string `json:"status"`
}
