package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/college-admin/internal/application"
)

type pushTokenService interface {
	RegisterPushToken(ctx context.Context, principal application.Principal, token string) error
	ClearPushToken(ctx context.Context, principal application.Principal) error
}

type PushTokenHandler struct {
	service   pushTokenService
	responder responder
}

func NewPushTokenHandler(service pushTokenService, logger *slog.Logger) *PushTokenHandler {
	return &PushTokenHandler{service: service, responder: newResponder(logger)}
}

func (h *PushTokenHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req pushTokenRequest
	if err := decodeRequest(r, &req); err != nil {
		h.responder.writeDecodeError(r.Context(), w, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.RegisterPushToken(r.Context(), principal, req.Token); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *PushTokenHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.ClearPushToken(r.Context(), principal); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type pushTokenRequest struct {
	Token string `json:"token" validate:"required,max=4096"`
}
