package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/college-admin/internal/application"
)

type enrollmentService interface {
	Enroll(ctx context.Context, principal application.Principal, courseID string) (application.Enrollment, error)
	Drop(ctx context.Context, principal application.Principal, courseID string) (application.Enrollment, error)
}

type CourseHandler struct {
	service   enrollmentService
	responder responder
}

func NewCourseHandler(service enrollmentService, logger *slog.Logger) *CourseHandler {
	return &CourseHandler{service: service, responder: newResponder(logger)}
}

func (h *CourseHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	courseID := strings.TrimSpace(r.PathValue("id"))
	if courseID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCourseID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	enrollment, err := h.service.Enroll(r.Context(), principal, courseID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEnrollmentDTO(enrollment))
}

func (h *CourseHandler) Drop(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	courseID := strings.TrimSpace(r.PathValue("id"))
	if courseID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCourseID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	enrollment, err := h.service.Drop(r.Context(), principal, courseID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEnrollmentDTO(enrollment))
}

type enrollmentDTO struct {
	ID         string `json:"id"`
	CourseID   string `json:"course_id"`
	Status     string `json:"status"`
	EnrolledAt string `json:"enrolled_at"`
	UpdatedAt  string `json:"updated_at"`
}

func toEnrollmentDTO(enrollment application.Enrollment) enrollmentDTO {
	return enrollmentDTO{
		ID:         enrollment.ID,
		CourseID:   enrollment.CourseID,
		Status:     string(enrollment.Status),
		EnrolledAt: formatTime(enrollment.EnrolledAt),
		UpdatedAt:  formatTime(enrollment.UpdatedAt),
	}
}
