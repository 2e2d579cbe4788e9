package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/college-admin/internal/application"
)

var (
	errInvalidNotificationID = errors.New("通知IDが不正です。")
	errInvalidCourseID       = errors.New("コースIDが不正です。")
	errInvalidUserID         = errors.New("ユーザーIDが不正です。")
	errInvalidQuery          = errors.New("クエリパラメータが不正です。")
)

type notificationService interface {
	ListNotifications(ctx context.Context, params application.ListNotificationsParams) (application.NotificationList, error)
	UnreadCount(ctx context.Context, principal application.Principal) (int, error)
	MarkRead(ctx context.Context, principal application.Principal, id string) error
	MarkAllRead(ctx context.Context, principal application.Principal) (int, error)
	DeleteNotification(ctx context.Context, principal application.Principal, id string) error
	ClearRead(ctx context.Context, principal application.Principal) (int, error)
	NotifyCourseEvent(ctx context.Context, principal application.Principal, event application.CourseEvent) (application.DeliveryReport, error)
	NotifyUser(ctx context.Context, principal application.Principal, userID string, payload application.NotificationPayload) (application.DeliveryReport, error)
}

type NotificationHandler struct {
	service   notificationService
	responder responder
	logger    *slog.Logger
}

func NewNotificationHandler(service notificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{service: service, responder: newResponder(logger), logger: logger}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := application.ListNotificationsParams{Principal: principal}

	query := r.URL.Query()
	if raw := strings.TrimSpace(query.Get("unreadOnly")); raw != "" {
		unreadOnly, err := strconv.ParseBool(raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
			return
		}
		params.UnreadOnly = unreadOnly
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
			return
		}
		params.Limit = limit
	}

	list, err := h.service.ListNotifications(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	response := notificationListResponse{
		Notifications: make([]notificationDTO, 0, len(list.Notifications)),
		UnreadCount:   list.UnreadCount,
	}
	for _, notification := range list.Notifications {
		response.Notifications = append(response.Notifications, toNotificationDTO(notification))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, response)
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	count, err := h.service.UnreadCount(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, countResponse{Count: count})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidNotificationID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.MarkRead(r.Context(), principal, id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	count, err := h.service.MarkAllRead(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, countResponse{Count: count})
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidNotificationID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteNotification(r.Context(), principal, id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *NotificationHandler) ClearRead(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	count, err := h.service.ClearRead(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, countResponse{Count: count})
}

// NotifyCourse publishes a course event to the course's enrolled students.
func (h *NotificationHandler) NotifyCourse(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	courseID := strings.TrimSpace(r.PathValue("id"))
	if courseID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCourseID)
		return
	}

	var req courseEventRequest
	if err := decodeRequest(r, &req); err != nil {
		h.responder.writeDecodeError(r.Context(), w, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	report, err := h.service.NotifyCourseEvent(r.Context(), principal, req.toEvent(courseID))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.logger, "NotificationHandler", "NotifyCourse", "course_id", courseID).
		InfoContext(r.Context(), "course event published", "notified", report.Notified)
	h.responder.writeJSON(r.Context(), w, http.StatusAccepted, toDeliveryReportDTO(report))
}

// NotifyUser sends one grade or system notification.
func (h *NotificationHandler) NotifyUser(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID := strings.TrimSpace(r.PathValue("id"))
	if userID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserID)
		return
	}

	var req userNotificationRequest
	if err := decodeRequest(r, &req); err != nil {
		h.responder.writeDecodeError(r.Context(), w, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	report, err := h.service.NotifyUser(r.Context(), principal, userID, req.toPayload())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusAccepted, toDeliveryReportDTO(report))
}

type courseEventRequest struct {
	Kind        string  `json:"kind" validate:"required,oneof=CONTENT ASSIGNMENT EXAM ANNOUNCEMENT"`
	ContentType string  `json:"content_type" validate:"omitempty,oneof=LECTURE MATERIAL VIDEO DOCUMENT LINK"`
	Title       string  `json:"title" validate:"required,max=200"`
	Message     string  `json:"message" validate:"max=2000"`
	ReferenceID string  `json:"reference_id"`
	DueAt       *string `json:"due_at" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

func (r courseEventRequest) toEvent(courseID string) application.CourseEvent {
	event := application.CourseEvent{
		CourseID:    courseID,
		Kind:        application.CourseEventKind(r.Kind),
		ContentType: r.ContentType,
		Title:       strings.TrimSpace(r.Title),
		Message:     strings.TrimSpace(r.Message),
		ReferenceID: strings.TrimSpace(r.ReferenceID),
	}
	if r.DueAt != nil {
		if due := parseTime(*r.DueAt); !due.IsZero() {
			event.DueAt = &due
		}
	}
	return event
}

type userNotificationRequest struct {
	Title         string `json:"title" validate:"max=200"`
	Message       string `json:"message" validate:"required,max=2000"`
	Type          string `json:"type" validate:"omitempty,oneof=GENERAL ANNOUNCEMENT ASSIGNMENT EXAM GRADE SYSTEM"`
	ReferenceType string `json:"reference_type" validate:"omitempty,oneof=ANNOUNCEMENT CONTENT TASK"`
	ReferenceID   string `json:"reference_id"`
}

func (r userNotificationRequest) toPayload() application.NotificationPayload {
	return application.NotificationPayload{
		Title:         strings.TrimSpace(r.Title),
		Message:       strings.TrimSpace(r.Message),
		Type:          application.NotificationType(r.Type),
		ReferenceType: application.ReferenceType(r.ReferenceType),
		ReferenceID:   strings.TrimSpace(r.ReferenceID),
	}
}

type notificationListResponse struct {
	Notifications []notificationDTO `json:"notifications"`
	UnreadCount   int               `json:"unread_count"`
}

type countResponse struct {
	Count int `json:"count"`
}

type notificationDTO struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Message       string  `json:"message"`
	Type          string  `json:"type"`
	ReferenceType *string `json:"reference_type,omitempty"`
	ReferenceID   *string `json:"reference_id,omitempty"`
	IsRead        bool    `json:"is_read"`
	ReadAt        *string `json:"read_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

type deliveryReportDTO struct {
	Notified           int  `json:"notified"`
	PushSent           int  `json:"push_sent"`
	PushFailed         int  `json:"push_failed"`
	WriteFailed        int  `json:"write_failed"`
	TokensCleared      int  `json:"tokens_cleared"`
	ChannelUnavailable bool `json:"channel_unavailable"`
	PushDeferred       bool `json:"push_deferred"`
}

func toNotificationDTO(notification application.Notification) notificationDTO {
	dto := notificationDTO{
		ID:          notification.ID,
		Title:       notification.Title,
		Message:     notification.Message,
		Type:        string(notification.Type),
		ReferenceID: notification.ReferenceID,
		IsRead:      notification.IsRead,
		CreatedAt:   formatTime(notification.CreatedAt),
	}
	if notification.ReferenceType != nil {
		referenceType := string(*notification.ReferenceType)
		dto.ReferenceType = &referenceType
	}
	if notification.ReadAt != nil {
		readAt := notification.ReadAt.UTC().Format(time.RFC3339)
		dto.ReadAt = &readAt
	}
	return dto
}

func toDeliveryReportDTO(report application.DeliveryReport) deliveryReportDTO {
	return deliveryReportDTO{
		Notified:           report.Notified,
		PushSent:           report.PushSent,
		PushFailed:         report.PushFailed,
		WriteFailed:        report.WriteFailed,
		TokensCleared:      report.TokensCleared,
		ChannelUnavailable: report.ChannelUnavailable,
		PushDeferred:       report.PushDeferred,
	}
}
