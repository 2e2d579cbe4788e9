package http

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/college-admin/internal/application"
	"github.com/example/college-admin/internal/calendar"
	"github.com/example/college-admin/internal/scheduler"
)

const dateLayout = "2006-01-02"

var errInvalidEventID = errors.New("イベントIDが不正です。")

type scheduleService interface {
	BuildSchedule(ctx context.Context, params application.BuildScheduleParams) (application.Schedule, error)
	CreatePersonalEvent(ctx context.Context, params application.CreatePersonalEventParams) (application.PersonalEvent, error)
	UpdatePersonalEvent(ctx context.Context, params application.UpdatePersonalEventParams) (application.PersonalEvent, error)
	DeletePersonalEvent(ctx context.Context, principal application.Principal, eventID string) error
	Location() *time.Location
}

type ScheduleHandler struct {
	service   scheduleService
	responder responder
	logger    *slog.Logger
	now       func() time.Time
}

func NewScheduleHandler(service scheduleService, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{service: service, responder: newResponder(logger), logger: logger, now: time.Now}
}

// Get renders the caller's schedule as JSON.
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	schedule, ok := h.build(w, r)
	if !ok {
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toScheduleResponse(schedule))
}

// Calendar renders the caller's schedule as an iCalendar feed.
func (h *ScheduleHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	schedule, ok := h.build(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	err := calendar.Encode(&buf, schedule.Events, calendar.Options{
		Name:     "Class schedule",
		Location: h.service.Location(),
		Stamp:    h.now(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.logger, "ScheduleHandler", "Calendar").DebugContext(r.Context(), "calendar rendered", "event_count", len(schedule.Events))
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *ScheduleHandler) build(w http.ResponseWriter, r *http.Request) (application.Schedule, bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return application.Schedule{}, false
	}

	principal, _ := PrincipalFromContext(r.Context())
	params, err := buildScheduleParams(r.URL.Query(), principal, h.service.Location())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return application.Schedule{}, false
	}

	schedule, err := h.service.BuildSchedule(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return application.Schedule{}, false
	}
	return schedule, true
}

func (h *ScheduleHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req personalEventRequest
	if err := decodeRequest(r, &req); err != nil {
		h.responder.writeDecodeError(r.Context(), w, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	event, err := h.service.CreatePersonalEvent(r.Context(), application.CreatePersonalEventParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toPersonalEventDTO(event))
}

func (h *ScheduleHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID := strings.TrimSpace(r.PathValue("id"))
	if eventID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var req personalEventRequest
	if err := decodeRequest(r, &req); err != nil {
		h.responder.writeDecodeError(r.Context(), w, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	event, err := h.service.UpdatePersonalEvent(r.Context(), application.UpdatePersonalEventParams{
		Principal: principal,
		EventID:   eventID,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPersonalEventDTO(event))
}

func (h *ScheduleHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID := strings.TrimSpace(r.PathValue("id"))
	if eventID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeletePersonalEvent(r.Context(), principal, eventID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// buildScheduleParams reads start, end and types. Date-only bounds are taken
// as whole days in loc, so end=2024-04-07 includes that Sunday.
func buildScheduleParams(values url.Values, principal application.Principal, loc *time.Location) (application.BuildScheduleParams, error) {
	params := application.BuildScheduleParams{Principal: principal}
	vErr := &application.ValidationError{FieldErrors: map[string]string{}}

	if raw := strings.TrimSpace(values.Get("start")); raw != "" {
		if start, _, ok := parseBound(raw, loc); ok {
			params.From = &start
		} else {
			vErr.FieldErrors["start"] = "start must be an RFC 3339 timestamp or a date"
		}
	}
	if raw := strings.TrimSpace(values.Get("end")); raw != "" {
		if end, dateOnly, ok := parseBound(raw, loc); ok {
			if dateOnly {
				end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
			}
			params.To = &end
		} else {
			vErr.FieldErrors["end"] = "end must be an RFC 3339 timestamp or a date"
		}
	}

	for _, raw := range values["types"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			params.EventTypes = append(params.EventTypes, scheduler.EventType(part))
		}
	}

	if vErr.HasErrors() {
		return application.BuildScheduleParams{}, vErr
	}
	return params, nil
}

func parseBound(value string, loc *time.Location) (time.Time, bool, bool) {
	if loc == nil {
		loc = time.UTC
	}
	if ts, err := time.ParseInLocation(dateLayout, value, loc); err == nil {
		return ts, true, true
	}
	if ts := parseTime(value); !ts.IsZero() {
		return ts, false, true
	}
	return time.Time{}, false, false
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	return time.Time{}
}

type personalEventRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Location    *string `json:"location" validate:"omitempty,max=200"`
	EventType   string  `json:"event_type" validate:"omitempty,oneof=LECTURE EXAM ASSIGNMENT_DUE MEETING OFFICE_HOURS PERSONAL"`
	Start       string  `json:"start" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	End         string  `json:"end" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	IsAllDay    bool    `json:"is_all_day"`
}

func (r personalEventRequest) toInput() application.PersonalEventInput {
	return application.PersonalEventInput{
		Title:       strings.TrimSpace(r.Title),
		Description: r.Description,
		Location:    r.Location,
		EventType:   strings.TrimSpace(r.EventType),
		Start:       parseTime(r.Start),
		End:         parseTime(r.End),
		IsAllDay:    r.IsAllDay,
	}
}

type scheduleResponse struct {
	From      string        `json:"from"`
	To        string        `json:"to"`
	Events    []eventDTO    `json:"events"`
	Conflicts []conflictDTO `json:"conflicts"`
}

type eventDTO struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	EventType   string `json:"event_type"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Start       string `json:"start"`
	End         string `json:"end"`
	IsAllDay    bool   `json:"is_all_day"`
	IsRecurring bool   `json:"is_recurring"`
	CourseID    string `json:"course_id,omitempty"`
	CourseCode  string `json:"course_code,omitempty"`
	SourceID    string `json:"source_id"`
}

type conflictDTO struct {
	EventID      string `json:"event_id"`
	WithEventID  string `json:"with_event_id"`
	Category     string `json:"category"`
	WithCategory string `json:"with_category"`
}

type personalEventDTO struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Location    *string `json:"location,omitempty"`
	EventType   string  `json:"event_type"`
	Start       string  `json:"start"`
	End         string  `json:"end"`
	IsAllDay    bool    `json:"is_all_day"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func toScheduleResponse(schedule application.Schedule) scheduleResponse {
	response := scheduleResponse{
		From:      formatTime(schedule.From),
		To:        formatTime(schedule.To),
		Events:    make([]eventDTO, 0, len(schedule.Events)),
		Conflicts: make([]conflictDTO, 0, len(schedule.Conflicts)),
	}
	for _, event := range schedule.Events {
		response.Events = append(response.Events, eventDTO{
			ID:          event.ID,
			Category:    string(event.Category),
			EventType:   string(event.EventType),
			Title:       event.Title,
			Description: event.Description,
			Location:    event.Location,
			Start:       formatTime(event.Start),
			End:         formatTime(event.End),
			IsAllDay:    event.IsAllDay,
			IsRecurring: event.IsRecurring,
			CourseID:    event.CourseID,
			CourseCode:  event.CourseCode,
			SourceID:    event.SourceID,
		})
	}
	for _, conflict := range schedule.Conflicts {
		response.Conflicts = append(response.Conflicts, conflictDTO{
			EventID:      conflict.EventID,
			WithEventID:  conflict.WithEventID,
			Category:     string(conflict.Category),
			WithCategory: string(conflict.WithCategory),
		})
	}
	return response
}

func toPersonalEventDTO(event application.PersonalEvent) personalEventDTO {
	return personalEventDTO{
		ID:          event.ID,
		Title:       event.Title,
		Description: event.Description,
		Location:    event.Location,
		EventType:   string(event.EventType),
		Start:       formatTime(event.Start),
		End:         formatTime(event.End),
		IsAllDay:    event.IsAllDay,
		CreatedAt:   formatTime(event.CreatedAt),
		UpdatedAt:   formatTime(event.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
