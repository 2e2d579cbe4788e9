package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/college-admin/internal/application"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type principalResolverStub struct {
	principals map[string]application.Principal
	err        error
}

func (p principalResolverStub) ResolvePrincipal(ctx context.Context, userID string) (application.Principal, error) {
	if p.err != nil {
		return application.Principal{}, p.err
	}
	principal, ok := p.principals[userID]
	if !ok {
		return application.Principal{}, application.ErrUnauthorized
	}
	return principal, nil
}

var (
	studentPrincipal   = application.Principal{UserID: "student-1", Role: application.RoleStudent}
	professorPrincipal = application.Principal{UserID: "prof-1", Role: application.RoleProfessor}
)

func testResolver() principalResolverStub {
	return principalResolverStub{principals: map[string]application.Principal{
		studentPrincipal.UserID:   studentPrincipal,
		professorPrincipal.UserID: professorPrincipal,
	}}
}

type scheduleServiceStub struct {
	schedule application.Schedule
	err      error
	params   []application.BuildScheduleParams
	created  []application.CreatePersonalEventParams
	updated  []application.UpdatePersonalEventParams
	deleted  []string
}

func (s *scheduleServiceStub) BuildSchedule(ctx context.Context, params application.BuildScheduleParams) (application.Schedule, error) {
	s.params = append(s.params, params)
	return s.schedule, s.err
}

func (s *scheduleServiceStub) CreatePersonalEvent(ctx context.Context, params application.CreatePersonalEventParams) (application.PersonalEvent, error) {
	s.created = append(s.created, params)
	if s.err != nil {
		return application.PersonalEvent{}, s.err
	}
	return application.PersonalEvent{
		ID:     "evt-1",
		UserID: params.Principal.UserID,
		Title:  params.Input.Title,
		Start:  params.Input.Start,
		End:    params.Input.End,
	}, nil
}

func (s *scheduleServiceStub) UpdatePersonalEvent(ctx context.Context, params application.UpdatePersonalEventParams) (application.PersonalEvent, error) {
	s.updated = append(s.updated, params)
	if s.err != nil {
		return application.PersonalEvent{}, s.err
	}
	return application.PersonalEvent{ID: params.EventID, Title: params.Input.Title}, nil
}

func (s *scheduleServiceStub) DeletePersonalEvent(ctx context.Context, principal application.Principal, eventID string) error {
	s.deleted = append(s.deleted, principal.UserID+"/"+eventID)
	return s.err
}

func (s *scheduleServiceStub) Location() *time.Location { return time.UTC }

type notificationServiceStub struct {
	list         application.NotificationList
	count        int
	err          error
	listParams   []application.ListNotificationsParams
	read         []string
	deleted      []string
	courseEvents []application.CourseEvent
	userPayloads map[string]application.NotificationPayload
	report       application.DeliveryReport
}

func (n *notificationServiceStub) ListNotifications(ctx context.Context, params application.ListNotificationsParams) (application.NotificationList, error) {
	n.listParams = append(n.listParams, params)
	return n.list, n.err
}

func (n *notificationServiceStub) UnreadCount(ctx context.Context, principal application.Principal) (int, error) {
	return n.count, n.err
}

func (n *notificationServiceStub) MarkRead(ctx context.Context, principal application.Principal, id string) error {
	n.read = append(n.read, principal.UserID+"/"+id)
	return n.err
}

func (n *notificationServiceStub) MarkAllRead(ctx context.Context, principal application.Principal) (int, error) {
	return n.count, n.err
}

func (n *notificationServiceStub) DeleteNotification(ctx context.Context, principal application.Principal, id string) error {
	n.deleted = append(n.deleted, principal.UserID+"/"+id)
	return n.err
}

func (n *notificationServiceStub) ClearRead(ctx context.Context, principal application.Principal) (int, error) {
	return n.count, n.err
}

func (n *notificationServiceStub) NotifyCourseEvent(ctx context.Context, principal application.Principal, event application.CourseEvent) (application.DeliveryReport, error) {
	if !principal.IsStaff() {
		return application.DeliveryReport{}, application.ErrUnauthorized
	}
	n.courseEvents = append(n.courseEvents, event)
	return n.report, n.err
}

func (n *notificationServiceStub) NotifyUser(ctx context.Context, principal application.Principal, userID string, payload application.NotificationPayload) (application.DeliveryReport, error) {
	if !principal.IsStaff() {
		return application.DeliveryReport{}, application.ErrUnauthorized
	}
	if n.userPayloads == nil {
		n.userPayloads = make(map[string]application.NotificationPayload)
	}
	n.userPayloads[userID] = payload
	return n.report, n.err
}

type enrollmentServiceStub struct {
	err   error
	calls []string
}

func (e *enrollmentServiceStub) Enroll(ctx context.Context, principal application.Principal, courseID string) (application.Enrollment, error) {
	e.calls = append(e.calls, "enroll:"+courseID)
	if e.err != nil {
		return application.Enrollment{}, e.err
	}
	return application.Enrollment{ID: "enr-1", UserID: principal.UserID, CourseID: courseID, Status: application.EnrollmentEnrolled}, nil
}

func (e *enrollmentServiceStub) Drop(ctx context.Context, principal application.Principal, courseID string) (application.Enrollment, error) {
	e.calls = append(e.calls, "drop:"+courseID)
	if e.err != nil {
		return application.Enrollment{}, e.err
	}
	return application.Enrollment{ID: "enr-1", UserID: principal.UserID, CourseID: courseID, Status: application.EnrollmentDropped}, nil
}

type pushTokenServiceStub struct {
	tokens  map[string]string
	cleared []string
	err     error
}

func (p *pushTokenServiceStub) RegisterPushToken(ctx context.Context, principal application.Principal, token string) error {
	if p.err != nil {
		return p.err
	}
	if p.tokens == nil {
		p.tokens = make(map[string]string)
	}
	p.tokens[principal.UserID] = token
	return nil
}

func (p *pushTokenServiceStub) ClearPushToken(ctx context.Context, principal application.Principal) error {
	p.cleared = append(p.cleared, principal.UserID)
	return p.err
}

type testServer struct {
	handler       http.Handler
	schedules     *scheduleServiceStub
	notifications *notificationServiceStub
	enrollments   *enrollmentServiceStub
	pushTokens    *pushTokenServiceStub
}

func newTestServer() *testServer {
	logger := discardLogger()
	ts := &testServer{
		schedules:     &scheduleServiceStub{},
		notifications: &notificationServiceStub{},
		enrollments:   &enrollmentServiceStub{},
		pushTokens:    &pushTokenServiceStub{},
	}
	ts.handler = NewRouter(RouterConfig{
		Schedules:     NewScheduleHandler(ts.schedules, logger),
		Notifications: NewNotificationHandler(ts.notifications, logger),
		Courses:       NewCourseHandler(ts.enrollments, logger),
		PushTokens:    NewPushTokenHandler(ts.pushTokens, logger),
		Authenticate:  RequirePrincipal(testResolver(), logger),
		Middleware:    []func(http.Handler) http.Handler{RequestLogger(logger)},
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, target, userID, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if userID != "" {
		req.Header.Set(UserIDHeader, userID)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}
