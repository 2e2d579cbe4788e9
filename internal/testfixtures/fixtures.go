package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/college-admin/internal/application"
	"github.com/example/college-admin/internal/persistence"
)

var (
	userCounter         uint64
	courseCounter       uint64
	slotCounter         uint64
	enrollmentCounter   uint64
	eventCounter        uint64
	taskCounter         uint64
	notificationCounter uint64
)

// referenceTime is a Monday morning so weekly slots line up with the week.
var referenceTime = time.Date(2024, time.April, 1, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

func stringPtr(value string) *string {
	return &value
}

// ----------------------------- User fixtures -----------------------------

// UserFixture is a deterministic account.
type UserFixture struct {
	ID          string
	Email       string
	DisplayName string
	Role        application.Role
	PushToken   *string
	CreatedAt   time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a student with a unique id and email.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	fixture := UserFixture{
		ID:          id,
		Email:       fmt.Sprintf("%s@college.example", id),
		DisplayName: fmt.Sprintf("User %03d", idx),
		Role:        application.RoleStudent,
		CreatedAt:   referenceTime.Add(-time.Duration(idx) * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
		f.Email = fmt.Sprintf("%s@college.example", id)
	}
}

// WithUserRole overrides the default STUDENT role.
func WithUserRole(role application.Role) UserOption {
	return func(f *UserFixture) {
		f.Role = role
	}
}

// WithUserPushToken registers a device token on the fixture.
func WithUserPushToken(token string) UserOption {
	return func(f *UserFixture) {
		f.PushToken = stringPtr(token)
	}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:          f.ID,
		Email:       f.Email,
		DisplayName: f.DisplayName,
		Role:        string(f.Role),
		PushToken:   f.PushToken,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.CreatedAt,
	}
}

// Principal returns the acting identity of the fixture.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, Role: f.Role}
}

// ---------------------------- Course fixtures ----------------------------

// CourseFixture is a deterministic catalog entry.
type CourseFixture struct {
	ID             string
	Code           string
	Name           string
	InstructorName string
	IsActive       bool
}

// CourseOption configures the generated course fixture.
type CourseOption func(*CourseFixture)

// NewCourseFixture returns an active course with a unique code.
func NewCourseFixture(opts ...CourseOption) CourseFixture {
	idx := atomic.AddUint64(&courseCounter, 1)
	fixture := CourseFixture{
		ID:             fmt.Sprintf("course-%03d", idx),
		Code:           fmt.Sprintf("CS%03d", 100+idx),
		Name:           fmt.Sprintf("Course %03d", idx),
		InstructorName: "Dr. Example",
		IsActive:       true,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithCourseID overrides the generated course ID.
func WithCourseID(id string) CourseOption {
	return func(f *CourseFixture) {
		f.ID = id
	}
}

// WithCourseCode overrides the generated course code.
func WithCourseCode(code string) CourseOption {
	return func(f *CourseFixture) {
		f.Code = code
	}
}

// WithCourseInactive marks the course as closed.
func WithCourseInactive() CourseOption {
	return func(f *CourseFixture) {
		f.IsActive = false
	}
}

// Persistence returns the fixture as a persistence.Course value.
func (f CourseFixture) Persistence() persistence.Course {
	return persistence.Course{
		ID:             f.ID,
		Code:           f.Code,
		Name:           f.Name,
		InstructorName: f.InstructorName,
		IsActive:       f.IsActive,
		CreatedAt:      referenceTime.AddDate(0, -1, 0),
	}
}

// Application returns the fixture as an application.Course value.
func (f CourseFixture) Application() application.Course {
	return application.Course{
		ID:             f.ID,
		Code:           f.Code,
		Name:           f.Name,
		InstructorName: f.InstructorName,
		IsActive:       f.IsActive,
	}
}

// NewSlotFixture returns a weekly slot of courseID.
func NewSlotFixture(courseID, day, start, end string) persistence.CourseSlot {
	idx := atomic.AddUint64(&slotCounter, 1)
	return persistence.CourseSlot{
		ID:        fmt.Sprintf("slot-%03d", idx),
		CourseID:  courseID,
		DayOfWeek: day,
		StartTime: start,
		EndTime:   end,
		Location:  fmt.Sprintf("Room %d", 100+idx),
	}
}

// NewEnrollmentFixture returns an ENROLLED row linking userID to courseID.
func NewEnrollmentFixture(userID, courseID string) persistence.Enrollment {
	idx := atomic.AddUint64(&enrollmentCounter, 1)
	return persistence.Enrollment{
		ID:         fmt.Sprintf("enrollment-%03d", idx),
		UserID:     userID,
		CourseID:   courseID,
		Status:     persistence.EnrollmentEnrolled,
		EnrolledAt: referenceTime.AddDate(0, 0, -14),
		UpdatedAt:  referenceTime.AddDate(0, 0, -14),
	}
}

// ------------------------- Personal event fixtures ------------------------

// PersonalEventOption configures the generated personal event.
type PersonalEventOption func(*persistence.PersonalEvent)

// NewPersonalEventFixture returns a one hour PERSONAL event owned by userID,
// starting at start.
func NewPersonalEventFixture(userID string, start time.Time, opts ...PersonalEventOption) persistence.PersonalEvent {
	idx := atomic.AddUint64(&eventCounter, 1)
	event := persistence.PersonalEvent{
		ID:        fmt.Sprintf("event-%03d", idx),
		UserID:    userID,
		Title:     fmt.Sprintf("Event %03d", idx),
		EventType: "PERSONAL",
		StartsAt:  start,
		EndsAt:    start.Add(time.Hour),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&event)
	}
	return event
}

// WithEventType overrides the PERSONAL default.
func WithEventType(eventType string) PersonalEventOption {
	return func(e *persistence.PersonalEvent) {
		e.EventType = eventType
	}
}

// WithEventDuration overrides the one hour default.
func WithEventDuration(d time.Duration) PersonalEventOption {
	return func(e *persistence.PersonalEvent) {
		e.EndsAt = e.StartsAt.Add(d)
	}
}

// WithEventLocation sets the event location.
func WithEventLocation(location string) PersonalEventOption {
	return func(e *persistence.PersonalEvent) {
		e.Location = stringPtr(location)
	}
}

// ------------------------------ Task fixtures -----------------------------

// TaskOption configures the generated task.
type TaskOption func(*persistence.Task)

// NewTaskFixture returns a course ASSIGNMENT due at dueAt.
func NewTaskFixture(courseID string, dueAt time.Time, opts ...TaskOption) persistence.Task {
	idx := atomic.AddUint64(&taskCounter, 1)
	task := persistence.Task{
		ID:        fmt.Sprintf("task-%03d", idx),
		CreatorID: "professor",
		Title:     fmt.Sprintf("Task %03d", idx),
		TaskType:  "ASSIGNMENT",
		Priority:  "MEDIUM",
		DueAt:     dueAt,
		CreatedAt: referenceTime.AddDate(0, 0, -7),
	}
	if courseID != "" {
		task.CourseID = stringPtr(courseID)
	}
	for _, opt := range opts {
		opt(&task)
	}
	return task
}

// WithTaskType overrides the ASSIGNMENT default.
func WithTaskType(taskType string) TaskOption {
	return func(t *persistence.Task) {
		t.TaskType = taskType
	}
}

// WithTaskCreator overrides the creator, e.g. for PERSONAL tasks.
func WithTaskCreator(userID string) TaskOption {
	return func(t *persistence.Task) {
		t.CreatorID = userID
	}
}

// -------------------------- Notification fixtures -------------------------

// NotificationOption configures the generated notification.
type NotificationOption func(*persistence.Notification)

// NewNotificationFixture returns an unread GENERAL notification for userID.
// Later fixtures are created later so listings have a stable order.
func NewNotificationFixture(userID string, opts ...NotificationOption) persistence.Notification {
	idx := atomic.AddUint64(&notificationCounter, 1)
	notification := persistence.Notification{
		ID:        fmt.Sprintf("notification-%03d", idx),
		UserID:    userID,
		Title:     fmt.Sprintf("Notice %03d", idx),
		Message:   "Something happened",
		Type:      "GENERAL",
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Second),
	}
	for _, opt := range opts {
		opt(&notification)
	}
	return notification
}

// WithNotificationCreatedAt overrides the creation time.
func WithNotificationCreatedAt(t time.Time) NotificationOption {
	return func(n *persistence.Notification) {
		n.CreatedAt = t
	}
}

// WithNotificationRead marks the notification read at t.
func WithNotificationRead(t time.Time) NotificationOption {
	return func(n *persistence.Notification) {
		n.IsRead = true
		n.ReadAt = &t
	}
}

// WithNotificationReference points the notification at a task, content item
// or announcement.
func WithNotificationReference(referenceType, referenceID string) NotificationOption {
	return func(n *persistence.Notification) {
		n.ReferenceType = stringPtr(referenceType)
		n.ReferenceID = stringPtr(referenceID)
	}
}
