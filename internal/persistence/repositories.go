package persistence

import (
	"context"
	"time"
)

// UserRepository stores accounts and their push tokens.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	// PushTokens returns the non-empty push token of each requested user.
	PushTokens(ctx context.Context, userIDs []string) (map[string]string, error)
	SetPushToken(ctx context.Context, userID, token string, at time.Time) error
	// ClearPushToken removes the token. When expected is non-empty the token is
	// only cleared if it still equals expected. It reports whether a row changed.
	ClearPushToken(ctx context.Context, userID, expected string, at time.Time) (bool, error)
}

// CourseRepository stores the catalog and weekly slots.
type CourseRepository interface {
	CreateCourse(ctx context.Context, course Course) error
	GetCourse(ctx context.Context, id string) (Course, error)
	ListCourses(ctx context.Context, ids []string) ([]Course, error)
	CreateCourseSlot(ctx context.Context, slot CourseSlot) error
	ListCourseSlots(ctx context.Context, courseIDs []string) ([]CourseSlot, error)
}

// EnrollmentFilter narrows enrollment queries. Empty fields match everything.
type EnrollmentFilter struct {
	UserID   string
	CourseID string
	Status   string
}

// EnrollmentRepository stores (user, course) membership.
type EnrollmentRepository interface {
	// UpsertEnrollment inserts the pair or updates the status of the existing row.
	UpsertEnrollment(ctx context.Context, enrollment Enrollment) error
	GetEnrollment(ctx context.Context, userID, courseID string) (Enrollment, error)
	ListEnrollments(ctx context.Context, filter EnrollmentFilter) ([]Enrollment, error)
}

// PersonalEventFilter narrows personal event queries by owner, start and type.
type PersonalEventFilter struct {
	UserID      string
	StartsFrom  *time.Time
	StartsUntil *time.Time
	EventTypes  []string
}

// PersonalEventRepository stores user-owned calendar entries.
type PersonalEventRepository interface {
	CreatePersonalEvent(ctx context.Context, event PersonalEvent) error
	UpdatePersonalEvent(ctx context.Context, event PersonalEvent) error
	GetPersonalEvent(ctx context.Context, id string) (PersonalEvent, error)
	DeletePersonalEvent(ctx context.Context, id string) error
	ListPersonalEvents(ctx context.Context, filter PersonalEventFilter) ([]PersonalEvent, error)
}

// TaskFilter selects tasks belonging to any of CourseIDs or created by CreatorID.
type TaskFilter struct {
	CourseIDs []string
	CreatorID string
	Types     []string
	DueFrom   *time.Time
	DueUntil  *time.Time
	Limit     int
}

// TaskRepository stores deadlines.
type TaskRepository interface {
	CreateTask(ctx context.Context, task Task) error
	ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error)
}

// NotificationFilter narrows a recipient's notification listing.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Limit      int
}

// NotificationRepository stores per-recipient notifications.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification Notification) error
	MarkNotificationsPushed(ctx context.Context, ids []string) error
	// ListNotifications returns newest first.
	ListNotifications(ctx context.Context, filter NotificationFilter) ([]Notification, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int, error)
	MarkNotificationRead(ctx context.Context, userID, id string, at time.Time) error
	MarkAllNotificationsRead(ctx context.Context, userID string, at time.Time) (int, error)
	DeleteNotification(ctx context.Context, userID, id string) error
	// DeleteReadNotifications removes read notifications. An empty userID
	// matches every recipient; a non-nil before limits to older rows.
	DeleteReadNotifications(ctx context.Context, userID string, before *time.Time) (int, error)
}

// Store bundles every repository behind one handle.
type Store interface {
	UserRepository
	CourseRepository
	EnrollmentRepository
	PersonalEventRepository
	TaskRepository
	NotificationRepository
	Close() error
}
