package application

import (
	"context"
	"time"

	"github.com/example/college-admin/internal/recurrence"
)

// UserDirectory exposes user lookup operations.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (User, error)
}

// CourseCatalog exposes course and slot lookups.
type CourseCatalog interface {
	GetCourse(ctx context.Context, id string) (Course, error)
	ListCourses(ctx context.Context, ids []string) ([]Course, error)
	ListSlots(ctx context.Context, courseIDs []string) ([]recurrence.Slot, error)
}

// EnrollmentReader answers membership questions in either direction.
type EnrollmentReader interface {
	// EnrolledUserIDs returns the users with an ENROLLED row for courseID.
	EnrolledUserIDs(ctx context.Context, courseID string) ([]string, error)
	// EnrolledCourseIDs returns the courses userID is ENROLLED in.
	EnrolledCourseIDs(ctx context.Context, userID string) ([]string, error)
}

// EnrollmentRepository reads and writes a single (user, course) row.
type EnrollmentRepository interface {
	GetEnrollment(ctx context.Context, userID, courseID string) (Enrollment, error)
	SaveEnrollment(ctx context.Context, enrollment Enrollment) error
}

// PersonalEventRepository stores user-owned calendar entries.
type PersonalEventRepository interface {
	CreatePersonalEvent(ctx context.Context, event PersonalEvent) error
	UpdatePersonalEvent(ctx context.Context, event PersonalEvent) error
	GetPersonalEvent(ctx context.Context, id string) (PersonalEvent, error)
	DeletePersonalEvent(ctx context.Context, id string) error
	ListPersonalEvents(ctx context.Context, query PersonalEventQuery) ([]PersonalEvent, error)
}

// TaskReader lists deadlines.
type TaskReader interface {
	ListTasks(ctx context.Context, query TaskQuery) ([]Task, error)
}

// PushTokenStore manages the single push token of each user.
type PushTokenStore interface {
	PushTokens(ctx context.Context, userIDs []string) (map[string]string, error)
	SetPushToken(ctx context.Context, userID, token string, at time.Time) error
	// ClearPushToken clears the token; a non-empty expected makes it conditional.
	ClearPushToken(ctx context.Context, userID, expected string, at time.Time) (bool, error)
}

// NotificationRepository stores per-recipient notifications.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification Notification) error
	MarkPushed(ctx context.Context, ids []string) error
	ListNotifications(ctx context.Context, query NotificationQuery) ([]Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error)
	DeleteNotification(ctx context.Context, userID, id string) error
	// DeleteRead removes read notifications; empty userID means every user.
	DeleteRead(ctx context.Context, userID string, before *time.Time) (int, error)
}
