package application

import (
	"time"

	"github.com/example/college-admin/internal/scheduler"
)

// Role is a user's campus role.
type Role string

const (
	RoleStudent   Role = "STUDENT"
	RoleProfessor Role = "PROFESSOR"
	RoleAdmin     Role = "ADMIN"
)

// ParseRole reports whether value names a known role.
func ParseRole(value string) (Role, bool) {
	switch r := Role(value); r {
	case RoleStudent, RoleProfessor, RoleAdmin:
		return r, true
	}
	return "", false
}

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
	Role   Role
}

// IsStaff reports whether the principal may publish course events.
func (p Principal) IsStaff() bool {
	return p.Role == RoleProfessor || p.Role == RoleAdmin
}

// User is an account as seen by the services.
type User struct {
	ID          string
	Email       string
	DisplayName string
	Role        Role
	PushToken   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Principal returns the acting identity of u.
func (u User) Principal() Principal {
	return Principal{UserID: u.ID, Role: u.Role}
}

// Course is a catalog entry.
type Course struct {
	ID             string
	Code           string
	Name           string
	InstructorName string
	IsActive       bool
}

// EnrollmentStatus is ENROLLED or DROPPED.
type EnrollmentStatus string

const (
	EnrollmentEnrolled EnrollmentStatus = "ENROLLED"
	EnrollmentDropped  EnrollmentStatus = "DROPPED"
)

// Enrollment links a user to a course.
type Enrollment struct {
	ID         string
	UserID     string
	CourseID   string
	Status     EnrollmentStatus
	EnrolledAt time.Time
	UpdatedAt  time.Time
}

// PersonalEvent is an ad-hoc calendar entry owned by one user.
type PersonalEvent struct {
	ID          string
	UserID      string
	Title       string
	Description *string
	Location    *string
	EventType   scheduler.EventType
	Start       time.Time
	End         time.Time
	IsAllDay    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PersonalEventInput captures caller provided personal event fields.
type PersonalEventInput struct {
	Title       string
	Description *string
	Location    *string
	EventType   string
	Start       time.Time
	End         time.Time
	IsAllDay    bool
}

// CreatePersonalEventParams wraps the data required to create a personal event.
type CreatePersonalEventParams struct {
	Principal Principal
	Input     PersonalEventInput
}

// UpdatePersonalEventParams wraps the data required to update a personal event.
type UpdatePersonalEventParams struct {
	Principal Principal
	EventID   string
	Input     PersonalEventInput
}

// TaskType classifies a task.
type TaskType string

const (
	TaskAssignment TaskType = "ASSIGNMENT"
	TaskExam       TaskType = "EXAM"
	TaskQuiz       TaskType = "QUIZ"
	TaskLab        TaskType = "LAB"
	TaskPersonal   TaskType = "PERSONAL"
)

// Task is a deadline, optionally tied to a course.
type Task struct {
	ID          string
	CourseID    *string
	CreatorID   string
	Title       string
	Description *string
	Type        TaskType
	Priority    string
	DueAt       time.Time
}

// TaskQuery selects upcoming tasks visible through CourseIDs or CreatorID.
type TaskQuery struct {
	CourseIDs []string
	CreatorID string
	Types     []TaskType
	DueFrom   time.Time
	DueUntil  *time.Time
	Limit     int
}

// PersonalEventQuery selects a user's personal events by start.
type PersonalEventQuery struct {
	UserID      string
	StartsFrom  time.Time
	StartsUntil time.Time
	EventTypes  []scheduler.EventType
}

// BuildScheduleParams wraps the inputs of BuildSchedule. The explicit range
// applies only when both From and To are set.
type BuildScheduleParams struct {
	Principal  Principal
	From       *time.Time
	To         *time.Time
	EventTypes []scheduler.EventType
}

// Schedule is a user's materialized calendar over a window.
type Schedule struct {
	From      time.Time
	To        time.Time
	Events    []scheduler.Event
	Conflicts []scheduler.Conflict
}

// NotificationType classifies a notification.
type NotificationType string

const (
	NotificationGeneral      NotificationType = "GENERAL"
	NotificationAnnouncement NotificationType = "ANNOUNCEMENT"
	NotificationAssignment   NotificationType = "ASSIGNMENT"
	NotificationExam         NotificationType = "EXAM"
	NotificationGrade        NotificationType = "GRADE"
	NotificationSystem       NotificationType = "SYSTEM"
)

// ReferenceType names the kind of entity a notification points at.
type ReferenceType string

const (
	ReferenceAnnouncement ReferenceType = "ANNOUNCEMENT"
	ReferenceContent      ReferenceType = "CONTENT"
	ReferenceTask         ReferenceType = "TASK"
)

// Notification is one recipient's copy of a notification.
type Notification struct {
	ID            string
	UserID        string
	Title         string
	Message       string
	Type          NotificationType
	ReferenceType *ReferenceType
	ReferenceID   *string
	IsRead        bool
	IsPushed      bool
	ReadAt        *time.Time
	CreatedAt     time.Time
}

// NotificationPayload is the content shared by every recipient of a fan-out.
type NotificationPayload struct {
	Title         string
	Message       string
	Type          NotificationType
	ReferenceType ReferenceType
	ReferenceID   string
}

// DeliveryReport aggregates the outcome of one fan-out.
type DeliveryReport struct {
	Notified           int
	PushSent           int
	PushFailed         int
	WriteFailed        int
	TokensCleared      int
	ChannelUnavailable bool
	PushDeferred       bool
}

// CourseEventKind identifies the action that triggers a course fan-out.
type CourseEventKind string

const (
	CourseEventContent      CourseEventKind = "CONTENT"
	CourseEventAssignment   CourseEventKind = "ASSIGNMENT"
	CourseEventExam         CourseEventKind = "EXAM"
	CourseEventAnnouncement CourseEventKind = "ANNOUNCEMENT"
)

// CourseEvent describes something a professor published in a course.
type CourseEvent struct {
	CourseID string
	Kind     CourseEventKind
	// ContentType names the material for CONTENT events, e.g. LECTURE or VIDEO.
	ContentType string
	Title       string
	Message     string
	ReferenceID string
	DueAt       *time.Time
}

// NotificationQuery narrows a recipient's listing.
type NotificationQuery struct {
	UserID     string
	UnreadOnly bool
	Limit      int
}

// ListNotificationsParams wraps the inputs of ListNotifications.
type ListNotificationsParams struct {
	Principal  Principal
	UnreadOnly bool
	Limit      int
}

// NotificationList is a page of notifications plus the unread total.
type NotificationList struct {
	Notifications []Notification
	UnreadCount   int
}
