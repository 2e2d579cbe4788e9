package persistence

import "time"

// Enrollment statuses.
const (
	EnrollmentEnrolled = "ENROLLED"
	EnrollmentDropped  = "DROPPED"
)

// User is an account. PushToken holds the single device token, if any.
type User struct {
	ID          string
	Email       string
	DisplayName string
	Role        string
	PushToken   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Course is a catalog entry.
type Course struct {
	ID             string
	Code           string
	Name           string
	InstructorName string
	IsActive       bool
	CreatedAt      time.Time
}

// CourseSlot is a weekly meeting time of a course. Times are "HH:MM".
type CourseSlot struct {
	ID        string
	CourseID  string
	DayOfWeek string
	StartTime string
	EndTime   string
	Location  string
}

// Enrollment links a user to a course. Rows are never deleted; drops flip Status.
type Enrollment struct {
	ID         string
	UserID     string
	CourseID   string
	Status     string
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
	EventType   string
	StartsAt    time.Time
	EndsAt      time.Time
	IsAllDay    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Task is an assignment, exam or other deadline, optionally tied to a course.
type Task struct {
	ID          string
	CourseID    *string
	CreatorID   string
	Title       string
	Description *string
	TaskType    string
	Priority    string
	DueAt       time.Time
	CreatedAt   time.Time
}

// Notification is one recipient's copy of a notification.
type Notification struct {
	ID            string
	UserID        string
	Title         string
	Message       string
	Type          string
	ReferenceType *string
	ReferenceID   *string
	IsRead        bool
	IsPushed      bool
	ReadAt        *time.Time
	CreatedAt     time.Time
}
