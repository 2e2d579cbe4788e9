package scheduler

import (
	"sort"
	"time"
)

// Category identifies which source produced a materialized event.
type Category string

const (
	// CategoryCourseOccurrence marks an expanded weekly course slot.
	CategoryCourseOccurrence Category = "COURSE_OCCURRENCE"
	// CategoryPersonalEvent marks an ad-hoc event owned by the user.
	CategoryPersonalEvent Category = "PERSONAL_EVENT"
	// CategoryTaskDeadline marks an upcoming exam or assignment due date.
	CategoryTaskDeadline Category = "TASK_DEADLINE"
)

func (c Category) rank() int {
	switch c {
	case CategoryCourseOccurrence:
		return 0
	case CategoryPersonalEvent:
		return 1
	case CategoryTaskDeadline:
		return 2
	default:
		return 3
	}
}

// EventType classifies a calendar entry for display and filtering.
type EventType string

const (
	EventTypeLecture       EventType = "LECTURE"
	EventTypeExam          EventType = "EXAM"
	EventTypeAssignmentDue EventType = "ASSIGNMENT_DUE"
	EventTypeMeeting       EventType = "MEETING"
	EventTypeOfficeHours   EventType = "OFFICE_HOURS"
	EventTypePersonal      EventType = "PERSONAL"
)

// ParseEventType reports whether value names a known event type.
func ParseEventType(value string) (EventType, bool) {
	switch t := EventType(value); t {
	case EventTypeLecture, EventTypeExam, EventTypeAssignmentDue, EventTypeMeeting, EventTypeOfficeHours, EventTypePersonal:
		return t, true
	}
	return "", false
}

// Event is a computed calendar entry. It is never persisted.
type Event struct {
	ID          string
	Category    Category
	EventType   EventType
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	IsAllDay    bool
	IsRecurring bool
	CourseID    string
	CourseCode  string
	SourceID    string
}

// Sort orders events by start, then category, then title, then id.
func Sort(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if a.Category.rank() != b.Category.rank() {
			return a.Category.rank() < b.Category.rank()
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID < b.ID
	})
}

// Merge concatenates the groups into a new slice ordered by Sort.
func Merge(groups ...[]Event) []Event {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	merged := make([]Event, 0, total)
	for _, group := range groups {
		merged = append(merged, group...)
	}
	Sort(merged)
	return merged
}
