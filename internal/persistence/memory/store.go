// Package memory provides a map-backed persistence.Store used by tests and the
// "memory" store driver. It enforces the same uniqueness and reference rules
// as the SQL schema.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/college-admin/internal/persistence"
)

// Store is an in-memory persistence.Store.
type Store struct {
	mu             sync.RWMutex
	users          map[string]persistence.User
	courses        map[string]persistence.Course
	slots          map[string]persistence.CourseSlot
	enrollments    map[string]persistence.Enrollment
	personalEvents map[string]persistence.PersonalEvent
	tasks          map[string]persistence.Task
	notifications  map[string]persistence.Notification
}

var _ persistence.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:          make(map[string]persistence.User),
		courses:        make(map[string]persistence.Course),
		slots:          make(map[string]persistence.CourseSlot),
		enrollments:    make(map[string]persistence.Enrollment),
		personalEvents: make(map[string]persistence.PersonalEvent),
		tasks:          make(map[string]persistence.Task),
		notifications:  make(map[string]persistence.Notification),
	}
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// --- users ---

func (s *Store) CreateUser(ctx context.Context, user persistence.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("memory: user %s: %w", user.ID, persistence.ErrDuplicate)
	}
	lower := strings.ToLower(user.Email)
	for _, existing := range s.users {
		if strings.ToLower(existing.Email) == lower {
			return fmt.Errorf("memory: email %s: %w", user.Email, persistence.ErrDuplicate)
		}
	}

	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return cloneUser(user), nil
}

func (s *Store) PushTokens(ctx context.Context, userIDs []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := make(map[string]string, len(userIDs))
	for _, id := range userIDs {
		user, ok := s.users[id]
		if !ok || user.PushToken == nil || *user.PushToken == "" {
			continue
		}
		tokens[id] = *user.PushToken
	}
	return tokens, nil
}

func (s *Store) SetPushToken(ctx context.Context, userID, token string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return persistence.ErrNotFound
	}
	user.PushToken = &token
	user.UpdatedAt = at.UTC()
	s.users[userID] = user
	return nil
}

func (s *Store) ClearPushToken(ctx context.Context, userID, expected string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok || user.PushToken == nil {
		return false, nil
	}
	if expected != "" && *user.PushToken != expected {
		return false, nil
	}
	user.PushToken = nil
	user.UpdatedAt = at.UTC()
	s.users[userID] = user
	return true, nil
}

// --- courses ---

func (s *Store) CreateCourse(ctx context.Context, course persistence.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.courses[course.ID]; ok {
		return fmt.Errorf("memory: course %s: %w", course.ID, persistence.ErrDuplicate)
	}
	for _, existing := range s.courses {
		if existing.Code == course.Code {
			return fmt.Errorf("memory: course code %s: %w", course.Code, persistence.ErrDuplicate)
		}
	}

	course.CreatedAt = course.CreatedAt.UTC()
	s.courses[course.ID] = course
	return nil
}

func (s *Store) GetCourse(ctx context.Context, id string) (persistence.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	course, ok := s.courses[id]
	if !ok {
		return persistence.Course{}, persistence.ErrNotFound
	}
	return course, nil
}

func (s *Store) ListCourses(ctx context.Context, ids []string) ([]persistence.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	courses := make([]persistence.Course, 0, len(ids))
	for _, id := range ids {
		if course, ok := s.courses[id]; ok {
			courses = append(courses, course)
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Code < courses[j].Code })
	return courses, nil
}

func (s *Store) CreateCourseSlot(ctx context.Context, slot persistence.CourseSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.slots[slot.ID]; ok {
		return fmt.Errorf("memory: slot %s: %w", slot.ID, persistence.ErrDuplicate)
	}
	if _, ok := s.courses[slot.CourseID]; !ok {
		return fmt.Errorf("memory: course %s: %w", slot.CourseID, persistence.ErrForeignKeyViolation)
	}
	s.slots[slot.ID] = slot
	return nil
}

func (s *Store) ListCourseSlots(ctx context.Context, courseIDs []string) ([]persistence.CourseSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slots := make([]persistence.CourseSlot, 0)
	for _, slot := range s.slots {
		if slices.Contains(courseIDs, slot.CourseID) {
			slots = append(slots, slot)
		}
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].CourseID != slots[j].CourseID {
			return slots[i].CourseID < slots[j].CourseID
		}
		return slots[i].ID < slots[j].ID
	})
	return slots, nil
}

// --- enrollments ---

func enrollmentKey(userID, courseID string) string {
	return userID + "\x00" + courseID
}

func (s *Store) UpsertEnrollment(ctx context.Context, enrollment persistence.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[enrollment.UserID]; !ok {
		return fmt.Errorf("memory: user %s: %w", enrollment.UserID, persistence.ErrForeignKeyViolation)
	}
	if _, ok := s.courses[enrollment.CourseID]; !ok {
		return fmt.Errorf("memory: course %s: %w", enrollment.CourseID, persistence.ErrForeignKeyViolation)
	}

	key := enrollmentKey(enrollment.UserID, enrollment.CourseID)
	if existing, ok := s.enrollments[key]; ok {
		existing.Status = enrollment.Status
		existing.UpdatedAt = enrollment.UpdatedAt.UTC()
		s.enrollments[key] = existing
		return nil
	}

	enrollment.EnrolledAt = enrollment.EnrolledAt.UTC()
	enrollment.UpdatedAt = enrollment.UpdatedAt.UTC()
	s.enrollments[key] = enrollment
	return nil
}

func (s *Store) GetEnrollment(ctx context.Context, userID, courseID string) (persistence.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	enrollment, ok := s.enrollments[enrollmentKey(userID, courseID)]
	if !ok {
		return persistence.Enrollment{}, persistence.ErrNotFound
	}
	return enrollment, nil
}

func (s *Store) ListEnrollments(ctx context.Context, filter persistence.EnrollmentFilter) ([]persistence.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]persistence.Enrollment, 0)
	for _, enrollment := range s.enrollments {
		if filter.UserID != "" && enrollment.UserID != filter.UserID {
			continue
		}
		if filter.CourseID != "" && enrollment.CourseID != filter.CourseID {
			continue
		}
		if filter.Status != "" && enrollment.Status != filter.Status {
			continue
		}
		result = append(result, enrollment)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CourseID != result[j].CourseID {
			return result[i].CourseID < result[j].CourseID
		}
		return result[i].UserID < result[j].UserID
	})
	return result, nil
}

// --- personal events ---

func (s *Store) CreatePersonalEvent(ctx context.Context, event persistence.PersonalEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.personalEvents[event.ID]; ok {
		return fmt.Errorf("memory: personal event %s: %w", event.ID, persistence.ErrDuplicate)
	}
	if _, ok := s.users[event.UserID]; !ok {
		return fmt.Errorf("memory: user %s: %w", event.UserID, persistence.ErrForeignKeyViolation)
	}
	if !event.EndsAt.After(event.StartsAt) {
		return fmt.Errorf("memory: personal event %s ends before it starts: %w", event.ID, persistence.ErrConstraintViolation)
	}

	s.personalEvents[event.ID] = clonePersonalEvent(event)
	return nil
}

func (s *Store) UpdatePersonalEvent(ctx context.Context, event persistence.PersonalEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.personalEvents[event.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if !event.EndsAt.After(event.StartsAt) {
		return fmt.Errorf("memory: personal event %s ends before it starts: %w", event.ID, persistence.ErrConstraintViolation)
	}

	event.UserID = existing.UserID
	event.CreatedAt = existing.CreatedAt
	s.personalEvents[event.ID] = clonePersonalEvent(event)
	return nil
}

func (s *Store) GetPersonalEvent(ctx context.Context, id string) (persistence.PersonalEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.personalEvents[id]
	if !ok {
		return persistence.PersonalEvent{}, persistence.ErrNotFound
	}
	return clonePersonalEvent(event), nil
}

func (s *Store) DeletePersonalEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.personalEvents[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.personalEvents, id)
	return nil
}

func (s *Store) ListPersonalEvents(ctx context.Context, filter persistence.PersonalEventFilter) ([]persistence.PersonalEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]persistence.PersonalEvent, 0)
	for _, event := range s.personalEvents {
		if filter.UserID != "" && event.UserID != filter.UserID {
			continue
		}
		if filter.StartsFrom != nil && event.StartsAt.Before(*filter.StartsFrom) {
			continue
		}
		if filter.StartsUntil != nil && event.StartsAt.After(*filter.StartsUntil) {
			continue
		}
		if len(filter.EventTypes) > 0 && !slices.Contains(filter.EventTypes, event.EventType) {
			continue
		}
		result = append(result, clonePersonalEvent(event))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StartsAt.Equal(result[j].StartsAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].StartsAt.Before(result[j].StartsAt)
	})
	return result, nil
}

// --- tasks ---

func (s *Store) CreateTask(ctx context.Context, task persistence.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; ok {
		return fmt.Errorf("memory: task %s: %w", task.ID, persistence.ErrDuplicate)
	}
	if task.CourseID != nil {
		if _, ok := s.courses[*task.CourseID]; !ok {
			return fmt.Errorf("memory: course %s: %w", *task.CourseID, persistence.ErrForeignKeyViolation)
		}
	}
	if _, ok := s.users[task.CreatorID]; !ok {
		return fmt.Errorf("memory: user %s: %w", task.CreatorID, persistence.ErrForeignKeyViolation)
	}

	s.tasks[task.ID] = cloneTask(task)
	return nil
}

func (s *Store) ListTasks(ctx context.Context, filter persistence.TaskFilter) ([]persistence.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]persistence.Task, 0)
	for _, task := range s.tasks {
		owned := filter.CreatorID != "" && task.CreatorID == filter.CreatorID
		inCourse := task.CourseID != nil && slices.Contains(filter.CourseIDs, *task.CourseID)
		if !owned && !inCourse {
			continue
		}
		if len(filter.Types) > 0 && !slices.Contains(filter.Types, task.TaskType) {
			continue
		}
		if filter.DueFrom != nil && task.DueAt.Before(*filter.DueFrom) {
			continue
		}
		if filter.DueUntil != nil && task.DueAt.After(*filter.DueUntil) {
			continue
		}
		result = append(result, cloneTask(task))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DueAt.Equal(result[j].DueAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].DueAt.Before(result[j].DueAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// --- notifications ---

func (s *Store) CreateNotification(ctx context.Context, notification persistence.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notifications[notification.ID]; ok {
		return fmt.Errorf("memory: notification %s: %w", notification.ID, persistence.ErrDuplicate)
	}
	if _, ok := s.users[notification.UserID]; !ok {
		return fmt.Errorf("memory: user %s: %w", notification.UserID, persistence.ErrForeignKeyViolation)
	}

	s.notifications[notification.ID] = cloneNotification(notification)
	return nil
}

func (s *Store) MarkNotificationsPushed(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if notification, ok := s.notifications[id]; ok {
			notification.IsPushed = true
			s.notifications[id] = notification
		}
	}
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, filter persistence.NotificationFilter) ([]persistence.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]persistence.Notification, 0)
	for _, notification := range s.notifications {
		if notification.UserID != filter.UserID {
			continue
		}
		if filter.UnreadOnly && notification.IsRead {
			continue
		}
		result = append(result, cloneNotification(notification))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *Store) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, notification := range s.notifications {
		if notification.UserID == userID && !notification.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, userID, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	notification, ok := s.notifications[id]
	if !ok || notification.UserID != userID {
		return persistence.ErrNotFound
	}
	if notification.IsRead {
		return nil
	}
	readAt := at.UTC()
	notification.IsRead = true
	notification.ReadAt = &readAt
	s.notifications[id] = notification
	return nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	readAt := at.UTC()
	count := 0
	for id, notification := range s.notifications {
		if notification.UserID != userID || notification.IsRead {
			continue
		}
		notification.IsRead = true
		notification.ReadAt = &readAt
		s.notifications[id] = notification
		count++
	}
	return count, nil
}

func (s *Store) DeleteNotification(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	notification, ok := s.notifications[id]
	if !ok || notification.UserID != userID {
		return persistence.ErrNotFound
	}
	delete(s.notifications, id)
	return nil
}

func (s *Store) DeleteReadNotifications(ctx context.Context, userID string, before *time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, notification := range s.notifications {
		if !notification.IsRead {
			continue
		}
		if userID != "" && notification.UserID != userID {
			continue
		}
		if before != nil && !notification.CreatedAt.Before(*before) {
			continue
		}
		delete(s.notifications, id)
		count++
	}
	return count, nil
}

// --- helpers ---

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func cloneUser(user persistence.User) persistence.User {
	user.PushToken = cloneString(user.PushToken)
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return user
}

func clonePersonalEvent(event persistence.PersonalEvent) persistence.PersonalEvent {
	event.Description = cloneString(event.Description)
	event.Location = cloneString(event.Location)
	event.StartsAt = event.StartsAt.UTC()
	event.EndsAt = event.EndsAt.UTC()
	event.CreatedAt = event.CreatedAt.UTC()
	event.UpdatedAt = event.UpdatedAt.UTC()
	return event
}

func cloneTask(task persistence.Task) persistence.Task {
	task.CourseID = cloneString(task.CourseID)
	task.Description = cloneString(task.Description)
	task.DueAt = task.DueAt.UTC()
	task.CreatedAt = task.CreatedAt.UTC()
	return task
}

func cloneNotification(notification persistence.Notification) persistence.Notification {
	notification.ReferenceType = cloneString(notification.ReferenceType)
	notification.ReferenceID = cloneString(notification.ReferenceID)
	if notification.ReadAt != nil {
		readAt := notification.ReadAt.UTC()
		notification.ReadAt = &readAt
	}
	notification.CreatedAt = notification.CreatedAt.UTC()
	return notification
}
