package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/example/college-admin/internal/push"
	"github.com/example/college-admin/internal/recurrence"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequentialIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

type enrollmentReaderStub struct {
	byCourse map[string][]string
	byUser   map[string][]string
	err      error
}

func (e *enrollmentReaderStub) EnrolledUserIDs(ctx context.Context, courseID string) ([]string, error) {
	if e.err != nil {
		return nil, e.err
	}
	return slices.Clone(e.byCourse[courseID]), nil
}

func (e *enrollmentReaderStub) EnrolledCourseIDs(ctx context.Context, userID string) ([]string, error) {
	if e.err != nil {
		return nil, e.err
	}
	return slices.Clone(e.byUser[userID]), nil
}

type courseCatalogStub struct {
	mu             sync.Mutex
	courses        map[string]Course
	slots          []recurrence.Slot
	listSlotsCalls int
	err            error
}

func (c *courseCatalogStub) GetCourse(ctx context.Context, id string) (Course, error) {
	if c.err != nil {
		return Course{}, c.err
	}
	course, ok := c.courses[id]
	if !ok {
		return Course{}, ErrNotFound
	}
	return course, nil
}

func (c *courseCatalogStub) ListCourses(ctx context.Context, ids []string) ([]Course, error) {
	if c.err != nil {
		return nil, c.err
	}
	var out []Course
	for _, id := range ids {
		if course, ok := c.courses[id]; ok {
			out = append(out, course)
		}
	}
	return out, nil
}

func (c *courseCatalogStub) ListSlots(ctx context.Context, courseIDs []string) ([]recurrence.Slot, error) {
	c.mu.Lock()
	c.listSlotsCalls++
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	var out []recurrence.Slot
	for _, slot := range c.slots {
		if slices.Contains(courseIDs, slot.CourseID) {
			out = append(out, slot)
		}
	}
	return out, nil
}

func (c *courseCatalogStub) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listSlotsCalls
}

type notificationRepoStub struct {
	mu        sync.Mutex
	created   []Notification
	failFor   map[string]error
	pushed    []string
	list      []Notification
	unread    int
	markErr   error
	readCalls []string
	deleted   []string
	deleteErr error
	purged    []*time.Time
	purgedFor []string
}

func (n *notificationRepoStub) CreateNotification(ctx context.Context, notification Notification) error {
	if err := n.failFor[notification.UserID]; err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, notification)
	return nil
}

func (n *notificationRepoStub) createdFor() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids := make([]string, 0, len(n.created))
	for _, notification := range n.created {
		ids = append(ids, notification.UserID)
	}
	sort.Strings(ids)
	return ids
}

func (n *notificationRepoStub) MarkPushed(ctx context.Context, ids []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pushed = append(n.pushed, ids...)
	return nil
}

func (n *notificationRepoStub) pushedIDs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.pushed)
}

func (n *notificationRepoStub) ListNotifications(ctx context.Context, query NotificationQuery) ([]Notification, error) {
	out := make([]Notification, 0, len(n.list))
	for _, notification := range n.list {
		if notification.UserID != query.UserID {
			continue
		}
		if query.UnreadOnly && notification.IsRead {
			continue
		}
		out = append(out, notification)
	}
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

func (n *notificationRepoStub) CountUnread(ctx context.Context, userID string) (int, error) {
	return n.unread, nil
}

func (n *notificationRepoStub) MarkRead(ctx context.Context, userID, id string, at time.Time) error {
	if n.markErr != nil {
		return n.markErr
	}
	n.readCalls = append(n.readCalls, userID+"/"+id)
	return nil
}

func (n *notificationRepoStub) MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error) {
	return n.unread, nil
}

func (n *notificationRepoStub) DeleteNotification(ctx context.Context, userID, id string) error {
	if n.deleteErr != nil {
		return n.deleteErr
	}
	n.deleted = append(n.deleted, userID+"/"+id)
	return nil
}

func (n *notificationRepoStub) DeleteRead(ctx context.Context, userID string, before *time.Time) (int, error) {
	n.purgedFor = append(n.purgedFor, userID)
	n.purged = append(n.purged, before)
	return 2, nil
}

type tokenStoreStub struct {
	mu      sync.Mutex
	tokens  map[string]string
	cleared []string
	err     error
}

func (s *tokenStoreStub) PushTokens(ctx context.Context, userIDs []string) (map[string]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string)
	for _, id := range userIDs {
		if token := s.tokens[id]; token != "" {
			out[id] = token
		}
	}
	return out, nil
}

func (s *tokenStoreStub) SetPushToken(ctx context.Context, userID, token string, at time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		s.tokens = make(map[string]string)
	}
	s.tokens[userID] = token
	return nil
}

func (s *tokenStoreStub) ClearPushToken(ctx context.Context, userID, expected string, at time.Time) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.tokens[userID]
	if !ok || (expected != "" && current != expected) {
		return false, nil
	}
	delete(s.tokens, userID)
	s.cleared = append(s.cleared, userID)
	return true, nil
}

func (s *tokenStoreStub) token(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[userID]
}

// senderStub fails tokens listed in failures and records every batch.
type senderStub struct {
	mu        sync.Mutex
	batchSize int
	failures  map[string]error
	err       error
	batches   [][]push.Message
}

func (s *senderStub) MaxBatchSize() int { return s.batchSize }

func (s *senderStub) Send(ctx context.Context, messages []push.Message) ([]push.Result, error) {
	s.mu.Lock()
	s.batches = append(s.batches, slices.Clone(messages))
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	results := make([]push.Result, 0, len(messages))
	for _, msg := range messages {
		results = append(results, push.Result{Token: msg.Token, Err: s.failures[msg.Token]})
	}
	return results, nil
}

func (s *senderStub) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

type personalEventRepoStub struct {
	events  map[string]PersonalEvent
	queries []PersonalEventQuery
	err     error
}

func (p *personalEventRepoStub) CreatePersonalEvent(ctx context.Context, event PersonalEvent) error {
	if p.err != nil {
		return p.err
	}
	if p.events == nil {
		p.events = make(map[string]PersonalEvent)
	}
	p.events[event.ID] = event
	return nil
}

func (p *personalEventRepoStub) UpdatePersonalEvent(ctx context.Context, event PersonalEvent) error {
	if _, ok := p.events[event.ID]; !ok {
		return ErrNotFound
	}
	p.events[event.ID] = event
	return nil
}

func (p *personalEventRepoStub) GetPersonalEvent(ctx context.Context, id string) (PersonalEvent, error) {
	event, ok := p.events[id]
	if !ok {
		return PersonalEvent{}, ErrNotFound
	}
	return event, nil
}

func (p *personalEventRepoStub) DeletePersonalEvent(ctx context.Context, id string) error {
	if _, ok := p.events[id]; !ok {
		return ErrNotFound
	}
	delete(p.events, id)
	return nil
}

func (p *personalEventRepoStub) ListPersonalEvents(ctx context.Context, query PersonalEventQuery) ([]PersonalEvent, error) {
	p.queries = append(p.queries, query)
	var out []PersonalEvent
	for _, event := range p.events {
		if event.UserID != query.UserID {
			continue
		}
		if event.Start.Before(query.StartsFrom) || event.Start.After(query.StartsUntil) {
			continue
		}
		out = append(out, event)
	}
	return out, nil
}

type taskReaderStub struct {
	tasks   []Task
	queries []TaskQuery
}

func (t *taskReaderStub) ListTasks(ctx context.Context, query TaskQuery) ([]Task, error) {
	t.queries = append(t.queries, query)
	var out []Task
	for _, task := range t.tasks {
		if !slices.Contains(query.Types, task.Type) {
			continue
		}
		if task.DueAt.Before(query.DueFrom) {
			continue
		}
		if query.DueUntil != nil && task.DueAt.After(*query.DueUntil) {
			continue
		}
		out = append(out, task)
	}
	return out, nil
}

type enrollmentRepoStub struct {
	rows  map[string]Enrollment
	saved []Enrollment
}

func (e *enrollmentRepoStub) GetEnrollment(ctx context.Context, userID, courseID string) (Enrollment, error) {
	row, ok := e.rows[userID+"/"+courseID]
	if !ok {
		return Enrollment{}, ErrNotFound
	}
	return row, nil
}

func (e *enrollmentRepoStub) SaveEnrollment(ctx context.Context, enrollment Enrollment) error {
	if e.rows == nil {
		e.rows = make(map[string]Enrollment)
	}
	e.rows[enrollment.UserID+"/"+enrollment.CourseID] = enrollment
	e.saved = append(e.saved, enrollment)
	return nil
}
