package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/college-admin/internal/recurrence"
	"github.com/example/college-admin/internal/scheduler"
)

const (
	defaultLookBehind = 30 * 24 * time.Hour
	defaultLookAhead  = 60 * 24 * time.Hour
	defaultMaxSpan    = 92 * 24 * time.Hour
	defaultTaskLimit  = 20
)

// ScheduleConfig controls the default window and task selection.
type ScheduleConfig struct {
	LookBehind time.Duration
	LookAhead  time.Duration
	MaxSpan    time.Duration
	TaskLimit  int
	// BoundTasks also drops deadlines after the end of the window.
	BoundTasks bool
}

// ScheduleService materializes a user's calendar and manages personal events.
type ScheduleService struct {
	courses     CourseCatalog
	enrollments EnrollmentReader
	events      PersonalEventRepository
	tasks       TaskReader
	engine      *recurrence.Engine
	cache       *SlotCache
	idGenerator func() string
	now         func() time.Time
	cfg         ScheduleConfig
	logger      *slog.Logger
}

// NewScheduleService wires dependencies for schedule operations.
func NewScheduleService(
	courses CourseCatalog,
	enrollments EnrollmentReader,
	events PersonalEventRepository,
	tasks TaskReader,
	engine *recurrence.Engine,
	cache *SlotCache,
	idGenerator func() string,
	now func() time.Time,
	cfg ScheduleConfig,
) *ScheduleService {
	return NewScheduleServiceWithLogger(courses, enrollments, events, tasks, engine, cache, idGenerator, now, cfg, nil)
}

// NewScheduleServiceWithLogger wires dependencies with a specified logger.
func NewScheduleServiceWithLogger(
	courses CourseCatalog,
	enrollments EnrollmentReader,
	events PersonalEventRepository,
	tasks TaskReader,
	engine *recurrence.Engine,
	cache *SlotCache,
	idGenerator func() string,
	now func() time.Time,
	cfg ScheduleConfig,
	logger *slog.Logger,
) *ScheduleService {
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	if engine == nil {
		engine = recurrence.NewEngine(time.UTC)
	}
	if cfg.LookBehind <= 0 {
		cfg.LookBehind = defaultLookBehind
	}
	if cfg.LookAhead <= 0 {
		cfg.LookAhead = defaultLookAhead
	}
	if cfg.MaxSpan <= 0 {
		cfg.MaxSpan = defaultMaxSpan
	}
	if cfg.TaskLimit <= 0 {
		cfg.TaskLimit = defaultTaskLimit
	}
	return &ScheduleService{
		courses:     courses,
		enrollments: enrollments,
		events:      events,
		tasks:       tasks,
		engine:      engine,
		cache:       cache,
		idGenerator: idGenerator,
		now:         now,
		cfg:         cfg,
		logger:      defaultLogger(logger),
	}
}

func (s *ScheduleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ScheduleService", operation, attrs...)
}

// Location reports the zone slot times are interpreted in.
func (s *ScheduleService) Location() *time.Location {
	return s.engine.Location()
}

// BuildSchedule merges the user's course occurrences, personal events and
// upcoming deadlines into one ordered list. It never writes.
func (s *ScheduleService) BuildSchedule(ctx context.Context, params BuildScheduleParams) (schedule Schedule, err error) {
	if s == nil {
		err = fmt.Errorf("ScheduleService is nil")
		return
	}

	logger := s.loggerWith(ctx, "BuildSchedule", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to build schedule", err)
			return
		}
		logger.InfoContext(ctx, "schedule built",
			"event_count", len(schedule.Events),
			"conflict_count", len(schedule.Conflicts),
		)
	}()

	if params.Principal.UserID == "" {
		err = ErrUnauthorized
		return
	}

	now := s.now()
	from, to, vErr := s.window(params, now)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	schedule.From, schedule.To = from, to

	loc := s.engine.Location()
	dayStart := recurrence.StartOfDay(from, loc)
	dayEnd := recurrence.StartOfDay(to, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
	wants := func(t scheduler.EventType) bool {
		return len(params.EventTypes) == 0 || slices.Contains(params.EventTypes, t)
	}

	userID := params.Principal.UserID
	var courseIDs []string
	if s.enrollments != nil {
		courseIDs, err = s.enrollments.EnrolledCourseIDs(ctx, userID)
		if err != nil {
			return
		}
	}

	courses := make(map[string]Course, len(courseIDs))
	if len(courseIDs) > 0 && s.courses != nil {
		var list []Course
		list, err = s.courses.ListCourses(ctx, courseIDs)
		if err != nil {
			return
		}
		for _, course := range list {
			courses[course.ID] = course
		}
	}

	var personal, lectures, deadlines []scheduler.Event

	if s.events != nil {
		var events []PersonalEvent
		events, err = s.events.ListPersonalEvents(ctx, PersonalEventQuery{
			UserID:      userID,
			StartsFrom:  dayStart,
			StartsUntil: dayEnd,
			EventTypes:  params.EventTypes,
		})
		if err != nil {
			return
		}
		for _, event := range events {
			if wants(event.EventType) {
				personal = append(personal, personalEventToEvent(event))
			}
		}
	}

	if wants(scheduler.EventTypeLecture) && len(courses) > 0 {
		lectures, err = s.courseOccurrences(ctx, logger, courses, courseIDs, dayStart, dayEnd)
		if err != nil {
			return
		}
	}

	if s.tasks != nil {
		var types []TaskType
		if wants(scheduler.EventTypeExam) {
			types = append(types, TaskExam)
		}
		if wants(scheduler.EventTypeAssignmentDue) {
			types = append(types, TaskAssignment)
		}
		if len(types) > 0 {
			query := TaskQuery{
				CourseIDs: courseIDs,
				CreatorID: userID,
				Types:     types,
				DueFrom:   now,
				Limit:     s.cfg.TaskLimit,
			}
			if s.cfg.BoundTasks {
				query.DueUntil = &dayEnd
			}
			var tasks []Task
			tasks, err = s.tasks.ListTasks(ctx, query)
			if err != nil {
				return
			}
			for _, task := range tasks {
				deadlines = append(deadlines, taskToEvent(task, courses))
			}
		}
	}

	schedule.Events = scheduler.Merge(lectures, personal, deadlines)
	schedule.Conflicts = scheduler.DetectOverlaps(schedule.Events)
	return
}

func (s *ScheduleService) window(params BuildScheduleParams, now time.Time) (time.Time, time.Time, *ValidationError) {
	vErr := &ValidationError{}
	for _, t := range params.EventTypes {
		if _, ok := scheduler.ParseEventType(string(t)); !ok {
			vErr.add("types", fmt.Sprintf("unknown event type %q", t))
		}
	}

	if params.From == nil || params.To == nil {
		return now.Add(-s.cfg.LookBehind), now.Add(s.cfg.LookAhead), vErr
	}

	from, to := *params.From, *params.To
	switch {
	case to.Before(from):
		vErr.add("end", "end must not be before start")
	case to.Sub(from) > s.cfg.MaxSpan:
		vErr.add("end", fmt.Sprintf("range must not exceed %d days", int(s.cfg.MaxSpan.Hours()/24)))
	}
	return from, to, vErr
}

func (s *ScheduleService) courseOccurrences(ctx context.Context, logger *slog.Logger, courses map[string]Course, courseIDs []string, from, to time.Time) ([]scheduler.Event, error) {
	slots, err := s.cache.Slots(ctx, s.courses, courseIDs)
	if err != nil {
		return nil, err
	}

	events := make([]scheduler.Event, 0)
	for _, slot := range slots {
		course, ok := courses[slot.CourseID]
		if !ok {
			continue
		}
		occurrences, expandErr := s.engine.Expand(slot, from, to)
		if expandErr != nil {
			logger.WarnContext(ctx, "skipping malformed course slot", "slot_id", slot.ID, "course_id", slot.CourseID, "error", expandErr)
			continue
		}
		for _, occurrence := range occurrences {
			events = append(events, occurrenceToEvent(occurrence, course))
		}
	}
	return events, nil
}

func occurrenceToEvent(occurrence recurrence.Occurrence, course Course) scheduler.Event {
	event := scheduler.Event{
		ID:          occurrence.ID,
		Category:    scheduler.CategoryCourseOccurrence,
		EventType:   scheduler.EventTypeLecture,
		Title:       fmt.Sprintf("%s: %s", course.Code, course.Name),
		Location:    occurrence.Location,
		Start:       occurrence.Start,
		End:         occurrence.End,
		IsRecurring: true,
		CourseID:    course.ID,
		CourseCode:  course.Code,
		SourceID:    occurrence.SlotID,
	}
	if course.InstructorName != "" {
		event.Description = "Instructor: " + course.InstructorName
	}
	return event
}

func personalEventToEvent(event PersonalEvent) scheduler.Event {
	return scheduler.Event{
		ID:          "event-" + event.ID,
		Category:    scheduler.CategoryPersonalEvent,
		EventType:   event.EventType,
		Title:       event.Title,
		Description: derefString(event.Description),
		Location:    derefString(event.Location),
		Start:       event.Start,
		End:         event.End,
		IsAllDay:    event.IsAllDay,
		SourceID:    event.ID,
	}
}

func taskToEvent(task Task, courses map[string]Course) scheduler.Event {
	event := scheduler.Event{
		ID:          "task-" + task.ID,
		Category:    scheduler.CategoryTaskDeadline,
		EventType:   scheduler.EventTypeAssignmentDue,
		Title:       task.Title,
		Description: derefString(task.Description),
		Start:       task.DueAt,
		End:         task.DueAt,
		IsAllDay:    true,
		SourceID:    task.ID,
	}
	if task.Type == TaskExam {
		event.EventType = scheduler.EventTypeExam
		event.IsAllDay = false
	}
	if task.CourseID != nil {
		event.CourseID = *task.CourseID
		event.CourseCode = courses[*task.CourseID].Code
	}
	return event
}

// CreatePersonalEvent stores a new event owned by the principal.
func (s *ScheduleService) CreatePersonalEvent(ctx context.Context, params CreatePersonalEventParams) (event PersonalEvent, err error) {
	if s == nil || s.events == nil {
		err = fmt.Errorf("ScheduleService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreatePersonalEvent", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to create personal event", err)
			return
		}
		logger.With("event_id", event.ID).InfoContext(ctx, "personal event created")
	}()

	if params.Principal.UserID == "" {
		err = ErrUnauthorized
		return
	}

	eventType, vErr := validatePersonalEventInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	event = PersonalEvent{
		ID:          s.idGenerator(),
		UserID:      params.Principal.UserID,
		Title:       strings.TrimSpace(params.Input.Title),
		Description: normalizeOptionalString(params.Input.Description),
		Location:    normalizeOptionalString(params.Input.Location),
		EventType:   eventType,
		Start:       params.Input.Start,
		End:         params.Input.End,
		IsAllDay:    params.Input.IsAllDay,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err = s.events.CreatePersonalEvent(ctx, event); err != nil {
		err = mapRepoError(err)
	}
	return
}

// UpdatePersonalEvent replaces the fields of one of the principal's events.
// Events owned by someone else are reported as not found.
func (s *ScheduleService) UpdatePersonalEvent(ctx context.Context, params UpdatePersonalEventParams) (event PersonalEvent, err error) {
	if s == nil || s.events == nil {
		err = fmt.Errorf("ScheduleService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdatePersonalEvent",
		"principal_id", params.Principal.UserID,
		"event_id", params.EventID,
	)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to update personal event", err)
			return
		}
		logger.InfoContext(ctx, "personal event updated")
	}()

	var existing PersonalEvent
	existing, err = s.ownedEvent(ctx, params.Principal, params.EventID)
	if err != nil {
		return
	}

	eventType, vErr := validatePersonalEventInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	event = existing
	event.Title = strings.TrimSpace(params.Input.Title)
	event.Description = normalizeOptionalString(params.Input.Description)
	event.Location = normalizeOptionalString(params.Input.Location)
	event.EventType = eventType
	event.Start = params.Input.Start
	event.End = params.Input.End
	event.IsAllDay = params.Input.IsAllDay
	event.UpdatedAt = s.now()

	if err = s.events.UpdatePersonalEvent(ctx, event); err != nil {
		err = mapRepoError(err)
	}
	return
}

// DeletePersonalEvent removes one of the principal's events.
func (s *ScheduleService) DeletePersonalEvent(ctx context.Context, principal Principal, eventID string) (err error) {
	if s == nil || s.events == nil {
		return fmt.Errorf("ScheduleService is not configured")
	}

	logger := s.loggerWith(ctx, "DeletePersonalEvent", "principal_id", principal.UserID, "event_id", eventID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to delete personal event", err)
			return
		}
		logger.InfoContext(ctx, "personal event deleted")
	}()

	if _, err = s.ownedEvent(ctx, principal, eventID); err != nil {
		return
	}
	return mapRepoError(s.events.DeletePersonalEvent(ctx, eventID))
}

func (s *ScheduleService) ownedEvent(ctx context.Context, principal Principal, eventID string) (PersonalEvent, error) {
	if principal.UserID == "" {
		return PersonalEvent{}, ErrUnauthorized
	}
	event, err := s.events.GetPersonalEvent(ctx, eventID)
	if err != nil {
		return PersonalEvent{}, mapRepoError(err)
	}
	if event.UserID != principal.UserID {
		return PersonalEvent{}, ErrNotFound
	}
	return event, nil
}

func validatePersonalEventInput(input PersonalEventInput) (scheduler.EventType, *ValidationError) {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	} else if !input.End.After(input.Start) {
		vErr.add("end", "end must be after start")
	}

	eventType := scheduler.EventTypePersonal
	if value := strings.TrimSpace(input.EventType); value != "" {
		parsed, ok := scheduler.ParseEventType(strings.ToUpper(value))
		if !ok {
			vErr.add("event_type", fmt.Sprintf("unknown event type %q", value))
		}
		eventType = parsed
	}

	return eventType, vErr
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
