package main

import (
	"context"
	"time"

	"github.com/example/college-admin/internal/application"
	"github.com/example/college-admin/internal/persistence"
	"github.com/example/college-admin/internal/recurrence"
	"github.com/example/college-admin/internal/scheduler"
)

type userDirectoryAdapter struct {
	repo persistence.UserRepository
}

func newUserDirectoryAdapter(repo persistence.UserRepository) *userDirectoryAdapter {
	return &userDirectoryAdapter{repo: repo}
}

func (a *userDirectoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return application.User{
		ID:          stored.ID,
		Email:       stored.Email,
		DisplayName: stored.DisplayName,
		Role:        application.Role(stored.Role),
		PushToken:   stored.PushToken,
		CreatedAt:   stored.CreatedAt,
		UpdatedAt:   stored.UpdatedAt,
	}, nil
}

type courseCatalogAdapter struct {
	repo persistence.CourseRepository
}

func newCourseCatalogAdapter(repo persistence.CourseRepository) *courseCatalogAdapter {
	return &courseCatalogAdapter{repo: repo}
}

func (a *courseCatalogAdapter) GetCourse(ctx context.Context, id string) (application.Course, error) {
	stored, err := a.repo.GetCourse(ctx, id)
	if err != nil {
		return application.Course{}, err
	}
	return toApplicationCourse(stored), nil
}

func (a *courseCatalogAdapter) ListCourses(ctx context.Context, ids []string) ([]application.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	models, err := a.repo.ListCourses(ctx, ids)
	if err != nil {
		return nil, err
	}
	courses := make([]application.Course, 0, len(models))
	for _, model := range models {
		courses = append(courses, toApplicationCourse(model))
	}
	return courses, nil
}

// ListSlots passes stored values through unvalidated; the recurrence engine
// rejects malformed slots individually.
func (a *courseCatalogAdapter) ListSlots(ctx context.Context, courseIDs []string) ([]recurrence.Slot, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	models, err := a.repo.ListCourseSlots(ctx, courseIDs)
	if err != nil {
		return nil, err
	}
	slots := make([]recurrence.Slot, 0, len(models))
	for _, model := range models {
		slots = append(slots, recurrence.Slot{
			ID:        model.ID,
			CourseID:  model.CourseID,
			DayOfWeek: recurrence.Weekday(model.DayOfWeek),
			StartTime: model.StartTime,
			EndTime:   model.EndTime,
			Location:  model.Location,
		})
	}
	return slots, nil
}

func toApplicationCourse(model persistence.Course) application.Course {
	return application.Course{
		ID:             model.ID,
		Code:           model.Code,
		Name:           model.Name,
		InstructorName: model.InstructorName,
		IsActive:       model.IsActive,
	}
}

type enrollmentAdapter struct {
	repo persistence.EnrollmentRepository
}

func newEnrollmentAdapter(repo persistence.EnrollmentRepository) *enrollmentAdapter {
	return &enrollmentAdapter{repo: repo}
}

func (a *enrollmentAdapter) EnrolledUserIDs(ctx context.Context, courseID string) ([]string, error) {
	rows, err := a.repo.ListEnrollments(ctx, persistence.EnrollmentFilter{CourseID: courseID, Status: persistence.EnrollmentEnrolled})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.UserID)
	}
	return ids, nil
}

func (a *enrollmentAdapter) EnrolledCourseIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := a.repo.ListEnrollments(ctx, persistence.EnrollmentFilter{UserID: userID, Status: persistence.EnrollmentEnrolled})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.CourseID)
	}
	return ids, nil
}

func (a *enrollmentAdapter) GetEnrollment(ctx context.Context, userID, courseID string) (application.Enrollment, error) {
	row, err := a.repo.GetEnrollment(ctx, userID, courseID)
	if err != nil {
		return application.Enrollment{}, err
	}
	return application.Enrollment{
		ID:         row.ID,
		UserID:     row.UserID,
		CourseID:   row.CourseID,
		Status:     application.EnrollmentStatus(row.Status),
		EnrolledAt: row.EnrolledAt,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}

func (a *enrollmentAdapter) SaveEnrollment(ctx context.Context, enrollment application.Enrollment) error {
	return a.repo.UpsertEnrollment(ctx, persistence.Enrollment{
		ID:         enrollment.ID,
		UserID:     enrollment.UserID,
		CourseID:   enrollment.CourseID,
		Status:     string(enrollment.Status),
		EnrolledAt: enrollment.EnrolledAt,
		UpdatedAt:  enrollment.UpdatedAt,
	})
}

type personalEventAdapter struct {
	repo persistence.PersonalEventRepository
}

func newPersonalEventAdapter(repo persistence.PersonalEventRepository) *personalEventAdapter {
	return &personalEventAdapter{repo: repo}
}

func (a *personalEventAdapter) CreatePersonalEvent(ctx context.Context, event application.PersonalEvent) error {
	return a.repo.CreatePersonalEvent(ctx, toPersistencePersonalEvent(event))
}

func (a *personalEventAdapter) UpdatePersonalEvent(ctx context.Context, event application.PersonalEvent) error {
	return a.repo.UpdatePersonalEvent(ctx, toPersistencePersonalEvent(event))
}

func (a *personalEventAdapter) GetPersonalEvent(ctx context.Context, id string) (application.PersonalEvent, error) {
	stored, err := a.repo.GetPersonalEvent(ctx, id)
	if err != nil {
		return application.PersonalEvent{}, err
	}
	return toApplicationPersonalEvent(stored), nil
}

func (a *personalEventAdapter) DeletePersonalEvent(ctx context.Context, id string) error {
	return a.repo.DeletePersonalEvent(ctx, id)
}

func (a *personalEventAdapter) ListPersonalEvents(ctx context.Context, query application.PersonalEventQuery) ([]application.PersonalEvent, error) {
	from, until := query.StartsFrom, query.StartsUntil
	filter := persistence.PersonalEventFilter{
		UserID:      query.UserID,
		StartsFrom:  &from,
		StartsUntil: &until,
	}
	for _, eventType := range query.EventTypes {
		filter.EventTypes = append(filter.EventTypes, string(eventType))
	}

	models, err := a.repo.ListPersonalEvents(ctx, filter)
	if err != nil {
		return nil, err
	}
	events := make([]application.PersonalEvent, 0, len(models))
	for _, model := range models {
		events = append(events, toApplicationPersonalEvent(model))
	}
	return events, nil
}

func toPersistencePersonalEvent(event application.PersonalEvent) persistence.PersonalEvent {
	return persistence.PersonalEvent{
		ID:          event.ID,
		UserID:      event.UserID,
		Title:       event.Title,
		Description: event.Description,
		Location:    event.Location,
		EventType:   string(event.EventType),
		StartsAt:    event.Start,
		EndsAt:      event.End,
		IsAllDay:    event.IsAllDay,
		CreatedAt:   event.CreatedAt,
		UpdatedAt:   event.UpdatedAt,
	}
}

func toApplicationPersonalEvent(model persistence.PersonalEvent) application.PersonalEvent {
	return application.PersonalEvent{
		ID:          model.ID,
		UserID:      model.UserID,
		Title:       model.Title,
		Description: model.Description,
		Location:    model.Location,
		EventType:   scheduler.EventType(model.EventType),
		Start:       model.StartsAt,
		End:         model.EndsAt,
		IsAllDay:    model.IsAllDay,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

type taskReaderAdapter struct {
	repo persistence.TaskRepository
}

func newTaskReaderAdapter(repo persistence.TaskRepository) *taskReaderAdapter {
	return &taskReaderAdapter{repo: repo}
}

func (a *taskReaderAdapter) ListTasks(ctx context.Context, query application.TaskQuery) ([]application.Task, error) {
	dueFrom := query.DueFrom
	filter := persistence.TaskFilter{
		CourseIDs: append([]string(nil), query.CourseIDs...),
		CreatorID: query.CreatorID,
		DueFrom:   &dueFrom,
		DueUntil:  query.DueUntil,
		Limit:     query.Limit,
	}
	for _, taskType := range query.Types {
		filter.Types = append(filter.Types, string(taskType))
	}

	models, err := a.repo.ListTasks(ctx, filter)
	if err != nil {
		return nil, err
	}
	tasks := make([]application.Task, 0, len(models))
	for _, model := range models {
		tasks = append(tasks, application.Task{
			ID:          model.ID,
			CourseID:    model.CourseID,
			CreatorID:   model.CreatorID,
			Title:       model.Title,
			Description: model.Description,
			Type:        application.TaskType(model.TaskType),
			Priority:    model.Priority,
			DueAt:       model.DueAt,
		})
	}
	return tasks, nil
}

type notificationAdapter struct {
	repo persistence.NotificationRepository
}

func newNotificationAdapter(repo persistence.NotificationRepository) *notificationAdapter {
	return &notificationAdapter{repo: repo}
}

func (a *notificationAdapter) CreateNotification(ctx context.Context, notification application.Notification) error {
	model := persistence.Notification{
		ID:          notification.ID,
		UserID:      notification.UserID,
		Title:       notification.Title,
		Message:     notification.Message,
		Type:        string(notification.Type),
		ReferenceID: notification.ReferenceID,
		IsRead:      notification.IsRead,
		IsPushed:    notification.IsPushed,
		ReadAt:      notification.ReadAt,
		CreatedAt:   notification.CreatedAt,
	}
	if notification.ReferenceType != nil {
		referenceType := string(*notification.ReferenceType)
		model.ReferenceType = &referenceType
	}
	return a.repo.CreateNotification(ctx, model)
}

func (a *notificationAdapter) MarkPushed(ctx context.Context, ids []string) error {
	return a.repo.MarkNotificationsPushed(ctx, ids)
}

func (a *notificationAdapter) ListNotifications(ctx context.Context, query application.NotificationQuery) ([]application.Notification, error) {
	models, err := a.repo.ListNotifications(ctx, persistence.NotificationFilter{
		UserID:     query.UserID,
		UnreadOnly: query.UnreadOnly,
		Limit:      query.Limit,
	})
	if err != nil {
		return nil, err
	}
	notifications := make([]application.Notification, 0, len(models))
	for _, model := range models {
		notification := application.Notification{
			ID:          model.ID,
			UserID:      model.UserID,
			Title:       model.Title,
			Message:     model.Message,
			Type:        application.NotificationType(model.Type),
			ReferenceID: model.ReferenceID,
			IsRead:      model.IsRead,
			IsPushed:    model.IsPushed,
			ReadAt:      model.ReadAt,
			CreatedAt:   model.CreatedAt,
		}
		if model.ReferenceType != nil {
			referenceType := application.ReferenceType(*model.ReferenceType)
			notification.ReferenceType = &referenceType
		}
		notifications = append(notifications, notification)
	}
	return notifications, nil
}

func (a *notificationAdapter) CountUnread(ctx context.Context, userID string) (int, error) {
	return a.repo.CountUnreadNotifications(ctx, userID)
}

func (a *notificationAdapter) MarkRead(ctx context.Context, userID, id string, at time.Time) error {
	return a.repo.MarkNotificationRead(ctx, userID, id, at)
}

func (a *notificationAdapter) MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error) {
	return a.repo.MarkAllNotificationsRead(ctx, userID, at)
}

func (a *notificationAdapter) DeleteNotification(ctx context.Context, userID, id string) error {
	return a.repo.DeleteNotification(ctx, userID, id)
}

func (a *notificationAdapter) DeleteRead(ctx context.Context, userID string, before *time.Time) (int, error) {
	return a.repo.DeleteReadNotifications(ctx, userID, before)
}
