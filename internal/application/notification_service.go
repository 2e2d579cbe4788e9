package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/example/college-admin/internal/push"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 100
	defaultFanoutConcurrency = 8
)

// NotificationConfig tunes the fan-out.
type NotificationConfig struct {
	// Concurrency bounds parallel durable writes per fan-out.
	Concurrency int
	// PushTimeout bounds the push phase of one fan-out. Zero means no bound.
	PushTimeout time.Duration
	// Async runs the push phase after NotifyAudience returns.
	Async bool
	// Location formats dates in generated messages.
	Location *time.Location
}

// NotificationService persists per-recipient notifications and delivers them
// best-effort over the push channel.
type NotificationService struct {
	notifications NotificationRepository
	tokens        PushTokenStore
	sender        push.Sender
	courses       CourseCatalog
	audience      *AudienceResolver
	idGenerator   func() string
	now           func() time.Time
	cfg           NotificationConfig
	logger        *slog.Logger

	deferred sync.WaitGroup
}

// NewNotificationService constructs a notification service with the provided dependencies.
func NewNotificationService(
	notifications NotificationRepository,
	tokens PushTokenStore,
	sender push.Sender,
	courses CourseCatalog,
	audience *AudienceResolver,
	idGenerator func() string,
	now func() time.Time,
	cfg NotificationConfig,
) *NotificationService {
	return NewNotificationServiceWithLogger(notifications, tokens, sender, courses, audience, idGenerator, now, cfg, nil)
}

// NewNotificationServiceWithLogger constructs a notification service with a specified logger.
func NewNotificationServiceWithLogger(
	notifications NotificationRepository,
	tokens PushTokenStore,
	sender push.Sender,
	courses CourseCatalog,
	audience *AudienceResolver,
	idGenerator func() string,
	now func() time.Time,
	cfg NotificationConfig,
	logger *slog.Logger,
) *NotificationService {
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	if sender == nil {
		sender = push.Disabled{}
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultFanoutConcurrency
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &NotificationService{
		notifications: notifications,
		tokens:        tokens,
		sender:        sender,
		courses:       courses,
		audience:      audience,
		idGenerator:   idGenerator,
		now:           now,
		cfg:           cfg,
		logger:        defaultLogger(logger),
	}
}

func (s *NotificationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "NotificationService", operation, attrs...)
}

// Wait blocks until every deferred push phase has finished.
func (s *NotificationService) Wait() {
	if s != nil {
		s.deferred.Wait()
	}
}

// NotifyAudience writes one notification per distinct recipient and then
// attempts push delivery to recipients that have a token. Individual write
// failures are counted, not returned; an error is returned only when the
// context ends or no row could be written for a non-empty audience. Push
// failures never produce an error.
func (s *NotificationService) NotifyAudience(ctx context.Context, audience []string, payload NotificationPayload) (report DeliveryReport, err error) {
	if s == nil || s.notifications == nil {
		err = fmt.Errorf("NotificationService is not configured")
		return
	}

	recipients := distinct(audience)
	logger := s.loggerWith(ctx, "NotifyAudience",
		"notification_type", string(payload.Type),
		"audience_size", len(recipients),
	)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "notification fan-out failed", err)
			return
		}
		logger.InfoContext(ctx, "notification fan-out completed",
			"notified", report.Notified,
			"write_failed", report.WriteFailed,
			"push_sent", report.PushSent,
			"push_failed", report.PushFailed,
			"tokens_cleared", report.TokensCleared,
			"channel_unavailable", report.ChannelUnavailable,
			"push_deferred", report.PushDeferred,
		)
	}()

	payload, vErr := normalizePayload(payload)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if len(recipients) == 0 {
		return
	}

	written, writeErr := s.writeAll(ctx, recipients, payload)
	report.Notified = len(written)
	report.WriteFailed = len(recipients) - len(written)

	if ctxErr := ctx.Err(); ctxErr != nil {
		err = multierr.Append(ctxErr, writeErr)
		return
	}
	if len(written) == 0 {
		err = fmt.Errorf("no notification could be written: %w", writeErr)
		return
	}
	if writeErr != nil {
		logger.WarnContext(ctx, "some notifications could not be written", "error", writeErr)
	}

	if s.cfg.Async {
		report.PushDeferred = true
		detached := context.WithoutCancel(ctx)
		s.deferred.Add(1)
		go func() {
			defer s.deferred.Done()
			outcome := s.deliver(detached, written, payload, logger)
			logger.InfoContext(detached, "deferred push completed",
				"push_sent", outcome.PushSent,
				"push_failed", outcome.PushFailed,
				"tokens_cleared", outcome.TokensCleared,
				"channel_unavailable", outcome.ChannelUnavailable,
			)
		}()
		return
	}

	outcome := s.deliver(ctx, written, payload, logger)
	report.PushSent = outcome.PushSent
	report.PushFailed = outcome.PushFailed
	report.TokensCleared = outcome.TokensCleared
	report.ChannelUnavailable = outcome.ChannelUnavailable
	return
}

// writeAll creates the rows in parallel and returns those that were stored.
func (s *NotificationService) writeAll(ctx context.Context, recipients []string, payload NotificationPayload) ([]Notification, error) {
	createdAt := s.now()
	stored := make([]*Notification, len(recipients))

	var (
		mu       sync.Mutex
		failures error
		group    errgroup.Group
	)
	group.SetLimit(s.cfg.Concurrency)

	for i, userID := range recipients {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				mu.Lock()
				failures = multierr.Append(failures, fmt.Errorf("recipient %s: %w", userID, err))
				mu.Unlock()
				return nil
			}

			notification := newNotification(s.idGenerator(), userID, payload, createdAt)
			if err := s.notifications.CreateNotification(ctx, notification); err != nil {
				mu.Lock()
				failures = multierr.Append(failures, fmt.Errorf("recipient %s: %w", userID, err))
				mu.Unlock()
				return nil
			}
			stored[i] = &notification
			return nil
		})
	}
	_ = group.Wait()

	written := make([]Notification, 0, len(recipients))
	for _, notification := range stored {
		if notification != nil {
			written = append(written, *notification)
		}
	}
	return written, failures
}

// deliver runs the push phase. It never returns an error; every failure ends
// up in the returned counts or the log.
func (s *NotificationService) deliver(ctx context.Context, written []Notification, payload NotificationPayload, logger *slog.Logger) DeliveryReport {
	var outcome DeliveryReport
	if s.tokens == nil || len(written) == 0 {
		return outcome
	}

	userIDs := make([]string, 0, len(written))
	for _, notification := range written {
		userIDs = append(userIDs, notification.UserID)
	}
	tokens, err := s.tokens.PushTokens(ctx, userIDs)
	if err != nil {
		logger.WarnContext(ctx, "failed to load push tokens", "error", err)
		return outcome
	}
	if len(tokens) == 0 {
		return outcome
	}

	byToken := make(map[string][]Notification, len(tokens))
	messages := make([]push.Message, 0, len(tokens))
	for _, notification := range written {
		token := tokens[notification.UserID]
		if token == "" {
			continue
		}
		if _, ok := byToken[token]; !ok {
			messages = append(messages, pushMessage(token, notification, payload))
		}
		byToken[token] = append(byToken[token], notification)
	}

	pushCtx := ctx
	if s.cfg.PushTimeout > 0 {
		var cancel context.CancelFunc
		pushCtx, cancel = context.WithTimeout(ctx, s.cfg.PushTimeout)
		defer cancel()
	}

	var pushed []string
	attempted := 0
	for _, batch := range push.Batches(messages, s.sender.MaxBatchSize()) {
		results, sendErr := s.sender.Send(pushCtx, batch)
		if errors.Is(sendErr, push.ErrChannelUnavailable) {
			outcome.ChannelUnavailable = true
			if attempted > 0 {
				outcome.PushFailed += len(messages) - attempted
			}
			logger.WarnContext(ctx, "push channel unavailable", "error", sendErr)
			break
		}
		attempted += len(batch)
		if sendErr != nil {
			outcome.PushFailed += len(batch)
			logger.WarnContext(ctx, "push batch failed", "batch_size", len(batch), "error", sendErr)
			continue
		}
		if missing := len(batch) - len(results); missing > 0 {
			outcome.PushFailed += missing
		}

		for _, result := range results {
			recipients := byToken[result.Token]
			switch {
			case result.Delivered():
				outcome.PushSent++
				for _, notification := range recipients {
					pushed = append(pushed, notification.ID)
				}
			case result.InvalidToken():
				outcome.PushFailed++
				for _, notification := range recipients {
					cleared, clearErr := s.tokens.ClearPushToken(ctx, notification.UserID, result.Token, s.now())
					if clearErr != nil {
						logger.WarnContext(ctx, "failed to clear invalid push token", "user_id", notification.UserID, "error", clearErr)
						continue
					}
					if cleared {
						outcome.TokensCleared++
						logger.WarnContext(ctx, "cleared invalid push token", "user_id", notification.UserID)
					}
				}
			default:
				outcome.PushFailed++
				logger.DebugContext(ctx, "push delivery failed", "error", result.Err)
			}
		}
	}

	if len(pushed) > 0 {
		if err := s.notifications.MarkPushed(ctx, pushed); err != nil {
			logger.WarnContext(ctx, "failed to mark notifications pushed", "error", err)
		}
	}
	return outcome
}

// NotifyCourseEvent announces something a professor published to every
// student enrolled in the course, except the actor.
func (s *NotificationService) NotifyCourseEvent(ctx context.Context, principal Principal, event CourseEvent) (report DeliveryReport, err error) {
	if s == nil {
		err = fmt.Errorf("NotificationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "NotifyCourseEvent",
		"principal_id", principal.UserID,
		"course_id", event.CourseID,
		"kind", string(event.Kind),
	)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to notify course", err)
			return
		}
		logger.InfoContext(ctx, "course notified", "notified", report.Notified)
	}()

	if !principal.IsStaff() {
		err = ErrUnauthorized
		return
	}
	if vErr := validateCourseEvent(event); vErr.HasErrors() {
		err = vErr
		return
	}
	if s.courses == nil || s.audience == nil {
		err = fmt.Errorf("course notifications are not configured")
		return
	}

	var course Course
	course, err = s.courses.GetCourse(ctx, event.CourseID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	var audience []string
	audience, err = s.audience.ResolveAudience(ctx, course.ID, principal.UserID)
	if err != nil {
		return
	}

	report, err = s.NotifyAudience(ctx, audience, s.courseEventPayload(course, event))
	return
}

// maxAnnouncementMessage caps the announcement text copied into notifications.
const maxAnnouncementMessage = 200

func (s *NotificationService) courseEventPayload(course Course, event CourseEvent) NotificationPayload {
	title := strings.TrimSpace(event.Title)
	message := strings.TrimSpace(event.Message)
	payload := NotificationPayload{ReferenceID: event.ReferenceID}

	switch event.Kind {
	case CourseEventContent:
		contentType := strings.ToLower(strings.TrimSpace(event.ContentType))
		if contentType == "" {
			contentType = "content"
		}
		if message == "" {
			message = title
		}
		payload.Title = fmt.Sprintf("New %s: %s", contentType, title)
		payload.Message = fmt.Sprintf("%s: %s", course.Code, message)
		payload.Type = NotificationAnnouncement
		payload.ReferenceType = ReferenceContent
	case CourseEventAssignment:
		payload.Title = fmt.Sprintf("New Assignment: %s", title)
		payload.Message = fmt.Sprintf("%s - Due: %s", course.Code, s.formatDate(event.DueAt))
		payload.Type = NotificationAssignment
		payload.ReferenceType = ReferenceTask
	case CourseEventExam:
		payload.Title = fmt.Sprintf("Exam Scheduled: %s", title)
		payload.Message = fmt.Sprintf("%s - Date: %s", course.Code, s.formatDate(event.DueAt))
		payload.Type = NotificationExam
		payload.ReferenceType = ReferenceTask
	case CourseEventAnnouncement:
		payload.Title = "📢 " + title
		payload.Message = truncateRunes(message, maxAnnouncementMessage)
		payload.Type = NotificationAnnouncement
		payload.ReferenceType = ReferenceAnnouncement
	}
	return payload
}

func truncateRunes(value string, limit int) string {
	count := 0
	for i := range value {
		if count == limit {
			return value[:i]
		}
		count++
	}
	return value
}

func (s *NotificationService) formatDate(t *time.Time) string {
	if t == nil {
		return "soon"
	}
	return t.In(s.cfg.Location).Format("Jan 2, 2006 15:04")
}

// NotifyUser sends a single-recipient notification such as a grade or a
// system message. Only staff may address another user.
func (s *NotificationService) NotifyUser(ctx context.Context, principal Principal, userID string, payload NotificationPayload) (DeliveryReport, error) {
	if s == nil {
		return DeliveryReport{}, fmt.Errorf("NotificationService is nil")
	}
	if !principal.IsStaff() {
		return DeliveryReport{}, ErrUnauthorized
	}
	if strings.TrimSpace(userID) == "" {
		vErr := &ValidationError{}
		vErr.add("user_id", "user_id is required")
		return DeliveryReport{}, vErr
	}
	if payload.Type == NotificationGrade && strings.TrimSpace(payload.Title) == "" {
		payload.Title = "Assignment Graded"
	}
	return s.NotifyAudience(ctx, []string{userID}, payload)
}

// ListNotifications returns the principal's notifications, newest first,
// together with the unread total.
func (s *NotificationService) ListNotifications(ctx context.Context, params ListNotificationsParams) (list NotificationList, err error) {
	if s == nil || s.notifications == nil {
		err = fmt.Errorf("NotificationService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListNotifications", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to list notifications", err)
			return
		}
		logger.DebugContext(ctx, "notifications listed", "result_count", len(list.Notifications))
	}()

	if params.Principal.UserID == "" {
		err = ErrUnauthorized
		return
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}

	list.Notifications, err = s.notifications.ListNotifications(ctx, NotificationQuery{
		UserID:     params.Principal.UserID,
		UnreadOnly: params.UnreadOnly,
		Limit:      limit,
	})
	if err != nil {
		return
	}
	list.UnreadCount, err = s.notifications.CountUnread(ctx, params.Principal.UserID)
	return
}

// UnreadCount returns how many of the principal's notifications are unread.
func (s *NotificationService) UnreadCount(ctx context.Context, principal Principal) (int, error) {
	if s == nil || s.notifications == nil {
		return 0, fmt.Errorf("NotificationService is not configured")
	}
	if principal.UserID == "" {
		return 0, ErrUnauthorized
	}
	return s.notifications.CountUnread(ctx, principal.UserID)
}

// MarkRead marks one of the principal's notifications read.
func (s *NotificationService) MarkRead(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil || s.notifications == nil {
		return fmt.Errorf("NotificationService is not configured")
	}

	logger := s.loggerWith(ctx, "MarkRead", "principal_id", principal.UserID, "notification_id", id)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to mark notification read", err)
		}
	}()

	if principal.UserID == "" {
		return ErrUnauthorized
	}
	return mapRepoError(s.notifications.MarkRead(ctx, principal.UserID, id, s.now()))
}

// MarkAllRead marks every unread notification of the principal read.
func (s *NotificationService) MarkAllRead(ctx context.Context, principal Principal) (int, error) {
	if s == nil || s.notifications == nil {
		return 0, fmt.Errorf("NotificationService is not configured")
	}
	if principal.UserID == "" {
		return 0, ErrUnauthorized
	}

	count, err := s.notifications.MarkAllRead(ctx, principal.UserID, s.now())
	if err != nil {
		s.loggerWith(ctx, "MarkAllRead", "principal_id", principal.UserID).
			ErrorContext(ctx, "failed to mark notifications read", "error", err, "error_kind", ErrorKind(err))
		return 0, err
	}
	return count, nil
}

// DeleteNotification removes one of the principal's notifications.
func (s *NotificationService) DeleteNotification(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil || s.notifications == nil {
		return fmt.Errorf("NotificationService is not configured")
	}

	logger := s.loggerWith(ctx, "DeleteNotification", "principal_id", principal.UserID, "notification_id", id)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to delete notification", err)
			return
		}
		logger.InfoContext(ctx, "notification deleted")
	}()

	if principal.UserID == "" {
		return ErrUnauthorized
	}
	return mapRepoError(s.notifications.DeleteNotification(ctx, principal.UserID, id))
}

// ClearRead removes every read notification of the principal.
func (s *NotificationService) ClearRead(ctx context.Context, principal Principal) (int, error) {
	if s == nil || s.notifications == nil {
		return 0, fmt.Errorf("NotificationService is not configured")
	}
	if principal.UserID == "" {
		return 0, ErrUnauthorized
	}
	return s.notifications.DeleteRead(ctx, principal.UserID, nil)
}

// PurgeRead removes read notifications of every user created more than
// olderThan ago.
func (s *NotificationService) PurgeRead(ctx context.Context, olderThan time.Duration) (count int, err error) {
	if s == nil || s.notifications == nil {
		return 0, fmt.Errorf("NotificationService is not configured")
	}

	logger := s.loggerWith(ctx, "PurgeRead", "older_than", olderThan.String())
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to purge notifications", err)
			return
		}
		logger.InfoContext(ctx, "read notifications purged", "deleted", count)
	}()

	if olderThan <= 0 {
		vErr := &ValidationError{}
		vErr.add("older_than", "retention must be positive")
		return 0, vErr
	}

	before := s.now().Add(-olderThan)
	return s.notifications.DeleteRead(ctx, "", &before)
}

func normalizePayload(payload NotificationPayload) (NotificationPayload, *ValidationError) {
	vErr := &ValidationError{}
	payload.Title = strings.TrimSpace(payload.Title)
	payload.Message = strings.TrimSpace(payload.Message)
	if payload.Title == "" {
		vErr.add("title", "title is required")
	}
	if payload.Message == "" {
		vErr.add("message", "message is required")
	}
	if payload.Type == "" {
		payload.Type = NotificationGeneral
	}
	if payload.ReferenceType == "" {
		payload.ReferenceID = ""
	}
	return payload, vErr
}

func validateCourseEvent(event CourseEvent) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(event.CourseID) == "" {
		vErr.add("course_id", "course_id is required")
	}
	if strings.TrimSpace(event.Title) == "" {
		vErr.add("title", "title is required")
	}
	switch event.Kind {
	case CourseEventContent, CourseEventAssignment, CourseEventExam:
	case CourseEventAnnouncement:
		if strings.TrimSpace(event.Message) == "" {
			vErr.add("message", "message is required")
		}
	default:
		vErr.add("kind", "kind must be one of CONTENT, ASSIGNMENT, EXAM, ANNOUNCEMENT")
	}
	return vErr
}

func newNotification(id, userID string, payload NotificationPayload, createdAt time.Time) Notification {
	notification := Notification{
		ID:        id,
		UserID:    userID,
		Title:     payload.Title,
		Message:   payload.Message,
		Type:      payload.Type,
		CreatedAt: createdAt,
	}
	if payload.ReferenceType != "" {
		refType := payload.ReferenceType
		notification.ReferenceType = &refType
		if payload.ReferenceID != "" {
			refID := payload.ReferenceID
			notification.ReferenceID = &refID
		}
	}
	return notification
}

func pushMessage(token string, notification Notification, payload NotificationPayload) push.Message {
	data := map[string]string{
		"notificationId": notification.ID,
		"type":           string(payload.Type),
	}
	if payload.ReferenceType != "" {
		data["referenceType"] = string(payload.ReferenceType)
	}
	if payload.ReferenceID != "" {
		data["referenceId"] = payload.ReferenceID
	}
	return push.Message{Token: token, Title: payload.Title, Body: payload.Message, Data: data}
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
