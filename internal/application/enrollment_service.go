package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EnrollmentService flips a user's membership in a course. Rows are never
// deleted so enrollment history is retained.
type EnrollmentService struct {
	courses     CourseCatalog
	enrollments EnrollmentRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEnrollmentService constructs an enrollment service.
func NewEnrollmentService(courses CourseCatalog, enrollments EnrollmentRepository, idGenerator func() string, now func() time.Time) *EnrollmentService {
	return NewEnrollmentServiceWithLogger(courses, enrollments, idGenerator, now, nil)
}

// NewEnrollmentServiceWithLogger constructs an enrollment service with a specified logger.
func NewEnrollmentServiceWithLogger(courses CourseCatalog, enrollments EnrollmentRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EnrollmentService {
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	return &EnrollmentService{
		courses:     courses,
		enrollments: enrollments,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *EnrollmentService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EnrollmentService", operation, attrs...)
}

// Enroll creates the principal's enrollment in an active course or flips a
// dropped one back to ENROLLED.
func (s *EnrollmentService) Enroll(ctx context.Context, principal Principal, courseID string) (enrollment Enrollment, err error) {
	if s == nil || s.courses == nil || s.enrollments == nil {
		err = fmt.Errorf("EnrollmentService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "Enroll", "principal_id", principal.UserID, "course_id", courseID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to enroll", err)
			return
		}
		logger.InfoContext(ctx, "enrolled")
	}()

	if principal.UserID == "" {
		err = ErrUnauthorized
		return
	}

	var course Course
	course, err = s.courses.GetCourse(ctx, courseID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if !course.IsActive {
		vErr := &ValidationError{}
		vErr.add("course_id", "course is not active")
		err = vErr
		return
	}

	now := s.now()
	existing, getErr := s.enrollments.GetEnrollment(ctx, principal.UserID, courseID)
	switch mapped := mapRepoError(getErr); {
	case mapped == nil:
		if existing.Status == EnrollmentEnrolled {
			vErr := &ValidationError{}
			vErr.add("course_id", "already enrolled in this course")
			err = vErr
			return
		}
		enrollment = existing
	case errors.Is(mapped, ErrNotFound):
		enrollment = Enrollment{
			ID:         s.idGenerator(),
			UserID:     principal.UserID,
			CourseID:   courseID,
			EnrolledAt: now,
		}
	default:
		err = mapped
		return
	}

	enrollment.Status = EnrollmentEnrolled
	enrollment.UpdatedAt = now
	err = mapRepoError(s.enrollments.SaveEnrollment(ctx, enrollment))
	return
}

// Drop flips the principal's ENROLLED row to DROPPED.
func (s *EnrollmentService) Drop(ctx context.Context, principal Principal, courseID string) (enrollment Enrollment, err error) {
	if s == nil || s.enrollments == nil {
		err = fmt.Errorf("EnrollmentService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "Drop", "principal_id", principal.UserID, "course_id", courseID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to drop enrollment", err)
			return
		}
		logger.InfoContext(ctx, "enrollment dropped")
	}()

	if principal.UserID == "" {
		err = ErrUnauthorized
		return
	}

	enrollment, err = s.enrollments.GetEnrollment(ctx, principal.UserID, courseID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if enrollment.Status != EnrollmentEnrolled {
		err = ErrNotFound
		return
	}

	enrollment.Status = EnrollmentDropped
	enrollment.UpdatedAt = s.now()
	err = mapRepoError(s.enrollments.SaveEnrollment(ctx, enrollment))
	return
}
