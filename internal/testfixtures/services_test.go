package testfixtures

import (
	"context"
	"testing"

	"github.com/example/college-admin/internal/application"
	"github.com/example/college-admin/internal/recurrence"
)

type catalogStub struct {
	course application.Course
}

func (c catalogStub) GetCourse(ctx context.Context, id string) (application.Course, error) {
	if id != c.course.ID {
		return application.Course{}, application.ErrNotFound
	}
	return c.course, nil
}

func (c catalogStub) ListCourses(ctx context.Context, ids []string) ([]application.Course, error) {
	return []application.Course{c.course}, nil
}

func (c catalogStub) ListSlots(ctx context.Context, courseIDs []string) ([]recurrence.Slot, error) {
	return nil, nil
}

type capturingEnrollmentRepo struct {
	saved []application.Enrollment
}

func (c *capturingEnrollmentRepo) GetEnrollment(ctx context.Context, userID, courseID string) (application.Enrollment, error) {
	return application.Enrollment{}, application.ErrNotFound
}

func (c *capturingEnrollmentRepo) SaveEnrollment(ctx context.Context, enrollment application.Enrollment) error {
	c.saved = append(c.saved, enrollment)
	return nil
}

func TestServiceFactoryNewEnrollmentService(t *testing.T) {
	factory := NewServiceFactory(WithIDGenerator(NewIDGenerator("enr")))
	course := NewCourseFixture()
	repo := &capturingEnrollmentRepo{}

	svc := factory.NewEnrollmentService(catalogStub{course: course.Application()}, repo, nil)
	student := NewUserFixture()

	enrollment, err := svc.Enroll(context.Background(), student.Principal(), course.ID)
	if err != nil {
		t.Fatalf("Enroll returned error: %v", err)
	}

	if enrollment.ID != "enr-1" {
		t.Fatalf("expected generated ID enr-1, got %q", enrollment.ID)
	}
	if len(repo.saved) != 1 || repo.saved[0].ID != enrollment.ID {
		t.Fatalf("repository received unexpected rows: %#v", repo.saved)
	}
	if !enrollment.EnrolledAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Now(), enrollment.EnrolledAt)
	}
}

func TestServiceFactoryScheduleUsesClock(t *testing.T) {
	factory := NewServiceFactory()
	svc := factory.NewScheduleService(ScheduleServiceDeps{})

	if svc.Location() != factory.Location {
		t.Fatalf("expected engine location %v, got %v", factory.Location, svc.Location())
	}
}
