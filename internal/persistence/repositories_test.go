package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/college-admin/internal/application"
	"github.com/example/college-admin/internal/persistence"
	"github.com/example/college-admin/internal/testfixtures"
)

func forEachStore(t *testing.T, fn func(t *testing.T, store persistence.Store)) {
	t.Helper()
	for _, named := range testfixtures.NewStores(t) {
		t.Run(named.Name, func(t *testing.T) {
			fn(t, named.Store)
		})
	}
}

func TestUserRepository(t *testing.T) {
	t.Parallel()

	forEachStore(t, func(t *testing.T, store persistence.Store) {
		ctx := context.Background()
		base := testfixtures.ReferenceTime()
		alice := testfixtures.NewUserFixture(testfixtures.WithUserPushToken("token-a")).Persistence()
		bob := testfixtures.NewUserFixture().Persistence()
		testfixtures.Seed(t, store, testfixtures.Dataset{Users: []persistence.User{alice, bob}})

		fetched, err := store.GetUser(ctx, alice.ID)
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if fetched.Email != alice.Email || fetched.Role != "STUDENT" || fetched.PushToken == nil || *fetched.PushToken != "token-a" {
			t.Fatalf("unexpected user %#v", fetched)
		}

		if err := store.CreateUser(ctx, alice); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
		if _, err := store.GetUser(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		tokens, err := store.PushTokens(ctx, []string{alice.ID, bob.ID, "missing"})
		if err != nil {
			t.Fatalf("PushTokens failed: %v", err)
		}
		if len(tokens) != 1 || tokens[alice.ID] != "token-a" {
			t.Fatalf("expected only alice's token, got %v", tokens)
		}

		if err := store.SetPushToken(ctx, bob.ID, "token-b", base); err != nil {
			t.Fatalf("SetPushToken failed: %v", err)
		}

		cleared, err := store.ClearPushToken(ctx, bob.ID, "stale", base)
		if err != nil || cleared {
			t.Fatalf("conditional clear with stale token should not change the row: %v %v", cleared, err)
		}
		cleared, err = store.ClearPushToken(ctx, bob.ID, "token-b", base)
		if err != nil || !cleared {
			t.Fatalf("expected conditional clear, got %v %v", cleared, err)
		}
		cleared, err = store.ClearPushToken(ctx, alice.ID, "", base)
		if err != nil || !cleared {
			t.Fatalf("expected unconditional clear, got %v %v", cleared, err)
		}

		tokens, err = store.PushTokens(ctx, []string{alice.ID, bob.ID})
		if err != nil {
			t.Fatalf("PushTokens failed: %v", err)
		}
		if len(tokens) != 0 {
			t.Fatalf("expected no tokens, got %v", tokens)
		}
	})
}

func TestCourseRepository(t *testing.T) {
	t.Parallel()

	forEachStore(t, func(t *testing.T, store persistence.Store) {
		ctx := context.Background()
		active := testfixtures.NewCourseFixture(testfixtures.WithCourseID("c-a"))
		closed := testfixtures.NewCourseFixture(testfixtures.WithCourseID("c-b"), testfixtures.WithCourseInactive())
		testfixtures.Seed(t, store, testfixtures.Dataset{
			Courses: []persistence.Course{active.Persistence(), closed.Persistence()},
			Slots: []persistence.CourseSlot{
				testfixtures.NewSlotFixture("c-a", "MONDAY", "09:00", "10:30"),
				testfixtures.NewSlotFixture("c-a", "WEDNESDAY", "14:00", "15:30"),
				testfixtures.NewSlotFixture("c-b", "FRIDAY", "11:00", "12:00"),
			},
		})

		course, err := store.GetCourse(ctx, "c-b")
		if err != nil {
			t.Fatalf("GetCourse failed: %v", err)
		}
		if course.IsActive || course.Code != closed.Code {
			t.Fatalf("unexpected course %#v", course)
		}

		courses, err := store.ListCourses(ctx, []string{"c-a", "missing"})
		if err != nil {
			t.Fatalf("ListCourses failed: %v", err)
		}
		if len(courses) != 1 || courses[0].ID != "c-a" {
			t.Fatalf("unexpected courses %#v", courses)
		}

		slots, err := store.ListCourseSlots(ctx, []string{"c-a"})
		if err != nil {
			t.Fatalf("ListCourseSlots failed: %v", err)
		}
		if len(slots) != 2 {
			t.Fatalf("expected 2 slots, got %#v", slots)
		}

		orphan := testfixtures.NewSlotFixture("missing", "MONDAY", "09:00", "10:00")
		if err := store.CreateCourseSlot(ctx, orphan); !errors.Is(err, persistence.ErrForeignKeyViolation) {
			t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
		}
	})
}

func TestEnrollmentRepository(t *testing.T) {
	t.Parallel()

	forEachStore(t, func(t *testing.T, store persistence.Store) {
		ctx := context.Background()
		student := testfixtures.NewUserFixture().Persistence()
		other := testfixtures.NewUserFixture().Persistence()
		course := testfixtures.NewCourseFixture().Persistence()
		first := testfixtures.NewEnrollmentFixture(student.ID, course.ID)
		testfixtures.Seed(t, store, testfixtures.Dataset{
			Users:       []persistence.User{student, other},
			Courses:     []persistence.Course{course},
			Enrollments: []persistence.Enrollment{first, testfixtures.NewEnrollmentFixture(other.ID, course.ID)},
		})

		dropped := first
		dropped.ID = "ignored-on-update"
		dropped.Status = persistence.EnrollmentDropped
		dropped.UpdatedAt = testfixtures.ReferenceTime()
		if err := store.UpsertEnrollment(ctx, dropped); err != nil {
			t.Fatalf("UpsertEnrollment failed: %v", err)
		}

		row, err := store.GetEnrollment(ctx, student.ID, course.ID)
		if err != nil {
			t.Fatalf("GetEnrollment failed: %v", err)
		}
		if row.ID != first.ID || row.Status != persistence.EnrollmentDropped {
			t.Fatalf("expected status flip on the original row, got %#v", row)
		}
		if !row.EnrolledAt.Equal(first.EnrolledAt) {
			t.Fatalf("enrolled_at must be preserved, got %v", row.EnrolledAt)
		}

		enrolled, err := store.ListEnrollments(ctx, persistence.EnrollmentFilter{CourseID: course.ID, Status: persistence.EnrollmentEnrolled})
		if err != nil {
			t.Fatalf("ListEnrollments failed: %v", err)
		}
		if len(enrolled) != 1 || enrolled[0].UserID != other.ID {
			t.Fatalf("expected only the still enrolled user, got %#v", enrolled)
		}

		if _, err := store.GetEnrollment(ctx, "missing", course.ID); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		orphan := testfixtures.NewEnrollmentFixture("missing", course.ID)
		if err := store.UpsertEnrollment(ctx, orphan); !errors.Is(err, persistence.ErrForeignKeyViolation) {
			t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
		}
	})
}

func TestPersonalEventRepository(t *testing.T) {
	t.Parallel()

	forEachStore(t, func(t *testing.T, store persistence.Store) {
		ctx := context.Background()
		base := testfixtures.ReferenceTime()
		owner := testfixtures.NewUserFixture().Persistence()
		early := testfixtures.NewPersonalEventFixture(owner.ID, base.Add(2*time.Hour), testfixtures.WithEventLocation("Library"))
		late := testfixtures.NewPersonalEventFixture(owner.ID, base.Add(50*time.Hour), testfixtures.WithEventType("MEETING"))
		outside := testfixtures.NewPersonalEventFixture(owner.ID, base.AddDate(0, 1, 0))
		testfixtures.Seed(t, store, testfixtures.Dataset{
			Users:          []persistence.User{owner},
			PersonalEvents: []persistence.PersonalEvent{late, early, outside},
		})

		from, until := base, base.AddDate(0, 0, 7)
		events, err := store.ListPersonalEvents(ctx, persistence.PersonalEventFilter{UserID: owner.ID, StartsFrom: &from, StartsUntil: &until})
		if err != nil {
			t.Fatalf("ListPersonalEvents failed: %v", err)
		}
		if len(events) != 2 || events[0].ID != early.ID || events[1].ID != late.ID {
			t.Fatalf("expected [early late] ordered by start, got %#v", events)
		}
		if events[0].Location == nil || *events[0].Location != "Library" {
			t.Fatalf("expected location round trip, got %#v", events[0].Location)
		}
		if !events[0].StartsAt.Equal(early.StartsAt) {
			t.Fatalf("expected start %v, got %v", early.StartsAt, events[0].StartsAt)
		}

		meetings, err := store.ListPersonalEvents(ctx, persistence.PersonalEventFilter{UserID: owner.ID, EventTypes: []string{"MEETING"}})
		if err != nil {
			t.Fatalf("ListPersonalEvents failed: %v", err)
		}
		if len(meetings) != 1 || meetings[0].ID != late.ID {
			t.Fatalf("expected only the meeting, got %#v", meetings)
		}

		early.Title = "Moved"
		early.EndsAt = early.StartsAt.Add(3 * time.Hour)
		if err := store.UpdatePersonalEvent(ctx, early); err != nil {
			t.Fatalf("UpdatePersonalEvent failed: %v", err)
		}
		updated, err := store.GetPersonalEvent(ctx, early.ID)
		if err != nil {
			t.Fatalf("GetPersonalEvent failed: %v", err)
		}
		if updated.Title != "Moved" || !updated.EndsAt.Equal(early.EndsAt) {
			t.Fatalf("unexpected update %#v", updated)
		}

		inverted := early
		inverted.EndsAt = inverted.StartsAt.Add(-time.Minute)
		if err := store.UpdatePersonalEvent(ctx, inverted); !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected ErrConstraintViolation, got %v", err)
		}

		if err := store.DeletePersonalEvent(ctx, early.ID); err != nil {
			t.Fatalf("DeletePersonalEvent failed: %v", err)
		}
		if err := store.DeletePersonalEvent(ctx, early.ID); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestTaskRepository(t *testing.T) {
	t.Parallel()

	forEachStore(t, func(t *testing.T, store persistence.Store) {
		ctx := context.Background()
		base := testfixtures.ReferenceTime()
		professor := testfixtures.NewUserFixture(testfixtures.WithUserID("professor"), testfixtures.WithUserRole(application.RoleProfessor)).Persistence()
		student := testfixtures.NewUserFixture().Persistence()
		course := testfixtures.NewCourseFixture().Persistence()
		other := testfixtures.NewCourseFixture().Persistence()

		exam := testfixtures.NewTaskFixture(course.ID, base.Add(48*time.Hour), testfixtures.WithTaskType("EXAM"))
		homework := testfixtures.NewTaskFixture(course.ID, base.Add(24*time.Hour))
		past := testfixtures.NewTaskFixture(course.ID, base.Add(-time.Hour))
		quiz := testfixtures.NewTaskFixture(course.ID, base.Add(12*time.Hour), testfixtures.WithTaskType("QUIZ"))
		foreign := testfixtures.NewTaskFixture(other.ID, base.Add(time.Hour))
		personal := testfixtures.NewTaskFixture("", base.Add(72*time.Hour), testfixtures.WithTaskType("PERSONAL"), testfixtures.WithTaskCreator(student.ID))

		testfixtures.Seed(t, store, testfixtures.Dataset{
			Users:   []persistence.User{professor, student},
			Courses: []persistence.Course{course, other},
			Tasks:   []persistence.Task{exam, homework, past, quiz, foreign, personal},
		})

		tasks, err := store.ListTasks(ctx, persistence.TaskFilter{
			CourseIDs: []string{course.ID},
			CreatorID: student.ID,
			Types:     []string{"ASSIGNMENT", "EXAM", "PERSONAL"},
			DueFrom:   &base,
		})
		if err != nil {
			t.Fatalf("ListTasks failed: %v", err)
		}
		want := []string{homework.ID, exam.ID, personal.ID}
		if len(tasks) != len(want) {
			t.Fatalf("expected %v, got %#v", want, tasks)
		}
		for i, id := range want {
			if tasks[i].ID != id {
				t.Fatalf("expected %v in due order, got %s at %d", want, tasks[i].ID, i)
			}
		}

		limited, err := store.ListTasks(ctx, persistence.TaskFilter{CourseIDs: []string{course.ID}, DueFrom: &base, Limit: 1})
		if err != nil {
			t.Fatalf("ListTasks failed: %v", err)
		}
		if len(limited) != 1 || limited[0].ID != quiz.ID {
			t.Fatalf("expected the earliest task only, got %#v", limited)
		}
	})
}

func TestNotificationRepository(t *testing.T) {
	t.Parallel()

	forEachStore(t, func(t *testing.T, store persistence.Store) {
		ctx := context.Background()
		base := testfixtures.ReferenceTime()
		alice := testfixtures.NewUserFixture().Persistence()
		bob := testfixtures.NewUserFixture().Persistence()

		oldRead := testfixtures.NewNotificationFixture(alice.ID,
			testfixtures.WithNotificationCreatedAt(base.AddDate(0, 0, -40)),
			testfixtures.WithNotificationRead(base.AddDate(0, 0, -39)))
		recentRead := testfixtures.NewNotificationFixture(alice.ID,
			testfixtures.WithNotificationCreatedAt(base.Add(-time.Hour)),
			testfixtures.WithNotificationRead(base))
		unread := testfixtures.NewNotificationFixture(alice.ID,
			testfixtures.WithNotificationCreatedAt(base),
			testfixtures.WithNotificationReference("TASK", "task-1"))
		bobs := testfixtures.NewNotificationFixture(bob.ID, testfixtures.WithNotificationCreatedAt(base))

		testfixtures.Seed(t, store, testfixtures.Dataset{
			Users:         []persistence.User{alice, bob},
			Notifications: []persistence.Notification{oldRead, recentRead, unread, bobs},
		})

		list, err := store.ListNotifications(ctx, persistence.NotificationFilter{UserID: alice.ID})
		if err != nil {
			t.Fatalf("ListNotifications failed: %v", err)
		}
		if len(list) != 3 || list[0].ID != unread.ID || list[2].ID != oldRead.ID {
			t.Fatalf("expected newest first, got %#v", list)
		}
		if list[0].ReferenceType == nil || *list[0].ReferenceType != "TASK" {
			t.Fatalf("expected reference round trip, got %#v", list[0])
		}

		unreadOnly, err := store.ListNotifications(ctx, persistence.NotificationFilter{UserID: alice.ID, UnreadOnly: true, Limit: 10})
		if err != nil {
			t.Fatalf("ListNotifications failed: %v", err)
		}
		if len(unreadOnly) != 1 || unreadOnly[0].ID != unread.ID {
			t.Fatalf("expected only unread, got %#v", unreadOnly)
		}

		if err := store.MarkNotificationsPushed(ctx, []string{unread.ID}); err != nil {
			t.Fatalf("MarkNotificationsPushed failed: %v", err)
		}
		if err := store.MarkNotificationRead(ctx, bob.ID, unread.ID, base); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound for another user's notification, got %v", err)
		}
		if err := store.DeleteNotification(ctx, bob.ID, unread.ID); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound for another user's notification, got %v", err)
		}

		count, err := store.CountUnreadNotifications(ctx, alice.ID)
		if err != nil || count != 1 {
			t.Fatalf("expected 1 unread, got %d %v", count, err)
		}

		cutoff := base.AddDate(0, 0, -30)
		purged, err := store.DeleteReadNotifications(ctx, "", &cutoff)
		if err != nil {
			t.Fatalf("DeleteReadNotifications failed: %v", err)
		}
		if purged != 1 {
			t.Fatalf("expected only the old read notification purged, got %d", purged)
		}

		marked, err := store.MarkAllNotificationsRead(ctx, alice.ID, base)
		if err != nil || marked != 1 {
			t.Fatalf("expected 1 marked, got %d %v", marked, err)
		}
		list, err = store.ListNotifications(ctx, persistence.NotificationFilter{UserID: alice.ID})
		if err != nil {
			t.Fatalf("ListNotifications failed: %v", err)
		}
		if !list[0].IsPushed || !list[0].IsRead || list[0].ReadAt == nil {
			t.Fatalf("expected pushed and read, got %#v", list[0])
		}

		cleared, err := store.DeleteReadNotifications(ctx, alice.ID, nil)
		if err != nil || cleared != 2 {
			t.Fatalf("expected 2 cleared, got %d %v", cleared, err)
		}
		if remaining, _ := store.CountUnreadNotifications(ctx, bob.ID); remaining != 1 {
			t.Fatalf("bob's notification must survive, got %d", remaining)
		}
	})
}
