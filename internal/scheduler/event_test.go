package scheduler

import (
	"testing"
	"time"
)

func TestMerge(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC)

	t.Run("orders mixed sources by start time", func(t *testing.T) {
		t.Parallel()

		courses := []Event{
			{ID: "c2", Category: CategoryCourseOccurrence, Title: "CS101: Intro", Start: base.AddDate(0, 0, 2)},
			{ID: "c1", Category: CategoryCourseOccurrence, Title: "CS101: Intro", Start: base},
		}
		personal := []Event{{ID: "p1", Category: CategoryPersonalEvent, Title: "Gym", Start: base.AddDate(0, 0, 1)}}
		tasks := []Event{{ID: "t1", Category: CategoryTaskDeadline, Title: "Essay", Start: base.Add(-time.Hour)}}

		merged := Merge(courses, personal, tasks)
		want := []string{"t1", "c1", "p1", "c2"}
		if len(merged) != len(want) {
			t.Fatalf("expected %d events, got %d", len(want), len(merged))
		}
		for i, id := range want {
			if merged[i].ID != id {
				t.Fatalf("position %d: expected %s, got %s", i, id, merged[i].ID)
			}
		}
		for i := 1; i < len(merged); i++ {
			if merged[i].Start.Before(merged[i-1].Start) {
				t.Fatalf("events not sorted by start at %d", i)
			}
		}
	})

	t.Run("breaks ties by category then title then id", func(t *testing.T) {
		t.Parallel()

		merged := Merge([]Event{
			{ID: "task", Category: CategoryTaskDeadline, Title: "A", Start: base},
			{ID: "personal-b", Category: CategoryPersonalEvent, Title: "B", Start: base},
			{ID: "personal-a2", Category: CategoryPersonalEvent, Title: "A", Start: base},
			{ID: "personal-a1", Category: CategoryPersonalEvent, Title: "A", Start: base},
			{ID: "course", Category: CategoryCourseOccurrence, Title: "Z", Start: base},
		})

		want := []string{"course", "personal-a1", "personal-a2", "personal-b", "task"}
		for i, id := range want {
			if merged[i].ID != id {
				t.Fatalf("position %d: expected %s, got %s", i, id, merged[i].ID)
			}
		}
	})

	t.Run("empty input yields empty output", func(t *testing.T) {
		t.Parallel()

		if merged := Merge(nil, nil); len(merged) != 0 {
			t.Fatalf("expected no events, got %d", len(merged))
		}
	})
}

func TestParseEventType(t *testing.T) {
	t.Parallel()

	if got, ok := ParseEventType("OFFICE_HOURS"); !ok || got != EventTypeOfficeHours {
		t.Fatalf("expected OFFICE_HOURS to parse, got %q %v", got, ok)
	}
	if _, ok := ParseEventType("party"); ok {
		t.Fatalf("expected unknown type to be rejected")
	}
}
