package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
	if ReferenceTime().Weekday() != time.Monday {
		t.Fatalf("reference time should be a Monday, got %s", ReferenceTime().Weekday())
	}
}

func TestClockAdvanceAndSet(t *testing.T) {
	start := time.Date(2024, time.March, 14, 9, 26, 0, 0, time.UTC)
	clock := NewClock(start)

	updated := clock.Advance(90 * time.Minute)
	if !updated.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("advance returned %v", updated)
	}

	if got := clock.AdvanceDays(2); !got.Equal(start.Add(90*time.Minute).AddDate(0, 0, 2)) {
		t.Fatalf("advance days returned %v", got)
	}

	target := time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)
	clock.Set(target)
	if !clock.NowFunc()().Equal(target) {
		t.Fatalf("expected %v after Set, got %v", target, clock.Now())
	}
}
