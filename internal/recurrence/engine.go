package recurrence

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Weekday is one of the seven canonical uppercase weekday names used by course slots.
type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
	Saturday  Weekday = "SATURDAY"
	Sunday    Weekday = "SUNDAY"
)

var weekdayIndex = map[Weekday]time.Weekday{
	Sunday:    time.Sunday,
	Monday:    time.Monday,
	Tuesday:   time.Tuesday,
	Wednesday: time.Wednesday,
	Thursday:  time.Thursday,
	Friday:    time.Friday,
	Saturday:  time.Saturday,
}

// DateLayout is the calendar-day format used in occurrence identifiers.
const DateLayout = "2006-01-02"

var (
	// ErrInvalidWeekday indicates a slot day is not one of the canonical weekday names.
	ErrInvalidWeekday = errors.New("recurrence: invalid weekday")
	// ErrInvalidTime indicates a slot time is not a zero-padded 24-hour "HH:MM" string.
	ErrInvalidTime = errors.New("recurrence: invalid time of day")
	// ErrInvalidRange indicates the range end falls on a day before the range start.
	ErrInvalidRange = errors.New("recurrence: range end precedes range start")
)

// occurrenceNamespace seeds name-based occurrence identifiers.
var occurrenceNamespace = uuid.MustParse("6f1c7a52-3b0e-5d8e-9a41-2c7f0b9d4e13")

// ParseWeekday validates a canonical weekday name.
func ParseWeekday(value string) (Weekday, error) {
	day := Weekday(strings.TrimSpace(value))
	if _, ok := weekdayIndex[day]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidWeekday, value)
	}
	return day, nil
}

// Time converts the weekday name to its time.Weekday counterpart.
func (d Weekday) Time() (time.Weekday, bool) {
	wd, ok := weekdayIndex[d]
	return wd, ok
}

// WeekdayOf returns the canonical weekday name of t.
func WeekdayOf(t time.Time) Weekday {
	for name, wd := range weekdayIndex {
		if wd == t.Weekday() {
			return name
		}
	}
	return ""
}

// ClockTime is a wall-clock time of day with minute precision.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses a zero-padded "HH:MM" string in 24-hour notation.
func ParseClockTime(value string) (ClockTime, error) {
	if len(value) != 5 || value[2] != ':' {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	hour, okH := twoDigits(value[0], value[1])
	minute, okM := twoDigits(value[3], value[4])
	if !okH || !okM || hour > 23 || minute > 59 {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// String formats the clock time as "HH:MM".
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On places the clock time on the calendar day of date in loc.
func (c ClockTime) On(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.In(loc).Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, loc)
}

// Slot is a weekly recurring time block attached to a course.
type Slot struct {
	ID        string
	CourseID  string
	DayOfWeek Weekday
	StartTime string
	EndTime   string
	Location  string
}

// FieldError reports which slot attribute failed validation.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Validate checks the weekday and both times. A slot whose end precedes its
// start is accepted and expands into inverted intervals.
func (s Slot) Validate() error {
	if _, err := ParseWeekday(string(s.DayOfWeek)); err != nil {
		return &FieldError{Field: "day_of_week", Err: err}
	}
	if _, err := ParseClockTime(s.StartTime); err != nil {
		return &FieldError{Field: "start_time", Err: err}
	}
	if _, err := ParseClockTime(s.EndTime); err != nil {
		return &FieldError{Field: "end_time", Err: err}
	}
	return nil
}

// Occurrence is one dated instance of a slot.
type Occurrence struct {
	ID       string
	SlotID   string
	CourseID string
	Date     string
	Start    time.Time
	End      time.Time
	Location string
}

// OccurrenceID derives the identifier of the occurrence of slotID on date.
// The result depends only on its inputs.
func OccurrenceID(courseID, slotID string, date time.Time) string {
	name := courseID + "/" + slotID + "/" + date.Format(DateLayout)
	return uuid.NewSHA1(occurrenceNamespace, []byte(name)).String()
}

// Engine expands weekly slots into dated occurrences.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that interprets slot times and range days in loc.
// If loc is nil, UTC is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc}
}

// Location reports the zone the engine interprets wall-clock times in.
func (e *Engine) Location() *time.Location {
	if e == nil || e.location == nil {
		return time.UTC
	}
	return e.location
}

// Expand returns one occurrence for every calendar day in [rangeStart, rangeEnd]
// whose weekday equals the slot's day. Both bounds are reduced to calendar days
// in the engine's location and are inclusive.
func (e *Engine) Expand(slot Slot, rangeStart, rangeEnd time.Time) ([]Occurrence, error) {
	if err := slot.Validate(); err != nil {
		return nil, err
	}
	loc := e.Location()

	first := StartOfDay(rangeStart, loc)
	last := StartOfDay(rangeEnd, loc)
	if last.Before(first) {
		return nil, ErrInvalidRange
	}

	target, _ := slot.DayOfWeek.Time()
	start, _ := ParseClockTime(slot.StartTime)
	end, _ := ParseClockTime(slot.EndTime)

	offset := (int(target) - int(first.Weekday()) + 7) % 7
	occurrences := make([]Occurrence, 0, int(last.Sub(first).Hours()/24)/7+1)
	for day := first.AddDate(0, 0, offset); !day.After(last); day = day.AddDate(0, 0, 7) {
		occurrences = append(occurrences, Occurrence{
			ID:       OccurrenceID(slot.CourseID, slot.ID, day),
			SlotID:   slot.ID,
			CourseID: slot.CourseID,
			Date:     day.Format(DateLayout),
			Start:    start.On(day, loc),
			End:      end.On(day, loc),
			Location: slot.Location,
		})
	}

	return occurrences, nil
}

// ExpandAll expands every slot over the range and orders the result by start.
func (e *Engine) ExpandAll(slots []Slot, rangeStart, rangeEnd time.Time) ([]Occurrence, error) {
	all := make([]Occurrence, 0)
	for _, slot := range slots {
		occurrences, err := e.Expand(slot, rangeStart, rangeEnd)
		if err != nil {
			return nil, fmt.Errorf("slot %s: %w", slot.ID, err)
		}
		all = append(all, occurrences...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Start.Equal(all[j].Start) {
			return all[i].ID < all[j].ID
		}
		return all[i].Start.Before(all[j].Start)
	})
	return all, nil
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
