// Package calendar renders a materialized schedule as an iCalendar feed so
// students can subscribe from their phone or desktop calendar.
package calendar

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/example/college-admin/internal/scheduler"
)

const productID = "-//College Admin//Schedule//EN"

// Options controls feed metadata.
type Options struct {
	// Name is shown by clients as the calendar title.
	Name string
	// Location fixes the calendar day of all-day events. Defaults to UTC.
	Location *time.Location
	// Stamp is written as DTSTAMP on every event. Defaults to the current time.
	Stamp time.Time
}

// Encode writes events as one VCALENDAR with a VEVENT per event.
func Encode(w io.Writer, events []scheduler.Event, opts Options) error {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Stamp.IsZero() {
		opts.Stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	if opts.Name != "" {
		cal.Props.Set(extensionProp("X-WR-CALNAME", opts.Name))
	}

	// A VCALENDAR needs at least one component, so the zone is always present
	// and an empty schedule still encodes.
	cal.Children = append(cal.Children, timezone(opts.Location, opts.Stamp))
	for _, event := range events {
		cal.Children = append(cal.Children, toVEvent(event, opts).Component)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

func toVEvent(event scheduler.Event, opts Options) *ical.Event {
	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, event.ID)
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, opts.Stamp.UTC())
	vevent.Props.SetText(ical.PropSummary, event.Title)
	vevent.Props.SetText(ical.PropCategories, string(event.Category))

	if event.Description != "" {
		vevent.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.Location != "" {
		vevent.Props.SetText(ical.PropLocation, event.Location)
	}

	if event.IsAllDay {
		start := event.Start.In(opts.Location)
		end := event.End.In(opts.Location)
		vevent.Props.SetDate(ical.PropDateTimeStart, start)
		// DTEND of a DATE event is exclusive.
		last := end
		if !end.After(start) {
			last = start
		}
		vevent.Props.SetDate(ical.PropDateTimeEnd, dayAfter(last))
		return vevent
	}

	vevent.Props.SetDateTime(ical.PropDateTimeStart, event.Start.UTC())
	if event.End.After(event.Start) {
		vevent.Props.SetDateTime(ical.PropDateTimeEnd, event.End.UTC())
	}
	return vevent
}

// extensionProp builds an X- property without the VALUE=TEXT parameter
// SetText adds to names it has no default type for.
func extensionProp(name, value string) *ical.Prop {
	prop := ical.NewProp(name)
	prop.SetText(value)
	prop.Params.Del(ical.ParamValue)
	return prop
}

// timezone describes loc with a single STANDARD rule using its offset at t.
func timezone(loc *time.Location, t time.Time) *ical.Component {
	_, offset := t.In(loc).Zone()
	utcOffset := formatOffset(offset)

	standard := ical.NewComponent(ical.CompTimezoneStandard)
	start := ical.NewProp(ical.PropDateTimeStart)
	start.Value = "19700101T000000"
	standard.Props.Set(start)
	for _, name := range []string{ical.PropTimezoneOffsetFrom, ical.PropTimezoneOffsetTo} {
		prop := ical.NewProp(name)
		prop.Value = utcOffset
		standard.Props.Set(prop)
	}

	zone := ical.NewComponent(ical.CompTimezone)
	zone.Props.SetText(ical.PropTimezoneID, loc.String())
	zone.Children = append(zone.Children, standard)
	return zone
}

func formatOffset(seconds int) string {
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	return fmt.Sprintf("%c%02d%02d", sign, seconds/3600, seconds%3600/60)
}

func dayAfter(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
