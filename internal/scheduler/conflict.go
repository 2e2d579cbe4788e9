package scheduler

// Conflict pairs two timed events whose intervals overlap.
type Conflict struct {
	EventID      string
	WithEventID  string
	Category     Category
	WithCategory Category
}

// DetectOverlaps reports every pair of timed events whose intervals intersect.
// All-day events, zero-length deadlines and inverted intervals are ignored.
// The input must already be ordered by start; Merge output satisfies this.
func DetectOverlaps(events []Event) []Conflict {
	timed := make([]Event, 0, len(events))
	for _, event := range events {
		if event.IsAllDay || !event.End.After(event.Start) {
			continue
		}
		timed = append(timed, event)
	}

	var conflicts []Conflict
	for i := range timed {
		for j := i + 1; j < len(timed); j++ {
			if !timed[j].Start.Before(timed[i].End) {
				break
			}
			conflicts = append(conflicts, Conflict{
				EventID:      timed[i].ID,
				WithEventID:  timed[j].ID,
				Category:     timed[i].Category,
				WithCategory: timed[j].Category,
			})
		}
	}
	return conflicts
}
