package application

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/example/college-admin/internal/recurrence"
)

const (
	defaultSlotCacheTTL  = 5 * time.Minute
	defaultSlotCacheSize = 512
)

// SlotCache keeps recently loaded weekly slots per course so repeated
// schedule reads do not hit the store for every enrolled course.
type SlotCache struct {
	entries *expirable.LRU[string, []recurrence.Slot]
}

// NewSlotCache builds a cache holding at most size courses for ttl each.
func NewSlotCache(size int, ttl time.Duration) *SlotCache {
	if size <= 0 {
		size = defaultSlotCacheSize
	}
	if ttl <= 0 {
		ttl = defaultSlotCacheTTL
	}
	return &SlotCache{entries: expirable.NewLRU[string, []recurrence.Slot](size, nil, ttl)}
}

// Slots returns the slots of every course in courseIDs, loading the ones not
// cached with a single catalog call. A nil cache always loads.
func (c *SlotCache) Slots(ctx context.Context, catalog CourseCatalog, courseIDs []string) ([]recurrence.Slot, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	if c == nil {
		return catalog.ListSlots(ctx, courseIDs)
	}

	slots := make([]recurrence.Slot, 0)
	misses := make([]string, 0)
	for _, id := range courseIDs {
		if cached, ok := c.entries.Get(id); ok {
			slots = append(slots, cached...)
			continue
		}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return slots, nil
	}

	loaded, err := catalog.ListSlots(ctx, misses)
	if err != nil {
		return nil, err
	}

	byCourse := make(map[string][]recurrence.Slot, len(misses))
	for _, id := range misses {
		byCourse[id] = nil
	}
	for _, slot := range loaded {
		byCourse[slot.CourseID] = append(byCourse[slot.CourseID], slot)
	}
	for id, courseSlots := range byCourse {
		c.entries.Add(id, cloneSlots(courseSlots))
	}

	return append(slots, loaded...), nil
}

// Invalidate drops the cached slots of courseID.
func (c *SlotCache) Invalidate(courseID string) {
	if c != nil {
		c.entries.Remove(courseID)
	}
}

// Purge drops every cached entry.
func (c *SlotCache) Purge() {
	if c != nil {
		c.entries.Purge()
	}
}

func cloneSlots(slots []recurrence.Slot) []recurrence.Slot {
	if len(slots) == 0 {
		return nil
	}
	out := make([]recurrence.Slot, len(slots))
	copy(out, slots)
	return out
}
