package scraper

import (
	"fmt"
	"strconv"

	"eventhub/pkg/models"
)

// NextID returns 1 + the largest numeric id in existing, or 1 when none
// parses.
func NextID(existing []models.Event) int {
	max := 0
	for _, e := range existing {
		n, err := strconv.Atoi(e.ID)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1
}

// FormatID renders n zero-padded to three digits; wider numbers keep all
// their digits.
func FormatID(n int) string {
	return fmt.Sprintf("%03d", n)
}

// Allocator hands out consecutive ids starting from the store maximum
// observed when it was created.
type Allocator struct {
	next int
}

func NewAllocator(existing []models.Event) *Allocator {
	return &Allocator{next: NextID(existing)}
}

func (a *Allocator) Next() string {
	id := FormatID(a.next)
	a.next++
	return id
}

// Assign stamps ids on events in order, in place, and returns the slice.
func (a *Allocator) Assign(events []models.Event) []models.Event {
	for i := range events {
		events[i].ID = a.Next()
	}
	return events
}
