package scraper

import (
	"strings"

	"eventhub/pkg/models"
)

// NameKey is the dedup key of an event: its name, trimmed and case-folded.
// No fuzzy matching and no date component.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Deduplicator rejects candidates whose name already exists in the store or
// was accepted earlier in the same run.
type Deduplicator struct {
	seen map[string]struct{}
}

func NewDeduplicator(existing []models.Event) *Deduplicator {
	d := &Deduplicator{seen: make(map[string]struct{}, len(existing))}
	for _, e := range existing {
		key := NameKey(e.Name)
		if key == "" {
			continue
		}
		d.seen[key] = struct{}{}
	}
	return d
}

// Accept reports whether ev is new and, if so, remembers its name.
func (d *Deduplicator) Accept(ev models.Event) bool {
	key := NameKey(ev.Name)
	if _, dup := d.seen[key]; dup {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// Filter returns the accepted subsequence of candidates, order preserved.
func (d *Deduplicator) Filter(candidates []models.Event) []models.Event {
	accepted := make([]models.Event, 0, len(candidates))
	for _, c := range candidates {
		if d.Accept(c) {
			accepted = append(accepted, c)
		}
	}
	return accepted
}
