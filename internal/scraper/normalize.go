package scraper

import (
	"strings"
	"time"

	"eventhub/pkg/models"
)

// Placeholders stored when the upstream omits a field.
const (
	PlaceholderName        = "Evento sem nome"
	PlaceholderDescription = "Sem descrição disponível."
	PlaceholderSchedule    = "Data a confirmar"
	PlaceholderLink        = "#"
	DefaultLocation        = "Recife"
	DefaultDescriptionCap  = 150
	ellipsis               = "..."
)

// Normalizer maps a RawRecord into a candidate Event (no ID yet).
type Normalizer struct {
	Category        string
	DescriptionCap  int
	DefaultLocation string
}

func (n Normalizer) Normalize(raw RawRecord, now time.Time) models.Event {
	name := strings.TrimSpace(raw.Title)
	if name == "" {
		name = PlaceholderName
	}

	description := strings.TrimSpace(raw.Description)
	if description == "" {
		description = PlaceholderDescription
	}

	schedule := strings.TrimSpace(raw.When)
	if schedule == "" {
		schedule = PlaceholderSchedule
	}

	location := ""
	if len(raw.Address) > 0 {
		location = strings.TrimSpace(raw.Address[0])
	}
	if location == "" {
		location = n.defaultLocation()
	}

	link := strings.TrimSpace(raw.Link)
	if link == "" {
		link = PlaceholderLink
	}

	return models.Event{
		Name:        name,
		Description: truncateRunes(description, n.descriptionCap(), ellipsis),
		Date:        EventDate(raw.StartDate, raw.When, now),
		Location:    location,
		Time:        schedule,
		IsFree:      false,
		Category:    n.Category,
		Link:        link,
	}
}

func (n Normalizer) descriptionCap() int {
	if n.DescriptionCap <= 0 {
		return DefaultDescriptionCap
	}
	return n.DescriptionCap
}

func (n Normalizer) defaultLocation() string {
	if n.DefaultLocation == "" {
		return DefaultLocation
	}
	return n.DefaultLocation
}

// truncateRunes cuts s to max runes and appends marker when it had to cut.
func truncateRunes(s string, max int, marker string) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + marker
}
