package scraper

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"eventhub/pkg/models"
)

const fallbackDescriptionPrefix = "Evento sugerido (demonstração). "

// Placeholder is one curated entry of the fallback catalog.
type Placeholder struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Location    string `yaml:"location"`
	Time        string `yaml:"time"`
	Category    string `yaml:"category"`
	Link        string `yaml:"link"`
}

// DefaultCatalog is used when no catalog file is configured.
func DefaultCatalog() []Placeholder {
	return []Placeholder{
		{
			Name:        "Circuito do Frevo no Recife Antigo",
			Description: "Apresentações de frevo e passistas pelas ruas do Bairro do Recife, com orquestras ao vivo.",
			Location:    "Rua do Bom Jesus, Recife",
			Time:        "16:00",
			Category:    "Cultura",
		},
		{
			Name:        "Feira de Artesanato do Marco Zero",
			Description: "Artesãos locais expõem peças em barro, madeira e renda na praça do Marco Zero.",
			Location:    "Praça do Marco Zero, Recife",
			Time:        "10:00 às 18:00",
			Category:    "Feira",
		},
		{
			Name:        "Noite de Forró no Pátio de São Pedro",
			Description: "Trios de forró pé de serra animam o Pátio de São Pedro, no coração de Santo Antônio.",
			Location:    "Pátio de São Pedro, Recife",
			Time:        "20:00",
			Category:    "Música",
		},
	}
}

// LoadCatalog reads a YAML list of placeholders. An empty path yields the
// built-in catalog.
func LoadCatalog(path string) ([]Placeholder, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var catalog []Placeholder
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	for i, p := range catalog {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("catalog %s: entry %d has no name", path, i)
		}
	}
	return catalog, nil
}

// FallbackGenerator produces demo events so a run never comes back empty
// when the upstream had nothing new.
type FallbackGenerator struct {
	Catalog         []Placeholder
	DescriptionCap  int
	DefaultLocation string
}

func NewFallbackGenerator(catalog []Placeholder) *FallbackGenerator {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &FallbackGenerator{
		Catalog:         catalog,
		DescriptionCap:  DefaultDescriptionCap,
		DefaultLocation: DefaultLocation,
	}
}

// Generate returns one event per catalog entry, without ids. The k-th entry
// (1-based) is dated today+k; isFree alternates starting with true.
func (g *FallbackGenerator) Generate(now time.Time) []models.Event {
	limit := g.DescriptionCap
	if limit <= 0 {
		limit = DefaultDescriptionCap
	}

	out := make([]models.Event, 0, len(g.Catalog))
	for i, p := range g.Catalog {
		location := p.Location
		if location == "" {
			location = g.DefaultLocation
		}
		if location == "" {
			location = DefaultLocation
		}
		link := p.Link
		if link == "" {
			link = PlaceholderLink
		}
		schedule := p.Time
		if schedule == "" {
			schedule = PlaceholderSchedule
		}
		description := p.Description
		if description == "" {
			description = PlaceholderDescription
		}

		out = append(out, models.Event{
			Name:        p.Name,
			Description: truncateRunes(fallbackDescriptionPrefix+description, limit, ellipsis),
			Date:        now.AddDate(0, 0, i+1).Format(models.DateLayout),
			Location:    location,
			Time:        schedule,
			IsFree:      i%2 == 0,
			Category:    p.Category,
			Link:        link,
		})
	}
	return out
}
