package scraper

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackGenerator_Generate(t *testing.T) {
	got := NewFallbackGenerator(nil).Generate(testNow)

	require.Len(t, got, 3)
	wantDates := []string{"19-10-2026", "20-10-2026", "21-10-2026"}
	wantFree := []bool{true, false, true}
	for i, ev := range got {
		assert.Empty(t, ev.ID)
		assert.Equal(t, wantDates[i], ev.Date)
		assert.Equal(t, wantFree[i], ev.IsFree)
		assert.True(t, strings.HasPrefix(ev.Description, "Evento sugerido (demonstração). "))
		assert.LessOrEqual(t, len([]rune(ev.Description)), 153)
		assert.NotEmpty(t, ev.Location)
		assert.Equal(t, PlaceholderLink, ev.Link)
		assert.False(t, ev.Saved)
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- name: Maracatu no Pátio do Terço
  category: Cultura
  time: "19:00"
- name: Cinema na Praça
  location: Praça de Casa Forte
  link: https://example.com/cinema
`), 0o644))

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, catalog, 2)

	g := NewFallbackGenerator(catalog)
	got := g.Generate(testNow)
	assert.Equal(t, "Recife", got[0].Location)
	assert.Equal(t, "19:00", got[0].Time)
	assert.Equal(t, "Data a confirmar", got[1].Time)
	assert.Equal(t, "https://example.com/cinema", got[1].Link)
}

func TestLoadCatalog_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadCatalog(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("- description: no name\n"), 0o644))
	_, err = LoadCatalog(bad)
	assert.ErrorContains(t, err, "has no name")

	def, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Equal(t, DefaultCatalog(), def)
}
