package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"eventhub/pkg/models"
)

// CSVHeader is the column order written by WriteCSV. ReadCSV matches
// columns by name, so extra or reordered columns are fine.
var CSVHeader = []string{"id", "name", "description", "date", "location", "time", "isFree", "category", "link", "saved"}

func WriteCSV(w io.Writer, events []models.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, ev := range events {
		if err := cw.Write([]string{
			ev.ID,
			ev.Name,
			ev.Description,
			ev.Date,
			ev.Location,
			ev.Time,
			strconv.FormatBool(ev.IsFree),
			ev.Category,
			ev.Link,
			strconv.FormatBool(ev.Saved),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses rows written by WriteCSV. Rows without a name are skipped;
// an empty id is kept empty for the caller to allocate.
func ReadCSV(r io.Reader) ([]models.Event, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []models.Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["name"]; !ok {
		return nil, errors.New("csv: missing name column")
	}

	get := func(row []string, name string) string {
		i, ok := cols[strings.ToLower(name)]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	getBool := func(row []string, name string, line int) (bool, error) {
		v := get(row, name)
		if v == "" {
			return false, nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("csv line %d: %s: %w", line, name, err)
		}
		return b, nil
	}

	out := []models.Event{}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		ev := models.Event{
			ID:          get(row, "id"),
			Name:        get(row, "name"),
			Description: get(row, "description"),
			Date:        get(row, "date"),
			Location:    get(row, "location"),
			Time:        get(row, "time"),
			Category:    get(row, "category"),
			Link:        get(row, "link"),
		}
		if ev.Name == "" {
			continue
		}
		if ev.IsFree, err = getBool(row, "isFree", line); err != nil {
			return nil, err
		}
		if ev.Saved, err = getBool(row, "saved", line); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}
