package scraper

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"eventhub/pkg/models"
)

// English and Portuguese month names, abbreviated and in full.
var monthsByName = map[string]time.Month{
	"janeiro": time.January, "january": time.January,
	"fevereiro": time.February, "february": time.February,
	"março": time.March, "marco": time.March, "march": time.March,
	"abril": time.April, "april": time.April,
	"maio":  time.May,
	"junho": time.June, "june": time.June,
	"julho": time.July, "july": time.July,
	"agosto": time.August, "august": time.August,
	"setembro": time.September, "september": time.September, "sept": time.September,
	"outubro": time.October, "october": time.October,
	"novembro": time.November, "november": time.November,
	"dezembro": time.December, "december": time.December,

	"jan": time.January,
	"fev": time.February, "feb": time.February,
	"mar": time.March,
	"abr": time.April, "apr": time.April,
	"mai": time.May, "may": time.May,
	"jun": time.June,
	"jul": time.July,
	"ago": time.August, "aug": time.August,
	"set": time.September, "sep": time.September,
	"out": time.October, "oct": time.October,
	"nov": time.November,
	"dez": time.December, "dec": time.December,
}

// monthFromWord accepts a month only when word is a whole month name or its
// three-letter abbreviation, so "setores" is not September.
func monthFromWord(word string) (time.Month, bool) {
	m, ok := monthsByName[strings.TrimSuffix(word, ".")]
	return m, ok
}

var (
	numericDateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{4}))?\b`)
	dayMonthRe    = regexp.MustCompile(`\b(\d{1,2})\s*(?:de\s+)?(\pL+)\.?(?:\s*(?:de\s+|,\s*)(\d{4})\b)?`)
	monthDayRe    = regexp.MustCompile(`(?:^|[^\pL])(\pL+)\.?\s+(\d{1,2})\b(?:,?\s+(\d{4})\b)?`)
)

// EventDate renders the best guess for an event's calendar date as
// dd-mm-yyyy. An explicit year is kept; dates without one are placed on or
// after today. Anything unparseable falls back to today.
func EventDate(startDate, when string, now time.Time) string {
	for _, text := range []string{startDate, when} {
		if d, ok := parseLooseDate(text, now); ok {
			return d.Format(models.DateLayout)
		}
	}
	return now.Format(models.DateLayout)
}

func parseLooseDate(text string, now time.Time) (time.Time, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return time.Time{}, false
	}

	if m := numericDateRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year := 0
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		if d, ok := buildDate(year, time.Month(month), day, now); ok {
			return d, true
		}
	}

	for _, m := range dayMonthRe.FindAllStringSubmatch(text, -1) {
		month, ok := monthFromWord(m[2])
		if !ok {
			continue
		}
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		if d, ok := buildDate(year, month, day, now); ok {
			return d, true
		}
	}

	for _, m := range monthDayRe.FindAllStringSubmatch(text, -1) {
		month, ok := monthFromWord(m[1])
		if !ok {
			continue
		}
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if d, ok := buildDate(year, month, day, now); ok {
			return d, true
		}
	}

	return time.Time{}, false
}

func buildDate(year int, month time.Month, day int, now time.Time) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	explicitYear := year != 0
	if !explicitYear {
		year = now.Year()
	}

	d := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	if d.Day() != day {
		return time.Time{}, false
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if !explicitYear && d.Before(today) {
		d = d.AddDate(1, 0, 0)
	}
	return d, true
}
