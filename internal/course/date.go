package course

import (
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"2 January 2006",
	"02 January 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"Monday, 2 January 2006",
	"Mon, 2 Jan 2006",
	"02/01/2006",
}

// ParseDate attempts to parse announcement date text into a time.Time.
// Returns time.Time{} (zero value) if parsing fails or the date is unknown.
// Supports formats: "2026-01-30", "30-01-2026", "30 January 2026", "Jan 30, 2026"
// and a few weekday-prefixed variants.
func ParseDate(dateText string) time.Time {
	dateText = strings.Join(strings.Fields(dateText), " ")
	if dateText == "" || dateText == UnknownDate {
		return time.Time{}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, dateText); err == nil {
			return t
		}
	}

	// Pages sometimes append a time ("30 January 2026 10:15 AM"); retry on the first
	// three words.
	if words := strings.Fields(dateText); len(words) > 3 {
		return ParseDate(strings.Join(words[:3], " "))
	}

	return time.Time{}
}

// FormatDateNice renders a parseable date as "Fri, Jan 30 2026" and returns
// anything else unchanged.
func FormatDateNice(dateText string) string {
	t := ParseDate(dateText)
	if t.IsZero() {
		return dateText
	}
	return t.Format("Mon, Jan 2 2006")
}
