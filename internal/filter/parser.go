package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const monthPattern = `(jan|january|feb|february|mar|march|apr|april|may|jun|june|jul|july|aug|august|sep|sept|september|oct|october|nov|november|dec|december)`

var (
	isoRangeRe  = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})?\s*\.\.\s*(\d{4}-\d{2}-\d{2})?$`)
	isoDayRe    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	lastRe      = regexp.MustCompile(`(?i)^last\s+(\d+)\s*(d|day|days|w|week|weeks)$`)
	monthYearRe = regexp.MustCompile(`(?i)^` + monthPattern + `\s+(\d{4})$`)
	monthDaysRe = regexp.MustCompile(`(?i)^` + monthPattern + `\s+(\d{1,2})\s*-\s*(\d{1,2})$`)
	monthOnlyRe = regexp.MustCompile(`(?i)^` + monthPattern + `$`)
)

// ParseDateRange parses a date range relative to now. Bounds are inclusive:
// from is at 00:00:00 and to at 23:59:59 UTC.
//
// Supported formats:
//   - "2026-01-01..2026-02-01", "2026-01-01.." or "..2026-02-01" (open ends are nil)
//   - "2026-01-30" - a single day
//   - "last 7d", "last 2 weeks" - the trailing days up to today
//   - "Jan 2026" or "January 2026" - an entire month
//   - "Mar 1-15" - days of a month
//   - "March" - an entire month
//
// Months without a year refer to the most recent such month, so a month later
// than now's month means last year.
func ParseDateRange(input string, now time.Time) (*time.Time, *time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil, fmt.Errorf("date range cannot be empty")
	}
	now = now.UTC()

	if m := isoRangeRe.FindStringSubmatch(input); m != nil {
		if m[1] == "" && m[2] == "" {
			return nil, nil, fmt.Errorf("date range needs at least one bound")
		}
		var from, to *time.Time
		if m[1] != "" {
			d, err := parseDay(m[1])
			if err != nil {
				return nil, nil, err
			}
			from = &d
		}
		if m[2] != "" {
			d, err := parseDay(m[2])
			if err != nil {
				return nil, nil, err
			}
			end := endOfDay(d)
			to = &end
		}
		if from != nil && to != nil && from.After(*to) {
			return nil, nil, fmt.Errorf("start date must be before end date")
		}
		return from, to, nil
	}

	if isoDayRe.MatchString(input) {
		d, err := parseDay(input)
		if err != nil {
			return nil, nil, err
		}
		end := endOfDay(d)
		return &d, &end, nil
	}

	if m := lastRe.FindStringSubmatch(input); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			return nil, nil, fmt.Errorf("invalid count: %s", m[1])
		}
		days := n
		if strings.HasPrefix(strings.ToLower(m[2]), "w") {
			days = n * 7
		}
		today := startOfDay(now)
		from := today.AddDate(0, 0, -(days - 1))
		to := endOfDay(today)
		return &from, &to, nil
	}

	if m := monthYearRe.FindStringSubmatch(input); m != nil {
		year, _ := strconv.Atoi(m[2])
		from, to := monthBounds(year, parseMonth(m[1]))
		return &from, &to, nil
	}

	if m := monthDaysRe.FindStringSubmatch(input); m != nil {
		month := parseMonth(m[1])
		day1, _ := strconv.Atoi(m[2])
		day2, _ := strconv.Atoi(m[3])
		if day1 < 1 || day1 > 31 || day2 < 1 || day2 > 31 {
			return nil, nil, fmt.Errorf("invalid day range: %s-%s", m[2], m[3])
		}

		year := yearForMonth(month, now)
		from := time.Date(year, month, day1, 0, 0, 0, 0, time.UTC)
		to := endOfDay(time.Date(year, month, day2, 0, 0, 0, 0, time.UTC))
		if from.After(to) {
			return nil, nil, fmt.Errorf("start date must be before end date")
		}
		return &from, &to, nil
	}

	if m := monthOnlyRe.FindStringSubmatch(input); m != nil {
		month := parseMonth(m[1])
		from, to := monthBounds(yearForMonth(month, now), month)
		return &from, &to, nil
	}

	return nil, nil, fmt.Errorf("invalid date range %q. Use '2026-01-01..2026-02-01', 'last 7d', 'Jan 2026', 'Mar 1-15' or 'March'", input)
}

func parseDay(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}

func monthBounds(year int, month time.Month) (time.Time, time.Time) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	// Day 0 of the next month is the last day of this one
	to := endOfDay(time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC))
	return from, to
}

// parseMonth converts a month name to time.Month
func parseMonth(name string) time.Month {
	name = strings.ToLower(strings.TrimSpace(name))

	months := map[string]time.Month{
		"jan": time.January, "january": time.January,
		"feb": time.February, "february": time.February,
		"mar": time.March, "march": time.March,
		"apr": time.April, "april": time.April,
		"may": time.May,
		"jun": time.June, "june": time.June,
		"jul": time.July, "july": time.July,
		"aug": time.August, "august": time.August,
		"sep": time.September, "sept": time.September, "september": time.September,
		"oct": time.October, "october": time.October,
		"nov": time.November, "november": time.November,
		"dec": time.December, "december": time.December,
	}

	return months[name]
}

// yearForMonth returns the year of the most recent occurrence of month
func yearForMonth(month time.Month, now time.Time) int {
	if month > now.Month() {
		return now.Year() - 1
	}
	return now.Year()
}
