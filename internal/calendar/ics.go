// Package calendar renders course announcements as an iCalendar feed.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/tashifkhan/MOOC-utils/internal/course"
)

const (
	prodID     = "-//MOOC Notices//mooc-notices//EN"
	uidDomain  = "mooc-notices"
	lineOctets = 75
)

// Dated returns the announcements whose date can be parsed, in input order
func Dated(anns []course.Announcement) []course.Announcement {
	dated := make([]course.Announcement, 0, len(anns))
	for _, a := range anns {
		if !course.ParseDate(a.Date).IsZero() {
			dated = append(dated, a)
		}
	}
	return dated
}

// GenerateICS generates an iCalendar feed with one all-day event per dated
// announcement of a course. Announcements without a parseable date are skipped.
func GenerateICS(c course.Course, anns []course.Announcement, now time.Time) string {
	var ics strings.Builder

	writeLine(&ics, "BEGIN:VCALENDAR")
	writeLine(&ics, "VERSION:2.0")
	writeLine(&ics, "PRODID:"+prodID)
	writeLine(&ics, "CALSCALE:GREGORIAN")
	writeLine(&ics, "METHOD:PUBLISH")
	writeLine(&ics, "X-WR-CALNAME:"+escapeICS(calendarName(c)))

	stamp := formatICSTime(now)
	for _, a := range Dated(anns) {
		day := course.ParseDate(a.Date)

		writeLine(&ics, "BEGIN:VEVENT")
		writeLine(&ics, fmt.Sprintf("UID:%s@%s", course.GenerateID(c.Code, a), uidDomain))
		writeLine(&ics, "DTSTAMP:"+stamp)
		writeLine(&ics, "DTSTART;VALUE=DATE:"+day.Format("20060102"))
		writeLine(&ics, "DTEND;VALUE=DATE:"+day.AddDate(0, 0, 1).Format("20060102"))
		writeLine(&ics, "SUMMARY:"+escapeICS(a.Title))

		description := a.Content
		if c.Title != "" && c.Title != course.UnknownTitle {
			description = strings.TrimSpace(c.Title + "\n\n" + description)
		}
		if description != "" {
			writeLine(&ics, "DESCRIPTION:"+escapeICS(description))
		}
		if link := c.Link(); link != "" {
			writeLine(&ics, "URL:"+link)
		}
		writeLine(&ics, "TRANSP:TRANSPARENT")
		writeLine(&ics, "END:VEVENT")
	}

	writeLine(&ics, "END:VCALENDAR")

	return ics.String()
}

func calendarName(c course.Course) string {
	if c.Title == "" || c.Title == course.UnknownTitle {
		return c.Code + " announcements"
	}
	return c.Title + " announcements"
}

// writeLine writes a content line, folding it at 75 octets without splitting
// UTF-8 sequences
func writeLine(b *strings.Builder, line string) {
	limit := lineOctets
	for len(line) > limit {
		cut := limit
		for cut > 0 && !isRuneStart(line[cut]) {
			cut--
		}
		b.WriteString(line[:cut])
		b.WriteString("\r\n ")
		line = line[cut:]
		// continuation lines lose one octet to the leading space
		limit = lineOctets - 1
	}
	b.WriteString(line)
	b.WriteString("\r\n")
}

func isRuneStart(c byte) bool {
	return c&0xC0 != 0x80
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
