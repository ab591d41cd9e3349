package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/tashifkhan/MOOC-utils/internal/course"
)

var (
	testCourse = course.Course{
		Title:  "Intro to X",
		URL:    "https://onlinecourses.nptel.ac.in/noc26_ee12/preview",
		Code:   "noc26_ee12",
		NCCode: "NPTEL",
	}
	testNow = time.Date(2026, 2, 1, 10, 30, 0, 0, time.UTC)
)

func TestGenerateICS(t *testing.T) {
	anns := []course.Announcement{
		{Title: "Week 1 content released", Date: "2026-01-30", Content: "Dear learners,\nWeek 1 is live."},
		{Title: "Orphan notice", Date: course.UnknownDate},
		{Title: "Exam; registration, open", Date: "30 January 2026 10:15 AM"},
	}

	ics := GenerateICS(testCourse, anns, testNow)

	requiredFields := []string{
		"BEGIN:VCALENDAR\r\n",
		"VERSION:2.0\r\n",
		"PRODID:-//MOOC Notices//mooc-notices//EN\r\n",
		"X-WR-CALNAME:Intro to X announcements\r\n",
		"UID:" + course.GenerateID("noc26_ee12", anns[0]) + "@mooc-notices\r\n",
		"DTSTAMP:20260201T103000Z\r\n",
		"DTSTART;VALUE=DATE:20260130\r\n",
		"DTEND;VALUE=DATE:20260131\r\n",
		"SUMMARY:Week 1 content released\r\n",
		"DESCRIPTION:Intro to X\\n\\nDear learners\\,\\nWeek 1 is live.\r\n",
		"SUMMARY:Exam\\; registration\\, open\r\n",
		"URL:https://onlinecourses.nptel.ac.in/noc26_ee12/preview\r\n",
		"END:VCALENDAR\r\n",
	}
	for _, field := range requiredFields {
		if !strings.Contains(ics, field) {
			t.Errorf("ICS missing %q in:\n%s", field, ics)
		}
	}

	if got := strings.Count(ics, "BEGIN:VEVENT"); got != 2 {
		t.Errorf("VEVENT count = %d, want 2 (undated announcements skipped)", got)
	}
	if strings.Contains(ics, "Orphan notice") {
		t.Error("undated announcement should not appear")
	}
}

func TestGenerateICS_NoDatedAnnouncements(t *testing.T) {
	ics := GenerateICS(course.Course{Code: "cec26_ge03", Title: course.UnknownTitle}, []course.Announcement{{Title: "x", Date: course.UnknownDate}}, testNow)

	if strings.Contains(ics, "BEGIN:VEVENT") {
		t.Error("feed should have no events")
	}
	if !strings.Contains(ics, "X-WR-CALNAME:cec26_ge03 announcements") {
		t.Errorf("calendar name should fall back to the code:\n%s", ics)
	}
}

func TestGenerateICS_RelativeURLOmitted(t *testing.T) {
	c := testCourse
	c.URL = "/aic26_ma01/preview"

	ics := GenerateICS(c, []course.Announcement{{Title: "Week 1", Date: "2026-01-30"}}, testNow)

	if strings.Contains(ics, "URL:") {
		t.Errorf("relative course URL should be left out:\n%s", ics)
	}
	if !strings.Contains(ics, "SUMMARY:Week 1\r\n") {
		t.Errorf("event missing:\n%s", ics)
	}
}

func TestLineFolding(t *testing.T) {
	long := strings.Repeat("é", 100)
	ics := GenerateICS(testCourse, []course.Announcement{{Title: long, Date: "2026-01-30"}}, testNow)

	for _, line := range strings.Split(strings.TrimSuffix(ics, "\r\n"), "\r\n") {
		if len(line) > lineOctets {
			t.Errorf("line longer than %d octets: %q", lineOctets, line)
		}
		if strings.ToValidUTF8(line, "?") != line {
			t.Errorf("folding split a UTF-8 sequence: %q", line)
		}
	}

	unfolded := strings.ReplaceAll(ics, "\r\n ", "")
	if !strings.Contains(unfolded, "SUMMARY:"+long+"\r\n") {
		t.Error("unfolding should restore the summary")
	}
}

func TestDated(t *testing.T) {
	anns := []course.Announcement{
		{Title: "a", Date: "2026-01-30"},
		{Title: "b", Date: course.UnknownDate},
		{Title: "c", Date: "Jan 5, 2026"},
		{Title: "d", Date: ""},
	}

	got := Dated(anns)
	if len(got) != 2 || got[0].Title != "a" || got[1].Title != "c" {
		t.Errorf("Dated() = %+v, want a and c", got)
	}
}

func TestEscapeICS(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Simple text", "Simple text"},
		{"Text, with comma", "Text\\, with comma"},
		{"Text; with semicolon", "Text\\; with semicolon"},
		{"Text\nwith newline", "Text\\nwith newline"},
		{"Text\\with backslash", "Text\\\\with backslash"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := escapeICS(tt.input); got != tt.want {
				t.Errorf("escapeICS(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
