// Package filter narrows course listings and announcements.
//
// Filters combine criteria with AND; within one criterion any value may match:
//   - Keywords (case-insensitive substring of the course title, or of an
//     announcement's title or content)
//   - National Coordinators (exact, case-insensitive: NPTEL, CEC, AICTE...)
//   - Institutes (case-insensitive substring)
//   - Date range for announcements (inclusive)
//
// Example usage:
//
//	f := filter.NewFilter()
//	f.NCCodes = []string{"NPTEL"}
//	f.Institutes = []string{"IIT"}
//	courses = f.ApplyCourses(courses)
//
//	from, to, _ := filter.ParseDateRange("last 7d", time.Now())
//	f.DateFrom, f.DateTo = from, to
//	anns = f.ApplyAnnouncements(anns)
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/tashifkhan/MOOC-utils/internal/course"
)

// Filter represents course and announcement filtering criteria
type Filter struct {
	// Date range filtering, announcements only
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	Keywords   []string `json:"keywords,omitempty"`
	NCCodes    []string `json:"nc_codes,omitempty"`
	Institutes []string `json:"institutes,omitempty"`
}

// NewFilter creates a new empty filter with no active criteria.
// The filter will match everything until criteria are added.
func NewFilter() *Filter {
	return &Filter{
		Keywords:   []string{},
		NCCodes:    []string{},
		Institutes: []string{},
	}
}

// IsEmpty checks if the filter has any active criteria
func (f *Filter) IsEmpty() bool {
	return f.DateFrom == nil &&
		f.DateTo == nil &&
		len(f.Keywords) == 0 &&
		len(f.NCCodes) == 0 &&
		len(f.Institutes) == 0
}

func containsAny(text string, needles []string) bool {
	text = strings.ToLower(text)
	for _, n := range needles {
		if strings.Contains(text, strings.ToLower(strings.TrimSpace(n))) {
			return true
		}
	}
	return false
}

func equalsAny(s string, values []string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), s) {
			return true
		}
	}
	return false
}

// MatchesCourse checks a course against the keyword, coordinator and institute
// criteria. Date bounds do not apply to courses.
func (f *Filter) MatchesCourse(c course.Course) bool {
	if len(f.Keywords) > 0 && !containsAny(c.Title, f.Keywords) {
		return false
	}
	if len(f.NCCodes) > 0 && !equalsAny(c.NCCode, f.NCCodes) {
		return false
	}
	if len(f.Institutes) > 0 && !containsAny(c.Institute, f.Institutes) {
		return false
	}
	return true
}

// MatchesAnnouncement checks an announcement against the keyword and date
// criteria. When a date bound is set, announcements without a parseable date
// do not match.
func (f *Filter) MatchesAnnouncement(a course.Announcement) bool {
	if len(f.Keywords) > 0 && !containsAny(a.Title, f.Keywords) && !containsAny(a.Content, f.Keywords) {
		return false
	}

	if f.DateFrom == nil && f.DateTo == nil {
		return true
	}

	date := course.ParseDate(a.Date)
	if date.IsZero() {
		return false
	}
	if f.DateFrom != nil && date.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && date.After(*f.DateTo) {
		return false
	}
	return true
}

// ApplyCourses returns the matching courses, preserving order.
// An empty filter returns the input unchanged.
func (f *Filter) ApplyCourses(courses []course.Course) []course.Course {
	if f.IsEmpty() {
		return courses
	}

	filtered := make([]course.Course, 0, len(courses))
	for _, c := range courses {
		if f.MatchesCourse(c) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// ApplyAnnouncements returns the matching announcements, preserving order.
// An empty filter returns the input unchanged.
func (f *Filter) ApplyAnnouncements(anns []course.Announcement) []course.Announcement {
	if f.IsEmpty() {
		return anns
	}

	filtered := make([]course.Announcement, 0, len(anns))
	for _, a := range anns {
		if f.MatchesAnnouncement(a) {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

// String returns a human-readable description of the active filter criteria.
// Format: "From: Jan 2, 2026 | To: Jan 15, 2026 | Keywords: python | NC: NPTEL"
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string

	if f.DateFrom != nil {
		parts = append(parts, fmt.Sprintf("From: %s", f.DateFrom.Format("Jan 2, 2006")))
	}
	if f.DateTo != nil {
		parts = append(parts, fmt.Sprintf("To: %s", f.DateTo.Format("Jan 2, 2006")))
	}
	if len(f.Keywords) > 0 {
		parts = append(parts, fmt.Sprintf("Keywords: %s", strings.Join(f.Keywords, ", ")))
	}
	if len(f.NCCodes) > 0 {
		parts = append(parts, fmt.Sprintf("NC: %s", strings.Join(f.NCCodes, ", ")))
	}
	if len(f.Institutes) > 0 {
		parts = append(parts, fmt.Sprintf("Institutes: %s", strings.Join(f.Institutes, ", ")))
	}

	return strings.Join(parts, " | ")
}
