package telegram

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/tashifkhan/MOOC-utils/internal/course"
)

// FormatDigest formats new announcements across several courses as one message,
// courses ordered by label
func FormatDigest(updates []course.Update) string {
	total := course.CountAnnouncements(updates)
	if total == 0 {
		return "No new course announcements."
	}

	sorted := make([]course.Update, len(updates))
	copy(sorted, updates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return strings.ToLower(CourseLabel(sorted[i].Course)) < strings.ToLower(CourseLabel(sorted[j].Course))
	})

	var msg strings.Builder
	msg.WriteString("📬 <b>Course announcements digest</b>\n\n")
	msg.WriteString(fmt.Sprintf("%d new announcement%s in %d course%s\n\n",
		total, pluralize(total), countCourses(sorted), pluralize(countCourses(sorted))))

	for _, u := range sorted {
		if len(u.Announcements) == 0 {
			continue
		}
		msg.WriteString(fmt.Sprintf("📚 <b>%s</b> (%d)\n", html.EscapeString(CourseLabel(u.Course)), len(u.Announcements)))
		for _, a := range u.Announcements {
			msg.WriteString(fmt.Sprintf("  • %s", html.EscapeString(a.Title)))
			if a.HasDate() {
				msg.WriteString(fmt.Sprintf(" (%s)", html.EscapeString(a.Date)))
			}
			msg.WriteString("\n")
		}
		msg.WriteString("\n")
	}

	msg.WriteString("#MOOC")

	return truncate(msg.String(), MaxMessageLength)
}

// FormatDigestSummary creates a one-line summary of a digest
func FormatDigestSummary(updates []course.Update) string {
	total := course.CountAnnouncements(updates)
	if total == 0 {
		return "No new course announcements"
	}
	n := countCourses(updates)
	return fmt.Sprintf("%d new announcement%s in %d course%s", total, pluralize(total), n, pluralize(n))
}

func countCourses(updates []course.Update) int {
	n := 0
	for _, u := range updates {
		if len(u.Announcements) > 0 {
			n++
		}
	}
	return n
}

func pluralize(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
