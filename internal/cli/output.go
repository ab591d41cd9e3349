package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/tashifkhan/MOOC-utils/internal/course"
	"github.com/tashifkhan/MOOC-utils/internal/preferences"
	"github.com/tashifkhan/MOOC-utils/internal/storage"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// CheckResult contains the outcome of one check run
type CheckResult struct {
	CheckedAt         time.Time       `json:"checked_at"`
	Courses           []string        `json:"courses"`
	Updates           []course.Update `json:"updates"`
	AnnouncementCount int             `json:"announcement_count"`
	Sent              int             `json:"notifications_sent"`
	Failed            int             `json:"notifications_failed"`
	Retried           int             `json:"notifications_retried,omitempty"`
	Refreshed         bool            `json:"refreshed,omitempty"`
}

// writeJSON outputs v as indented JSON
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// writeCourses renders courses as a numbered table
func writeCourses(w io.Writer, courses []course.Course) {
	if len(courses) == 0 {
		fmt.Fprintln(w, "No courses found.")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Code", "Title", "Instructor", "Institute", "NC"})
	for i, c := range courses {
		t.AppendRow(table.Row{i + 1, c.Code, c.Title, c.Instructor, c.Institute, c.NCCode})
	}
	t.Render()
}

// writeAnnouncements prints announcements as dated blocks
func writeAnnouncements(w io.Writer, title string, anns []course.Announcement) {
	if len(anns) == 0 {
		fmt.Fprintln(w, "No announcements found.")
		return
	}

	fmt.Fprintf(w, "\n=== Announcements for %s ===\n", title)
	for _, a := range anns {
		fmt.Fprintln(w, a)
	}
}

// writeCheckResult reports a check run as human-readable text
func writeCheckResult(w io.Writer, result *CheckResult, verbose bool) {
	if result.Refreshed {
		fmt.Fprintf(w, "Cache refreshed for %d courses.\n", len(result.Courses))
		return
	}

	if result.Retried > 0 {
		fmt.Fprintf(w, "Delivered %d earlier failed notifications.\n", result.Retried)
	}

	if result.AnnouncementCount == 0 {
		fmt.Fprintln(w, "No new announcements found.")
		return
	}

	for _, u := range result.Updates {
		fmt.Fprintf(w, "\n%s [%s] (%d new):\n", u.Course.Title, u.Course.Code, len(u.Announcements))
		for _, a := range u.Announcements {
			fmt.Fprintf(w, "  NEW: %s (%s)\n", a.Title, course.FormatDateNice(a.Date))
			if verbose && a.Content != "" {
				for _, line := range strings.Split(a.Content, "\n") {
					fmt.Fprintf(w, "       %s\n", line)
				}
			}
		}
	}
	fmt.Fprintf(w, "\nTotal: %d new across %d courses\n", result.AnnouncementCount, len(result.Updates))
	if result.Sent > 0 || result.Failed > 0 {
		fmt.Fprintf(w, "Notifications: %d sent, %d failed\n", result.Sent, result.Failed)
	}
}

// writeSubscriptions renders one row per user
func writeSubscriptions(w io.Writer, prefs preferences.Preferences) {
	if len(prefs) == 0 {
		fmt.Fprintln(w, "No subscribers yet.")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"User", "Name", "Channels", "Courses", "Active"})
	for _, id := range prefs.UserIDs() {
		u := prefs[id]
		t.AppendRow(table.Row{id, u.Name, strings.Join(u.Channels, ", "), strings.Join(u.Courses, ", "), u.Active})
	}
	t.Render()
}

// writeNotifications renders a user's notification log
func writeNotifications(w io.Writer, list []storage.Notification) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No notifications.")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Sent", "Course", "Announcement", "Channel", "Read"})
	for _, n := range list {
		read := ""
		if n.Read {
			read = "yes"
		}
		t.AppendRow(table.Row{n.ID, n.SentAt.Local().Format("2006-01-02 15:04"), n.CourseCode, n.AnnouncementTitle, n.Channel, read})
	}
	t.Render()
}
