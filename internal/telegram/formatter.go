package telegram

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/tashifkhan/MOOC-utils/internal/course"
)

const snippetLength = 600

// CourseLabel names a course by title, falling back to its code
func CourseLabel(c course.Course) string {
	if c.Title == "" || c.Title == course.UnknownTitle {
		return c.Code
	}
	return c.Title
}

// truncate shortens s to at most max runes, marking the cut with an ellipsis
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}

func hashtags(c course.Course) string {
	tags := []string{"#MOOC"}
	if c.NCCode != "" && c.NCCode != course.UnknownNC {
		tags = append(tags, "#"+strings.ReplaceAll(c.NCCode, " ", ""))
	}
	return strings.Join(tags, " ")
}

// FormatAnnouncement formats a single announcement as a Telegram message
func FormatAnnouncement(c course.Course, a course.Announcement) string {
	var msg strings.Builder

	msg.WriteString("📢 <b>New course announcement</b>\n\n")
	msg.WriteString(fmt.Sprintf("📚 <b>%s</b> (%s)\n", html.EscapeString(CourseLabel(c)), html.EscapeString(c.Code)))
	msg.WriteString(fmt.Sprintf("📝 %s\n", html.EscapeString(a.Title)))

	if a.HasDate() {
		msg.WriteString(fmt.Sprintf("📅 %s\n", html.EscapeString(course.FormatDateNice(a.Date))))
	}

	if a.Content != "" {
		msg.WriteString("\n")
		msg.WriteString(html.EscapeString(truncate(a.Content, snippetLength)))
		msg.WriteString("\n")
	}

	msg.WriteString("\n")
	msg.WriteString(hashtags(c))

	return truncate(msg.String(), MaxMessageLength)
}

// FormatUpdate formats all new announcements of one course as a single message
func FormatUpdate(u course.Update) string {
	if len(u.Announcements) == 1 {
		return FormatAnnouncement(u.Course, u.Announcements[0])
	}

	var msg strings.Builder

	msg.WriteString(fmt.Sprintf("📢 <b>%d new announcements</b>\n\n", len(u.Announcements)))
	msg.WriteString(fmt.Sprintf("📚 <b>%s</b> (%s)\n\n", html.EscapeString(CourseLabel(u.Course)), html.EscapeString(u.Course.Code)))

	for _, a := range u.Announcements {
		msg.WriteString(fmt.Sprintf("📝 <b>%s</b>", html.EscapeString(a.Title)))
		if a.HasDate() {
			msg.WriteString(fmt.Sprintf(" · %s", html.EscapeString(course.FormatDateNice(a.Date))))
		}
		msg.WriteString("\n")
		if a.Content != "" {
			msg.WriteString(html.EscapeString(truncate(a.Content, snippetLength/2)))
			msg.WriteString("\n")
		}
		msg.WriteString("\n")
	}

	msg.WriteString(hashtags(u.Course))

	return truncate(msg.String(), MaxMessageLength)
}

// CourseKeyboard returns a button linking to the course page, or nil when the
// course has no absolute URL
func CourseKeyboard(c course.Course) *InlineKeyboardMarkup {
	link := c.Link()
	if link == "" {
		return nil
	}
	return &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{
			{
				{Text: "🔗 Open course", URL: link},
			},
		},
	}
}
