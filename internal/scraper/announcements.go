package scraper

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tashifkhan/MOOC-utils/internal/course"
)

// Pages that render dates client-side embed e.g. `new Date(1769731200000.0)`
var scriptDatePattern = regexp.MustCompile(`new Date\(([\d\.]+)\)`)

// Timestamps outside years 1 to 9999 cannot be formatted as a calendar date
var (
	minScriptMillis = float64(time.Date(1, time.January, 2, 0, 0, 0, 0, time.UTC).UnixMilli())
	maxScriptMillis = float64(time.Date(9999, time.December, 30, 0, 0, 0, 0, time.UTC).UnixMilli())
)

// ParseAnnouncements extracts announcements from a course announcements page.
//
// Each announcement title label yields one announcement in document order. The
// label's parent is the block root; the next paragraph after it holds the date and
// the next content paragraph after that holds the body. Missing dates become
// course.UnknownDate and missing bodies become empty strings.
func ParseAnnouncements(r io.Reader) ([]course.Announcement, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	announcements := make([]course.Announcement, 0)

	doc.FindMatcher(selAnnTitle).Each(func(i int, label *goquery.Selection) {
		block := label.Parent()
		if block.Length() == 0 {
			return
		}

		ann := course.Announcement{
			Title: strings.TrimSpace(textContent(label.Get(0))),
			Date:  course.UnknownDate,
		}

		dateContainer, ok := nextSibling(block, selParagraph)
		if !ok {
			announcements = append(announcements, ann)
			return
		}

		if date := resolveDate(dateContainer); date != "" {
			ann.Date = date
		}

		if content, ok := nextSibling(dateContainer, selAnnContent); ok {
			ann.Content = strings.Join(textLines(content.Get(0)), "\n")
		}

		announcements = append(announcements, ann)
	})

	return announcements, nil
}

// resolveDate reads the visible date text of a date container, falling back to a
// timestamp embedded in one of its scripts. Returns "" when neither is present.
func resolveDate(container *goquery.Selection) string {
	var parts []string
	for _, child := range children(container) {
		var piece string
		switch child.kind {
		case scriptNode:
			continue
		case textNode:
			piece = strings.TrimSpace(child.node.Data)
		case elementNode:
			piece = strings.TrimSpace(textContent(child.node))
		default:
			continue
		}
		if piece != "" {
			parts = append(parts, piece)
		}
	}

	if text := strings.Join(parts, " "); text != "" {
		return text
	}

	return scriptDate(container)
}

// scriptDate scans script elements below container for a millisecond timestamp
// and formats it as a local calendar date.
func scriptDate(container *goquery.Selection) string {
	date := ""
	container.FindMatcher(selScriptElement).EachWithBreak(func(i int, s *goquery.Selection) bool {
		m := scriptDatePattern.FindStringSubmatch(scriptSource(s.Get(0)))
		if m == nil {
			return true
		}
		ms, err := strconv.ParseFloat(m[1], 64)
		if err != nil || ms < minScriptMillis || ms > maxScriptMillis {
			return true
		}
		date = time.UnixMilli(int64(ms)).Local().Format("2006-01-02")
		return false
	})
	return date
}
