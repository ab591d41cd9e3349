package scraper

import (
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
	"github.com/tashifkhan/MOOC-utils/internal/course"
)

// ParseSearchResults extracts courses from a search results page.
//
// Every anchor with an href that wraps a course card yields one course, in document
// order. Missing fields fall back to placeholders; cards whose href carries no course
// code are dropped. Duplicate codes are kept.
func ParseSearchResults(r io.Reader) ([]course.Course, error) {
	courses, _, err := parseSearchResults(r)
	return courses, err
}

// parseSearchResults also reports how many cards were dropped for lacking a code
func parseSearchResults(r io.Reader) ([]course.Course, int, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("parsing HTML: %w", err)
	}

	courses := make([]course.Course, 0)
	dropped := 0

	doc.FindMatcher(selCourseLink).Each(func(i int, link *goquery.Selection) {
		card, ok := findFirst(link, selCourseCard)
		if !ok {
			return
		}

		href, _ := link.Attr("href")
		code, ok := course.ExtractCode(href)
		if !ok {
			dropped++
			return
		}

		courses = append(courses, course.Course{
			Title:      textOr(card, selCourseTitle, course.UnknownTitle),
			URL:        href,
			Code:       code,
			Instructor: textOr(card, selInstructor, course.UnknownInstructor),
			Institute:  textOr(card, selInstitute, course.UnknownInstitute),
			NCCode:     textOr(card, selNCBadge, course.UnknownNC),
		})
	})

	return courses, dropped, nil
}
