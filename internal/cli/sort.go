package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tashifkhan/MOOC-utils/internal/course"
)

// SortOrder represents the available sorting options for course listings
type SortOrder string

const (
	SortNone      SortOrder = ""
	SortByTitle   SortOrder = "title"
	SortByInst    SortOrder = "institute"
	SortByNC      SortOrder = "nc"
	SortByCode    SortOrder = "code"
	SortByDate    SortOrder = "date"
	SortPageOrder SortOrder = "page"
)

func parseCourseSort(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case SortNone, SortByTitle, SortByInst, SortByNC, SortByCode:
		return o, nil
	}
	return "", fmt.Errorf("invalid sort order: %s (must be title, institute, nc or code)", s)
}

func parseAnnouncementSort(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case SortPageOrder, SortByDate:
		return o, nil
	}
	return "", fmt.Errorf("invalid sort order: %s (must be page or date)", s)
}

// sortCourses sorts courses in place. The empty order keeps search result order.
func sortCourses(courses []course.Course, order SortOrder) {
	switch order {
	case SortByTitle:
		sort.SliceStable(courses, func(i, j int) bool {
			return compareByTitle(courses[i], courses[j])
		})
	case SortByInst:
		sort.SliceStable(courses, func(i, j int) bool {
			if !strings.EqualFold(courses[i].Institute, courses[j].Institute) {
				return strings.ToLower(courses[i].Institute) < strings.ToLower(courses[j].Institute)
			}
			// If institutes are equal, sort by title
			return compareByTitle(courses[i], courses[j])
		})
	case SortByNC:
		sort.SliceStable(courses, func(i, j int) bool {
			if courses[i].NCCode != courses[j].NCCode {
				return courses[i].NCCode < courses[j].NCCode
			}
			return compareByTitle(courses[i], courses[j])
		})
	case SortByCode:
		sort.SliceStable(courses, func(i, j int) bool {
			return courses[i].Code < courses[j].Code
		})
	}
}

// compareByTitle orders case-insensitively by title, then by code
func compareByTitle(i, j course.Course) bool {
	ti, tj := strings.ToLower(i.Title), strings.ToLower(j.Title)
	if ti != tj {
		return ti < tj
	}
	return i.Code < j.Code
}
