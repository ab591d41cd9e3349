package course

import (
	"sort"
	"strings"
)

// Update groups newly discovered announcements under the course they belong to
type Update struct {
	Course        Course         `json:"course"`
	Announcements []Announcement `json:"announcements"`
}

// Diff returns the announcements whose IDs are not present in known.
// A nil known set treats every announcement as new. Order is preserved.
func Diff(code string, known map[string]bool, current []Announcement) []Announcement {
	fresh := make([]Announcement, 0)
	for _, a := range current {
		if known[GenerateID(code, a)] {
			continue
		}
		fresh = append(fresh, a)
	}
	return fresh
}

// SortAnnouncements orders announcements newest first. Announcements without a
// parseable date go last, ordered by title.
func SortAnnouncements(anns []Announcement) {
	sort.SliceStable(anns, func(i, j int) bool {
		di := ParseDate(anns[i].Date)
		dj := ParseDate(anns[j].Date)

		if !di.IsZero() && !dj.IsZero() {
			return di.After(dj)
		}
		if !di.IsZero() {
			return true
		}
		if !dj.IsZero() {
			return false
		}
		return strings.ToLower(anns[i].Title) < strings.ToLower(anns[j].Title)
	})
}

// CountAnnouncements returns the total number of announcements across updates
func CountAnnouncements(updates []Update) int {
	n := 0
	for _, u := range updates {
		n += len(u.Announcements)
	}
	return n
}
