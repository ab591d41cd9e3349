package course

import (
	"crypto/sha1"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Placeholder values used when a field cannot be found in the scraped markup.
const (
	UnknownTitle      = "Unknown Title"
	UnknownInstructor = "Unknown Instructor"
	UnknownInstitute  = "Unknown Institute"
	UnknownNC         = "Unknown NC"
	UnknownDate       = "Unknown Date"
)

var codePattern = regexp.MustCompile(`/([^/]+)/preview`)

// Course is a MOOC course as listed on a search results page
type Course struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Code       string `json:"code"`
	Instructor string `json:"instructor"`
	Institute  string `json:"institute"`
	NCCode     string `json:"nc_code"` // National Coordinator, e.g. NPTEL
}

// Link returns the course URL when it is an absolute http(s) URL. Search pages
// may carry relative hrefs, which are kept verbatim in URL but cannot be linked
// from a message or calendar.
func (c Course) Link() string {
	u, err := url.Parse(c.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return c.URL
}

// String renders the course the way the interactive listing shows it
func (c Course) String() string {
	return fmt.Sprintf("%s - %s (%s) - %s", c.Title, c.Instructor, c.Institute, c.NCCode)
}

// Announcement is a single notice posted on a course's announcements page.
// It carries no reference to its course; callers supply that context.
type Announcement struct {
	Title   string `json:"title"`
	Date    string `json:"date"`
	Content string `json:"content"`
}

// String renders the announcement as a dated block with a separator line
func (a Announcement) String() string {
	return fmt.Sprintf("[%s] %s\n%s\n%s\n", a.Date, a.Title, strings.Repeat("-", 40), a.Content)
}

// HasDate reports whether the announcement date was discovered
func (a Announcement) HasDate() bool {
	return a.Date != "" && a.Date != UnknownDate
}

// ExtractCode returns the course code segment that precedes "/preview" in a
// course URL. The segment is returned verbatim.
func ExtractCode(previewURL string) (string, bool) {
	m := codePattern.FindStringSubmatch(previewURL)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// GenerateID creates a deterministic ID for an announcement of a course.
// Two announcements with the same course, title and date share an ID.
func GenerateID(code string, a Announcement) string {
	h := sha1.New()
	// Length prefixes keep field boundaries unambiguous
	for _, field := range []string{code, a.Title, a.Date} {
		fmt.Fprintf(h, "%d:%s", len(field), field)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
