package scraper

import "time"

const (
	SearchBaseURL          = "https://swayam.gov.in"
	PrimaryCourseBaseURL   = "https://onlinecourses.nptel.ac.in"
	SecondaryCourseBaseURL = "https://onlinecourses.swayam2.ac.in"
	Timeout                = 30 * time.Second

	maxRedirects = 10
)

// Header is a single request header, sent with its name exactly as written
type Header struct {
	Name  string
	Value string
}

// BrowserHeaders mimic a desktop Firefox navigation. The portal serves degraded or
// blocked pages to clients that do not look like a browser.
var BrowserHeaders = []Header{
	{"User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:147.0) Gecko/20100101 Firefox/147.0"},
	{"Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
	{"Accept-Language", "en-US,en;q=0.9"},
	{"Accept-Encoding", "gzip, deflate, br, zstd"},
	{"Referer", "https://swayam.gov.in/"},
	{"DNT", "1"},
	{"Sec-GPC", "1"},
	{"Connection", "keep-alive"},
	{"Upgrade-Insecure-Requests", "1"},
	{"Sec-Fetch-Dest", "document"},
	{"Sec-Fetch-Mode", "navigate"},
	{"Sec-Fetch-Site", "same-origin"},
	{"Sec-Fetch-User", "?1"},
	{"Priority", "u=0, i"},
}

// Config holds the endpoints and transport settings of a Fetcher
type Config struct {
	SearchBaseURL          string
	PrimaryCourseBaseURL   string
	SecondaryCourseBaseURL string
	Headers                []Header
	Timeout                time.Duration
}

// DefaultConfig returns the production endpoints with the browser header set
func DefaultConfig() Config {
	headers := make([]Header, len(BrowserHeaders))
	copy(headers, BrowserHeaders)

	return Config{
		SearchBaseURL:          SearchBaseURL,
		PrimaryCourseBaseURL:   PrimaryCourseBaseURL,
		SecondaryCourseBaseURL: SecondaryCourseBaseURL,
		Headers:                headers,
		Timeout:                Timeout,
	}
}

func (c Config) searchURL() string {
	return c.SearchBaseURL + "/search_courses"
}

func announcementsURL(base, code string) string {
	return base + "/" + code + "/announcements"
}
