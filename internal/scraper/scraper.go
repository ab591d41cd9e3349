package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tashifkhan/MOOC-utils/internal/course"
)

// Recorder receives scrape measurements. metrics.Metrics implements it.
type Recorder interface {
	ObserveFetch(host string, status int, elapsed time.Duration)
	IncFallback()
	AddCourses(parsed, dropped int)
	AddAnnouncements(parsed int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveFetch(string, int, time.Duration) {}
func (nopRecorder) IncFallback()                            {}
func (nopRecorder) AddCourses(int, int)                     {}
func (nopRecorder) AddAnnouncements(int)                    {}

// Scraper searches the SWAYAM catalogue and reads course announcements.
// It holds no state between calls and is safe for concurrent use.
type Scraper struct {
	fetcher *Fetcher
	cfg     Config
	rec     Recorder
}

// New creates a Scraper against the production portal
func New() *Scraper {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a Scraper for the given endpoints and headers
func NewWithConfig(cfg Config) *Scraper {
	return &Scraper{
		fetcher: NewFetcher(cfg),
		cfg:     cfg,
		rec:     nopRecorder{},
	}
}

// WithRecorder routes fetch and parse measurements to rec
func (s *Scraper) WithRecorder(rec Recorder) *Scraper {
	if rec == nil {
		rec = nopRecorder{}
	}
	s.rec = rec
	s.fetcher.rec = rec
	return s
}

// Search returns the courses listed for query, in page order
func (s *Scraper) Search(ctx context.Context, query string) ([]course.Course, error) {
	target := s.cfg.searchURL()

	status, body, err := s.fetcher.Fetch(ctx, target, url.Values{"searchText": {query}})
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, &StatusError{Method: http.MethodGet, URL: target, StatusCode: status}
	}

	courses, dropped, err := parseSearchResults(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing search results: %w", err)
	}
	s.rec.AddCourses(len(courses), dropped)

	return courses, nil
}

// FetchAnnouncements returns the announcements posted for the course with the given code
func (s *Scraper) FetchAnnouncements(ctx context.Context, code string) ([]course.Announcement, error) {
	body, err := s.fetcher.FetchAnnouncementsPage(ctx, code)
	if err != nil {
		return nil, err
	}

	anns, err := ParseAnnouncements(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing announcements: %w", err)
	}
	s.rec.AddAnnouncements(len(anns))

	return anns, nil
}
