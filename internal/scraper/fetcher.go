package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

// StatusError is returned when the portal answers with a non-2xx status
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status code: %d", e.Method, e.URL, e.StatusCode)
}

// Fetcher issues GET requests carrying the configured header set and follows redirects
type Fetcher struct {
	client *resty.Client
	cfg    Config
	rec    Recorder
}

// NewFetcher creates a Fetcher for the given configuration
func NewFetcher(cfg Config) *Fetcher {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects))
	for _, h := range cfg.Headers {
		client.SetHeaderVerbatim(h.Name, h.Value)
	}

	return &Fetcher{
		client: client,
		cfg:    cfg,
		rec:    nopRecorder{},
	}
}

// Fetch performs a GET of rawURL with optional query parameters and returns the
// status code and decoded body. Transport failures are returned as errors; a
// non-2xx status is not an error at this level.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, query url.Values) (int, []byte, error) {
	req := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}

	start := time.Now()
	res, err := req.Get(rawURL)
	if err != nil {
		return 0, nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}

	raw := res.RawBody()
	defer raw.Close()

	status := res.StatusCode()
	f.rec.ObserveFetch(hostOf(rawURL), status, time.Since(start))

	data, err := io.ReadAll(raw)
	if err != nil {
		return status, nil, fmt.Errorf("reading response from %s: %w", rawURL, err)
	}

	body, err := decodeBody(data, res.Header().Get("Content-Encoding"))
	if err != nil {
		if !isSuccess(status) {
			// The status is what matters for error pages
			return status, nil, nil
		}
		return status, nil, fmt.Errorf("response from %s: %w", rawURL, err)
	}

	return status, body, nil
}

// FetchAnnouncementsPage fetches a course's announcements page from the primary
// domain, retrying once on the secondary domain when the primary answers 404.
func (f *Fetcher) FetchAnnouncementsPage(ctx context.Context, code string) ([]byte, error) {
	target := announcementsURL(f.cfg.PrimaryCourseBaseURL, code)

	status, body, err := f.Fetch(ctx, target, nil)
	if err != nil {
		return nil, err
	}

	if status == http.StatusNotFound {
		f.rec.IncFallback()
		target = announcementsURL(f.cfg.SecondaryCourseBaseURL, code)
		status, body, err = f.Fetch(ctx, target, nil)
		if err != nil {
			return nil, err
		}
	}

	if !isSuccess(status) {
		return nil, &StatusError{Method: http.MethodGet, URL: target, StatusCode: status}
	}

	return body, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
