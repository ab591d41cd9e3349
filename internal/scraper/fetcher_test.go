package scraper

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

func testConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.SearchBaseURL = baseURL
	cfg.PrimaryCourseBaseURL = baseURL + "/primary"
	cfg.SecondaryCourseBaseURL = baseURL + "/secondary"
	cfg.Timeout = 5 * time.Second
	return cfg
}

type fakeRecorder struct {
	mu        sync.Mutex
	fetches   []int
	fallbacks int
	courses   int
	dropped   int
	anns      int
}

func (f *fakeRecorder) ObserveFetch(host string, status int, elapsed time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, status)
}

func (f *fakeRecorder) IncFallback() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallbacks++
}

func (f *fakeRecorder) AddCourses(parsed, dropped int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.courses += parsed
	f.dropped += dropped
}

func (f *fakeRecorder) AddAnnouncements(parsed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.anns += parsed
}

func TestFetchSendsBrowserHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	f := NewFetcher(testConfig(server.URL))
	status, _, err := f.Fetch(context.Background(), server.URL+"/anything", nil)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}

	for _, h := range BrowserHeaders {
		if h.Name == "Connection" {
			// Hop-by-hop; consumed by the server's connection handling
			continue
		}
		if v := got.Get(h.Name); v != h.Value {
			t.Errorf("header %s = %q, want %q", h.Name, v, h.Value)
		}
	}
}

func TestFetchQueryAndRedirect(t *testing.T) {
	var finalQuery, finalUA string
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new?"+r.URL.RawQuery, http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		finalQuery = r.URL.Query().Get("searchText")
		finalUA = r.Header.Get("User-Agent")
		io.WriteString(w, "moved")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := NewFetcher(testConfig(server.URL))
	status, body, err := f.Fetch(context.Background(), server.URL+"/old", map[string][]string{"searchText": {"data science"}})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if status != http.StatusOK || string(body) != "moved" {
		t.Errorf("Fetch() = (%d, %q), want (200, %q)", status, body, "moved")
	}
	if finalQuery != "data science" {
		t.Errorf("query after redirect = %q, want %q", finalQuery, "data science")
	}
	if finalUA != BrowserHeaders[0].Value {
		t.Errorf("User-Agent after redirect = %q", finalUA)
	}
}

func TestFetchDecodesBodies(t *testing.T) {
	const page = "<html><body>compressed page</body></html>"

	encoders := map[string]func(io.Writer) io.WriteCloser{
		"gzip": func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) },
		"deflate": func(w io.Writer) io.WriteCloser {
			return zlib.NewWriter(w)
		},
		"br": func(w io.Writer) io.WriteCloser { return brotli.NewWriter(w) },
		"zstd": func(w io.Writer) io.WriteCloser {
			zw, err := zstd.NewWriter(w)
			if err != nil {
				t.Fatalf("zstd.NewWriter: %v", err)
			}
			return zw
		},
	}

	for name, newWriter := range encoders {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			zw := newWriter(&buf)
			io.WriteString(zw, page)
			zw.Close()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Encoding", name)
				w.Write(buf.Bytes())
			}))
			defer server.Close()

			f := NewFetcher(testConfig(server.URL))
			_, body, err := f.Fetch(context.Background(), server.URL, nil)
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if string(body) != page {
				t.Errorf("body = %q, want %q", body, page)
			}
		})
	}
}

func TestDecodeBody(t *testing.T) {
	t.Run("identity passthrough", func(t *testing.T) {
		got, err := decodeBody([]byte("plain"), "")
		if err != nil || string(got) != "plain" {
			t.Errorf("decodeBody() = (%q, %v)", got, err)
		}
	})

	t.Run("empty body with encoding", func(t *testing.T) {
		got, err := decodeBody(nil, "gzip")
		if err != nil || len(got) != 0 {
			t.Errorf("decodeBody() = (%q, %v)", got, err)
		}
	})

	t.Run("unsupported encoding", func(t *testing.T) {
		if _, err := decodeBody([]byte("x"), "compress"); err == nil {
			t.Error("expected error for unsupported encoding")
		}
	})

	t.Run("corrupt gzip", func(t *testing.T) {
		if _, err := decodeBody([]byte("not gzip"), "gzip"); err == nil {
			t.Error("expected error for corrupt gzip body")
		}
	})

	t.Run("stacked encodings", func(t *testing.T) {
		var inner bytes.Buffer
		zw := zlib.NewWriter(&inner)
		io.WriteString(zw, "twice")
		zw.Close()

		var outer bytes.Buffer
		gw := gzip.NewWriter(&outer)
		gw.Write(inner.Bytes())
		gw.Close()

		got, err := decodeBody(outer.Bytes(), "deflate, gzip")
		if err != nil || string(got) != "twice" {
			t.Errorf("decodeBody() = (%q, %v)", got, err)
		}
	})
}

func TestFetchAnnouncementsPageFallback(t *testing.T) {
	tests := []struct {
		name          string
		primary       int
		secondary     int
		wantBody      string
		wantStatus    int
		wantFallbacks int
		wantRequests  []string
	}{
		{
			name:          "primary ok",
			primary:       http.StatusOK,
			secondary:     http.StatusOK,
			wantBody:      "primary",
			wantRequests:  []string{"/primary/noc26_ee12/announcements"},
			wantFallbacks: 0,
		},
		{
			name:          "primary 404 secondary ok",
			primary:       http.StatusNotFound,
			secondary:     http.StatusOK,
			wantBody:      "secondary",
			wantRequests:  []string{"/primary/noc26_ee12/announcements", "/secondary/noc26_ee12/announcements"},
			wantFallbacks: 1,
		},
		{
			name:          "both 404",
			primary:       http.StatusNotFound,
			secondary:     http.StatusNotFound,
			wantStatus:    http.StatusNotFound,
			wantRequests:  []string{"/primary/noc26_ee12/announcements", "/secondary/noc26_ee12/announcements"},
			wantFallbacks: 1,
		},
		{
			name:          "primary 404 secondary 500",
			primary:       http.StatusNotFound,
			secondary:     http.StatusInternalServerError,
			wantStatus:    http.StatusInternalServerError,
			wantRequests:  []string{"/primary/noc26_ee12/announcements", "/secondary/noc26_ee12/announcements"},
			wantFallbacks: 1,
		},
		{
			name:          "primary 500 does not fall back",
			primary:       http.StatusInternalServerError,
			secondary:     http.StatusOK,
			wantStatus:    http.StatusInternalServerError,
			wantRequests:  []string{"/primary/noc26_ee12/announcements"},
			wantFallbacks: 0,
		},
		{
			name:          "primary 403 does not fall back",
			primary:       http.StatusForbidden,
			secondary:     http.StatusOK,
			wantStatus:    http.StatusForbidden,
			wantRequests:  []string{"/primary/noc26_ee12/announcements"},
			wantFallbacks: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requests []string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests = append(requests, r.URL.Path)
				if strings.HasPrefix(r.URL.Path, "/primary/") {
					w.WriteHeader(tt.primary)
					io.WriteString(w, "primary")
					return
				}
				w.WriteHeader(tt.secondary)
				io.WriteString(w, "secondary")
			}))
			defer server.Close()

			rec := &fakeRecorder{}
			f := NewFetcher(testConfig(server.URL))
			f.rec = rec

			body, err := f.FetchAnnouncementsPage(context.Background(), "noc26_ee12")

			if tt.wantStatus != 0 {
				var statusErr *StatusError
				if !errors.As(err, &statusErr) {
					t.Fatalf("expected *StatusError, got %v", err)
				}
				if statusErr.StatusCode != tt.wantStatus {
					t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, tt.wantStatus)
				}
			} else {
				if err != nil {
					t.Fatalf("FetchAnnouncementsPage() error = %v", err)
				}
				if string(body) != tt.wantBody {
					t.Errorf("body = %q, want %q", body, tt.wantBody)
				}
			}

			if strings.Join(requests, ",") != strings.Join(tt.wantRequests, ",") {
				t.Errorf("requests = %v, want %v", requests, tt.wantRequests)
			}
			if rec.fallbacks != tt.wantFallbacks {
				t.Errorf("fallbacks = %d, want %d", rec.fallbacks, tt.wantFallbacks)
			}
		})
	}
}

func TestFetchTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	f := NewFetcher(testConfig(url))
	_, err := f.FetchAnnouncementsPage(context.Background(), "noc26_ee12")
	if err == nil {
		t.Fatal("expected error for closed server")
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		t.Errorf("transport failure should not be a StatusError: %v", err)
	}
}

func TestFetchHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	f := NewFetcher(testConfig(server.URL))
	_, _, err := f.Fetch(ctx, server.URL, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Fetch() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestStatusErrorMessage(t *testing.T) {
	err := &StatusError{Method: "GET", URL: "https://example.com/x", StatusCode: 503}
	want := "GET https://example.com/x: unexpected status code: 503"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
