package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tashifkhan/MOOC-utils/internal/course"
)

type fakeBrowser struct {
	courses   []course.Course
	anns      map[string][]course.Announcement
	searchErr error
	fetched   []string
}

func (f *fakeBrowser) Search(_ context.Context, query string) ([]course.Course, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if query == "nothing" {
		return nil, nil
	}
	return f.courses, nil
}

func (f *fakeBrowser) Announcements(_ context.Context, code string) ([]course.Announcement, bool, error) {
	f.fetched = append(f.fetched, code)
	anns, ok := f.anns[code]
	if !ok {
		return nil, false, errors.New("status 404")
	}
	return anns, false, nil
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		courses: []course.Course{
			{Title: "Machine Learning", Code: "noc26_cs01", Instructor: "Prof. A Kumar", Institute: "IIT Madras", NCCode: "NPTEL"},
			{Title: "Environmental Studies", Code: "cec26_ge03", Instructor: "Dr. B Rao", Institute: "Unknown Institute", NCCode: "CEC"},
		},
		anns: map[string][]course.Announcement{
			"noc26_cs01": {{Title: "Week 1 released", Date: "2026-01-30", Content: "Watch the videos."}},
			"cec26_ge03": {},
		},
	}
}

func TestRunInteractive(t *testing.T) {
	b := newFakeBrowser()
	in := strings.NewReader("\nmachine\n1\nstudies\n2\nq\n")
	var out bytes.Buffer

	require.NoError(t, runInteractive(context.Background(), b, in, &out))

	got := out.String()
	assert.Contains(t, got, "Welcome to MOOC Course Search & Announcement Fetcher")
	assert.Contains(t, got, "Found 2 courses:")
	assert.Contains(t, got, "1. Machine Learning - Prof. A Kumar (IIT Madras) - NPTEL")
	assert.Contains(t, got, "Fetching announcements for: Machine Learning (noc26_cs01)...")
	assert.Contains(t, got, "=== Announcements for Machine Learning ===")
	assert.Contains(t, got, "[2026-01-30] Week 1 released\n"+strings.Repeat("-", 40)+"\nWatch the videos.")
	assert.Contains(t, got, "No announcements found.")
	assert.True(t, strings.HasSuffix(got, "Goodbye!\n"))
	assert.Equal(t, []string{"noc26_cs01", "cec26_ge03"}, b.fetched)
}

func TestRunInteractiveSelectionErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"cancel", "ml\nc\nq\n", "Goodbye!"},
		{"not a number", "ml\nfirst\nq\n", "Invalid input."},
		{"out of range", "ml\n3\nq\n", "Invalid selection."},
		{"zero", "ml\n0\nq\n", "Invalid selection."},
		{"no results", "nothing\nq\n", "No courses found."},
		{"end of input", "ml\n", "Goodbye!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBrowser()
			var out bytes.Buffer
			require.NoError(t, runInteractive(context.Background(), b, strings.NewReader(tt.input), &out))
			assert.Contains(t, out.String(), tt.want)
			assert.Empty(t, b.fetched)
		})
	}
}

func TestRunInteractiveReportsErrors(t *testing.T) {
	b := newFakeBrowser()
	b.searchErr = errors.New("connection refused")
	var out bytes.Buffer

	require.NoError(t, runInteractive(context.Background(), b, strings.NewReader("ml\nQ\n"), &out))
	assert.Contains(t, out.String(), "Error searching courses: connection refused")

	b = newFakeBrowser()
	delete(b.anns, "cec26_ge03")
	out.Reset()
	require.NoError(t, runInteractive(context.Background(), b, strings.NewReader("ml\n2\nq\n"), &out))
	assert.Contains(t, out.String(), "Error fetching announcements: status 404")
}
