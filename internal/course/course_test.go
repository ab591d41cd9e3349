package course

import (
	"strings"
	"testing"
)

func TestExtractCode(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantCode string
		wantOK   bool
	}{
		{
			name:     "nptel preview url",
			url:      "https://onlinecourses.nptel.ac.in/noc26_ee12/preview",
			wantCode: "noc26_ee12",
			wantOK:   true,
		},
		{
			name:     "relative url",
			url:      "/noc26_cs01/preview",
			wantCode: "noc26_cs01",
			wantOK:   true,
		},
		{
			name:     "trailing path after preview",
			url:      "https://onlinecourses.swayam2.ac.in/cec26_ge03/preview?lang=en",
			wantCode: "cec26_ge03",
			wantOK:   true,
		},
		{
			name:     "case preserved",
			url:      "https://example.com/NOC26_MA07/preview",
			wantCode: "NOC26_MA07",
			wantOK:   true,
		},
		{
			name:   "no preview segment",
			url:    "https://swayam.gov.in/explorer",
			wantOK: false,
		},
		{
			name:   "empty",
			url:    "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := ExtractCode(tt.url)
			if ok != tt.wantOK {
				t.Fatalf("ExtractCode(%q) ok = %v, want %v", tt.url, ok, tt.wantOK)
			}
			if code != tt.wantCode {
				t.Errorf("ExtractCode(%q) = %q, want %q", tt.url, code, tt.wantCode)
			}
		})
	}
}

func TestCourseString(t *testing.T) {
	c := Course{
		Title:      "Intro to X",
		Code:       "noc26_ee12",
		Instructor: "Prof. A",
		Institute:  "IIT Madras",
		NCCode:     "NPTEL",
	}

	want := "Intro to X - Prof. A (IIT Madras) - NPTEL"
	if got := c.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestCourseLink(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://onlinecourses.nptel.ac.in/noc26_ee12/preview", "https://onlinecourses.nptel.ac.in/noc26_ee12/preview"},
		{"http://example.com/x/preview", "http://example.com/x/preview"},
		{"/aic26_ma01/preview", ""},
		{"aic26_ma01/preview", ""},
		{"javascript:alert(1)", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := (Course{URL: tt.url}).Link(); got != tt.want {
				t.Errorf("Link() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnnouncementString(t *testing.T) {
	a := Announcement{Title: "Week 1 released", Date: "2026-01-30", Content: "Watch the videos."}

	got := a.String()
	want := "[2026-01-30] Week 1 released\n" + strings.Repeat("-", 40) + "\nWatch the videos.\n"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestGenerateID(t *testing.T) {
	a := Announcement{Title: "Week 1", Date: "2026-01-30", Content: "first"}
	b := Announcement{Title: "Week 1", Date: "2026-01-30", Content: "edited"}
	c := Announcement{Title: "Week 1", Date: "2026-02-06"}

	idA := GenerateID("noc26_ee12", a)
	if len(idA) != 40 {
		t.Errorf("expected ID length of 40, got %d", len(idA))
	}
	if idA != GenerateID("noc26_ee12", b) {
		t.Error("content should not affect the ID")
	}
	if idA == GenerateID("noc26_ee12", c) {
		t.Error("date should affect the ID")
	}
	if idA == GenerateID("noc26_cs01", a) {
		t.Error("course code should affect the ID")
	}
}

func TestGenerateIDFieldBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		codeA string
		a     Announcement
		codeB string
		b     Announcement
	}{
		{"separator in title", "noc26_ee12", Announcement{Title: "b|c", Date: "d"}, "noc26_ee12", Announcement{Title: "b", Date: "c|d"}},
		{"separator in code", "x|y", Announcement{Title: "t", Date: "d"}, "x", Announcement{Title: "y|t", Date: "d"}},
		{"digits and colon", "noc", Announcement{Title: "1:a", Date: ""}, "noc", Announcement{Title: "", Date: "1:a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if GenerateID(tt.codeA, tt.a) == GenerateID(tt.codeB, tt.b) {
				t.Errorf("GenerateID(%q, %+v) collides with GenerateID(%q, %+v)", tt.codeA, tt.a, tt.codeB, tt.b)
			}
		})
	}
}

func TestHasDate(t *testing.T) {
	if (Announcement{Date: UnknownDate}).HasDate() {
		t.Error("Unknown Date should not count as a date")
	}
	if (Announcement{}).HasDate() {
		t.Error("empty date should not count as a date")
	}
	if !(Announcement{Date: "2026-01-30"}).HasDate() {
		t.Error("expected 2026-01-30 to count as a date")
	}
}
