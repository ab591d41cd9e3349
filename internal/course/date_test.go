package course

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name      string
		dateText  string
		wantYear  int
		wantMonth time.Month
		wantDay   int
		wantZero  bool
	}{
		{name: "ISO", dateText: "2026-01-30", wantYear: 2026, wantMonth: time.January, wantDay: 30},
		{name: "day-month-year dashes", dateText: "30-01-2026", wantYear: 2026, wantMonth: time.January, wantDay: 30},
		{name: "long month", dateText: "30 January 2026", wantYear: 2026, wantMonth: time.January, wantDay: 30},
		{name: "short month", dateText: "3 Feb 2026", wantYear: 2026, wantMonth: time.February, wantDay: 3},
		{name: "US style", dateText: "Jan 30, 2026", wantYear: 2026, wantMonth: time.January, wantDay: 30},
		{name: "extra whitespace", dateText: "  30   January\n 2026 ", wantYear: 2026, wantMonth: time.January, wantDay: 30},
		{name: "trailing time", dateText: "30 January 2026 10:15 AM", wantYear: 2026, wantMonth: time.January, wantDay: 30},
		{name: "unknown sentinel", dateText: UnknownDate, wantZero: true},
		{name: "empty", dateText: "", wantZero: true},
		{name: "garbage", dateText: "next week", wantZero: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDate(tt.dateText)
			if tt.wantZero {
				if !got.IsZero() {
					t.Errorf("ParseDate(%q) = %v, want zero time", tt.dateText, got)
				}
				return
			}
			if got.Year() != tt.wantYear || got.Month() != tt.wantMonth || got.Day() != tt.wantDay {
				t.Errorf("ParseDate(%q) = %v, want %d-%02d-%02d", tt.dateText, got, tt.wantYear, tt.wantMonth, tt.wantDay)
			}
		})
	}
}

func TestFormatDateNice(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2026-01-30", "Fri, Jan 30 2026"},
		{UnknownDate, UnknownDate},
		{"sometime", "sometime"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := FormatDateNice(tt.input); got != tt.want {
				t.Errorf("FormatDateNice(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
