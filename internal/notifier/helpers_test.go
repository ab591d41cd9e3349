package notifier

import (
	"context"
	"errors"
	"sync"

	"github.com/tashifkhan/MOOC-utils/internal/course"
)

var testCourse = course.Course{
	Title:      "Intro to X",
	URL:        "https://onlinecourses.nptel.ac.in/noc26_ee12/preview",
	Code:       "noc26_ee12",
	Instructor: "Prof. A Kumar",
	Institute:  "IIT Madras",
	NCCode:     "NPTEL",
}

var otherCourse = course.Course{
	Title:  "Abstract Algebra",
	Code:   "cec26_ma02",
	NCCode: "CEC",
}

func testUpdates() []course.Update {
	return []course.Update{
		{
			Course: testCourse,
			Announcements: []course.Announcement{
				{Title: "Week 1 content released", Date: "2026-01-30", Content: "Dear learners,\nWeek 1 is live."},
				{Title: "Orphan notice", Date: course.UnknownDate},
			},
		},
		{
			Course:        otherCourse,
			Announcements: []course.Announcement{{Title: "Assignment 1 due", Date: course.UnknownDate, Content: "Submit."}},
		},
	}
}

// recordingNotifier captures deliveries for assertions
type recordingNotifier struct {
	mu      sync.Mutex
	channel string
	fail    map[string]bool // by recipient address
	got     []delivery
}

type delivery struct {
	to      Recipient
	updates []course.Update
}

func (r *recordingNotifier) Channel() string { return r.channel }

func (r *recordingNotifier) Notify(_ context.Context, to Recipient, updates []course.Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[to.Address] {
		return errors.New("delivery refused")
	}
	r.got = append(r.got, delivery{to: to, updates: updates})
	return nil
}
