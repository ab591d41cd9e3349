package notifier

import (
	"bytes"
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/tashifkhan/MOOC-utils/internal/course"
	"github.com/tashifkhan/MOOC-utils/internal/preferences"
	"github.com/tashifkhan/MOOC-utils/internal/storage"
	_ "modernc.org/sqlite"
)

type fakeRecorder struct {
	ok, failed map[string]int
}

func (f *fakeRecorder) NotificationSent(channel string, err error) {
	if err != nil {
		f.failed[channel]++
		return
	}
	f.ok[channel]++
}

func testPrefs() preferences.Preferences {
	prefs := preferences.NewPreferences()
	prefs.AddUser("alice", "Alice", "alice@example.com", "111")
	prefs.Subscribe("alice", "noc26_ee12")

	prefs.AddUser("bob", "Bob", "bob@example.com", "")
	prefs.Subscribe("bob", "noc26_ee12")
	prefs.Subscribe("bob", "cec26_ma02")

	prefs.AddUser("carol", "", "carol@example.com", "")
	prefs.Subscribe("carol", "aic26_zz01")

	prefs.AddUser("dave", "", "dave@example.com", "")
	prefs.Subscribe("dave", "noc26_ee12")
	prefs["dave"].Active = false
	return prefs
}

func TestDispatch(t *testing.T) {
	email := &recordingNotifier{channel: ChannelEmail}
	tg := &recordingNotifier{channel: ChannelTelegram}
	feed := &recordingNotifier{channel: ChannelTwitter}
	rec := &fakeRecorder{ok: map[string]int{}, failed: map[string]int{}}

	d := NewDispatcher(nil, rec).Register(email).Register(tg).AddFeed(feed, Recipient{})

	res, err := d.Dispatch(context.Background(), testPrefs(), testUpdates())
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if res.Sent != 4 || res.Failed != 0 {
		t.Errorf("Result = %+v, want 4 sent (alice x2, bob, feed)", res)
	}

	if len(email.got) != 2 || email.got[0].to.UserID != "alice" || email.got[1].to.UserID != "bob" {
		t.Fatalf("email deliveries = %+v", email.got)
	}
	if got := len(email.got[0].updates); got != 1 {
		t.Errorf("alice got %d course updates, want only her course", got)
	}
	if got := len(email.got[1].updates); got != 2 {
		t.Errorf("bob got %d course updates, want 2", got)
	}
	if email.got[1].to.Address != "bob@example.com" || email.got[1].to.Name != "Bob" {
		t.Errorf("bob recipient = %+v", email.got[1].to)
	}
	if len(tg.got) != 1 || tg.got[0].to.Address != "111" {
		t.Errorf("telegram deliveries = %+v", tg.got)
	}
	if len(feed.got) != 1 || len(feed.got[0].updates) != 2 {
		t.Errorf("feed deliveries = %+v", feed.got)
	}

	if rec.ok[ChannelEmail] != 2 || rec.ok[ChannelTelegram] != 1 || rec.ok[ChannelTwitter] != 1 {
		t.Errorf("recorded = %v", rec.ok)
	}
}

func TestDispatch_FailuresContinue(t *testing.T) {
	email := &recordingNotifier{channel: ChannelEmail, fail: map[string]bool{"alice@example.com": true}}
	rec := &fakeRecorder{ok: map[string]int{}, failed: map[string]int{}}

	res, err := NewDispatcher(nil, rec).Register(email).Dispatch(context.Background(), testPrefs(), testUpdates())
	if err == nil || !strings.Contains(err.Error(), "alice via email") {
		t.Errorf("Dispatch() error = %v, want alice's failure", err)
	}
	if res.Sent != 1 || res.Failed != 1 {
		t.Errorf("Result = %+v, want 1 sent and 1 failed", res)
	}
	if rec.failed[ChannelEmail] != 1 {
		t.Errorf("failed = %v", rec.failed)
	}
}

func TestDispatch_NoUpdates(t *testing.T) {
	feed := &recordingNotifier{channel: ChannelTwitter}

	res, err := NewDispatcher(nil, nil).AddFeed(feed, Recipient{}).Dispatch(context.Background(), testPrefs(), nil)
	if err != nil || res.Sent != 0 {
		t.Errorf("Dispatch() = %+v, %v; want nothing sent", res, err)
	}
	if len(feed.got) != 0 {
		t.Error("feeds should not be notified without announcements")
	}
}

func TestDispatch_RecordsNotifications(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	store, err := storage.OpenDB(db)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	updates := testUpdates()
	for _, u := range updates {
		if _, err := store.UpsertAnnouncements(ctx, u.Course.Code, u.Announcements); err != nil {
			t.Fatal(err)
		}
	}

	email := &recordingNotifier{channel: ChannelEmail}
	if _, err := NewDispatcher(store, nil).Register(email).Dispatch(ctx, testPrefs(), updates); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	bob, err := store.ListNotifications(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(bob) != 3 {
		t.Fatalf("bob has %d notifications, want 3", len(bob))
	}
	if bob[0].AnnouncementTitle == "" {
		t.Error("notification should join its announcement title")
	}
	want := course.GenerateID("noc26_ee12", updates[0].Announcements[0])
	found := false
	for _, n := range bob {
		found = found || n.AnnouncementID == want
	}
	if !found {
		t.Errorf("notifications %+v missing announcement %s", bob, want)
	}
}

func newTestStore(t *testing.T) *storage.Storage {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	store, err := storage.OpenDB(db)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestRedeliver_RetriesFailedDeliveries(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	updates := testUpdates()
	for _, u := range updates {
		if err := store.UpsertCourses(ctx, []course.Course{u.Course}); err != nil {
			t.Fatal(err)
		}
		if _, err := store.UpsertAnnouncements(ctx, u.Course.Code, u.Announcements); err != nil {
			t.Fatal(err)
		}
	}

	email := &recordingNotifier{channel: ChannelEmail, fail: map[string]bool{"alice@example.com": true}}
	d := NewDispatcher(store, nil).Register(email)
	prefs := testPrefs()

	if _, err := d.Dispatch(ctx, prefs, updates); err == nil {
		t.Fatal("Dispatch() should report alice's failure")
	}

	pending, err := store.PendingDeliveries(ctx, MaxDeliveryAttempts)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 || pending[0].UserID != "alice" {
		t.Fatalf("pending = %+v, want alice's two announcements", pending)
	}

	// Still failing: attempts grow and the queue is kept
	if res, err := d.Redeliver(ctx, prefs, pending); err == nil || res.Failed != 1 {
		t.Errorf("Redeliver() = %+v, %v; want one failure", res, err)
	}
	pending, _ = store.PendingDeliveries(ctx, MaxDeliveryAttempts)
	if len(pending) != 2 || pending[0].Attempts != 2 {
		t.Fatalf("pending after failed retry = %+v", pending)
	}

	email.fail = nil
	before := len(email.got)
	res, err := d.Redeliver(ctx, prefs, pending)
	if err != nil || res.Sent != 1 {
		t.Fatalf("Redeliver() = %+v, %v; want one delivery", res, err)
	}
	got := email.got[before:]
	if len(got) != 1 || got[0].to.UserID != "alice" || len(got[0].updates) != 1 || len(got[0].updates[0].Announcements) != 2 {
		t.Errorf("redelivered = %+v, want alice's course with both announcements", got)
	}
	if got[0].updates[0].Course.Title != "Intro to X" {
		t.Errorf("course = %+v, want the cached course", got[0].updates[0].Course)
	}

	pending, _ = store.PendingDeliveries(ctx, MaxDeliveryAttempts)
	if len(pending) != 0 {
		t.Errorf("pending after success = %+v, want none", pending)
	}
	alice, _ := store.ListNotifications(ctx, "alice")
	if len(alice) != 2 {
		t.Errorf("alice has %d notifications, want 2", len(alice))
	}
}

func TestRedeliver_SkipsInactiveUsers(t *testing.T) {
	email := &recordingNotifier{channel: ChannelEmail}
	prefs := testPrefs()
	prefs["alice"].Active = false

	pending := []storage.PendingDelivery{
		{UserID: "alice", Channel: ChannelEmail, Course: testCourse, Announcement: course.Announcement{Title: "Week 1"}},
		{UserID: "erin", Channel: ChannelEmail, Course: testCourse, Announcement: course.Announcement{Title: "Week 1"}},
		{UserID: "bob", Channel: ChannelTelegram, Course: testCourse, Announcement: course.Announcement{Title: "Week 1"}},
	}

	res, err := NewDispatcher(nil, nil).Register(email).Redeliver(context.Background(), prefs, pending)
	if err != nil || res.Sent != 0 || len(email.got) != 0 {
		t.Errorf("Redeliver() = %+v, %v, deliveries %d; want nothing sent", res, err, len(email.got))
	}
}

func TestDryRunNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewDryRunNotifier(&buf, ChannelTelegram)

	if err := n.Notify(context.Background(), Recipient{UserID: "alice", Address: "111"}, testUpdates()); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"--- telegram 1/2 to alice <111> ---", "--- telegram 2/2", "Intro to X", "Assignment 1 due"} {
		if !strings.Contains(out, want) {
			t.Errorf("dry-run output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	tw := NewDryRunNotifier(&buf, ChannelTwitter)
	if err := tw.Notify(context.Background(), Recipient{Address: "@feed"}, testUpdates()); err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(buf.String(), "--- twitter"); got != 3 {
		t.Errorf("dry-run tweets = %d, want 3", got)
	}
}
