package notifier

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/tashifkhan/MOOC-utils/internal/course"
	"github.com/tashifkhan/MOOC-utils/internal/logger"
	"github.com/tashifkhan/MOOC-utils/internal/preferences"
	"github.com/tashifkhan/MOOC-utils/internal/storage"
)

// MaxDeliveryAttempts bounds how often a failed subscriber delivery is retried
const MaxDeliveryAttempts = 5

// NotificationLog records deliveries and queues failed ones for retry;
// *storage.Storage satisfies it
type NotificationLog interface {
	RecordNotification(ctx context.Context, n storage.Notification) (int64, error)
	RecordFailedDelivery(ctx context.Context, n storage.Notification, cause error) error
}

// DeliveryRecorder counts deliveries; *metrics.Metrics satisfies it
type DeliveryRecorder interface {
	NotificationSent(channel string, err error)
}

// Feed is a public destination that receives every update, such as a Telegram
// channel or the Twitter account
type Feed struct {
	Notifier Notifier
	To       Recipient
}

// Dispatcher fans updates out to subscribers over their enabled channels
type Dispatcher struct {
	channels map[string]Notifier
	feeds    []Feed
	log      NotificationLog
	rec      DeliveryRecorder
}

// Result summarizes one dispatch
type Result struct {
	Sent   int
	Failed int
}

// NewDispatcher creates a dispatcher. The log and recorder may be nil.
func NewDispatcher(log NotificationLog, rec DeliveryRecorder) *Dispatcher {
	return &Dispatcher{
		channels: make(map[string]Notifier),
		log:      log,
		rec:      rec,
	}
}

// Register routes a channel's subscriber notifications to n
func (d *Dispatcher) Register(n Notifier) *Dispatcher {
	d.channels[n.Channel()] = n
	return d
}

// AddFeed sends every update to a public destination as well
func (d *Dispatcher) AddFeed(n Notifier, to Recipient) *Dispatcher {
	d.feeds = append(d.feeds, Feed{Notifier: n, To: to})
	return d
}

// Dispatch delivers updates to every active subscriber of the updated courses and
// to every feed. A failed delivery is logged and does not stop the others; the
// returned error joins all failures. With a log, failed subscriber deliveries are
// queued for Redeliver.
func (d *Dispatcher) Dispatch(ctx context.Context, prefs preferences.Preferences, updates []course.Update) (Result, error) {
	var (
		res  Result
		errs []error
	)

	for _, userID := range prefs.UserIDs() {
		user := prefs[userID]
		if !user.Active {
			continue
		}

		mine := updatesFor(user.Courses, updates)
		if len(mine) == 0 {
			continue
		}

		for _, channel := range user.Channels {
			n, ok := d.channels[channel]
			if !ok {
				logger.Debug("No notifier for channel", logger.Fields{"user": userID, "channel": channel})
				continue
			}

			to := Recipient{UserID: userID, Name: user.Name, Address: user.Address(channel)}
			if err := d.deliver(ctx, n, to, mine); err != nil {
				res.Failed++
				errs = append(errs, fmt.Errorf("%s via %s: %w", userID, channel, err))
				continue
			}
			res.Sent++
		}
	}

	if course.CountAnnouncements(updates) > 0 {
		for _, f := range d.feeds {
			if err := d.deliver(ctx, f.Notifier, f.To, updates); err != nil {
				res.Failed++
				errs = append(errs, fmt.Errorf("%s feed: %w", f.Notifier.Channel(), err))
				continue
			}
			res.Sent++
		}
	}

	return res, errors.Join(errs...)
}

func (d *Dispatcher) deliver(ctx context.Context, n Notifier, to Recipient, updates []course.Update) error {
	err := n.Notify(ctx, to, updates)
	if d.rec != nil {
		d.rec.NotificationSent(n.Channel(), err)
	}

	fields := logger.Fields{
		"channel":       n.Channel(),
		"user":          to.UserID,
		"announcements": course.CountAnnouncements(updates),
	}
	if err != nil {
		logger.Error("Notification failed", fields, err)
	} else {
		logger.Info("Notification sent", fields)
	}

	// Feeds have no user to attribute the delivery to
	if d.log == nil || to.UserID == "" {
		return err
	}
	for _, u := range updates {
		for _, a := range u.Announcements {
			entry := storage.Notification{
				UserID:         to.UserID,
				CourseCode:     u.Course.Code,
				AnnouncementID: course.GenerateID(u.Course.Code, a),
				Channel:        n.Channel(),
			}
			var logErr error
			if err != nil {
				logErr = d.log.RecordFailedDelivery(ctx, entry, err)
			} else {
				_, logErr = d.log.RecordNotification(ctx, entry)
			}
			if logErr != nil {
				logger.Warn("Failed to record notification", logger.Fields{"user": to.UserID, "error": logErr.Error()})
			}
		}
	}
	return err
}

// Redeliver retries deliveries that failed in earlier runs. Each user and channel
// gets one message with their pending announcements, provided the user is still
// active, still follows the course and still has the channel enabled. Skipped
// deliveries stay queued.
func (d *Dispatcher) Redeliver(ctx context.Context, prefs preferences.Preferences, pending []storage.PendingDelivery) (Result, error) {
	type target struct{ userID, channel string }

	var (
		res     Result
		errs    []error
		order   []target
		grouped = make(map[target][]course.Update)
	)
	for _, p := range pending {
		t := target{p.UserID, p.Channel}
		updates, seen := grouped[t]
		if !seen {
			order = append(order, t)
		}
		if n := len(updates); n > 0 && updates[n-1].Course.Code == p.Course.Code {
			updates[n-1].Announcements = append(updates[n-1].Announcements, p.Announcement)
		} else {
			updates = append(updates, course.Update{Course: p.Course, Announcements: []course.Announcement{p.Announcement}})
		}
		grouped[t] = updates
	}

	for _, t := range order {
		user := prefs[t.userID]
		n, ok := d.channels[t.channel]
		if user == nil || !user.Active || !user.HasChannel(t.channel) || !ok {
			logger.Debug("Pending delivery skipped", logger.Fields{"user": t.userID, "channel": t.channel})
			continue
		}
		mine := updatesFor(user.Courses, grouped[t])
		if len(mine) == 0 {
			continue
		}

		to := Recipient{UserID: t.userID, Name: user.Name, Address: user.Address(t.channel)}
		if err := d.deliver(ctx, n, to, mine); err != nil {
			res.Failed++
			errs = append(errs, fmt.Errorf("retrying %s via %s: %w", t.userID, t.channel, err))
			continue
		}
		res.Sent++
	}

	return res, errors.Join(errs...)
}

// updatesFor keeps the non-empty updates of the given courses
func updatesFor(codes []string, updates []course.Update) []course.Update {
	var mine []course.Update
	for _, u := range updates {
		if len(u.Announcements) > 0 && slices.Contains(codes, u.Course.Code) {
			mine = append(mine, u)
		}
	}
	return mine
}
