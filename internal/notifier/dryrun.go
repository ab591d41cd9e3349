package notifier

import (
	"context"
	"fmt"
	"io"

	"github.com/tashifkhan/MOOC-utils/internal/course"
	"github.com/tashifkhan/MOOC-utils/internal/telegram"
)

// DryRunNotifier prints what would be sent without delivering anything
type DryRunNotifier struct {
	w       io.Writer
	channel string
}

// NewDryRunNotifier creates a dry-run stand-in for the given channel
func NewDryRunNotifier(w io.Writer, channel string) *DryRunNotifier {
	return &DryRunNotifier{w: w, channel: channel}
}

// Channel returns the channel being simulated
func (n *DryRunNotifier) Channel() string {
	return n.channel
}

// Notify prints the messages that would be sent
func (n *DryRunNotifier) Notify(_ context.Context, to Recipient, updates []course.Update) error {
	target := to.Address
	if to.UserID != "" {
		target = fmt.Sprintf("%s <%s>", to.UserID, to.Address)
	}

	messages := make([]string, 0, len(updates))
	for _, u := range updates {
		if n.channel == ChannelTwitter {
			for _, a := range u.Announcements {
				messages = append(messages, formatTweet(u.Course, a))
			}
			continue
		}
		if len(u.Announcements) > 0 {
			messages = append(messages, telegram.FormatUpdate(u))
		}
	}

	for i, text := range messages {
		fmt.Fprintf(n.w, "--- %s %d/%d to %s ---\n", n.channel, i+1, len(messages), target)
		fmt.Fprintln(n.w, text)
		fmt.Fprintln(n.w)
	}
	return nil
}
