package notifier

import (
	"context"

	"github.com/tashifkhan/MOOC-utils/internal/course"
)

// Channel names used in the notification log and metrics
const (
	ChannelEmail    = "email"
	ChannelTelegram = "telegram"
	ChannelTwitter  = "twitter"
)

// Recipient is who a notification is addressed to. Address is the email address
// or Telegram chat ID; public feeds leave UserID empty.
type Recipient struct {
	UserID  string
	Name    string
	Address string
}

// Notifier defines the interface for delivering course updates
type Notifier interface {
	// Channel names the delivery channel
	Channel() string
	// Notify delivers the updates to one recipient
	Notify(ctx context.Context, to Recipient, updates []course.Update) error
}
