package notifier

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/tashifkhan/MOOC-utils/internal/calendar"
	"github.com/tashifkhan/MOOC-utils/internal/course"
	"github.com/tashifkhan/MOOC-utils/internal/telegram"
)

// TelegramNotifier sends one message per course to a Telegram chat
type TelegramNotifier struct {
	client         *telegram.Client
	attachCalendar bool
	now            func() time.Time
}

// NewTelegramNotifier wraps a Bot API client. With attachCalendar set, dated
// announcements are also sent as an .ics document.
func NewTelegramNotifier(client *telegram.Client, attachCalendar bool) *TelegramNotifier {
	return &TelegramNotifier{client: client, attachCalendar: attachCalendar, now: time.Now}
}

// Channel returns "telegram"
func (n *TelegramNotifier) Channel() string {
	return ChannelTelegram
}

// Notify sends each course update to the recipient's chat
func (n *TelegramNotifier) Notify(ctx context.Context, to Recipient, updates []course.Update) error {
	if to.Address == "" {
		return fmt.Errorf("recipient %q has no Telegram chat ID", to.UserID)
	}

	for _, u := range updates {
		if len(u.Announcements) == 0 {
			continue
		}

		text := telegram.FormatUpdate(u)
		if err := n.client.SendMessageWithKeyboard(ctx, to.Address, text, telegram.CourseKeyboard(u.Course)); err != nil {
			return fmt.Errorf("sending %s update: %w", u.Course.Code, err)
		}

		if n.attachCalendar && len(calendar.Dated(u.Announcements)) > 0 {
			ics := calendar.GenerateICS(u.Course, u.Announcements, n.now())
			caption := fmt.Sprintf("📅 <b>%s</b> announcements", html.EscapeString(telegram.CourseLabel(u.Course)))
			if err := n.client.SendDocument(ctx, to.Address, u.Course.Code+".ics", []byte(ics), caption); err != nil {
				return fmt.Errorf("sending %s calendar: %w", u.Course.Code, err)
			}
		}
	}
	return nil
}
