package notifier

import (
	"context"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/dghubble/go-twitter/twitter" //nolint:staticcheck // Using stable v1.1 API
	"github.com/dghubble/oauth1"
	"github.com/tashifkhan/MOOC-utils/internal/course"
	"github.com/tashifkhan/MOOC-utils/internal/telegram"
)

const tweetLimit = 280

// statusUpdater is satisfied by *twitter.StatusService
type statusUpdater interface {
	Update(status string, params *twitter.StatusUpdateParams) (*twitter.Tweet, *http.Response, error)
}

// TwitterCredentials holds the OAuth1 keys of the posting account
type TwitterCredentials struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

// TwitterNotifier posts one tweet per announcement to the public feed
type TwitterNotifier struct {
	statuses statusUpdater
	delay    time.Duration
}

// NewTwitterNotifier creates a Twitter notifier from OAuth1 credentials
func NewTwitterNotifier(creds TwitterCredentials) (*TwitterNotifier, error) {
	if creds.APIKey == "" || creds.APISecret == "" || creds.AccessToken == "" || creds.AccessSecret == "" {
		return nil, fmt.Errorf("missing required Twitter credentials")
	}

	config := oauth1.NewConfig(creds.APIKey, creds.APISecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	httpClient := config.Client(oauth1.NoContext, token)
	client := twitter.NewClient(httpClient)

	return &TwitterNotifier{statuses: client.Statuses, delay: 2 * time.Second}, nil
}

// Channel returns "twitter"
func (n *TwitterNotifier) Channel() string {
	return ChannelTwitter
}

// Notify posts a tweet for each announcement, pausing between tweets
func (n *TwitterNotifier) Notify(ctx context.Context, _ Recipient, updates []course.Update) error {
	first := true
	for _, u := range updates {
		for _, a := range u.Announcements {
			// Rate limiting: wait between tweets
			if !first {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(n.delay):
				}
			}
			first = false

			if _, _, err := n.statuses.Update(formatTweet(u.Course, a), nil); err != nil {
				return fmt.Errorf("failed to post tweet for %s %q: %w", u.Course.Code, a.Title, err)
			}
		}
	}
	return nil
}

// formatTweet formats an announcement as a tweet of at most 280 characters
func formatTweet(c course.Course, a course.Announcement) string {
	tweet := "📢 New course announcement\n\n"
	tweet += fmt.Sprintf("📚 %s\n", telegram.CourseLabel(c))
	tweet += fmt.Sprintf("📝 %s\n", a.Title)

	if a.HasDate() {
		tweet += fmt.Sprintf("📅 %s\n", course.FormatDateNice(a.Date))
	}
	if link := c.Link(); link != "" {
		tweet += fmt.Sprintf("\n🔗 %s\n", link)
	}

	tweet += "\n#MOOC"
	if c.NCCode != "" && c.NCCode != course.UnknownNC {
		tweet += " #" + c.NCCode
	}

	if utf8.RuneCountInString(tweet) > tweetLimit {
		runes := []rune(tweet)
		tweet = string(runes[:tweetLimit-3]) + "..."
	}
	return tweet
}
