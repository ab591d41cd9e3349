// Command mooc-notices-telegram posts the output of `mooc-notices check --format json`
// to a Telegram chat.
//
//	mooc-notices check --format json | mooc-notices-telegram --chat-id -100123
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tashifkhan/MOOC-utils/internal/course"
	"github.com/tashifkhan/MOOC-utils/internal/filter"
	"github.com/tashifkhan/MOOC-utils/internal/notifier"
	"github.com/tashifkhan/MOOC-utils/internal/telegram"
)

var (
	botToken       = flag.String("bot-token", os.Getenv("MOOC_TELEGRAM_BOT_TOKEN"), "Telegram bot token (or env: MOOC_TELEGRAM_BOT_TOKEN)")
	chatID         = flag.String("chat-id", os.Getenv("MOOC_TELEGRAM_CHAT_ID"), "Telegram chat ID (or env: MOOC_TELEGRAM_CHAT_ID)")
	updatesFile    = flag.String("updates-file", "", "Path to check JSON output (or read from stdin)")
	dryRun         = flag.Bool("dry-run", false, "Print messages without sending")
	maxCourses     = flag.Int("max-courses", 10, "Maximum number of course messages to send")
	since          = flag.String("since", "", "Only announcements dated within this range (e.g. 'last 7d')")
	digest         = flag.Bool("digest", false, "Send one digest message instead of one message per course")
	attachCalendar = flag.Bool("calendar", true, "Attach an .ics file for dated announcements")
)

// readUpdates reads the updates of a check result from file or stdin
func readUpdates(filePath string, stdin io.Reader) ([]course.Update, error) {
	reader := stdin
	if filePath != "" {
		f, err := os.Open(filePath)
		if err != nil {
			return nil, fmt.Errorf("opening updates file: %w", err)
		}
		defer f.Close()
		reader = f
	}

	var result struct {
		Updates []course.Update `json:"updates"`
	}
	if err := json.NewDecoder(reader).Decode(&result); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	return result.Updates, nil
}

// selectUpdates applies the date filter and the course limit, dropping courses left
// without announcements
func selectUpdates(updates []course.Update, f *filter.Filter, limit int) []course.Update {
	selected := make([]course.Update, 0, len(updates))
	for _, u := range updates {
		u.Announcements = f.ApplyAnnouncements(u.Announcements)
		if len(u.Announcements) == 0 {
			continue
		}
		selected = append(selected, u)
		if limit > 0 && len(selected) == limit {
			break
		}
	}
	return selected
}

func main() {
	flag.Parse()

	updates, err := readUpdates(*updatesFile, os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading updates: %v\n", err)
		os.Exit(1)
	}

	if course.CountAnnouncements(updates) == 0 {
		fmt.Println("No new announcements to send")
		os.Exit(0)
	}

	f := filter.NewFilter()
	if *since != "" {
		from, to, err := filter.ParseDateRange(*since, time.Now())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		f.DateFrom, f.DateTo = from, to
	}

	updates = selectUpdates(updates, f, *maxCourses)
	if len(updates) == 0 {
		fmt.Println("No announcements match criteria")
		os.Exit(0)
	}

	ctx := context.Background()
	to := notifier.Recipient{Address: *chatID}

	if *dryRun {
		fmt.Printf("DRY RUN MODE - %s:\n\n", telegram.FormatDigestSummary(updates))
		if *digest {
			fmt.Println(telegram.FormatDigest(updates))
			os.Exit(0)
		}
		if err := notifier.NewDryRunNotifier(os.Stdout, notifier.ChannelTelegram).Notify(ctx, to, updates); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if *botToken == "" {
		fmt.Fprintf(os.Stderr, "Error: bot token is required (use --bot-token or MOOC_TELEGRAM_BOT_TOKEN env var)\n")
		os.Exit(1)
	}
	if *chatID == "" {
		fmt.Fprintf(os.Stderr, "Error: chat ID is required (use --chat-id or MOOC_TELEGRAM_CHAT_ID env var)\n")
		os.Exit(1)
	}

	client, err := telegram.NewClient(*botToken)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing Telegram client: %v\n", err)
		os.Exit(1)
	}

	if *digest {
		if err := client.SendMessage(ctx, *chatID, telegram.FormatDigest(updates)); err != nil {
			fmt.Fprintf(os.Stderr, "Error sending digest: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Successfully sent digest: %s\n", telegram.FormatDigestSummary(updates))
		return
	}

	tg := notifier.NewTelegramNotifier(client, *attachCalendar)
	for i, u := range updates {
		if err := tg.Notify(ctx, to, []course.Update{u}); err != nil {
			fmt.Fprintf(os.Stderr, "Error sending message for course %s: %v\n", u.Course.Code, err)
			os.Exit(1)
		}

		// Rate limiting: wait between messages
		if i < len(updates)-1 {
			time.Sleep(1 * time.Second)
		}
	}

	fmt.Printf("Successfully sent %d message(s)\n", len(updates))
}
