// Command mooc-notices-twitter tweets the output of `mooc-notices check --format json`.
// Credentials come from the same config and environment as mooc-notices
// (MOOC_TWITTER_API_KEY, MOOC_TWITTER_API_SECRET, MOOC_TWITTER_ACCESS_TOKEN,
// MOOC_TWITTER_ACCESS_SECRET).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/tashifkhan/MOOC-utils/internal/config"
	"github.com/tashifkhan/MOOC-utils/internal/course"
	"github.com/tashifkhan/MOOC-utils/internal/notifier"
)

var (
	configFile  = flag.String("config", "", "Config file (default: ./config.yaml or ~/.config/mooc-notices/config.yaml)")
	updatesFile = flag.String("updates-file", "", "Path to check JSON output (or read from stdin)")
	dryRun      = flag.Bool("dry-run", false, "Print tweets without posting")
	maxTweets   = flag.Int("max-tweets", 10, "Maximum number of tweets to post")
	ncFilter    = flag.String("nc", "", "Only tweet courses of this National Coordinator (e.g. NPTEL)")
)

// limitTweets keeps updates of the given coordinator (all when nc is empty) and at
// most max announcements overall, one tweet each
func limitTweets(updates []course.Update, nc string, max int) []course.Update {
	out := make([]course.Update, 0, len(updates))
	left := max
	for _, u := range updates {
		if nc != "" && !strings.EqualFold(u.Course.NCCode, nc) {
			continue
		}
		if left <= 0 {
			break
		}
		if len(u.Announcements) > left {
			u.Announcements = slices.Clone(u.Announcements[:left])
		}
		left -= len(u.Announcements)
		if len(u.Announcements) > 0 {
			out = append(out, u)
		}
	}
	return out
}

func main() {
	flag.Parse()

	// Read updates from file or stdin
	var reader io.Reader
	if *updatesFile != "" {
		f, err := os.Open(*updatesFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening updates file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		reader = f
	} else {
		reader = os.Stdin
	}

	var result struct {
		Updates []course.Update `json:"updates"`
	}
	if err := json.NewDecoder(reader).Decode(&result); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing JSON: %v\n", err)
		os.Exit(1)
	}

	updates := limitTweets(result.Updates, *ncFilter, *maxTweets)
	count := course.CountAnnouncements(updates)
	if count == 0 {
		fmt.Println("No new announcements to tweet")
		os.Exit(0)
	}

	var tw notifier.Notifier
	if *dryRun {
		tw = notifier.NewDryRunNotifier(os.Stdout, notifier.ChannelTwitter)
		fmt.Printf("DRY RUN MODE - Would tweet %d announcements:\n\n", count)
	} else {
		cfg, err := config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		client, err := notifier.NewTwitterNotifier(notifier.TwitterCredentials{
			APIKey:       cfg.Twitter.APIKey,
			APISecret:    cfg.Twitter.APISecret,
			AccessToken:  cfg.Twitter.AccessToken,
			AccessSecret: cfg.Twitter.AccessSecret,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing Twitter client: %v\n", err)
			os.Exit(1)
		}
		tw = client
	}

	if err := tw.Notify(context.Background(), notifier.Recipient{}, updates); err != nil {
		fmt.Fprintf(os.Stderr, "Error posting tweets: %v\n", err)
		os.Exit(1)
	}

	if !*dryRun {
		fmt.Printf("Successfully posted %d tweets\n", count)
	}
}
