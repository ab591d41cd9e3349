package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/spf13/cobra"
	"github.com/tashifkhan/MOOC-utils/internal/api"
	"github.com/tashifkhan/MOOC-utils/internal/course"
	"github.com/tashifkhan/MOOC-utils/internal/logger"
	"github.com/tashifkhan/MOOC-utils/internal/notifier"
	"github.com/tashifkhan/MOOC-utils/internal/preferences"
	"github.com/tashifkhan/MOOC-utils/internal/telegram"
)

// checkOptions controls one check run
type checkOptions struct {
	codes   []string // explicit courses; empty means every subscribed course
	refresh bool     // store what is found without notifying
	dryRun  bool     // print notifications instead of sending them
}

func newCheckCmd() *cobra.Command {
	var opts checkOptions

	cmd := &cobra.Command{
		Use:   "check [course-code...]",
		Short: "Check subscribed courses for new announcements and notify subscribers",
		Long: `Check courses for announcements that were not seen before, store them and notify
every subscriber. Without arguments all subscribed courses are checked.

The first check of a course reports all of its announcements as new; run with
--refresh once to record them silently.

Exits with status 2 when new announcements were found.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			for _, code := range args {
				if !preferences.IsValidCourseCode(code) {
					return fmt.Errorf("invalid course code: %s", code)
				}
			}
			opts.codes = args

			result, err := e.runCheck(cmd.Context(), opts)
			if err != nil && (result == nil || result.AnnouncementCount == 0) {
				return err
			}
			if err != nil {
				fmt.Fprintf(e.errOut, "Warning: %v\n", err)
			}

			if e.format == FormatJSON {
				if err := writeJSON(e.out, result); err != nil {
					return fmt.Errorf("writing output: %w", err)
				}
			} else {
				writeCheckResult(e.out, result, flagVerbose)
			}

			if result.AnnouncementCount > 0 {
				return &exitError{code: ExitNewAnnouncements}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "Store current announcements without notifying")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print notifications instead of sending them")

	return cmd
}

// runCheck fetches, stores and dispatches. A nil result means nothing could be
// checked; with a result, err reports the courses or deliveries that failed.
func (e *env) runCheck(ctx context.Context, opts checkOptions) (*CheckResult, error) {
	store, err := e.preferencesStorage()
	if err != nil {
		return nil, err
	}
	prefs, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading subscriptions: %w", err)
	}

	codes := opts.codes
	if len(codes) == 0 {
		codes = prefs.SubscribedCodes()
	}
	result := &CheckResult{
		CheckedAt: time.Now().UTC(),
		Courses:   codes,
		Updates:   []course.Update{},
		Refreshed: opts.refresh,
	}
	if len(codes) == 0 {
		logger.Info("No subscribed courses to check", nil)
		return result, nil
	}

	logger.Debug("Checking courses", logger.Fields{"count": len(codes)})
	updates, checkErr := e.catalog.Check(ctx, codes)
	count := course.CountAnnouncements(updates)
	e.metrics.CheckRun(count, checkErr)
	if opts.refresh {
		return result, checkErr
	}

	result.Updates = updates
	result.AnnouncementCount = count
	if count == 0 && opts.dryRun {
		return result, checkErr
	}

	dispatcher, err := e.dispatcher(opts.dryRun)
	if err != nil {
		return result, errors.Join(checkErr, err)
	}

	// Earlier failures go first so a delivery failing now is not retried twice
	var retryErr error
	if !opts.dryRun {
		retryErr = e.redeliver(ctx, dispatcher, prefs, result)
	}
	if count == 0 {
		return result, errors.Join(checkErr, retryErr)
	}

	res, dispatchErr := dispatcher.Dispatch(ctx, prefs, updates)
	result.Sent += res.Sent
	result.Failed += res.Failed
	logger.Info("Check complete", logger.Fields{"courses": len(codes), "new": count, "sent": res.Sent, "failed": res.Failed})

	return result, errors.Join(checkErr, retryErr, dispatchErr)
}

// redeliver retries queued deliveries that failed in earlier runs
func (e *env) redeliver(ctx context.Context, d *notifier.Dispatcher, prefs preferences.Preferences, result *CheckResult) error {
	pending, err := e.store.PendingDeliveries(ctx, notifier.MaxDeliveryAttempts)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	logger.Debug("Retrying failed deliveries", logger.Fields{"pending": len(pending)})
	res, err := d.Redeliver(ctx, prefs, pending)
	result.Retried = res.Sent
	result.Sent += res.Sent
	result.Failed += res.Failed
	return err
}

// dispatcher wires every configured channel. Dry runs print to the output instead
// and leave the notification log untouched.
func (e *env) dispatcher(dryRun bool) (*notifier.Dispatcher, error) {
	if dryRun {
		d := notifier.NewDispatcher(nil, nil).
			Register(notifier.NewDryRunNotifier(e.out, notifier.ChannelEmail)).
			Register(notifier.NewDryRunNotifier(e.out, notifier.ChannelTelegram))
		if e.cfg.Telegram.ChatID != "" {
			d.AddFeed(notifier.NewDryRunNotifier(e.out, notifier.ChannelTelegram), notifier.Recipient{Address: e.cfg.Telegram.ChatID})
		}
		if e.cfg.TwitterEnabled() {
			d.AddFeed(notifier.NewDryRunNotifier(e.out, notifier.ChannelTwitter), notifier.Recipient{Address: "@feed"})
		}
		return d, nil
	}

	d := notifier.NewDispatcher(e.store, e.metrics)

	if e.cfg.Telegram.BotToken != "" {
		client, err := telegram.NewClient(e.cfg.Telegram.BotToken)
		if err != nil {
			return nil, fmt.Errorf("creating Telegram client: %w", err)
		}
		tg := notifier.NewTelegramNotifier(client, true)
		d.Register(tg)
		if e.cfg.Telegram.ChatID != "" {
			d.AddFeed(tg, notifier.Recipient{Address: e.cfg.Telegram.ChatID})
		}
	}

	if e.cfg.EmailEnabled() {
		email, err := notifier.NewEmailNotifier(notifier.SMTPSettings{
			Host:     e.cfg.SMTP.Host,
			Port:     e.cfg.SMTP.Port,
			User:     e.cfg.SMTP.User,
			Password: e.cfg.SMTP.Password,
			From:     e.cfg.SMTP.From,
		})
		if err != nil {
			return nil, fmt.Errorf("creating email notifier: %w", err)
		}
		d.Register(email)
	}

	if e.cfg.TwitterEnabled() {
		tw, err := notifier.NewTwitterNotifier(notifier.TwitterCredentials{
			APIKey:       e.cfg.Twitter.APIKey,
			APISecret:    e.cfg.Twitter.APISecret,
			AccessToken:  e.cfg.Twitter.AccessToken,
			AccessSecret: e.cfg.Twitter.AccessSecret,
		})
		if err != nil {
			return nil, fmt.Errorf("creating Twitter notifier: %w", err)
		}
		d.AddFeed(tw, notifier.Recipient{})
	}

	return d, nil
}

func newWatchCmd() *cobra.Command {
	var (
		schedule string
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run check on a cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			if schedule == "" {
				schedule = e.cfg.Watch.Schedule
			}
			expr, err := cronexpr.Parse(schedule)
			if err != nil {
				return fmt.Errorf("invalid schedule %q: %w", schedule, err)
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			return e.watch(ctx, expr, checkOptions{dryRun: dryRun})
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron expression (default: watch.schedule from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print notifications instead of sending them")
	return cmd
}

// watch runs a check at every tick of expr until ctx is done
func (e *env) watch(ctx context.Context, expr *cronexpr.Expression, opts checkOptions) error {
	for {
		next := expr.Next(time.Now())
		if next.IsZero() {
			return fmt.Errorf("schedule has no future runs")
		}
		logger.Info("Next check scheduled", logger.Fields{"at": next.Format(time.RFC3339)})

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("Watch stopped", nil)
			return nil
		case <-timer.C:
		}

		result, err := e.runCheck(ctx, opts)
		if err != nil {
			logger.Error("Check failed", nil, err)
		}
		if result != nil && result.AnnouncementCount > 0 {
			writeCheckResult(e.out, result, flagVerbose)
		}
	}
}

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the course cache over a REST API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			if addr == "" {
				addr = e.cfg.Server.Addr
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			return api.New(e.catalog, e.metrics).Run(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr from config)")
	return cmd
}
