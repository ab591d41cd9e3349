package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tashifkhan/MOOC-utils/internal/preferences"
)

// updatePreferences loads preferences, applies fn and saves them when fn reports a change
func updatePreferences(ctx context.Context, store preferences.Storage, fn func(preferences.Preferences) (bool, error)) (preferences.Preferences, error) {
	prefs, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading subscriptions: %w", err)
	}

	changed, err := fn(prefs)
	if err != nil {
		return nil, err
	}
	if !changed {
		return prefs, nil
	}

	if err := store.Save(ctx, prefs); err != nil {
		return nil, fmt.Errorf("saving subscriptions: %w", err)
	}
	return prefs, nil
}

func newSubscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subscribe <user> <course-code>...",
		Short: "Subscribe a user to course announcements",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			store, err := e.preferencesStorage()
			if err != nil {
				return err
			}

			userID, codes := args[0], args[1:]
			for _, code := range codes {
				if !preferences.IsValidCourseCode(code) {
					return fmt.Errorf("invalid course code: %s", code)
				}
			}

			_, err = updatePreferences(cmd.Context(), store, func(prefs preferences.Preferences) (bool, error) {
				changed := false
				for _, code := range codes {
					if prefs.Subscribe(userID, code) {
						fmt.Fprintf(e.out, "Subscribed %s to %s\n", userID, code)
						changed = true
					} else {
						fmt.Fprintf(e.out, "%s already follows %s\n", userID, code)
					}
				}
				return changed, nil
			})
			return err
		},
	}
}

func newUnsubscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unsubscribe <user> <course-code>...",
		Short: "Stop following courses",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			store, err := e.preferencesStorage()
			if err != nil {
				return err
			}

			userID, codes := args[0], args[1:]
			_, err = updatePreferences(cmd.Context(), store, func(prefs preferences.Preferences) (bool, error) {
				changed := false
				for _, code := range codes {
					if prefs.Unsubscribe(userID, code) {
						fmt.Fprintf(e.out, "Unsubscribed %s from %s\n", userID, code)
						changed = true
					} else {
						fmt.Fprintf(e.out, "%s does not follow %s\n", userID, code)
					}
				}
				return changed, nil
			})
			return err
		},
	}
}

func newSubscriptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subscriptions [user]",
		Short: "List subscribers, or the courses one user follows",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			store, err := e.preferencesStorage()
			if err != nil {
				return err
			}
			prefs, err := store.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("loading subscriptions: %w", err)
			}

			if len(args) == 1 {
				user, ok := prefs[args[0]]
				if !ok {
					return fmt.Errorf("unknown user %q", args[0])
				}
				prefs = preferences.Preferences{args[0]: user}
			}

			if e.format == FormatJSON {
				return writeJSON(e.out, prefs)
			}
			writeSubscriptions(e.out, prefs)
			return nil
		},
	}
}

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage subscriber contact details",
	}

	var name, email, telegramChatID string
	add := &cobra.Command{
		Use:   "add <user>",
		Short: "Create or update a user; every channel with an address is enabled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			store, err := e.preferencesStorage()
			if err != nil {
				return err
			}

			_, err = updatePreferences(cmd.Context(), store, func(prefs preferences.Preferences) (bool, error) {
				user, err := prefs.AddUser(args[0], name, email, telegramChatID)
				if err != nil {
					return false, err
				}
				fmt.Fprintf(e.out, "Saved %s (channels: %v)\n", args[0], user.Channels)
				return true, nil
			})
			return err
		},
	}
	add.Flags().StringVar(&name, "name", "", "Display name")
	add.Flags().StringVar(&email, "email", "", "Email address")
	add.Flags().StringVar(&telegramChatID, "telegram", "", "Telegram chat ID")

	setActive := func(use, short string, active bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <user>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				e, err := setup(cmd)
				if err != nil {
					return err
				}
				defer e.close()

				store, err := e.preferencesStorage()
				if err != nil {
					return err
				}
				_, err = updatePreferences(cmd.Context(), store, func(prefs preferences.Preferences) (bool, error) {
					user, ok := prefs[args[0]]
					if !ok {
						return false, fmt.Errorf("unknown user %q", args[0])
					}
					user.Active = active
					return true, nil
				})
				return err
			},
		}
	}

	cmd.AddCommand(
		add,
		setActive("pause", "Stop notifying a user without dropping subscriptions", false),
		setActive("resume", "Resume notifications for a paused user", true),
	)
	return cmd
}

func newGistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gist",
		Short: "Manage GitHub Gist subscription storage",
	}

	var description string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a private gist for subscriptions and print its ID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			id, err := preferences.CreateGist(cmd.Context(), preferences.GistAPIURL, e.cfg.Gist.Token, description)
			if err != nil {
				return err
			}
			fmt.Fprintln(e.out, id)
			if e.format == FormatText {
				fmt.Fprintf(e.errOut, "Set MOOC_GIST_ID=%s to store subscriptions in this gist.\n", id)
			}
			return nil
		},
	}
	create.Flags().StringVar(&description, "description", "mooc-notices subscriptions", "Gist description")

	cmd.AddCommand(create)
	return cmd
}

func newNotificationsCmd() *cobra.Command {
	var markRead []string

	cmd := &cobra.Command{
		Use:   "notifications <user>",
		Short: "Show the notifications delivered to a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			ctx := cmd.Context()
			for _, raw := range markRead {
				id, err := strconv.ParseInt(raw, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid notification id: %s", raw)
				}
				if err := e.store.MarkRead(ctx, id); err != nil {
					return err
				}
			}

			list, err := e.store.ListNotifications(ctx, args[0])
			if err != nil {
				return err
			}
			if e.format == FormatJSON {
				return writeJSON(e.out, list)
			}
			writeNotifications(e.out, list)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&markRead, "mark-read", nil, "Mark these notification IDs as read first")
	return cmd
}
