package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tashifkhan/MOOC-utils/internal/catalog"
	"github.com/tashifkhan/MOOC-utils/internal/config"
	"github.com/tashifkhan/MOOC-utils/internal/logger"
	"github.com/tashifkhan/MOOC-utils/internal/metrics"
	"github.com/tashifkhan/MOOC-utils/internal/preferences"
	"github.com/tashifkhan/MOOC-utils/internal/scraper"
	"github.com/tashifkhan/MOOC-utils/internal/storage"
)

const (
	ExitSuccess          = 0
	ExitError            = 1
	ExitNewAnnouncements = 2
)

// exitError carries a non-zero exit code that is not a failure up to Execute
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

var (
	flagConfig  string
	flagFormat  string
	flagVerbose bool
)

// env holds everything a command needs, built once per invocation
type env struct {
	cfg     *config.Config
	store   *storage.Storage
	metrics *metrics.Metrics
	catalog *catalog.Catalog
	format  OutputFormat
	out     io.Writer
	errOut  io.Writer
}

// NewRootCmd creates the root command with every subcommand attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mooc-notices",
		Short: "Search SWAYAM/NPTEL courses and track their announcements",
		Long: `A CLI tool to search the SWAYAM and NPTEL MOOC portals, read course
announcements and notify subscribers when new announcements are posted.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: ./config.yaml or ~/.config/mooc-notices/config.yaml)")
	cmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")

	cmd.AddCommand(
		newSearchCmd(),
		newAnnouncementsCmd(),
		newCoursesCmd(),
		newInteractiveCmd(),
		newSubscribeCmd(),
		newUnsubscribeCmd(),
		newSubscriptionsCmd(),
		newUserCmd(),
		newGistCmd(),
		newNotificationsCmd(),
		newCheckCmd(),
		newWatchCmd(),
		newServeCmd(),
	)

	return cmd
}

// setup loads config, configures logging and opens the store
func setup(cmd *cobra.Command) (*env, error) {
	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return nil, fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	level, _ := logger.ParseLevel(cfg.Log.Level)
	if flagVerbose {
		level = logger.LevelDebug
	}
	logger.SetDefault(logger.New(level, cmd.ErrOrStderr()))

	store, err := storage.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	m := metrics.New()
	sc := scraper.NewWithConfig(cfg.ScraperConfig()).WithRecorder(m)

	logger.Debug("Environment ready", logger.Fields{"data_dir": cfg.DataDir, "cache_ttl": cfg.CacheTTL().String()})

	return &env{
		cfg:     cfg,
		store:   store,
		metrics: m,
		catalog: catalog.New(sc, store, cfg.CacheTTL()),
		format:  format,
		out:     cmd.OutOrStdout(),
		errOut:  cmd.ErrOrStderr(),
	}, nil
}

func (e *env) close() {
	if err := e.store.Close(); err != nil {
		logger.Warn("Closing storage failed", logger.Fields{"error": err.Error()})
	}
}

// preferencesStorage picks Gist storage when configured, else the local file
func (e *env) preferencesStorage() (preferences.Storage, error) {
	if e.cfg.GistEnabled() {
		return preferences.NewGistStorage(e.cfg.Gist.ID, e.cfg.Gist.Token, e.cfg.Gist.EncryptionKey)
	}
	return preferences.NewFileStorage(e.cfg.DataDir, e.cfg.Gist.EncryptionKey)
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Execute runs the CLI
func Execute() {
	err := NewRootCmd().Execute()
	if err == nil {
		os.Exit(ExitSuccess)
	}

	var exit *exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitError)
}
