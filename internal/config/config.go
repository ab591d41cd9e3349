// Package config loads mooc-notices settings from a config file, a .env file and the
// environment.
//
// Values are resolved in viper's usual order: explicit environment variables
// (MOOC_ prefix, dots replaced by underscores, e.g. MOOC_TELEGRAM_BOT_TOKEN), then the
// config file (config.yaml in the working directory or ~/.config/mooc-notices), then
// defaults. A .env file is loaded into the environment first when one is found.
package config

import (
	"errors"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/tashifkhan/MOOC-utils/internal/logger"
	"github.com/tashifkhan/MOOC-utils/internal/scraper"
)

const envPrefix = "MOOC"

// Config holds all settings for the CLI, the watcher and the API server
type Config struct {
	Scraper         ScraperConfig  `mapstructure:"scraper"`
	DataDir         string         `mapstructure:"data_dir"`
	CacheTTLMinutes int            `mapstructure:"cache_ttl_minutes"`
	Log             LogConfig      `mapstructure:"log"`
	Server          ServerConfig   `mapstructure:"server"`
	Watch           WatchConfig    `mapstructure:"watch"`
	Telegram        TelegramConfig `mapstructure:"telegram"`
	SMTP            SMTPConfig     `mapstructure:"smtp"`
	Twitter         TwitterConfig  `mapstructure:"twitter"`
	Gist            GistConfig     `mapstructure:"gist"`
}

// ScraperConfig holds the portal endpoints
type ScraperConfig struct {
	SearchBaseURL          string        `mapstructure:"search_base_url"`
	PrimaryCourseBaseURL   string        `mapstructure:"primary_course_base_url"`
	SecondaryCourseBaseURL string        `mapstructure:"secondary_course_base_url"`
	Timeout                time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// WatchConfig holds the cron schedule used by the watch command
type WatchConfig struct {
	Schedule string `mapstructure:"schedule"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"` // channel that receives the public feed
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type TwitterConfig struct {
	APIKey       string `mapstructure:"api_key"`
	APISecret    string `mapstructure:"api_secret"`
	AccessToken  string `mapstructure:"access_token"`
	AccessSecret string `mapstructure:"access_secret"`
}

// GistConfig selects GitHub Gist storage for subscriptions when ID and Token are set
type GistConfig struct {
	ID            string `mapstructure:"id"`
	Token         string `mapstructure:"token"`
	EncryptionKey string `mapstructure:"encryption_key"`
}

var envFiles = []string{
	".env",
	"config/.env",
	"../config/.env",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scraper.search_base_url", scraper.SearchBaseURL)
	v.SetDefault("scraper.primary_course_base_url", scraper.PrimaryCourseBaseURL)
	v.SetDefault("scraper.secondary_course_base_url", scraper.SecondaryCourseBaseURL)
	v.SetDefault("scraper.timeout", scraper.Timeout)
	v.SetDefault("data_dir", "~/.local/share/mooc-notices")
	v.SetDefault("cache_ttl_minutes", 60)
	v.SetDefault("log.level", string(logger.LevelInfo))
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("watch.schedule", "*/30 * * * *")

	// Empty defaults so AutomaticEnv can see these keys during Unmarshal
	for _, key := range []string{
		"telegram.bot_token", "telegram.chat_id",
		"smtp.host", "smtp.user", "smtp.password", "smtp.from",
		"twitter.api_key", "twitter.api_secret", "twitter.access_token", "twitter.access_secret",
		"gist.id", "gist.token", "gist.encryption_key",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("smtp.port", 587)
}

// Load reads configuration. An empty path searches the default locations and
// tolerates a missing file; an explicit path must exist.
func Load(path string) (*Config, error) {
	for _, location := range envFiles {
		if err := godotenv.Load(location); err == nil {
			break
		}
	}

	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "mooc-notices"))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that would otherwise fail later at use
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.CacheTTLMinutes < 0 {
		return fmt.Errorf("cache_ttl_minutes must not be negative")
	}
	if c.Scraper.Timeout <= 0 {
		return fmt.Errorf("scraper.timeout must be greater than zero")
	}
	for name, base := range map[string]string{
		"scraper.search_base_url":           c.Scraper.SearchBaseURL,
		"scraper.primary_course_base_url":   c.Scraper.PrimaryCourseBaseURL,
		"scraper.secondary_course_base_url": c.Scraper.SecondaryCourseBaseURL,
	} {
		if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
			return fmt.Errorf("%s must be an http(s) URL", name)
		}
	}
	if _, err := cronexpr.Parse(c.Watch.Schedule); err != nil {
		return fmt.Errorf("watch.schedule: %w", err)
	}
	if c.SMTP.From != "" {
		if _, err := mail.ParseAddress(c.SMTP.From); err != nil {
			return fmt.Errorf("smtp.from: %w", err)
		}
	}
	return nil
}

// ScraperConfig converts the scraper section into scraper.Config with the browser headers
func (c *Config) ScraperConfig() scraper.Config {
	sc := scraper.DefaultConfig()
	sc.SearchBaseURL = strings.TrimRight(c.Scraper.SearchBaseURL, "/")
	sc.PrimaryCourseBaseURL = strings.TrimRight(c.Scraper.PrimaryCourseBaseURL, "/")
	sc.SecondaryCourseBaseURL = strings.TrimRight(c.Scraper.SecondaryCourseBaseURL, "/")
	sc.Timeout = c.Scraper.Timeout
	return sc
}

// CacheTTL is how long cached announcements are served before re-scraping
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// EmailEnabled reports whether SMTP delivery is configured
func (c *Config) EmailEnabled() bool {
	return c.SMTP.Host != "" && c.SMTP.From != ""
}

// TwitterEnabled reports whether all Twitter credentials are present
func (c *Config) TwitterEnabled() bool {
	t := c.Twitter
	return t.APIKey != "" && t.APISecret != "" && t.AccessToken != "" && t.AccessSecret != ""
}

// GistEnabled reports whether subscriptions live in a GitHub Gist
func (c *Config) GistEnabled() bool {
	return c.Gist.ID != "" && c.Gist.Token != ""
}
