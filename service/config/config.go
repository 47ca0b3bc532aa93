package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	addresscodec "github.com/Peersyst/xrpl-go/address-codec"
)

// DefaultTargetAddress is the account watched when TARGET_ADDRESS is unset.
const DefaultTargetAddress = "r4yc85M1hwsegVGZ1pawpZPwj65SVs8PzD"

// DefaultRPCURLs are the public XRPL nodes tried in order.
const DefaultRPCURLs = "https://s1.ripple.com:51234/,https://s2.ripple.com:51234/,https://xrplcluster.com"

// Config holds all application configuration loaded from environment variables.
// It is built once at startup and passed explicitly to every component.
type Config struct {
	// Monitoring target
	TargetAddress string
	RPCURLs       []string
	HoursToCheck  int
	PageSize      int
	StopStrategy  string

	// Journal
	JournalPath string

	// Digest delivery. An empty webhook URL disables digests.
	DiscordWebhookURL   string
	MaxMessageLength    int
	DigestInterval      time.Duration
	DigestRetryInterval time.Duration

	// Run mode
	Unattended      bool
	SessionInterval time.Duration

	// Observability
	LogLevel    string
	MetricsAddr string

	// ServerAddr is where the read-only journal API listens.
	ServerAddr string

	// NATS configuration. An empty URL disables match events.
	NATSURL string

	// Temporal configuration
	TemporalHost      string
	TemporalNamespace string
	TemporalTaskQueue string
}

// Load reads configuration from environment variables and validates it.
// Every problem is reported, not just the first.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.TargetAddress = getEnvOrDefault("TARGET_ADDRESS", DefaultTargetAddress)
	cfg.RPCURLs = splitList(getEnvOrDefault("XRPL_RPC_URLS", DefaultRPCURLs))
	cfg.StopStrategy = getEnvOrDefault("STOP_STRATEGY", "cutoff")
	cfg.JournalPath = getEnvOrDefault("JOURNAL_PATH", "blacklisted_addresses.json")
	cfg.DiscordWebhookURL = os.Getenv("DISCORD_WEBHOOK_URL")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	cfg.MetricsAddr = getEnvOrDefault("METRICS_ADDR", ":9091")
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.NATSURL = os.Getenv("NATS_URL")

	cfg.TemporalHost = getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")
	cfg.TemporalNamespace = getEnvOrDefault("TEMPORAL_NAMESPACE", "default")
	cfg.TemporalTaskQueue = getEnvOrDefault("TEMPORAL_TASK_QUEUE", "xrplwatch-monitor")

	var err error
	if cfg.HoursToCheck, err = parseInt("HOURS_TO_CHECK", 24); err != nil {
		errs = append(errs, err)
	}
	if cfg.PageSize, err = parseInt("PAGE_SIZE", 100); err != nil {
		errs = append(errs, err)
	}
	if cfg.MaxMessageLength, err = parseInt("DISCORD_MAX_MESSAGE_LENGTH", 1900); err != nil {
		errs = append(errs, err)
	}
	if cfg.Unattended, err = parseBool("UNATTENDED", false); err != nil {
		errs = append(errs, err)
	}
	if cfg.DigestInterval, err = parseDuration("DIGEST_INTERVAL", "1h"); err != nil {
		errs = append(errs, err)
	}
	if cfg.DigestRetryInterval, err = parseDuration("DIGEST_RETRY_INTERVAL", "5m"); err != nil {
		errs = append(errs, err)
	}
	if cfg.SessionInterval, err = parseDuration("SESSION_INTERVAL", "5m"); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if !addresscodec.IsValidClassicAddress(c.TargetAddress) {
		errs = append(errs, fmt.Errorf("TARGET_ADDRESS %q is not a classic XRPL address", c.TargetAddress))
	}

	if len(c.RPCURLs) == 0 {
		errs = append(errs, fmt.Errorf("XRPL_RPC_URLS must list at least one endpoint"))
	}
	for _, raw := range c.RPCURLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("XRPL_RPC_URLS: invalid endpoint %q", raw))
		}
	}

	if c.DiscordWebhookURL != "" {
		u, err := url.Parse(c.DiscordWebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("DISCORD_WEBHOOK_URL is not a valid URL"))
		}
	}

	if c.HoursToCheck < 1 {
		errs = append(errs, fmt.Errorf("HOURS_TO_CHECK must be at least 1"))
	}

	// rippled caps account_tx at 400 results per page
	if c.PageSize < 1 || c.PageSize > 400 {
		errs = append(errs, fmt.Errorf("PAGE_SIZE must be between 1 and 400"))
	}

	// Discord rejects messages over 2000 characters; the lower bound must
	// hold a header plus one full digest entry.
	if c.MaxMessageLength < 500 || c.MaxMessageLength > 2000 {
		errs = append(errs, fmt.Errorf("DISCORD_MAX_MESSAGE_LENGTH must be between 500 and 2000"))
	}

	if c.StopStrategy != "cutoff" && c.StopStrategy != "filter" {
		errs = append(errs, fmt.Errorf("STOP_STRATEGY must be \"cutoff\" or \"filter\", got %q", c.StopStrategy))
	}

	if c.JournalPath == "" {
		errs = append(errs, fmt.Errorf("JOURNAL_PATH is required"))
	}

	if c.DigestInterval < time.Minute {
		errs = append(errs, fmt.Errorf("DIGEST_INTERVAL must be at least 1 minute"))
	}

	if c.DigestRetryInterval < time.Second {
		errs = append(errs, fmt.Errorf("DIGEST_RETRY_INTERVAL must be at least 1 second"))
	}

	if c.DigestRetryInterval > c.DigestInterval {
		errs = append(errs, fmt.Errorf("DIGEST_RETRY_INTERVAL (%v) cannot be greater than DIGEST_INTERVAL (%v)",
			c.DigestRetryInterval, c.DigestInterval))
	}

	if c.SessionInterval < time.Second {
		errs = append(errs, fmt.Errorf("SESSION_INTERVAL must be at least 1 second"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// DigestEnabled reports whether a webhook URL is configured.
func (c *Config) DigestEnabled() bool {
	return c.DiscordWebhookURL != ""
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList splits a comma-separated list, dropping empty items.
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}

// parseBool parses a boolean from an environment variable or uses a default.
func parseBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q: %w", key, value, err)
	}
	return result, nil
}
