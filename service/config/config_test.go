package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cleanupEnv()
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, DefaultTargetAddress, cfg.TargetAddress)
	assert.Len(t, cfg.RPCURLs, 3)
	assert.Equal(t, "https://s1.ripple.com:51234/", cfg.RPCURLs[0])
	assert.Equal(t, 24, cfg.HoursToCheck)
	assert.Equal(t, 100, cfg.PageSize)
	assert.Equal(t, 1900, cfg.MaxMessageLength)
	assert.Equal(t, "cutoff", cfg.StopStrategy)
	assert.Equal(t, "blacklisted_addresses.json", cfg.JournalPath)
	assert.Equal(t, time.Hour, cfg.DigestInterval)
	assert.Equal(t, 5*time.Minute, cfg.DigestRetryInterval)
	assert.Equal(t, 5*time.Minute, cfg.SessionInterval)
	assert.False(t, cfg.Unattended)
	assert.False(t, cfg.DigestEnabled())
	assert.Empty(t, cfg.NATSURL)
	assert.Equal(t, ":9091", cfg.MetricsAddr)
	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "localhost:7233", cfg.TemporalHost)
	assert.Equal(t, "xrplwatch-monitor", cfg.TemporalTaskQueue)
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("TARGET_ADDRESS", "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh")
	os.Setenv("XRPL_RPC_URLS", " https://node.example.com:51234/ ,, http://localhost:5005 ")
	os.Setenv("DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/abc")
	os.Setenv("HOURS_TO_CHECK", "48")
	os.Setenv("PAGE_SIZE", "200")
	os.Setenv("UNATTENDED", "true")
	os.Setenv("STOP_STRATEGY", "filter")
	os.Setenv("DIGEST_INTERVAL", "2h")
	os.Setenv("DIGEST_RETRY_INTERVAL", "10m")
	os.Setenv("NATS_URL", "nats://localhost:4222")
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh", cfg.TargetAddress)
	assert.Equal(t, []string{"https://node.example.com:51234/", "http://localhost:5005"}, cfg.RPCURLs)
	assert.True(t, cfg.DigestEnabled())
	assert.Equal(t, 48, cfg.HoursToCheck)
	assert.Equal(t, 200, cfg.PageSize)
	assert.True(t, cfg.Unattended)
	assert.Equal(t, "filter", cfg.StopStrategy)
	assert.Equal(t, 2*time.Hour, cfg.DigestInterval)
	assert.Equal(t, 10*time.Minute, cfg.DigestRetryInterval)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
}

func TestLoad_InvalidDuration(t *testing.T) {
	os.Setenv("DIGEST_INTERVAL", "hourly")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoad_InvalidInteger(t *testing.T) {
	os.Setenv("HOURS_TO_CHECK", "a day")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "HOURS_TO_CHECK: invalid integer")
}

func TestLoad_InvalidBool(t *testing.T) {
	os.Setenv("UNATTENDED", "sometimes")
	defer cleanupEnv()

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNATTENDED: invalid boolean")
}

func TestLoad_ReportsAllParseErrors(t *testing.T) {
	os.Setenv("HOURS_TO_CHECK", "x")
	os.Setenv("PAGE_SIZE", "y")
	defer cleanupEnv()

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HOURS_TO_CHECK")
	assert.Contains(t, err.Error(), "PAGE_SIZE")
}

func TestLoad_RetryGreaterThanInterval(t *testing.T) {
	os.Setenv("DIGEST_INTERVAL", "5m")
	os.Setenv("DIGEST_RETRY_INTERVAL", "10m")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "cannot be greater than DIGEST_INTERVAL")
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad address prefix", func(c *Config) { c.TargetAddress = "x4yc85M1hwsegVGZ1pawpZPwj65SVs8PzD" }, "TARGET_ADDRESS"},
		{"address with zero", func(c *Config) { c.TargetAddress = "r0yc85M1hwsegVGZ1pawpZPwj65SVs8PzD" }, "TARGET_ADDRESS"},
		{"address checksum mismatch", func(c *Config) { c.TargetAddress = "r4yc85M1hwsegVGZ1pawpZPwj65SVs8PzE" }, "TARGET_ADDRESS"},
		{"no endpoints", func(c *Config) { c.RPCURLs = nil }, "at least one endpoint"},
		{"bad endpoint scheme", func(c *Config) { c.RPCURLs = []string{"wss://s1.ripple.com"} }, "invalid endpoint"},
		{"bad webhook", func(c *Config) { c.DiscordWebhookURL = "discord" }, "DISCORD_WEBHOOK_URL"},
		{"zero hours", func(c *Config) { c.HoursToCheck = 0 }, "HOURS_TO_CHECK"},
		{"page too large", func(c *Config) { c.PageSize = 401 }, "PAGE_SIZE"},
		{"message too long", func(c *Config) { c.MaxMessageLength = 2001 }, "DISCORD_MAX_MESSAGE_LENGTH"},
		{"message too short for one entry", func(c *Config) { c.MaxMessageLength = 300 }, "DISCORD_MAX_MESSAGE_LENGTH"},
		{"unknown strategy", func(c *Config) { c.StopStrategy = "newest" }, "STOP_STRATEGY"},
		{"empty journal path", func(c *Config) { c.JournalPath = "" }, "JOURNAL_PATH is required"},
		{"digest interval too short", func(c *Config) { c.DigestInterval = 30 * time.Second; c.DigestRetryInterval = time.Second }, "DIGEST_INTERVAL must be at least 1 minute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMustLoad_Panics(t *testing.T) {
	os.Setenv("PAGE_SIZE", "0")
	defer cleanupEnv()

	assert.Panics(t, func() {
		MustLoad()
	})
}

func TestMustLoad_Success(t *testing.T) {
	cleanupEnv()
	defer cleanupEnv()

	assert.NotPanics(t, func() {
		cfg := MustLoad()
		assert.NotNil(t, cfg)
	})
}

func validConfig() *Config {
	return &Config{
		TargetAddress:       DefaultTargetAddress,
		RPCURLs:             []string{"https://s1.ripple.com:51234/"},
		HoursToCheck:        24,
		PageSize:            100,
		StopStrategy:        "cutoff",
		JournalPath:         "journal.json",
		MaxMessageLength:    1900,
		DigestInterval:      time.Hour,
		DigestRetryInterval: 5 * time.Minute,
		SessionInterval:     5 * time.Minute,
	}
}

func cleanupEnv() {
	for _, key := range []string{
		"TARGET_ADDRESS",
		"XRPL_RPC_URLS",
		"DISCORD_WEBHOOK_URL",
		"DISCORD_MAX_MESSAGE_LENGTH",
		"HOURS_TO_CHECK",
		"PAGE_SIZE",
		"UNATTENDED",
		"STOP_STRATEGY",
		"JOURNAL_PATH",
		"DIGEST_INTERVAL",
		"DIGEST_RETRY_INTERVAL",
		"SESSION_INTERVAL",
		"LOG_LEVEL",
		"METRICS_ADDR",
		"SERVER_ADDR",
		"NATS_URL",
		"TEMPORAL_HOST",
		"TEMPORAL_NAMESPACE",
		"TEMPORAL_TASK_QUEUE",
	} {
		os.Unsetenv(key)
	}
}
