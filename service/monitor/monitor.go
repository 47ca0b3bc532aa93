package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/xrplwatch/service/journal"
	"github.com/brojonat/xrplwatch/service/metrics"
	"github.com/brojonat/xrplwatch/service/notify"
	"github.com/brojonat/xrplwatch/service/xrpl"
)

// ErrDigestFailed is returned when a digest could not be delivered.
var ErrDigestFailed = errors.New("digest send failed")

const (
	DefaultPageSize             = 100
	DefaultHours                = 24
	DefaultMaxConsecutiveErrors = 3
	DefaultErrorDelay           = 5 * time.Second
	DefaultSessionInterval      = 5 * time.Minute
)

// Journal is the part of the journal store the poll loop writes to.
type Journal interface {
	Append(ctx context.Context, entry journal.Entry) (bool, error)
}

// DigestSender sends the digest for the window ending at now.
type DigestSender interface {
	Send(ctx context.Context, now time.Time) error
}

// MatchSink receives newly journaled matches.
type MatchSink interface {
	PublishMatch(ctx context.Context, account string, entry journal.Entry) error
}

// Config holds everything a session needs. It is built once at startup.
type Config struct {
	Account   string
	Endpoints []string
	// Dial defaults to xrpl.DefaultDialer.
	Dial     xrpl.Dialer
	Hours    int
	PageSize int
	// Strategy defaults to ChronologicalCutoff.
	Strategy             StopStrategy
	MaxConsecutiveErrors int
	ErrorDelay           time.Duration
	SessionInterval      time.Duration

	Journal Journal
	// Digest and Schedule are optional. When both are set the session sends
	// the digest whenever it comes due.
	Digest   DigestSender
	Schedule *DigestSchedule
	// Sink is optional.
	Sink MatchSink

	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Now     func() time.Time
	Sleep   func(ctx context.Context, d time.Duration) error
}

func (c Config) withDefaults() Config {
	if len(c.Endpoints) == 0 {
		c.Endpoints = xrpl.DefaultEndpoints
	}
	if c.Dial == nil {
		c.Dial = xrpl.DefaultDialer
	}
	if c.Hours <= 0 {
		c.Hours = DefaultHours
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.Strategy == nil {
		c.Strategy = ChronologicalCutoff{}
	}
	if c.MaxConsecutiveErrors <= 0 {
		c.MaxConsecutiveErrors = DefaultMaxConsecutiveErrors
	}
	if c.ErrorDelay <= 0 {
		c.ErrorDelay = DefaultErrorDelay
	}
	if c.SessionInterval <= 0 {
		c.SessionInterval = DefaultSessionInterval
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Sleep == nil {
		c.Sleep = notify.Sleep
	}
	return c
}

// Monitor runs sessions, either once or continuously.
type Monitor struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Monitor.
func New(cfg Config) *Monitor {
	cfg = cfg.withDefaults()
	return &Monitor{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "monitor"),
	}
}

// Account returns the watched account.
func (m *Monitor) Account() string {
	return m.cfg.Account
}

// RunSession runs one fresh session.
func (m *Monitor) RunSession(ctx context.Context) (*SessionResult, error) {
	return NewSession(m.cfg).Run(ctx)
}

// SendDigest sends the digest now and updates the schedule, if any.
// Failures wrap ErrDigestFailed.
func (m *Monitor) SendDigest(ctx context.Context) error {
	if m.cfg.Digest == nil {
		return fmt.Errorf("%w: %w", ErrDigestFailed, notify.ErrWebhookDisabled)
	}

	now := m.cfg.Now()
	err := m.cfg.Digest.Send(ctx, now)
	if m.cfg.Schedule != nil {
		if err != nil {
			m.cfg.Schedule.MarkFailed(now)
		} else {
			m.cfg.Schedule.MarkSent(now)
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDigestFailed, err)
	}
	return nil
}

// RunContinuous sends a startup digest and then runs sessions with
// SessionInterval between them until ctx is cancelled. Session failures are
// logged and the next round starts as usual.
func (m *Monitor) RunContinuous(ctx context.Context) error {
	m.logger.InfoContext(ctx, "starting continuous monitoring",
		"account", m.cfg.Account,
		"hours", m.cfg.Hours,
		"session_interval", m.cfg.SessionInterval,
	)

	if err := m.SendDigest(ctx); err != nil {
		m.logger.WarnContext(ctx, "startup digest failed", "error", err)
	}

	for {
		result, err := m.RunSession(ctx)
		if ctx.Err() != nil {
			m.logger.InfoContext(ctx, "monitoring stopped")
			return nil
		}
		if err != nil {
			m.logger.ErrorContext(ctx, "session failed", "error", err)
		} else if result.Halted {
			m.logger.WarnContext(ctx, "session halted after reconnection failure",
				"session_id", result.SessionID,
			)
		}

		if err := m.cfg.Sleep(ctx, m.cfg.SessionInterval); err != nil {
			m.logger.InfoContext(ctx, "monitoring stopped")
			return nil
		}
	}
}

// RunOnce runs one session and then sends the digest. Session errors are
// logged; only the digest outcome is returned.
func (m *Monitor) RunOnce(ctx context.Context) (*SessionResult, error) {
	result, err := m.RunSession(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "session failed", "error", err)
	}
	if ctx.Err() != nil {
		return result, ctx.Err()
	}

	if err := m.SendDigest(ctx); err != nil {
		m.logger.ErrorContext(ctx, "digest failed", "error", err)
		return result, err
	}
	return result, nil
}
