package temporal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	temporalsdk "go.temporal.io/sdk/temporal"

	"github.com/brojonat/xrplwatch/service/metrics"
	"github.com/brojonat/xrplwatch/service/monitor"
	"github.com/brojonat/xrplwatch/service/notify"
)

// MonitorInput contains the input parameters for one scheduled monitoring run.
type MonitorInput struct {
	Account string `json:"account"`
	// SendDigest sends the digest after the session.
	SendDigest bool `json:"send_digest"`
}

// MonitorResult contains the result of a monitoring run.
type MonitorResult struct {
	Account      string                 `json:"account"`
	Session      *monitor.SessionResult `json:"session,omitempty"`
	SessionError *string                `json:"session_error,omitempty"`
	DigestSent   bool                   `json:"digest_sent"`
	RunTime      time.Time              `json:"run_time"`
}

// RunSessionInput contains parameters for the RunSession activity.
type RunSessionInput struct {
	Account string `json:"account"`
}

// SendDigestInput contains parameters for the SendDigest activity.
type SendDigestInput struct {
	Account string `json:"account"`
}

// SendDigestResult contains the result of the SendDigest activity.
type SendDigestResult struct {
	Sent bool `json:"sent"`
}

// MonitorInterface defines the monitor operations needed by activities.
// This allows for easy mocking in tests.
type MonitorInterface interface {
	Account() string
	RunSession(ctx context.Context) (*monitor.SessionResult, error)
	SendDigest(ctx context.Context) error
}

// Activities holds the dependencies needed by Temporal activities.
type Activities struct {
	monitor MonitorInterface
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewActivities creates a new Activities instance with explicit dependencies.
// If metrics is nil, no metrics will be recorded.
func NewActivities(mon MonitorInterface, m *metrics.Metrics, logger *slog.Logger) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		monitor: mon,
		metrics: m,
		logger:  logger,
	}
}

// checkAccount rejects inputs for an account this worker does not watch.
// The error is non-retryable since a retry cannot fix it.
func (a *Activities) checkAccount(account string) error {
	if account != a.monitor.Account() {
		return temporalsdk.NewNonRetryableApplicationError(
			fmt.Sprintf("worker watches %s, not %s", a.monitor.Account(), account),
			"AccountMismatch",
			nil,
		)
	}
	return nil
}

// timeActivity returns a func that records the activity's duration when called.
func (a *Activities) timeActivity(activity, account string) func() {
	if a.metrics == nil {
		return func() {}
	}
	return metrics.Timer(time.Now(), func(seconds float64) {
		a.metrics.RecordActivityDuration(activity, account, seconds)
	})
}

// RunSession runs one poll loop session against the ledger.
func (a *Activities) RunSession(ctx context.Context, input RunSessionInput) (*monitor.SessionResult, error) {
	defer a.timeActivity("RunSession", input.Account)()

	if err := a.checkAccount(input.Account); err != nil {
		return nil, err
	}

	a.logger.DebugContext(ctx, "running session", "account", input.Account)

	result, err := a.monitor.RunSession(ctx)
	if err != nil {
		a.logger.ErrorContext(ctx, "session failed",
			"account", input.Account,
			"error", err,
		)
		return nil, fmt.Errorf("session failed: %w", err)
	}

	a.logger.InfoContext(ctx, "session completed",
		"account", input.Account,
		"session_id", result.SessionID,
		"processed", result.Processed,
		"journaled", result.Journaled,
		"halted", result.Halted,
	)
	return result, nil
}

// SendDigest sends the digest for the configured window. A missing webhook
// URL is reported as a non-retryable error.
func (a *Activities) SendDigest(ctx context.Context, input SendDigestInput) (*SendDigestResult, error) {
	defer a.timeActivity("SendDigest", input.Account)()

	if err := a.checkAccount(input.Account); err != nil {
		return nil, err
	}

	if err := a.monitor.SendDigest(ctx); err != nil {
		a.logger.ErrorContext(ctx, "digest failed",
			"account", input.Account,
			"error", err,
		)
		if errors.Is(err, notify.ErrWebhookDisabled) {
			return nil, temporalsdk.NewNonRetryableApplicationError(err.Error(), "WebhookDisabled", err)
		}
		return nil, err
	}

	return &SendDigestResult{Sent: true}, nil
}
