// Package notify composes blacklist digests from the journal and delivers
// them to a Discord webhook.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/xrplwatch/service/journal"
	"github.com/brojonat/xrplwatch/service/metrics"
)

// DefaultChunkDelay spaces consecutive chunks to stay under webhook rate limits.
const DefaultChunkDelay = time.Second

// EntrySource is the part of the journal a digest reads.
type EntrySource interface {
	LoadWithin(ctx context.Context, w journal.Window) ([]journal.Entry, error)
}

// DigesterConfig holds configuration for a Digester.
type DigesterConfig struct {
	Source EntrySource
	// Sender may be nil, in which case delivery is disabled.
	Sender Sender
	Hours  int
	// MaxMessageLength defaults to DefaultMaxMessageLength.
	MaxMessageLength int
	// ChunkDelay defaults to DefaultChunkDelay.
	ChunkDelay time.Duration
	// Unattended sends a "no new addresses" message when the window is empty.
	// Otherwise an empty window is skipped and counts as delivered.
	Unattended bool
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	// Sleep is used between chunks. Defaults to a context-aware time.After.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Digester reads recent journal entries and sends them as chunked messages.
type Digester struct {
	source     EntrySource
	sender     Sender
	hours      int
	budget     int
	delay      time.Duration
	unattended bool
	metrics    *metrics.Metrics
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewDigester creates a Digester.
func NewDigester(cfg DigesterConfig) *Digester {
	d := &Digester{
		source:     cfg.Source,
		sender:     cfg.Sender,
		hours:      cfg.Hours,
		budget:     cfg.MaxMessageLength,
		delay:      cfg.ChunkDelay,
		unattended: cfg.Unattended,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		sleep:      cfg.Sleep,
	}
	if d.budget <= 0 {
		d.budget = DefaultMaxMessageLength
	}
	if d.delay <= 0 {
		d.delay = DefaultChunkDelay
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	d.logger = d.logger.With("component", "digester")
	if d.sleep == nil {
		d.sleep = Sleep
	}
	return d
}

// Enabled reports whether a sender is configured.
func (d *Digester) Enabled() bool {
	if d.sender == nil {
		return false
	}
	if w, ok := d.sender.(*Webhook); ok {
		return w.Enabled()
	}
	return true
}

// Compose returns the chunks a digest sent at now would contain.
func (d *Digester) Compose(ctx context.Context, now time.Time) ([]string, error) {
	entries, err := d.source.LoadWithin(ctx, journal.WindowEndingAt(now, d.hours))
	if err != nil {
		return nil, fmt.Errorf("failed to load journal entries: %w", err)
	}
	return ComposeDigest(entries, d.hours, d.budget), nil
}

// Send delivers the digest for the window ending at now. It returns nil when
// every chunk was delivered, or when there was nothing to send and an empty
// digest is not wanted. ErrWebhookDisabled is returned if no sender is set.
func (d *Digester) Send(ctx context.Context, now time.Time) error {
	if !d.Enabled() {
		d.logger.WarnContext(ctx, "skipping digest, webhook URL not set")
		d.record("disabled")
		return ErrWebhookDisabled
	}

	window := journal.WindowEndingAt(now, d.hours)
	entries, err := d.source.LoadWithin(ctx, window)
	if err != nil {
		d.record("error")
		return fmt.Errorf("failed to load journal entries: %w", err)
	}

	if len(entries) == 0 && !d.unattended {
		d.logger.InfoContext(ctx, "no new blacklisted addresses, skipping digest",
			"hours", d.hours,
		)
		d.record("skipped")
		return nil
	}

	chunks := ComposeDigest(entries, d.hours, d.budget)
	d.logger.InfoContext(ctx, "sending digest",
		"entries", len(entries),
		"chunks", len(chunks),
		"window_start", window.Start,
		"window_end", window.End,
	)

	var errs []error
	for i, chunk := range chunks {
		if err := d.sender.Send(ctx, chunk); err != nil {
			d.logger.ErrorContext(ctx, "failed to send digest chunk",
				"chunk", i+1,
				"chunks", len(chunks),
				"error", err,
			)
			d.recordChunk("error")
			errs = append(errs, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err))
		} else {
			d.recordChunk("success")
		}

		if i < len(chunks)-1 {
			if err := d.sleep(ctx, d.delay); err != nil {
				errs = append(errs, err)
				break
			}
		}
	}

	if len(errs) > 0 {
		d.record("error")
		return errors.Join(errs...)
	}

	d.logger.InfoContext(ctx, "digest sent", "chunks", len(chunks))
	d.record("success")
	return nil
}

func (d *Digester) record(status string) {
	if d.metrics != nil {
		d.metrics.RecordDigestSend(status)
	}
}

func (d *Digester) recordChunk(status string) {
	if d.metrics != nil {
		d.metrics.RecordDigestChunk(status)
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
