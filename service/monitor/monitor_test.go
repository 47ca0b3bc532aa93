package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/xrplwatch/service/journal"
	"github.com/brojonat/xrplwatch/service/notify"
	"github.com/brojonat/xrplwatch/service/xrpl"
)

func singlePageLedger() *FakeLedger {
	return &FakeLedger{
		Pages: map[string]*xrpl.AccountTxResult{
			"": page("", PaymentTx("H1", "rA", testNow, "Task ID: Blacklist #1")),
		},
	}
}

func TestRunOnce(t *testing.T) {
	t.Run("digest delivered", func(t *testing.T) {
		digest := &fakeDigest{}
		cfg, _ := testConfig(t, singlePageLedger(), journal.NewTestStore(t))
		cfg.Digest = digest

		result, err := New(cfg).RunOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, result.Journaled)
		assert.Equal(t, []time.Time{testNow}, digest.calls)
	})

	t.Run("digest failure", func(t *testing.T) {
		cfg, _ := testConfig(t, singlePageLedger(), journal.NewTestStore(t))
		cfg.Digest = &fakeDigest{err: errors.New("webhook failed with status 500")}

		_, err := New(cfg).RunOnce(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDigestFailed))
	})

	t.Run("no digest configured", func(t *testing.T) {
		cfg, _ := testConfig(t, singlePageLedger(), journal.NewTestStore(t))

		_, err := New(cfg).RunOnce(context.Background())
		assert.True(t, errors.Is(err, ErrDigestFailed))
		assert.True(t, errors.Is(err, notify.ErrWebhookDisabled))
	})

	t.Run("session failure still sends digest", func(t *testing.T) {
		ledger := &FakeLedger{ProbeErrs: []error{errors.New("connection refused")}}
		digest := &fakeDigest{}
		cfg, _ := testConfig(t, ledger, journal.NewTestStore(t))
		cfg.Digest = digest

		_, err := New(cfg).RunOnce(context.Background())
		require.NoError(t, err)
		assert.Len(t, digest.calls, 1)
	})
}

func TestRunOnce_UnattendedEmptyDigest(t *testing.T) {
	var messages []string
	sender := senderFunc(func(ctx context.Context, content string) error {
		messages = append(messages, content)
		return nil
	})

	ledger := &FakeLedger{
		Pages: map[string]*xrpl.AccountTxResult{
			"": page("", PaymentTx("H1", "rA", testNow, "nothing to see")),
		},
	}
	store := journal.NewTestStore(t)
	cfg, _ := testConfig(t, ledger, store)
	cfg.Digest = notify.NewDigester(notify.DigesterConfig{
		Source:     store,
		Sender:     sender,
		Hours:      24,
		Unattended: true,
		Logger:     discardLogger(),
	})

	_, err := New(cfg).RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "No new blacklisted addresses")
}

type senderFunc func(ctx context.Context, content string) error

func (f senderFunc) Send(ctx context.Context, content string) error {
	return f(ctx, content)
}

func TestRunContinuous(t *testing.T) {
	ledger := singlePageLedger()
	digest := &fakeDigest{err: errors.New("webhook failed with status 500")}
	cfg, _ := testConfig(t, ledger, journal.NewTestStore(t))
	cfg.Digest = digest
	cfg.Schedule = NewDigestSchedule(time.Hour, 5*time.Minute, testNow)
	cfg.SessionInterval = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sessionSleeps int
	cfg.Sleep = func(ctx context.Context, d time.Duration) error {
		if d == time.Minute {
			sessionSleeps++
			if sessionSleeps == 2 {
				cancel()
			}
		}
		return ctx.Err()
	}

	err := New(cfg).RunContinuous(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, sessionSleeps)
	assert.Equal(t, 2, ledger.FetchCount())
	// the startup digest failed, so the next attempt is a retry interval away
	assert.Len(t, digest.calls, 1)
	assert.Equal(t, testNow.Add(5*time.Minute), cfg.Schedule.Next())
}

func TestDigestSchedule(t *testing.T) {
	s := NewDigestSchedule(time.Hour, 5*time.Minute, testNow)
	assert.False(t, s.Due(testNow))
	assert.False(t, s.Due(testNow.Add(59*time.Minute)))
	assert.True(t, s.Due(testNow.Add(time.Hour)))

	sentAt := testNow.Add(time.Hour)
	s.MarkSent(sentAt)
	assert.False(t, s.Due(sentAt.Add(30*time.Minute)))
	assert.True(t, s.Due(sentAt.Add(time.Hour)))

	failedAt := sentAt.Add(time.Hour)
	s.MarkFailed(failedAt)
	assert.False(t, s.Due(failedAt.Add(4*time.Minute)))
	assert.True(t, s.Due(failedAt.Add(5*time.Minute)))

	defaults := NewDigestSchedule(0, 0, testNow)
	assert.Equal(t, DefaultDigestInterval, defaults.Interval)
	assert.Equal(t, DefaultDigestRetry, defaults.Retry)
}

func TestStrategies(t *testing.T) {
	window := journal.WindowEndingAt(testNow, 24)

	tests := []struct {
		name     string
		strategy StopStrategy
		ts       time.Time
		want     Decision
	}{
		{"cutoff inside", ChronologicalCutoff{}, testNow.Add(-time.Hour), Process},
		{"cutoff at start", ChronologicalCutoff{}, window.Start, Process},
		{"cutoff newer than window end", ChronologicalCutoff{}, testNow.Add(time.Minute), Process},
		{"cutoff older", ChronologicalCutoff{}, window.Start.Add(-time.Second), Stop},
		{"filter inside", FilterWindow{}, testNow.Add(-time.Hour), Process},
		{"filter older", FilterWindow{}, window.Start.Add(-time.Second), Skip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.strategy.Decide(tt.ts, window))
		})
	}

	s, ok := StrategyByName("filter")
	require.True(t, ok)
	assert.IsType(t, FilterWindow{}, s)

	s, ok = StrategyByName("")
	require.True(t, ok)
	assert.IsType(t, ChronologicalCutoff{}, s)

	_, ok = StrategyByName("bogus")
	assert.False(t, ok)
}

func TestState_Text(t *testing.T) {
	for _, state := range []State{Connecting, Fetching, Processing, ErrorBackoff, Done} {
		data, err := json.Marshal(state)
		require.NoError(t, err)

		var decoded State
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, state, decoded)
	}

	assert.Equal(t, "error_backoff", ErrorBackoff.String())
	assert.Equal(t, "unknown", State(42).String())

	var s State
	assert.Error(t, json.Unmarshal([]byte(`"sleeping"`), &s))
}
