package nats_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/xrplwatch/service/journal"
	"github.com/brojonat/xrplwatch/service/monitor"
	natspkg "github.com/brojonat/xrplwatch/service/nats"
	"github.com/brojonat/xrplwatch/service/xrpl"
)

var (
	_ natspkg.Publisher = (*natspkg.JetStreamPublisher)(nil)
	_ natspkg.Publisher = (*natspkg.MockPublisher)(nil)
	_ monitor.MatchSink = (*natspkg.JetStreamPublisher)(nil)
	_ monitor.MatchSink = (*natspkg.MockPublisher)(nil)
)

func TestFromJournalEntry(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entry := journal.NewEntry("rBad", "Task ID: Blacklist #7", "Blacklist", "ABC123", at)

	event := natspkg.FromJournalEntry("rWatched", entry)
	assert.Equal(t, "rWatched", event.Account)
	assert.Equal(t, "rBad", event.BlacklistedAddress)
	assert.Equal(t, "ABC123", event.TransactionHash)
	assert.Equal(t, "Task ID: Blacklist #7", event.Memo)
	assert.Equal(t, "Blacklist", event.TaskID)
	assert.Equal(t, "2024-05-01T12:00:00.000000Z", event.DetectedAt)
	assert.False(t, event.PublishedAt.IsZero())

	data, err := json.Marshal(event)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "rBad", decoded["blacklisted_address"])
	assert.Equal(t, "ABC123", decoded["transaction_hash"])
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "blacklist.rBad", natspkg.Subject("rBad"))
	assert.Equal(t, "blacklist.*", natspkg.StreamSubjects)
}

func TestMockPublisher(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mock := natspkg.NewMockPublisher()

	require.NoError(t, mock.PublishMatch(ctx, "rWatched", journal.NewEntry("rA", "Blacklist", "Unknown", "H1", at)))
	require.NoError(t, mock.PublishMatch(ctx, "rWatched", journal.NewEntry("rB", "Blacklist", "Unknown", "H2", at)))
	assert.Len(t, mock.GetPublishedEvents(), 2)
	assert.Len(t, mock.GetPublishedEventsForAddress("rA"), 1)

	mock.SetPublishError(errors.New("nats down"))
	assert.Error(t, mock.PublishMatch(ctx, "rWatched", journal.NewEntry("rC", "Blacklist", "Unknown", "H3", at)))
	assert.Len(t, mock.GetPublishedEvents(), 2)

	require.NoError(t, mock.Close())
	assert.True(t, mock.IsClosed())
}

func TestMonitorPublishesNewMatches(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ledger := &monitor.FakeLedger{
		Pages: map[string]*xrpl.AccountTxResult{
			"": {
				Status: "success",
				Transactions: []xrpl.RawTransaction{
					monitor.PaymentTx("H1", "rA", now, "Task ID: Blacklist #1"),
					monitor.PaymentTx("H2", "rB", now.Add(-time.Hour), "no match"),
				},
			},
		},
	}
	mock := natspkg.NewMockPublisher()

	m := monitor.New(monitor.Config{
		Account:   "rWatched",
		Endpoints: []string{"https://s1.ripple.com:51234/"},
		Dial:      ledger.Dial,
		Journal:   journal.NewTestStore(t),
		Sink:      mock,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:       func() time.Time { return now },
	})

	result, err := m.RunSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Journaled)

	events := mock.GetPublishedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "rWatched", events[0].Account)
	assert.Equal(t, "rA", events[0].BlacklistedAddress)
	assert.Equal(t, "H1", events[0].TransactionHash)
}
