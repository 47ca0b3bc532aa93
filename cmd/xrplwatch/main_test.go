package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/brojonat/xrplwatch/service/journal"
	"github.com/brojonat/xrplwatch/service/monitor"
	"github.com/brojonat/xrplwatch/service/xrpl"
)

// createTestApp returns the CLI with output captured and exits disabled.
func createTestApp(out *bytes.Buffer) *cli.App {
	app := newApp()
	app.Writer = out
	app.ErrWriter = io.Discard
	app.ExitErrHandler = func(c *cli.Context, err error) {}
	return app
}

// ledgerServer answers every account_tx call with the same single page.
func ledgerServer(t *testing.T, txs ...xrpl.RawTransaction) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"result": xrpl.AccountTxResult{
				Status:       "success",
				Transactions: txs,
			},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

type webhookRecorder struct {
	mu       sync.Mutex
	messages []string
	status   int
}

func (rec *webhookRecorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Content string `json:"content"`
		}
		json.NewDecoder(r.Body).Decode(&body)

		rec.mu.Lock()
		rec.messages = append(rec.messages, body.Content)
		status := rec.status
		rec.mu.Unlock()

		if status == 0 {
			status = http.StatusNoContent
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server
}

func (rec *webhookRecorder) Messages() []string {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]string(nil), rec.messages...)
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return 0
	}
	var coder cli.ExitCoder
	require.True(t, errors.As(err, &coder), "expected exit error, got %v", err)
	return coder.ExitCode()
}

func TestRunOnce_MissingWebhookStillJournals(t *testing.T) {
	now := time.Now().UTC()
	ledger := ledgerServer(t,
		monitor.PaymentTx("H1", "rBad", now.Add(-time.Hour), "Task ID: 9 blacklist"),
	)
	journalPath := filepath.Join(t.TempDir(), "journal.json")

	t.Setenv("XRPL_RPC_URLS", ledger.URL)
	t.Setenv("DISCORD_WEBHOOK_URL", "")
	t.Setenv("JOURNAL_PATH", journalPath)
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	err := createTestApp(&out).Run([]string{"xrplwatch", "--json", "run-once"})

	require.Error(t, err)
	assert.Equal(t, 1, exitCode(t, err))
	assert.Contains(t, err.Error(), "DISCORD_WEBHOOK_URL")

	var result monitor.SessionResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, 1, result.Journaled)

	entries, err := journal.NewStore(journalPath, nil, nil).All(t.Context())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "rBad", entries[0].BlacklistedAddress)
	assert.Equal(t, "9", entries[0].TaskID)
}

func TestRunOnce_InvalidConfig(t *testing.T) {
	t.Setenv("HOURS_TO_CHECK", "zero")

	var out bytes.Buffer
	err := createTestApp(&out).Run([]string{"xrplwatch", "run-once"})

	assert.Equal(t, 1, exitCode(t, err))
}

func TestRunOnce_EndToEnd(t *testing.T) {
	now := time.Now().UTC()
	ledger := ledgerServer(t,
		monitor.PaymentTx("H1", "rBad", now.Add(-time.Hour), "Task ID: 7 Blacklist"),
		monitor.PaymentTx("H2", "rFine", now.Add(-2*time.Hour), "regular payment"),
	)
	rec := &webhookRecorder{}
	webhook := rec.server(t)
	journalPath := filepath.Join(t.TempDir(), "journal.json")

	t.Setenv("XRPL_RPC_URLS", ledger.URL)
	t.Setenv("DISCORD_WEBHOOK_URL", webhook.URL)
	t.Setenv("JOURNAL_PATH", journalPath)
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	err := createTestApp(&out).Run([]string{"xrplwatch", "--json", "run-once"})
	require.NoError(t, err)

	var result monitor.SessionResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Journaled)
	assert.Equal(t, monitor.Done, result.FinalState)

	entries, err := journal.NewStore(journalPath, nil, nil).All(t.Context())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "rBad", entries[0].BlacklistedAddress)
	assert.Equal(t, "7", entries[0].TaskID)

	messages := rec.Messages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "rBad")
	assert.Contains(t, messages[0], "H1")
}

func TestRunOnce_EmptyWindowStillSends(t *testing.T) {
	ledger := ledgerServer(t)
	rec := &webhookRecorder{}
	webhook := rec.server(t)

	t.Setenv("XRPL_RPC_URLS", ledger.URL)
	t.Setenv("DISCORD_WEBHOOK_URL", webhook.URL)
	t.Setenv("JOURNAL_PATH", filepath.Join(t.TempDir(), "journal.json"))
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	require.NoError(t, createTestApp(&out).Run([]string{"xrplwatch", "run-once"}))

	messages := rec.Messages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "No new blacklisted addresses found.")
}

func TestRunOnce_WebhookFailureExitsNonZero(t *testing.T) {
	ledger := ledgerServer(t)
	rec := &webhookRecorder{status: http.StatusInternalServerError}
	webhook := rec.server(t)

	t.Setenv("XRPL_RPC_URLS", ledger.URL)
	t.Setenv("DISCORD_WEBHOOK_URL", webhook.URL)
	t.Setenv("JOURNAL_PATH", filepath.Join(t.TempDir(), "journal.json"))
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	err := createTestApp(&out).Run([]string{"xrplwatch", "run-once"})
	assert.Equal(t, 1, exitCode(t, err))
}
