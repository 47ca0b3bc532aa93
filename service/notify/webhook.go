package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrWebhookDisabled is returned when no webhook URL is configured.
var ErrWebhookDisabled = errors.New("webhook URL not set, digest delivery disabled")

// DefaultTimeout bounds each webhook POST.
const DefaultTimeout = 10 * time.Second

// Sender delivers one preformatted message.
type Sender interface {
	Send(ctx context.Context, content string) error
}

// Webhook posts messages to a Discord-compatible webhook.
type Webhook struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWebhook creates a webhook sender. If httpClient is nil a client with
// DefaultTimeout is used.
func NewWebhook(url string, httpClient *http.Client, logger *slog.Logger) *Webhook {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Webhook{
		url:        url,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Enabled reports whether a URL is configured.
func (w *Webhook) Enabled() bool {
	return w != nil && w.url != ""
}

// Send posts {"content": content}. Only 204 No Content counts as delivered.
func (w *Webhook) Send(ctx context.Context, content string) error {
	if !w.Enabled() {
		return ErrWebhookDisabled
	}

	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return parseErrorResponse(resp)
	}

	w.logger.DebugContext(ctx, "webhook message delivered", "length", len(content))
	return nil
}

// parseErrorResponse extracts Discord's {"message": ...} error if present.
func parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Message string `json:"message"`
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Message == "" {
		return fmt.Errorf("webhook failed with status %d: %s", resp.StatusCode, string(body))
	}

	return fmt.Errorf("webhook failed with status %d: %s", resp.StatusCode, errResp.Message)
}
