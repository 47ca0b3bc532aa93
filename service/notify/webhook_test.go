package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSend_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		err := json.NewDecoder(r.Body).Decode(&body)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"content": "hello"}, body)

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	hook := NewWebhook(server.URL, nil, nil)
	assert.NoError(t, hook.Send(context.Background(), "hello"))
}

func TestWebhookSend_OKIsNotDelivered(t *testing.T) {
	// Discord answers 204 for a plain webhook post; anything else is a failure.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := NewWebhook(server.URL, nil, nil).Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 200")
}

func TestWebhookSend_ErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message":     "You are being rate limited.",
			"retry_after": 1.5,
		})
	}))
	defer server.Close()

	err := NewWebhook(server.URL, nil, nil).Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
	assert.Contains(t, err.Error(), "You are being rate limited.")
}

func TestWebhookSend_PlainErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	err := NewWebhook(server.URL, nil, nil).Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestWebhookSend_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	hook := NewWebhook(server.URL, &http.Client{Timeout: 20 * time.Millisecond}, nil)
	err := hook.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestWebhookSend_Disabled(t *testing.T) {
	hook := NewWebhook("", nil, nil)
	assert.False(t, hook.Enabled())

	err := hook.Send(context.Background(), "hello")
	assert.True(t, errors.Is(err, ErrWebhookDisabled))
}
