package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/brojonat/xrplwatch/service/journal"
	"github.com/brojonat/xrplwatch/service/notify"
)

// maxHours bounds the lookback window a request may ask for (30 days).
const maxHours = 720

// entryResponse is the JSON response format for a journal entry.
type entryResponse struct {
	BlacklistedAddress string    `json:"blacklisted_address"`
	TaskID             string    `json:"task_id"`
	TransactionHash    string    `json:"transaction_hash"`
	Memo               string    `json:"memo"`
	DetectedAt         time.Time `json:"detected_at"`
}

// handleListRecent returns a handler that lists addresses found in the last N hours.
// GET /api/v1/blacklist?hours=N
func handleListRecent(source EntrySource, account string, defaultHours int, now func() time.Time, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hours, err := parseHours(r, defaultHours)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		window := journal.WindowEndingAt(now(), hours)
		entries, err := source.LoadWithin(r.Context(), window)
		if err != nil {
			logger.Error("failed to load journal", "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]entryResponse, 0, len(entries))
		for _, e := range entries {
			resp = append(resp, entryToResponse(e))
		}

		logger.Debug("recent entries listed", "hours", hours, "count", len(resp))

		writeJSON(w, map[string]interface{}{
			"account": account,
			"hours":   hours,
			"since":   window.Start,
			"entries": resp,
			"count":   len(resp),
		}, http.StatusOK)
	})
}

// handleDigestPreview returns the digest messages that would be sent now.
// GET /api/v1/digest/preview?hours=N
func handleDigestPreview(source EntrySource, defaultHours, budget int, now func() time.Time, logger *slog.Logger) http.Handler {
	if budget <= 0 {
		budget = notify.DefaultMaxMessageLength
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hours, err := parseHours(r, defaultHours)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		entries, err := source.LoadWithin(r.Context(), journal.WindowEndingAt(now(), hours))
		if err != nil {
			logger.Error("failed to load journal", "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		chunks := notify.ComposeDigest(entries, hours, budget)
		writeJSON(w, map[string]interface{}{
			"hours":    hours,
			"messages": chunks,
			"count":    len(chunks),
		}, http.StatusOK)
	})
}

// parseHours reads the hours query parameter.
func parseHours(r *http.Request, defaultHours int) (int, error) {
	raw := r.URL.Query().Get("hours")
	if raw == "" {
		return defaultHours, nil
	}
	hours, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid hours parameter: must be an integer")
	}
	if hours < 1 {
		return 0, fmt.Errorf("hours must be at least 1")
	}
	if hours > maxHours {
		return 0, fmt.Errorf("hours cannot exceed %d", maxHours)
	}
	return hours, nil
}

func entryToResponse(e journal.Entry) entryResponse {
	resp := entryResponse{
		BlacklistedAddress: e.BlacklistedAddress,
		TaskID:             e.TaskID,
		TransactionHash:    e.TransactionHash,
		Memo:               e.Memo,
	}
	// LoadWithin only returns entries with parseable timestamps
	resp.DetectedAt, _ = e.Time()
	return resp
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
