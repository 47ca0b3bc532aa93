package nats

import (
	"time"

	"github.com/brojonat/xrplwatch/service/journal"
)

// MatchEvent is published to "blacklist.{blacklisted_address}" whenever a new
// match is journaled.
type MatchEvent struct {
	// Account whose incoming transactions are watched.
	Account string `json:"account"`

	BlacklistedAddress string `json:"blacklisted_address"`
	TransactionHash    string `json:"transaction_hash"`
	Memo               string `json:"memo"`
	TaskID             string `json:"task_id"`

	// DetectedAt is the journal entry timestamp.
	DetectedAt  string    `json:"detected_at"`
	PublishedAt time.Time `json:"published_at"`
}

// FromJournalEntry converts a journal entry to a MatchEvent for publishing.
func FromJournalEntry(account string, entry journal.Entry) *MatchEvent {
	return &MatchEvent{
		Account:            account,
		BlacklistedAddress: entry.BlacklistedAddress,
		TransactionHash:    entry.TransactionHash,
		Memo:               entry.Memo,
		TaskID:             entry.TaskID,
		DetectedAt:         entry.Timestamp,
		PublishedAt:        time.Now().UTC(),
	}
}

// Subject returns the subject an event for address is published to.
func Subject(address string) string {
	return SubjectPrefix + address
}
