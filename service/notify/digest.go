package notify

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/brojonat/xrplwatch/service/journal"
)

const (
	// DefaultMaxMessageLength leaves headroom under Discord's 2000 character limit.
	DefaultMaxMessageLength = 1900

	// MinMessageLength fits either header plus one entry whose fields are
	// all at their display limits. Smaller budgets are raised to it.
	MinMessageLength = 500

	// MemoPreviewLength is how many characters of a memo a digest shows.
	MemoPreviewLength = 100

	// TaskIDPreviewLength is how many characters of a task ID a digest shows.
	TaskIDPreviewLength = 64

	// ContinuationHeader starts every chunk after the first.
	ContinuationHeader = "**XRP Blacklist Update (Continued)**\n\n"

	// NoNewAddresses is the body of an empty digest.
	NoNewAddresses = "No new blacklisted addresses found."
)

// Header starts the first chunk of a digest.
func Header(hours int) string {
	return fmt.Sprintf("**XRP Blacklist Update (Last %d Hours)**\n\n", hours)
}

// FormatEntry renders one journal entry as a digest block.
func FormatEntry(e journal.Entry) string {
	taskID := e.TaskID
	if taskID == "" {
		taskID = "Unknown"
	}
	txHash := e.TransactionHash
	if txHash == "" {
		txHash = "N/A"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🚫 Address: `%s`\n", e.BlacklistedAddress)
	fmt.Fprintf(&b, "🏷️ Task ID: `%s`\n", truncate(taskID, TaskIDPreviewLength))
	fmt.Fprintf(&b, "📝 Memo: %s\n", truncate(e.Memo, MemoPreviewLength))
	fmt.Fprintf(&b, "🔗 TX Hash: `%s`\n", txHash)
	fmt.Fprintf(&b, "⏰ Time: %s\n\n", e.Timestamp)
	return b.String()
}

// truncate cuts s to n characters plus an ellipsis.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// ComposeDigest splits entries into messages of at most budget characters.
// Entries are added to the current chunk until the next one would overflow
// it, at which point a continuation chunk is started. An entry that cannot
// fit even in an empty chunk is cut short. With no entries the digest is one
// message saying so.
func ComposeDigest(entries []journal.Entry, hours, budget int) []string {
	if budget <= 0 {
		budget = DefaultMaxMessageLength
	}
	if budget < MinMessageLength {
		budget = MinMessageLength
	}

	header := Header(hours)
	if len(entries) == 0 {
		return []string{header + NoNewAddresses}
	}

	var chunks []string
	current := header
	inCurrent := 0
	for _, e := range entries {
		block := FormatEntry(e)
		size := utf8.RuneCountInString(current)
		if inCurrent > 0 && size+utf8.RuneCountInString(block) > budget {
			chunks = append(chunks, current)
			current = ContinuationHeader
			size = utf8.RuneCountInString(current)
			inCurrent = 0
		}
		if room := budget - size; utf8.RuneCountInString(block) > room {
			block = truncate(block, room-len("...")) // header is far shorter than MinMessageLength
		}
		current += block
		inCurrent++
	}
	chunks = append(chunks, current)
	return chunks
}
