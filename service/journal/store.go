// Package journal persists blacklist matches to a single JSON file.
//
// The file holds a JSON array of entries, deduplicated on
// (blacklisted_address, transaction_hash) and sorted newest first. Every
// mutation reads the whole file, changes it in memory and rewrites it, so a
// journal must only be written by one process at a time.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/brojonat/xrplwatch/service/metrics"
)

// DefaultPath is where the journal lives unless JOURNAL_PATH says otherwise.
const DefaultPath = "blacklisted_addresses.json"

// TimestampLayout is fixed width so that string order equals time order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Entry is one recorded blacklist match. Entries are never mutated or deleted.
type Entry struct {
	BlacklistedAddress string `json:"blacklisted_address"`
	Memo               string `json:"memo"`
	TaskID             string `json:"task_id"`
	TransactionHash    string `json:"transaction_hash"`
	Timestamp          string `json:"timestamp"`
}

// NewEntry builds an entry stamped with at in UTC.
func NewEntry(address, memo, taskID, txHash string, at time.Time) Entry {
	return Entry{
		BlacklistedAddress: address,
		Memo:               memo,
		TaskID:             taskID,
		TransactionHash:    txHash,
		Timestamp:          FormatTimestamp(at),
	}
}

// FormatTimestamp renders t the way entries store it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Time parses the entry timestamp. Older journals written with a
// "+00:00" offset or without fractional seconds parse as well.
func (e Entry) Time() (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// key identifies an entry for deduplication.
func (e Entry) key() [2]string {
	return [2]string{e.BlacklistedAddress, e.TransactionHash}
}

// Store provides journal operations over one file.
type Store struct {
	path    string
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewStore creates a Store for the journal at path. If metrics is nil, no
// metrics will be recorded.
func NewStore(path string, m *metrics.Metrics, logger *slog.Logger) *Store {
	if path == "" {
		path = DefaultPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:    path,
		metrics: m,
		logger:  logger.With("component", "journal"),
	}
}

// Path returns the journal file path.
func (s *Store) Path() string {
	return s.path
}

// Init creates an empty journal if the file does not exist.
func (s *Store) Init(ctx context.Context) error {
	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat journal: %w", err)
	}
	s.logger.InfoContext(ctx, "creating empty journal", "path", s.path)
	return s.write([]Entry{})
}

// All returns every entry in file order (newest first).
// A missing file yields an empty journal. A malformed file is logged and
// also treated as empty; the next Append will overwrite it.
func (s *Store) All(ctx context.Context) ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.DebugContext(ctx, "journal not found, starting empty", "path", s.path)
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.ErrorContext(ctx, "journal is malformed, treating as empty",
			"path", s.path,
			"error", err,
		)
		return []Entry{}, nil
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// Append adds entry unless one with the same address and transaction hash
// already exists. It reports whether the entry was written. The journal is
// re-sorted newest first and rewritten in full; write failures are returned.
func (s *Store) Append(ctx context.Context, entry Entry) (bool, error) {
	start := time.Now()

	entries, err := s.All(ctx)
	if err != nil {
		return false, err
	}

	for _, existing := range entries {
		if existing.key() == entry.key() {
			s.logger.InfoContext(ctx, "blacklisted address already recorded",
				"address", entry.BlacklistedAddress,
				"tx_hash", entry.TransactionHash,
			)
			return false, nil
		}
	}

	entries = append(entries, entry)
	sortNewestFirst(entries)

	err = s.write(entries)
	if s.metrics != nil {
		s.metrics.RecordJournalWrite(time.Since(start).Seconds(), len(entries), err)
	}
	if err != nil {
		return false, err
	}

	s.logger.InfoContext(ctx, "new blacklisted address saved",
		"address", entry.BlacklistedAddress,
		"task_id", entry.TaskID,
		"tx_hash", entry.TransactionHash,
	)
	return true, nil
}

// LoadWithin returns the entries whose timestamp lies in w, newest first.
// Entries with unparseable timestamps are logged and left out.
func (s *Store) LoadWithin(ctx context.Context, w Window) ([]Entry, error) {
	entries, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	recent := make([]Entry, 0)
	for _, e := range entries {
		t, err := e.Time()
		if err != nil {
			s.logger.WarnContext(ctx, "skipping journal entry with bad timestamp",
				"address", e.BlacklistedAddress,
				"timestamp", e.Timestamp,
				"error", err,
			)
			continue
		}
		if w.Contains(t) {
			recent = append(recent, e)
		}
	}
	return recent, nil
}

func sortNewestFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})
}

// write replaces the journal via a temp file in the same directory.
func (s *Store) write(entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journal: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".journal-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp journal: %w", err)
	}
	tmpName := tmp.Name()

	// CreateTemp uses 0600; keep the journal's existing mode across rewrites.
	mode := os.FileMode(0o644)
	if info, err := os.Stat(s.path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to set journal mode: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write journal: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close journal: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace journal: %w", err)
	}
	return nil
}
