package journal

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// NewTestStore creates a Store backed by a file in a per-test temp directory.
// The file does not exist until the first write.
func NewTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), DefaultPath)
	return NewStore(path, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// MustAppend appends entries and fails the test on error.
// Useful for setting up test fixtures.
func MustAppend(t *testing.T, s *Store, entries ...Entry) {
	t.Helper()

	for _, e := range entries {
		if _, err := s.Append(context.Background(), e); err != nil {
			t.Fatalf("failed to append journal entry: %v", err)
		}
	}
}

// MustWriteRaw replaces the journal file contents verbatim.
func MustWriteRaw(t *testing.T, s *Store, data string) {
	t.Helper()

	if err := os.WriteFile(s.Path(), []byte(data), 0o644); err != nil {
		t.Fatalf("failed to write journal fixture: %v", err)
	}
}
