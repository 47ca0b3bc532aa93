package scanner

import (
	"context"
	"encoding/hex"
	"io"
	"log/slog"
	"testing"

	"github.com/brojonat/xrplwatch/service/xrpl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hexOf(s string) string {
	return hex.EncodeToString([]byte(s))
}

func newTestScanner() *Scanner {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDecodeHex(t *testing.T) {
	text, ok := DecodeHex("48656c6c6f")
	require.True(t, ok)
	assert.Equal(t, "Hello", text)

	// upper case hex is accepted
	text, ok = DecodeHex("48454C4C4F")
	require.True(t, ok)
	assert.Equal(t, "HELLO", text)

	_, ok = DecodeHex("zz")
	assert.False(t, ok, "invalid hex")

	_, ok = DecodeHex("123")
	assert.False(t, ok, "odd length")

	_, ok = DecodeHex("fffe")
	assert.False(t, ok, "invalid utf-8")
}

func TestContainsKeyword(t *testing.T) {
	tests := []struct {
		text     string
		expected bool
	}{
		{"Task ID: Blacklist #42", true},
		{"task id: blacklist", true},
		{"blacklisting", true},
		{"task id: BLACKLIST", false},
		{"bLacklist", false},
		{"black list", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.expected, ContainsKeyword(tt.text))
		})
	}
}

func TestScan(t *testing.T) {
	ctx := context.Background()
	s := newTestScanner()

	t.Run("matching memo with destination", func(t *testing.T) {
		txn := &xrpl.Transaction{
			Hash:        "H1",
			Destination: "rBad",
			Memos:       []xrpl.Memo{{Data: hexOf("Task ID: Blacklist #42")}},
		}
		res := s.Scan(ctx, txn)
		require.Len(t, res.Matches, 1)
		assert.Equal(t, Match{Address: "rBad", MemoText: "Task ID: Blacklist #42", TxHash: "H1", MemoIndex: 0}, res.Matches[0])
		assert.Zero(t, res.Discarded)
	})

	t.Run("upper case keyword does not match", func(t *testing.T) {
		txn := &xrpl.Transaction{
			Hash:        "H1",
			Destination: "rBad",
			Memos:       []xrpl.Memo{{Data: hexOf("TASK ID: BLACKLIST")}},
		}
		assert.Empty(t, s.Scan(ctx, txn).Matches)
	})

	t.Run("only the data field is matched", func(t *testing.T) {
		txn := &xrpl.Transaction{
			Hash:        "H1",
			Destination: "rBad",
			Memos: []xrpl.Memo{{
				Type:   hexOf("Blacklist"),
				Format: hexOf("blacklist"),
				Data:   hexOf("hello"),
			}},
		}
		assert.Empty(t, s.Scan(ctx, txn).Matches)
	})

	t.Run("unresolved destination is discarded", func(t *testing.T) {
		txn := &xrpl.Transaction{
			Hash:        "H1",
			Destination: xrpl.Unknown,
			Memos:       []xrpl.Memo{{Data: hexOf("Blacklist")}},
		}
		res := s.Scan(ctx, txn)
		assert.Empty(t, res.Matches)
		assert.Equal(t, 1, res.Discarded)
	})

	t.Run("each matching memo is reported", func(t *testing.T) {
		txn := &xrpl.Transaction{
			Hash:        "H1",
			Destination: "rBad",
			Memos: []xrpl.Memo{
				{Data: hexOf("blacklist one")},
				{Data: hexOf("nothing here")},
				{Data: "not-hex"},
				{Type: "zz", Data: hexOf("Blacklist two")},
			},
		}
		res := s.Scan(ctx, txn)
		require.Len(t, res.Matches, 2)
		assert.Equal(t, 0, res.Matches[0].MemoIndex)
		assert.Equal(t, "blacklist one", res.Matches[0].MemoText)
		assert.Equal(t, 3, res.Matches[1].MemoIndex)
		assert.Equal(t, "Blacklist two", res.Matches[1].MemoText)
	})

	t.Run("no memos", func(t *testing.T) {
		res := s.Scan(ctx, &xrpl.Transaction{Hash: "H1", Destination: "rBad"})
		assert.Empty(t, res.Matches)
	})
}

func TestDecode_IndependentFields(t *testing.T) {
	s := newTestScanner()
	d := s.Decode(context.Background(), "H1", 0, xrpl.Memo{
		Type:   "zz",
		Format: hexOf("text/plain"),
		Data:   hexOf("payload"),
	})
	assert.False(t, d.TypeOK)
	assert.True(t, d.FormatOK)
	assert.Equal(t, "text/plain", d.Format)
	assert.True(t, d.DataOK)
	assert.Equal(t, "payload", d.Data)
}

func TestExtractTaskID(t *testing.T) {
	assert.Equal(t, "Blacklist", ExtractTaskID("Task ID: Blacklist #42"))
	assert.Equal(t, "123", ExtractTaskID("prefix Task ID:123 rest"))
	assert.Equal(t, xrpl.Unknown, ExtractTaskID("Task ID:   "))
	assert.Equal(t, xrpl.Unknown, ExtractTaskID("blacklist"))
}
