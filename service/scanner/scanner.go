// Package scanner decides whether a ledger transaction's memos flag its
// destination for the blacklist.
package scanner

import (
	"context"
	"encoding/hex"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/brojonat/xrplwatch/service/xrpl"
)

// Keywords are checked as literal, case-sensitive substrings of the decoded
// memo data. "BLACKLIST" or "bLacklist" do not match.
var Keywords = []string{"Blacklist", "blacklist"}

// Match is one memo that flagged a transaction's destination.
type Match struct {
	Address   string
	MemoText  string
	TxHash    string
	MemoIndex int
}

// DecodedMemo is a memo with each field decoded independently.
// A field that was absent or failed to decode is empty with its ok flag false.
type DecodedMemo struct {
	Type     string
	TypeOK   bool
	Format   string
	FormatOK bool
	Data     string
	DataOK   bool
}

// Scanner inspects transaction memos.
type Scanner struct {
	logger *slog.Logger
}

// New creates a Scanner.
func New(logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{logger: logger}
}

// DecodeHex decodes a hex-encoded memo field to UTF-8 text. Invalid hex or
// bytes that are not valid UTF-8 report false.
func DecodeHex(s string) (string, bool) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return "", false
	}
	if !utf8.Valid(b) {
		return "", false
	}
	return string(b), true
}

// ContainsKeyword reports whether text contains any of Keywords.
func ContainsKeyword(text string) bool {
	for _, kw := range Keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Decode decodes the three fields of a memo, logging fields that fail.
func (s *Scanner) Decode(ctx context.Context, txHash string, idx int, memo xrpl.Memo) DecodedMemo {
	var d DecodedMemo
	d.Type, d.TypeOK = s.decodeField(ctx, txHash, idx, "MemoType", memo.Type)
	d.Format, d.FormatOK = s.decodeField(ctx, txHash, idx, "MemoFormat", memo.Format)
	d.Data, d.DataOK = s.decodeField(ctx, txHash, idx, "MemoData", memo.Data)
	return d
}

func (s *Scanner) decodeField(ctx context.Context, txHash string, idx int, field, raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	text, ok := DecodeHex(raw)
	if !ok {
		s.logger.WarnContext(ctx, "failed to decode memo field",
			"tx_hash", txHash,
			"memo_index", idx,
			"field", field,
			"raw", raw,
		)
	}
	return text, ok
}

// Result is the outcome of scanning one transaction.
type Result struct {
	Matches []Match
	// Discarded counts keyword hits dropped because the destination was unresolved.
	Discarded int
}

// Scan returns one Match per memo whose data field contains a keyword.
// Hits on a transaction with no resolvable destination are dropped, since
// there is no address to record.
func (s *Scanner) Scan(ctx context.Context, txn *xrpl.Transaction) Result {
	var res Result
	for i, memo := range txn.Memos {
		decoded := s.Decode(ctx, txn.Hash, i, memo)
		if !decoded.DataOK || !ContainsKeyword(decoded.Data) {
			continue
		}

		s.logger.InfoContext(ctx, "blacklist memo found",
			"tx_hash", txn.Hash,
			"memo_index", i,
			"memo", decoded.Data,
		)

		if !txn.HasDestination() {
			s.logger.WarnContext(ctx, "discarding blacklist memo with unresolved destination",
				"tx_hash", txn.Hash,
				"memo_index", i,
			)
			res.Discarded++
			continue
		}

		res.Matches = append(res.Matches, Match{
			Address:   txn.Destination,
			MemoText:  decoded.Data,
			TxHash:    txn.Hash,
			MemoIndex: i,
		})
	}
	return res
}

// ExtractTaskID returns the first whitespace-separated token after
// "Task ID:" in memo, or xrpl.Unknown.
func ExtractTaskID(memo string) string {
	_, after, found := strings.Cut(memo, "Task ID:")
	if !found {
		return xrpl.Unknown
	}
	fields := strings.Fields(after)
	if len(fields) == 0 {
		return xrpl.Unknown
	}
	return fields[0]
}
