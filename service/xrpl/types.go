package xrpl

import (
	"encoding/json"
	"time"
)

// Unknown is used for fields the ledger did not supply (destination, hash, type).
const Unknown = "Unknown"

// TimestampSource records which field a transaction's time was resolved from.
type TimestampSource int

const (
	SourceNone TimestampSource = iota
	// SourceCloseTime is the ledger close time (close_time_iso). Most reliable.
	SourceCloseTime
	// SourceTxDate is the transaction body's "date" in Ripple epoch seconds.
	SourceTxDate
	// SourceMetaIndex reinterprets meta.TransactionIndex as Ripple epoch seconds.
	// TransactionIndex is a position within the ledger, not a time, so values
	// resolved this way land near 2000-01-01 and should not be trusted.
	SourceMetaIndex
)

func (s TimestampSource) String() string {
	switch s {
	case SourceCloseTime:
		return "close_time_iso"
	case SourceTxDate:
		return "tx_date"
	case SourceMetaIndex:
		return "meta_transaction_index"
	default:
		return "none"
	}
}

// Trusted reports whether the source carries a real time value.
func (s TimestampSource) Trusted() bool {
	return s == SourceCloseTime || s == SourceTxDate
}

// Memo holds the hex-encoded fields of one memo entry. Empty means absent.
type Memo struct {
	Type   string
	Format string
	Data   string
}

// Transaction is our domain view of an account_tx entry, independent of
// the RPC response format.
type Transaction struct {
	Hash            string
	Type            string
	Account         string
	Destination     string // Unknown when the transaction has no destination
	Amount          string // human readable, see FormatAmount
	Memos           []Memo
	Timestamp       time.Time
	TimestampSource TimestampSource
}

// HasTimestamp reports whether any timestamp source resolved.
func (t *Transaction) HasTimestamp() bool {
	return t.TimestampSource != SourceNone
}

// HasDestination reports whether the destination account is known.
func (t *Transaction) HasDestination() bool {
	return t.Destination != "" && t.Destination != Unknown
}

// RawTransaction is one element of the account_tx "transactions" array.
// API v2 nodes return the body under tx_json; v1 nodes use tx.
type RawTransaction struct {
	Hash         string          `json:"hash,omitempty"`
	CloseTimeISO string          `json:"close_time_iso,omitempty"`
	LedgerIndex  int64           `json:"ledger_index,omitempty"`
	TxJSON       json.RawMessage `json:"tx_json,omitempty"`
	Tx           json.RawMessage `json:"tx,omitempty"`
	Meta         json.RawMessage `json:"meta,omitempty"`
	Validated    bool            `json:"validated,omitempty"`
}

// Page is one page of account transactions plus the cursor for the next one.
// A nil Marker means there are no further pages.
type Page struct {
	Transactions []RawTransaction
	Marker       json.RawMessage
}

// HasMore reports whether the ledger returned a pagination marker.
func (p *Page) HasMore() bool {
	return len(p.Marker) > 0 && string(p.Marker) != "null"
}
