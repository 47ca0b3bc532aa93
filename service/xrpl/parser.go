package xrpl

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// RippleEpoch is 2000-01-01T00:00:00Z; ledger "date" fields count seconds from it.
var RippleEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// DropsPerXRP is the number of drops in one XRP.
const DropsPerXRP = 1_000_000

type txBody struct {
	Hash            string          `json:"hash"`
	TransactionType string          `json:"TransactionType"`
	Account         string          `json:"Account"`
	Destination     string          `json:"Destination"`
	Amount          json.RawMessage `json:"Amount"`
	DeliverMax      json.RawMessage `json:"DeliverMax"`
	Date            *int64          `json:"date"`
	Memos           []memoWrapper   `json:"Memos"`
}

type memoWrapper struct {
	Memo struct {
		MemoType   string `json:"MemoType"`
		MemoFormat string `json:"MemoFormat"`
		MemoData   string `json:"MemoData"`
	} `json:"Memo"`
}

type txMeta struct {
	TransactionIndex *int64 `json:"TransactionIndex"`
}

// RippleTimeToTime converts Ripple epoch seconds to UTC time.
func RippleTimeToTime(seconds int64) time.Time {
	return RippleEpoch.Add(time.Duration(seconds) * time.Second)
}

// ParseTransaction converts a raw account_tx entry into a Transaction.
// It returns false when the entry has no decodable transaction body.
// A transaction whose time cannot be resolved is still returned; check
// HasTimestamp.
func ParseTransaction(raw RawTransaction) (*Transaction, bool) {
	bodyJSON := raw.TxJSON
	if len(bodyJSON) == 0 {
		bodyJSON = raw.Tx
	}
	if len(bodyJSON) == 0 || string(bodyJSON) == "null" {
		return nil, false
	}

	var body txBody
	if err := json.Unmarshal(bodyJSON, &body); err != nil {
		return nil, false
	}

	txn := &Transaction{
		Hash:        firstNonEmpty(raw.Hash, body.Hash, Unknown),
		Type:        firstNonEmpty(body.TransactionType, Unknown),
		Account:     firstNonEmpty(body.Account, Unknown),
		Destination: firstNonEmpty(body.Destination, Unknown),
	}

	amount := body.Amount
	if len(amount) == 0 {
		amount = body.DeliverMax
	}
	txn.Amount = FormatAmount(amount)

	for _, w := range body.Memos {
		txn.Memos = append(txn.Memos, Memo{
			Type:   w.Memo.MemoType,
			Format: w.Memo.MemoFormat,
			Data:   w.Memo.MemoData,
		})
	}

	txn.Timestamp, txn.TimestampSource = resolveTimestamp(raw, body)
	return txn, true
}

// resolveTimestamp applies the first-match-wins order: close_time_iso, then
// the body's date, then meta.TransactionIndex.
func resolveTimestamp(raw RawTransaction, body txBody) (time.Time, TimestampSource) {
	if raw.CloseTimeISO != "" {
		if t, err := time.Parse(time.RFC3339, raw.CloseTimeISO); err == nil {
			return t.UTC(), SourceCloseTime
		}
	}

	if body.Date != nil {
		return RippleTimeToTime(*body.Date), SourceTxDate
	}

	if len(raw.Meta) > 0 {
		var meta txMeta
		// v1 nodes may return meta as a binary hex string; that simply fails here.
		if err := json.Unmarshal(raw.Meta, &meta); err == nil && meta.TransactionIndex != nil {
			return RippleTimeToTime(*meta.TransactionIndex), SourceMetaIndex
		}
	}

	return time.Time{}, SourceNone
}

// FormatAmount renders an Amount field. Native amounts are strings of drops
// and are shown in XRP with six decimals; issued currency amounts are objects.
func FormatAmount(raw json.RawMessage) string {
	if len(raw) == 0 {
		return Unknown
	}

	var drops string
	if err := json.Unmarshal(raw, &drops); err == nil {
		d, err := decimal.NewFromString(drops)
		if err != nil {
			return drops + " (raw value)"
		}
		return d.Div(decimal.NewFromInt(DropsPerXRP)).StringFixed(6) + " XRP"
	}

	var issued struct {
		Currency string `json:"currency"`
		Issuer   string `json:"issuer"`
		Value    string `json:"value"`
	}
	if err := json.Unmarshal(raw, &issued); err == nil && issued.Value != "" {
		return issued.Value + " " + issued.Currency
	}

	return Unknown
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
