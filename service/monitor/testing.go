package monitor

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/brojonat/xrplwatch/service/xrpl"
)

// FakeLedger serves canned account_tx pages keyed by marker. Probes (limit 1)
// and page fetches can be made to fail in sequence. Use Dial as the
// Config.Dial of a test monitor.
type FakeLedger struct {
	mu sync.Mutex

	// Pages maps the request marker ("" for the first page) to a result.
	Pages map[string]*xrpl.AccountTxResult
	// ProbeErrs is consumed one entry per probe; nil entries succeed.
	ProbeErrs []error
	// FetchErrs is consumed one entry per page fetch; nil entries succeed.
	FetchErrs []error

	Fetches []FakeFetch
}

// FakeFetch records one page fetch.
type FakeFetch struct {
	Endpoint string
	Marker   string
}

type fakeNode struct {
	ledger   *FakeLedger
	endpoint string
}

// Dial returns an RPC client for endpoint backed by the ledger.
func (l *FakeLedger) Dial(endpoint string) xrpl.RPCClient {
	return &fakeNode{ledger: l, endpoint: endpoint}
}

// FetchCount returns the number of page fetches so far.
func (l *FakeLedger) FetchCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Fetches)
}

func (n *fakeNode) AccountTx(ctx context.Context, req xrpl.AccountTxRequest) (*xrpl.AccountTxResult, error) {
	l := n.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	if req.Limit == 1 {
		if len(l.ProbeErrs) > 0 {
			err := l.ProbeErrs[0]
			l.ProbeErrs = l.ProbeErrs[1:]
			if err != nil {
				return nil, err
			}
		}
		return &xrpl.AccountTxResult{Status: "success", Account: req.Account}, nil
	}

	l.Fetches = append(l.Fetches, FakeFetch{Endpoint: n.endpoint, Marker: string(req.Marker)})
	if len(l.FetchErrs) > 0 {
		err := l.FetchErrs[0]
		l.FetchErrs = l.FetchErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	result, ok := l.Pages[string(req.Marker)]
	if !ok {
		return nil, fmt.Errorf("no page for marker %q", req.Marker)
	}
	return result, nil
}

// PaymentTx builds an API v2 account_tx entry for a payment to dest carrying
// the given plain-text memos. A zero at leaves the close time unset; an empty
// dest leaves Destination out.
func PaymentTx(hash, dest string, at time.Time, memos ...string) xrpl.RawTransaction {
	type memoFields struct {
		MemoData string `json:"MemoData"`
	}
	type memoWrapper struct {
		Memo memoFields `json:"Memo"`
	}

	body := map[string]interface{}{
		"TransactionType": "Payment",
		"Account":         "rSenderAccount",
		"Amount":          "1000000",
	}
	if dest != "" {
		body["Destination"] = dest
	}
	if len(memos) > 0 {
		wrapped := make([]memoWrapper, len(memos))
		for i, m := range memos {
			wrapped[i] = memoWrapper{Memo: memoFields{MemoData: hex.EncodeToString([]byte(m))}}
		}
		body["Memos"] = wrapped
	}
	data, _ := json.Marshal(body)

	raw := xrpl.RawTransaction{Hash: hash, TxJSON: data, Validated: true}
	if !at.IsZero() {
		raw.CloseTimeISO = at.UTC().Format(time.RFC3339)
	}
	return raw
}
