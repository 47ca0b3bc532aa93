package xrpl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Peersyst/xrpl-go/xrpl/queries/account"
	"github.com/Peersyst/xrpl-go/xrpl/rpc"
	"github.com/Peersyst/xrpl-go/xrpl/transaction/types"
)

// AccountTxRequest is the account_tx parameter object.
type AccountTxRequest struct {
	Account string          `json:"account"`
	Limit   int             `json:"limit,omitempty"`
	Marker  json.RawMessage `json:"marker,omitempty"`
}

// AccountTxResult is the "result" object of an account_tx response.
type AccountTxResult struct {
	Status       string           `json:"status"`
	Account      string           `json:"account,omitempty"`
	Transactions []RawTransaction `json:"transactions"`
	Marker       json.RawMessage  `json:"marker,omitempty"`
	Error        string           `json:"error,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

// IsSuccessful mirrors rippled's success status.
func (r *AccountTxResult) IsSuccessful() bool {
	return r.Status == "success"
}

// realRPCClient adapts the xrpl-go JSON-RPC client to our RPCClient interface.
type realRPCClient struct {
	url        string
	httpClient *http.Client
}

// NewRPCClient creates an RPCClient for a rippled JSON-RPC endpoint such as
// https://s1.ripple.com:51234/. If httpClient is nil a client with a 30s
// timeout is used.
func NewRPCClient(rpcURL string, httpClient *http.Client) RPCClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &realRPCClient{
		url:        rpcURL,
		httpClient: httpClient,
	}
}

// contextClient binds a request context to every call made by the xrpl-go
// client, which does not take one itself.
type contextClient struct {
	ctx    context.Context
	client *http.Client
}

func (c contextClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req.WithContext(c.ctx))
}

func (r *realRPCClient) AccountTx(ctx context.Context, req AccountTxRequest) (*AccountTxResult, error) {
	cfg, err := rpc.NewClientConfig(r.url, rpc.WithHTTPClient(contextClient{ctx: ctx, client: r.httpClient}))
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", r.url, err)
	}

	params := &account.TransactionsRequest{
		Account: types.Address(req.Account),
		Limit:   req.Limit,
	}
	if len(req.Marker) > 0 {
		params.Marker = req.Marker
	}

	resp, err := rpc.NewClient(cfg).Request(params)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	// Decoded generically so tx_json, meta and marker stay raw for the parser.
	var fields map[string]any
	if err := resp.GetResult(&fields); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	var result AccountTxResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}
