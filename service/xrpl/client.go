package xrpl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/brojonat/xrplwatch/service/metrics"
)

// ErrNoReachableEndpoint is returned by Connect when every endpoint failed its probe.
var ErrNoReachableEndpoint = errors.New("could not connect to any XRPL node")

// DefaultEndpoints are tried in order when none are configured.
var DefaultEndpoints = []string{
	"https://s1.ripple.com:51234/",
	"https://s2.ripple.com:51234/",
	"https://xrplcluster.com",
}

// RPCClient is an interface for the XRPL RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real nodes.
type RPCClient interface {
	AccountTx(ctx context.Context, req AccountTxRequest) (*AccountTxResult, error)
}

// Dialer builds an RPCClient for an endpoint URL.
type Dialer func(endpoint string) RPCClient

// DefaultDialer returns JSON-RPC clients with the default HTTP client.
func DefaultDialer(endpoint string) RPCClient {
	return NewRPCClient(endpoint, nil)
}

// Client provides account transaction paging over one XRPL endpoint.
// It wraps the RPC client with logging and metrics.
type Client struct {
	rpc      RPCClient
	endpoint string // full URL
	label    string // metrics label, see EndpointLabel
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewClient creates a new XRPL client. If metrics is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, endpoint string, m *metrics.Metrics, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		rpc:      rpcClient,
		endpoint: endpoint,
		label:    EndpointLabel(endpoint),
		logger:   logger,
		metrics:  m,
	}
}

// Endpoint returns the URL this client talks to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// ListTransactions requests up to limit transactions for account starting at
// marker (nil for the newest page).
func (c *Client) ListTransactions(ctx context.Context, account string, limit int, marker json.RawMessage) (*Page, error) {
	c.logger.DebugContext(ctx, "calling account_tx",
		"account", account,
		"limit", limit,
		"has_marker", len(marker) > 0,
		"endpoint", c.endpoint,
	)

	result, err := c.call(ctx, AccountTxRequest{
		Account: account,
		Limit:   limit,
		Marker:  marker,
	})
	if err != nil {
		return nil, err
	}

	if c.metrics != nil {
		c.metrics.RecordTransactionsPerPage(c.label, float64(len(result.Transactions)))
	}

	return &Page{
		Transactions: result.Transactions,
		Marker:       result.Marker,
	}, nil
}

// Probe performs a one-transaction lookup to check the endpoint is usable.
func (c *Client) Probe(ctx context.Context, account string) error {
	result, err := c.call(ctx, AccountTxRequest{Account: account, Limit: 1})
	if err != nil {
		return err
	}
	c.logger.DebugContext(ctx, "probe response",
		"endpoint", c.endpoint,
		"status", result.Status,
		"transactions", len(result.Transactions),
	)
	return nil
}

// call performs account_tx and treats a non-success status as an error.
func (c *Client) call(ctx context.Context, req AccountTxRequest) (*AccountTxResult, error) {
	start := time.Now()
	result, err := c.rpc.AccountTx(ctx, req)
	if err == nil && !result.IsSuccessful() {
		err = fmt.Errorf("account_tx returned status %q: %s %s", result.Status, result.Error, result.ErrorMessage)
	}
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil {
		status = "error"
		c.logger.ErrorContext(ctx, "account_tx failed",
			"account", req.Account,
			"endpoint", c.endpoint,
			"error", err,
		)
	}
	if c.metrics != nil {
		c.metrics.RecordRPCCall("account_tx", status, c.label, duration)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Connect tries each endpoint in order and returns a client for the first one
// whose probe succeeds. If all fail, the returned error wraps
// ErrNoReachableEndpoint together with each endpoint's failure.
func Connect(ctx context.Context, endpoints []string, dial Dialer, account string, m *metrics.Metrics, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dial == nil {
		dial = DefaultDialer
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("%w: no RPC endpoints configured", ErrNoReachableEndpoint)
	}

	errs := []error{ErrNoReachableEndpoint}
	for _, endpoint := range endpoints {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		client := NewClient(dial(endpoint), endpoint, m, logger)
		if err := client.Probe(ctx, account); err != nil {
			logger.WarnContext(ctx, "failed to connect to XRPL node",
				"endpoint", endpoint,
				"error", err,
			)
			if m != nil {
				m.RecordEndpointConnect(client.label, "error")
			}
			errs = append(errs, fmt.Errorf("%s: %w", endpoint, err))
			continue
		}

		if m != nil {
			m.RecordEndpointConnect(client.label, "success")
		}
		logger.InfoContext(ctx, "connected to XRPL node", "endpoint", endpoint)
		return client, nil
	}

	return nil, errors.Join(errs...)
}

// EndpointLabel extracts a short identifier from an RPC URL for metrics labeling.
// Examples:
//   - "https://s1.ripple.com:51234/" -> "s1.ripple.com"
//   - "https://xrplcluster.com" -> "xrplcluster"
func EndpointLabel(rpcURL string) string {
	parsed, err := url.Parse(rpcURL)
	if err != nil || parsed.Hostname() == "" {
		return "unknown"
	}

	host := parsed.Hostname()
	if strings.Contains(host, "xrplcluster") {
		return "xrplcluster"
	}
	return host
}
