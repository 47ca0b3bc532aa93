package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// XRPL RPC Metrics
	xrplRPCCallsTotal    *prometheus.CounterVec
	xrplRPCCallDuration  *prometheus.HistogramVec
	xrplEndpointConnects *prometheus.CounterVec
	xrplTransactionsPage *prometheus.HistogramVec

	// Transaction Processing Metrics
	transactionsProcessedTotal *prometheus.CounterVec
	transactionsSkippedTotal   *prometheus.CounterVec
	memoMatchesTotal           *prometheus.CounterVec

	// Session Metrics
	sessionDuration *prometheus.HistogramVec
	sessionsTotal   *prometheus.CounterVec

	// Journal Metrics
	journalWriteDuration *prometheus.HistogramVec
	journalEntries       prometheus.Gauge

	// Digest Metrics
	digestSendsTotal  *prometheus.CounterVec
	digestChunksTotal *prometheus.CounterVec

	// HTTP Metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec

	// Temporal Metrics
	activityDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// XRPL RPC Metrics
		xrplRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xrpl_rpc_calls_total",
				Help: "Total number of XRPL RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		xrplRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "xrpl_rpc_call_duration_seconds",
				Help:    "Duration of XRPL RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),
		xrplEndpointConnects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xrpl_endpoint_connects_total",
				Help: "Connection probes against XRPL endpoints by outcome",
			},
			[]string{"endpoint", "status"},
		),
		xrplTransactionsPage: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "xrpl_transactions_per_page",
				Help:    "Number of transactions returned per account_tx page",
				Buckets: []float64{0, 1, 10, 25, 50, 100, 200, 400},
			},
			[]string{"endpoint"},
		),

		// Transaction Processing Metrics
		transactionsProcessedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_processed_total",
				Help: "Total number of transactions passed to the memo scanner",
			},
			[]string{"account"},
		),
		transactionsSkippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_skipped_total",
				Help: "Total number of transactions skipped",
			},
			[]string{"account", "reason"},
		),
		memoMatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memo_matches_total",
				Help: "Blacklist memo matches by outcome (journaled, duplicate, discarded)",
			},
			[]string{"account", "outcome"},
		),

		// Session Metrics
		sessionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "monitor_session_duration_seconds",
				Help:    "Duration of monitoring sessions in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"account", "outcome"},
		),
		sessionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_sessions_total",
				Help: "Total number of monitoring sessions by outcome",
			},
			[]string{"account", "outcome"},
		),

		// Journal Metrics
		journalWriteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "journal_write_duration_seconds",
				Help:    "Duration of journal read-modify-write operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"status"},
		),
		journalEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "journal_entries",
				Help: "Number of entries in the journal after the last write",
			},
		),

		// Digest Metrics
		digestSendsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "digest_sends_total",
				Help: "Total number of digest send attempts by status",
			},
			[]string{"status"},
		),
		digestChunksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "digest_chunks_total",
				Help: "Total number of digest chunks delivered by status",
			},
			[]string{"status"},
		),

		// HTTP Metrics
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),

		// NATS Metrics
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),

		// Temporal Metrics
		activityDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "temporal_activity_duration_seconds",
				Help:    "Duration of Temporal activities in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"activity", "account"},
		),
	}
}

// XRPL RPC metric helpers

// RecordRPCCall records an XRPL RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	m.xrplRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.xrplRPCCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordEndpointConnect records the outcome of a connectivity probe.
func (m *Metrics) RecordEndpointConnect(endpoint, status string) {
	m.xrplEndpointConnects.WithLabelValues(endpoint, status).Inc()
}

// RecordTransactionsPerPage records the size of an account_tx page.
func (m *Metrics) RecordTransactionsPerPage(endpoint string, count float64) {
	m.xrplTransactionsPage.WithLabelValues(endpoint).Observe(count)
}

// Transaction processing metric helpers

// RecordTransactionProcessed records a transaction handed to the scanner.
func (m *Metrics) RecordTransactionProcessed(account string) {
	m.transactionsProcessedTotal.WithLabelValues(account).Inc()
}

// RecordTransactionSkipped records a skipped transaction.
func (m *Metrics) RecordTransactionSkipped(account, reason string) {
	m.transactionsSkippedTotal.WithLabelValues(account, reason).Inc()
}

// RecordMemoMatch records what happened to a blacklist memo match.
func (m *Metrics) RecordMemoMatch(account, outcome string) {
	m.memoMatchesTotal.WithLabelValues(account, outcome).Inc()
}

// Session metric helpers

// RecordSession records a finished monitoring session.
func (m *Metrics) RecordSession(account, outcome string, duration float64) {
	m.sessionDuration.WithLabelValues(account, outcome).Observe(duration)
	m.sessionsTotal.WithLabelValues(account, outcome).Inc()
}

// Journal metric helpers

// RecordJournalWrite records a journal rewrite and the resulting size.
func (m *Metrics) RecordJournalWrite(duration float64, entries int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.journalWriteDuration.WithLabelValues(status).Observe(duration)
	if err == nil {
		m.journalEntries.Set(float64(entries))
	}
}

// Digest metric helpers

// RecordDigestSend records the overall outcome of a digest send.
func (m *Metrics) RecordDigestSend(status string) {
	m.digestSendsTotal.WithLabelValues(status).Inc()
}

// RecordDigestChunk records the delivery of one digest chunk.
func (m *Metrics) RecordDigestChunk(status string) {
	m.digestChunksTotal.WithLabelValues(status).Inc()
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

// Temporal metric helpers

// RecordActivityDuration records how long a Temporal activity took.
func (m *Metrics) RecordActivityDuration(activity, account string, duration float64) {
	m.activityDuration.WithLabelValues(activity, account).Observe(duration)
}

// Helper functions

func statusCodeToString(code int) string {
	// Group status codes by class
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
