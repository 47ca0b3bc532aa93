package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/brojonat/xrplwatch/service/journal"
	"github.com/brojonat/xrplwatch/service/scanner"
	"github.com/brojonat/xrplwatch/service/xrpl"
)

// SessionResult summarizes one pass over the account history.
type SessionResult struct {
	SessionID string `json:"session_id"`
	// Processed counts transactions handed to the scanner.
	Processed int `json:"processed"`
	WithMemos int `json:"with_memos"`
	// Matches counts keyword hits with a resolved destination.
	Matches int `json:"matches"`
	// Journaled counts matches that were new to the journal.
	Journaled int `json:"journaled"`
	// Discarded counts keyword hits without a destination.
	Discarded int `json:"discarded"`
	// Skipped counts transactions without a body or timestamp, or outside
	// the window under FilterWindow.
	Skipped      int   `json:"skipped"`
	Pages        int   `json:"pages"`
	StoppedEarly bool  `json:"stopped_early"`
	Halted       bool  `json:"halted"`
	FinalState   State `json:"final_state"`
}

// Session is one run of the poll loop. Cursor and error counters live on the
// session; the journal and digest schedule are shared across sessions.
type Session struct {
	cfg     Config
	scanner *scanner.Scanner
	logger  *slog.Logger
	state   State
}

// NewSession creates a session from cfg. Config defaults are applied by New;
// callers constructing sessions directly should pass a complete Config.
func NewSession(cfg Config) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		cfg:     cfg,
		scanner: scanner.New(cfg.Logger),
		logger:  cfg.Logger,
		state:   Connecting,
	}
}

// Run executes the session until Done. It returns an error only when the
// initial connection fails, a journal write fails or ctx is cancelled. A
// failed reconnection ends the session with Halted set and a nil error.
func (s *Session) Run(ctx context.Context) (*SessionResult, error) {
	start := s.cfg.Now()
	res := &SessionResult{SessionID: uuid.NewString()}
	logger := s.logger.With("session_id", res.SessionID, "account", s.cfg.Account)
	window := journal.WindowEndingAt(start, s.cfg.Hours)

	logger.InfoContext(ctx, "starting session",
		"window_start", window.Start,
		"window_end", window.End,
	)

	res.FinalState = Connecting
	client, err := s.connect(ctx, logger)
	if err != nil {
		s.recordSession("error", start)
		return res, fmt.Errorf("failed to connect: %w", err)
	}

	var (
		marker      json.RawMessage
		page        *xrpl.Page
		consecutive int
	)
	s.transition(ctx, logger, Fetching)

	for s.state != Done {
		if err := ctx.Err(); err != nil {
			res.FinalState = s.state
			s.recordSession("cancelled", start)
			return res, err
		}

		switch s.state {
		case Fetching:
			s.checkDigest(ctx, logger)

			page, err = client.ListTransactions(ctx, s.cfg.Account, s.cfg.PageSize, marker)
			if err != nil {
				consecutive++
				logger.WarnContext(ctx, "failed to fetch transactions",
					"endpoint", client.Endpoint(),
					"consecutive_errors", consecutive,
					"error", err,
				)
				if err := s.cfg.Sleep(ctx, s.cfg.ErrorDelay); err != nil {
					res.FinalState = s.state
					s.recordSession("cancelled", start)
					return res, err
				}
				if consecutive >= s.cfg.MaxConsecutiveErrors {
					s.transition(ctx, logger, ErrorBackoff)
				}
				continue
			}

			consecutive = 0
			res.Pages++
			logger.DebugContext(ctx, "fetched page",
				"page", res.Pages,
				"transactions", len(page.Transactions),
				"has_more", page.HasMore(),
			)
			s.transition(ctx, logger, Processing)

		case Processing:
			stopped, err := s.processPage(ctx, logger, page, window, res)
			if err != nil {
				res.FinalState = s.state
				s.recordSession("error", start)
				return res, err
			}
			switch {
			case stopped:
				res.StoppedEarly = true
				s.transition(ctx, logger, Done)
			case page.HasMore():
				marker = page.Marker
				s.transition(ctx, logger, Fetching)
			default:
				s.transition(ctx, logger, Done)
			}

		case ErrorBackoff:
			logger.WarnContext(ctx, "too many consecutive errors, reconnecting",
				"consecutive_errors", consecutive,
			)
			client, err = s.connect(ctx, logger)
			if err != nil {
				logger.ErrorContext(ctx, "reconnection failed, halting session", "error", err)
				res.Halted = true
				s.transition(ctx, logger, Done)
				continue
			}
			consecutive = 0
			s.transition(ctx, logger, Fetching)
		}
	}

	res.FinalState = Done
	outcome := "completed"
	switch {
	case res.Halted:
		outcome = "halted"
	case res.StoppedEarly:
		outcome = "stopped_early"
	}
	s.recordSession(outcome, start)

	logger.InfoContext(ctx, "processing summary",
		"processed", res.Processed,
		"with_memos", res.WithMemos,
		"matches", res.Matches,
		"journaled", res.Journaled,
		"skipped", res.Skipped,
		"pages", res.Pages,
		"stopped_early", res.StoppedEarly,
		"halted", res.Halted,
	)
	return res, nil
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

func (s *Session) transition(ctx context.Context, logger *slog.Logger, next State) {
	logger.DebugContext(ctx, "state transition", "from", s.state.String(), "to", next.String())
	s.state = next
}

func (s *Session) connect(ctx context.Context, logger *slog.Logger) (*xrpl.Client, error) {
	s.state = Connecting
	return xrpl.Connect(ctx, s.cfg.Endpoints, s.cfg.Dial, s.cfg.Account, s.cfg.Metrics, logger)
}

// checkDigest sends the digest if the schedule says it is due.
func (s *Session) checkDigest(ctx context.Context, logger *slog.Logger) {
	if s.cfg.Digest == nil || s.cfg.Schedule == nil {
		return
	}
	now := s.cfg.Now()
	if !s.cfg.Schedule.Due(now) {
		return
	}

	if err := s.cfg.Digest.Send(ctx, now); err != nil {
		s.cfg.Schedule.MarkFailed(now)
		logger.WarnContext(ctx, "digest send failed, will retry",
			"next_attempt", s.cfg.Schedule.Next(),
			"error", err,
		)
		return
	}
	s.cfg.Schedule.MarkSent(now)
}

// processPage handles one page in received order. It reports whether the
// strategy asked to stop.
func (s *Session) processPage(ctx context.Context, logger *slog.Logger, page *xrpl.Page, window journal.Window, res *SessionResult) (bool, error) {
	for _, raw := range page.Transactions {
		txn, ok := xrpl.ParseTransaction(raw)
		if !ok {
			logger.WarnContext(ctx, "skipping transaction without body", "tx_hash", raw.Hash)
			s.recordSkipped("no_body")
			res.Skipped++
			continue
		}
		if !txn.HasTimestamp() {
			logger.WarnContext(ctx, "skipping transaction without timestamp", "tx_hash", txn.Hash)
			s.recordSkipped("no_timestamp")
			res.Skipped++
			continue
		}
		if !txn.TimestampSource.Trusted() {
			logger.WarnContext(ctx, "transaction time taken from an untrusted field",
				"tx_hash", txn.Hash,
				"source", txn.TimestampSource.String(),
				"timestamp", txn.Timestamp,
			)
		}

		switch s.cfg.Strategy.Decide(txn.Timestamp, window) {
		case Stop:
			logger.InfoContext(ctx, "reached transaction older than window, stopping",
				"tx_hash", txn.Hash,
				"timestamp", txn.Timestamp,
				"window_start", window.Start,
			)
			return true, nil
		case Skip:
			s.recordSkipped("outside_window")
			res.Skipped++
			continue
		}

		res.Processed++
		if len(txn.Memos) > 0 {
			res.WithMemos++
		}
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.RecordTransactionProcessed(s.cfg.Account)
		}
		logger.DebugContext(ctx, "processing transaction",
			"tx_hash", txn.Hash,
			"type", txn.Type,
			"from", txn.Account,
			"to", txn.Destination,
			"amount", txn.Amount,
			"timestamp", txn.Timestamp,
			"memos", len(txn.Memos),
		)

		scan := s.scanner.Scan(ctx, txn)
		res.Discarded += scan.Discarded
		for i := 0; i < scan.Discarded; i++ {
			s.recordMatch("discarded")
		}

		for _, m := range scan.Matches {
			res.Matches++
			entry := journal.NewEntry(m.Address, m.MemoText, scanner.ExtractTaskID(m.MemoText), m.TxHash, s.cfg.Now())
			appended, err := s.cfg.Journal.Append(ctx, entry)
			if err != nil {
				return false, fmt.Errorf("failed to journal match for %s: %w", m.TxHash, err)
			}
			if !appended {
				s.recordMatch("duplicate")
				continue
			}

			res.Journaled++
			s.recordMatch("journaled")
			s.publish(ctx, logger, entry)
		}
	}
	return false, nil
}

func (s *Session) publish(ctx context.Context, logger *slog.Logger, entry journal.Entry) {
	if s.cfg.Sink == nil {
		return
	}
	if err := s.cfg.Sink.PublishMatch(ctx, s.cfg.Account, entry); err != nil {
		logger.WarnContext(ctx, "failed to publish match event",
			"address", entry.BlacklistedAddress,
			"tx_hash", entry.TransactionHash,
			"error", err,
		)
	}
}

func (s *Session) recordSkipped(reason string) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RecordTransactionSkipped(s.cfg.Account, reason)
	}
}

func (s *Session) recordMatch(outcome string) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RecordMemoMatch(s.cfg.Account, outcome)
	}
}

func (s *Session) recordSession(outcome string, start time.Time) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RecordSession(s.cfg.Account, outcome, s.cfg.Now().Sub(start).Seconds())
	}
}
