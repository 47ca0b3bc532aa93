package monitor

import (
	"time"

	"github.com/brojonat/xrplwatch/service/journal"
)

// Decision is what the poll loop does with one transaction.
type Decision int

const (
	// Process scans the transaction.
	Process Decision = iota
	// Skip ignores the transaction and keeps paginating.
	Skip
	// Stop ends the session without scanning the transaction.
	Stop
)

func (d Decision) String() string {
	switch d {
	case Process:
		return "process"
	case Skip:
		return "skip"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

// StopStrategy decides, per transaction, whether pagination should continue.
type StopStrategy interface {
	Decide(ts time.Time, window journal.Window) Decision
}

// ChronologicalCutoff stops at the first transaction older than the window.
// It relies on pages arriving newest first; an out-of-order transaction ends
// the session early.
type ChronologicalCutoff struct{}

func (ChronologicalCutoff) Decide(ts time.Time, window journal.Window) Decision {
	if ts.Before(window.Start) {
		return Stop
	}
	return Process
}

// FilterWindow skips transactions older than the window and pages through the
// whole history.
type FilterWindow struct{}

func (FilterWindow) Decide(ts time.Time, window journal.Window) Decision {
	if ts.Before(window.Start) {
		return Skip
	}
	return Process
}

// StrategyByName returns the strategy for "cutoff" or "filter".
func StrategyByName(name string) (StopStrategy, bool) {
	switch name {
	case "", "cutoff":
		return ChronologicalCutoff{}, true
	case "filter":
		return FilterWindow{}, true
	default:
		return nil, false
	}
}
