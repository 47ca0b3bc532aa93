// Package monitor runs the poll loop: it pages through an account's
// transactions newest first, scans memos, journals matches and keeps the
// digest on schedule.
package monitor

import "fmt"

// State is a poll loop state.
type State int

const (
	Connecting State = iota
	Fetching
	Processing
	ErrorBackoff
	Done
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Fetching:
		return "fetching"
	case Processing:
		return "processing"
	case ErrorBackoff:
		return "error_backoff"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for _, candidate := range []State{Connecting, Fetching, Processing, ErrorBackoff, Done} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}
