package monitor

import (
	"sync"
	"time"
)

const (
	DefaultDigestInterval = time.Hour
	DefaultDigestRetry    = 5 * time.Minute
)

// DigestSchedule tracks when the next digest is due. After a failed send the
// next attempt comes Retry later instead of a full Interval.
type DigestSchedule struct {
	Interval time.Duration
	Retry    time.Duration

	mu   sync.Mutex
	next time.Time
}

// NewDigestSchedule returns a schedule whose first digest is due one interval
// after now.
func NewDigestSchedule(interval, retry time.Duration, now time.Time) *DigestSchedule {
	if interval <= 0 {
		interval = DefaultDigestInterval
	}
	if retry <= 0 {
		retry = DefaultDigestRetry
	}
	return &DigestSchedule{
		Interval: interval,
		Retry:    retry,
		next:     now.Add(interval),
	}
}

// Due reports whether a digest should be sent at now.
func (s *DigestSchedule) Due(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !now.Before(s.next)
}

// Next returns when the next digest is due.
func (s *DigestSchedule) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

func (s *DigestSchedule) MarkSent(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = now.Add(s.Interval)
}

func (s *DigestSchedule) MarkFailed(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = now.Add(s.Retry)
}
