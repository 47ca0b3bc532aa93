package temporal

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockScheduler is a mock implementation of Scheduler for testing.
type MockScheduler struct {
	mu        sync.Mutex
	schedules map[string]MonitorSchedule // map[scheduleID]schedule
	upsertErr error
	deleteErr error
}

// MonitorSchedule is what MockScheduler records per schedule.
type MonitorSchedule struct {
	Interval   time.Duration
	SendDigest bool
}

// NewMockScheduler creates a new MockScheduler.
func NewMockScheduler() *MockScheduler {
	return &MockScheduler{
		schedules: make(map[string]MonitorSchedule),
	}
}

// UpsertMonitorSchedule creates or updates a schedule.
func (m *MockScheduler) UpsertMonitorSchedule(ctx context.Context, account string, interval time.Duration, sendDigest bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.schedules[scheduleID(account)] = MonitorSchedule{Interval: interval, SendDigest: sendDigest}
	return nil
}

// DeleteMonitorSchedule records that a schedule was deleted.
func (m *MockScheduler) DeleteMonitorSchedule(ctx context.Context, account string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleteErr != nil {
		return m.deleteErr
	}

	id := scheduleID(account)
	if _, exists := m.schedules[id]; !exists {
		return fmt.Errorf("schedule %q not found", id)
	}
	delete(m.schedules, id)
	return nil
}

// SetUpsertError makes UpsertMonitorSchedule return an error.
func (m *MockScheduler) SetUpsertError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertErr = err
}

// SetDeleteError makes DeleteMonitorSchedule return an error.
func (m *MockScheduler) SetDeleteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteErr = err
}

// GetSchedule returns the recorded schedule for account.
func (m *MockScheduler) GetSchedule(account string) (MonitorSchedule, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, exists := m.schedules[scheduleID(account)]
	return s, exists
}

// ScheduleCount returns the number of schedules.
func (m *MockScheduler) ScheduleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.schedules)
}
