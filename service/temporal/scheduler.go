package temporal

import (
	"context"
	"time"
)

// Scheduler manages Temporal schedules for account monitoring.
// Each watched account gets one schedule that triggers MonitorWorkflow.
type Scheduler interface {
	// UpsertMonitorSchedule creates the schedule for account or updates its
	// interval and digest setting if it already exists.
	UpsertMonitorSchedule(ctx context.Context, account string, interval time.Duration, sendDigest bool) error

	// DeleteMonitorSchedule deletes the schedule for account.
	DeleteMonitorSchedule(ctx context.Context, account string) error
}

// scheduleID returns the Temporal schedule ID for an account.
func scheduleID(account string) string {
	return "monitor-account-" + account
}

// workflowID returns the ID of workflows started by an account's schedule.
func workflowID(account string) string {
	return "monitor-" + account
}
