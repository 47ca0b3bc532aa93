package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
)

// Client is a production implementation of Scheduler that talks to Temporal.
type Client struct {
	client    client.Client
	taskQueue string
	logger    *slog.Logger
}

// NewClient creates a new Temporal client.
func NewClient(host, namespace, taskQueue string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("connecting to temporal",
		"host", host,
		"namespace", namespace,
		"task_queue", taskQueue,
	)

	c, err := client.Dial(client.Options{
		HostPort:  host,
		Namespace: namespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}

	logger.Info("connected to temporal successfully")

	return &Client{
		client:    c,
		taskQueue: taskQueue,
		logger:    logger,
	}, nil
}

// CreateMonitorSchedule creates a schedule that runs MonitorWorkflow for
// account every interval.
func (c *Client) CreateMonitorSchedule(ctx context.Context, account string, interval time.Duration, sendDigest bool) error {
	id := scheduleID(account)

	c.logger.Debug("creating monitor schedule",
		"account", account,
		"schedule_id", id,
		"interval", interval,
		"send_digest", sendDigest,
	)

	workflowAction := client.ScheduleWorkflowAction{
		ID:        workflowID(account),
		Workflow:  MonitorWorkflow,
		TaskQueue: c.taskQueue,
		Args: []interface{}{MonitorInput{
			Account:    account,
			SendDigest: sendDigest,
		}},
	}

	_, err := c.client.ScheduleClient().Create(ctx, client.ScheduleOptions{
		ID: id,
		Spec: client.ScheduleSpec{
			Intervals: []client.ScheduleIntervalSpec{
				{Every: interval},
			},
		},
		Action: &workflowAction,
		Memo: map[string]interface{}{
			"account":     account,
			"send_digest": sendDigest,
			"created_by":  "xrplwatch",
		},
	})
	if err != nil {
		c.logger.Error("failed to create schedule",
			"account", account,
			"schedule_id", id,
			"error", err,
		)
		return fmt.Errorf("failed to create schedule %q: %w", id, err)
	}

	c.logger.Info("monitor schedule created",
		"account", account,
		"schedule_id", id,
		"interval", interval,
		"send_digest", sendDigest,
	)

	return nil
}

// UpsertMonitorSchedule creates or updates the schedule for account.
// If the schedule already exists, its interval and workflow input are
// replaced. Otherwise, a new schedule is created.
func (c *Client) UpsertMonitorSchedule(ctx context.Context, account string, interval time.Duration, sendDigest bool) error {
	id := scheduleID(account)

	handle := c.client.ScheduleClient().GetHandle(ctx, id)
	if _, err := handle.Describe(ctx); err != nil {
		c.logger.Debug("schedule not found, creating new one",
			"schedule_id", id,
			"error", err,
		)
		return c.CreateMonitorSchedule(ctx, account, interval, sendDigest)
	}

	c.logger.Debug("schedule exists, updating",
		"schedule_id", id,
		"interval", interval,
		"send_digest", sendDigest,
	)

	err := handle.Update(ctx, client.ScheduleUpdateOptions{
		DoUpdate: func(input client.ScheduleUpdateInput) (*client.ScheduleUpdate, error) {
			input.Description.Schedule.Spec.Intervals = []client.ScheduleIntervalSpec{
				{Every: interval},
			}
			if action, ok := input.Description.Schedule.Action.(*client.ScheduleWorkflowAction); ok {
				action.Args = []interface{}{MonitorInput{
					Account:    account,
					SendDigest: sendDigest,
				}}
			}
			return &client.ScheduleUpdate{
				Schedule: &input.Description.Schedule,
			}, nil
		},
	})
	if err != nil {
		c.logger.Error("failed to update schedule",
			"account", account,
			"schedule_id", id,
			"error", err,
		)
		return fmt.Errorf("failed to update schedule %q: %w", id, err)
	}

	c.logger.Info("monitor schedule updated",
		"account", account,
		"schedule_id", id,
		"interval", interval,
		"send_digest", sendDigest,
	)

	return nil
}

// DeleteMonitorSchedule deletes the Temporal schedule for account.
func (c *Client) DeleteMonitorSchedule(ctx context.Context, account string) error {
	id := scheduleID(account)

	c.logger.Debug("deleting monitor schedule",
		"account", account,
		"schedule_id", id,
	)

	handle := c.client.ScheduleClient().GetHandle(ctx, id)
	if err := handle.Delete(ctx); err != nil {
		c.logger.Error("failed to delete schedule",
			"account", account,
			"schedule_id", id,
			"error", err,
		)
		return fmt.Errorf("failed to delete schedule %q: %w", id, err)
	}

	c.logger.Info("monitor schedule deleted",
		"account", account,
		"schedule_id", id,
	)

	return nil
}

// TriggerMonitor starts MonitorWorkflow for account immediately and waits
// for its result.
func (c *Client) TriggerMonitor(ctx context.Context, input MonitorInput) (*MonitorResult, error) {
	run, err := c.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        workflowID(input.Account) + "-manual",
		TaskQueue: c.taskQueue,
	}, MonitorWorkflow, input)
	if err != nil {
		return nil, fmt.Errorf("failed to start workflow: %w", err)
	}

	c.logger.Info("monitor workflow started",
		"workflow_id", run.GetID(),
		"run_id", run.GetRunID(),
	)

	var result MonitorResult
	if err := run.Get(ctx, &result); err != nil {
		return nil, fmt.Errorf("workflow failed: %w", err)
	}
	return &result, nil
}

// TaskQueue returns the configured task queue for this client.
func (c *Client) TaskQueue() string {
	return c.taskQueue
}

// Close closes the Temporal client connection.
func (c *Client) Close() {
	c.logger.Info("closing temporal client")
	c.client.Close()
}

// temporalLogger adapts slog.Logger to Temporal's logger interface.
type temporalLogger struct {
	logger *slog.Logger
}

func newTemporalLogger(logger *slog.Logger) *temporalLogger {
	return &temporalLogger{logger: logger}
}

func (l *temporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debug(msg, keyvals...)
}

func (l *temporalLogger) Info(msg string, keyvals ...interface{}) {
	l.logger.Info(msg, keyvals...)
}

func (l *temporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warn(msg, keyvals...)
}

func (l *temporalLogger) Error(msg string, keyvals ...interface{}) {
	l.logger.Error(msg, keyvals...)
}
