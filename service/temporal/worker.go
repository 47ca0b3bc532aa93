package temporal

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/brojonat/xrplwatch/service/metrics"
)

// WorkerConfig contains configuration for the Temporal worker.
type WorkerConfig struct {
	// Temporal connection settings
	TemporalHost      string
	TemporalNamespace string
	TaskQueue         string

	// Dependencies
	Monitor MonitorInterface
	Metrics *metrics.Metrics // Optional: if nil, no metrics will be recorded
	Logger  *slog.Logger
}

// Worker wraps a Temporal worker and provides lifecycle management.
type Worker struct {
	client client.Client
	worker worker.Worker
	logger *slog.Logger
}

// NewWorker creates and configures a new Temporal worker.
// The worker will process workflows and activities on the configured task queue.
func NewWorker(config WorkerConfig) (*Worker, error) {
	if config.Monitor == nil {
		return nil, fmt.Errorf("worker requires a monitor")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	logger := config.Logger.With(
		"component", "temporal_worker",
		"account", config.Monitor.Account(),
	)

	logger.Info("creating temporal worker",
		"host", config.TemporalHost,
		"namespace", config.TemporalNamespace,
		"task_queue", config.TaskQueue,
	)

	c, err := client.Dial(client.Options{
		HostPort:  config.TemporalHost,
		Namespace: config.TemporalNamespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to temporal: %w", err)
	}

	// Sessions share one journal file, so activities run one at a time.
	w := worker.New(c, config.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     1,
		MaxConcurrentWorkflowTaskExecutionSize: 10,
	})

	w.RegisterWorkflow(MonitorWorkflow)
	logger.Info("registered workflow", "name", "MonitorWorkflow")

	activities := NewActivities(config.Monitor, config.Metrics, logger)
	w.RegisterActivity(activities.RunSession)
	w.RegisterActivity(activities.SendDigest)

	logger.Info("registered activities",
		"activities", []string{"RunSession", "SendDigest"},
	)

	return &Worker{
		client: c,
		worker: w,
		logger: logger,
	}, nil
}

// Run processes workflows and activities until ctx is cancelled or the
// worker fails. The Temporal connection is closed before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	defer w.client.Close()

	stop := make(chan interface{})
	go func() {
		<-ctx.Done()
		close(stop)
	}()

	w.logger.Info("worker running")
	if err := w.worker.Run(stop); err != nil {
		w.logger.Error("worker stopped with error", "error", err)
		return fmt.Errorf("worker stopped with error: %w", err)
	}
	w.logger.Info("worker stopped")
	return nil
}
