package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/brojonat/xrplwatch/service/config"
	"github.com/brojonat/xrplwatch/service/temporal"
)

// newScheduler connects to Temporal. Tests replace it with a MockScheduler.
var newScheduler = func(c *cli.Context) (temporal.Scheduler, func(), error) {
	tc, err := newTemporalClient(c)
	if err != nil {
		return nil, nil, err
	}
	return tc, tc.Close, nil
}

func temporalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "temporal-host",
			Usage:   "Temporal server address",
			EnvVars: []string{"TEMPORAL_HOST"},
			Value:   "localhost:7233",
		},
		&cli.StringFlag{
			Name:    "temporal-namespace",
			Usage:   "Temporal namespace",
			EnvVars: []string{"TEMPORAL_NAMESPACE"},
			Value:   "default",
		},
		&cli.StringFlag{
			Name:    "task-queue",
			Usage:   "Task queue the worker listens on",
			EnvVars: []string{"TEMPORAL_TASK_QUEUE"},
			Value:   "xrplwatch-monitor",
		},
		&cli.StringFlag{
			Name:    "account",
			Usage:   "Account to monitor",
			EnvVars: []string{"TARGET_ADDRESS"},
			Value:   config.DefaultTargetAddress,
		},
	}
}

func createScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create or update the monitor schedule",
		Description: `Schedules MonitorWorkflow for the account. An existing schedule has its
interval and input replaced.

Example:
  xrplwatch temporal schedule create --interval 5m --send-digest`,
		Flags: append(temporalFlags(),
			&cli.DurationFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Time between monitor runs",
				EnvVars: []string{"SESSION_INTERVAL"},
				Value:   5 * time.Minute,
			},
			&cli.BoolFlag{
				Name:  "send-digest",
				Usage: "Send the digest after every run",
			},
		),
		Action: func(c *cli.Context) error {
			interval := c.Duration("interval")
			if interval < time.Minute {
				return fmt.Errorf("--interval must be at least 1m")
			}

			account := c.String("account")
			sendDigest := c.Bool("send-digest")

			scheduler, closer, err := newScheduler(c)
			if err != nil {
				return err
			}
			defer closer()

			if err := scheduler.UpsertMonitorSchedule(c.Context, account, interval, sendDigest); err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer, "✓ Schedule ready\n")
			fmt.Fprintf(c.App.Writer, "  Account: %s\n", account)
			fmt.Fprintf(c.App.Writer, "  Interval: %v\n", interval)
			fmt.Fprintf(c.App.Writer, "  Send Digest: %v\n", sendDigest)
			return nil
		},
	}
}

func deleteScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:    "delete",
		Usage:   "Delete the monitor schedule",
		Aliases: []string{"rm"},
		Flags: append(temporalFlags(),
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Skip confirmation prompt",
			},
		),
		Action: func(c *cli.Context) error {
			account := c.String("account")

			if !c.Bool("force") {
				fmt.Fprintf(c.App.Writer, "Are you sure you want to delete the schedule for %s? (y/N): ", account)
				var response string
				fmt.Fscanln(os.Stdin, &response)
				if response != "y" && response != "Y" {
					fmt.Fprintln(c.App.Writer, "Cancelled")
					return nil
				}
			}

			scheduler, closer, err := newScheduler(c)
			if err != nil {
				return err
			}
			defer closer()

			if err := scheduler.DeleteMonitorSchedule(c.Context, account); err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer, "✓ Schedule deleted for %s\n", account)
			return nil
		},
	}
}

func triggerCommand() *cli.Command {
	return &cli.Command{
		Name:  "trigger",
		Usage: "Run MonitorWorkflow once on the worker and wait for the result",
		Flags: append(temporalFlags(),
			&cli.BoolFlag{
				Name:  "send-digest",
				Usage: "Send the digest after the session",
			},
		),
		Action: func(c *cli.Context) error {
			tc, err := newTemporalClient(c)
			if err != nil {
				return err
			}
			defer tc.Close()

			result, err := tc.TriggerMonitor(c.Context, temporal.MonitorInput{
				Account:    c.String("account"),
				SendDigest: c.Bool("send-digest"),
			})
			if err != nil {
				return err
			}

			if c.Bool("json") {
				return outputJSON(c.App.Writer, result)
			}
			if result.Session != nil {
				printSessionResult(c, result.Session)
			}
			if result.SessionError != nil {
				fmt.Fprintf(c.App.Writer, "Session Error: %s\n", *result.SessionError)
			}
			fmt.Fprintf(c.App.Writer, "Digest Sent:  %v\n", result.DigestSent)
			return nil
		},
	}
}

func newTemporalClient(c *cli.Context) (*temporal.Client, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	return temporal.NewClient(
		c.String("temporal-host"),
		c.String("temporal-namespace"),
		c.String("task-queue"),
		logger,
	)
}
