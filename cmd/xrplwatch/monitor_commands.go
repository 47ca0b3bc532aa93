package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/brojonat/xrplwatch/service/config"
	"github.com/brojonat/xrplwatch/service/monitor"
	"github.com/brojonat/xrplwatch/service/notify"
)

func monitorCommand() *cli.Command {
	return &cli.Command{
		Name:  "monitor",
		Usage: "Monitor the target account continuously",
		Description: `Sends a startup digest, then runs a polling session every SESSION_INTERVAL
and sends the digest every DIGEST_INTERVAL until interrupted.

With UNATTENDED=true this behaves like run-once.`,
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Unattended {
				return runOnce(c, cfg)
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := newRuntime(ctx, cfg, logger, true)
			if err != nil {
				return err
			}
			defer rt.Close()
			rt.startMetricsServer()

			logger.Info("starting monitor",
				"account", cfg.TargetAddress,
				"endpoints", len(cfg.RPCURLs),
				"hours", cfg.HoursToCheck,
				"journal", cfg.JournalPath,
				"digest_enabled", cfg.DigestEnabled(),
				"nats_enabled", cfg.NATSURL != "",
			)

			if err := rt.monitor.RunContinuous(ctx); err != nil {
				return err
			}
			logger.Info("shutdown complete")
			return nil
		},
	}
}

func runOnceCommand() *cli.Command {
	return &cli.Command{
		Name:  "run-once",
		Usage: "Run one polling session, send the digest, and exit",
		Description: `Intended for cron. Exits 0 when the digest was delivered and 1 when it
failed or DISCORD_WEBHOOK_URL is not set. Without a webhook the session still
runs and journals matches. An empty window still sends a "no new blacklisted
addresses" message.`,
		Action: func(c *cli.Context) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return runOnce(c, cfg)
		},
	}
}

// runOnce runs one session plus digest. Failures are returned as cli exit
// errors with code 1.
func runOnce(c *cli.Context, cfg *config.Config) error {
	logger := setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg, logger, false)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer rt.Close()

	result, err := rt.monitor.RunOnce(ctx)
	if c.Bool("json") && result != nil {
		if outErr := outputJSON(c.App.Writer, result); outErr != nil {
			logger.Error("failed to write result", "error", outErr)
		}
	} else if result != nil {
		printSessionResult(c, result)
	}
	if errors.Is(err, notify.ErrWebhookDisabled) {
		return cli.Exit("run-once failed: DISCORD_WEBHOOK_URL is not set, matches were journaled but no digest was sent", 1)
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("run-once failed: %v", err), 1)
	}

	logger.Info("run-once complete", "account", cfg.TargetAddress)
	return nil
}

func printSessionResult(c *cli.Context, r *monitor.SessionResult) {
	w := c.App.Writer
	fmt.Fprintf(w, "Session:      %s\n", r.SessionID)
	fmt.Fprintf(w, "Final State:  %s\n", r.FinalState)
	fmt.Fprintf(w, "Processed:    %d (%d with memos)\n", r.Processed, r.WithMemos)
	fmt.Fprintf(w, "Matches:      %d (%d new)\n", r.Matches, r.Journaled)
	fmt.Fprintf(w, "Pages:        %d\n", r.Pages)
	if r.StoppedEarly {
		fmt.Fprintf(w, "Stopped at the window boundary\n")
	}
	if r.Halted {
		fmt.Fprintf(w, "Halted after reconnection failure\n")
	}
}

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
