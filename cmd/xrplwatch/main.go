package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "xrplwatch",
		Usage: "XRPL account memo watcher with Discord digests",
		Description: `Polls the transactions of one XRPL account, journals destinations whose
memos mention "Blacklist", and posts a digest of recent finds to Discord.

Configuration is read from the environment (TARGET_ADDRESS, XRPL_RPC_URLS,
DISCORD_WEBHOOK_URL, HOURS_TO_CHECK, UNATTENDED, JOURNAL_PATH, ...).`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			monitorCommand(),
			runOnceCommand(),
			{
				Name:  "journal",
				Usage: "Journal inspection commands",
				Subcommands: []*cli.Command{
					journalListCommand(),
					journalRecentCommand(),
				},
			},
			{
				Name:  "digest",
				Usage: "Digest commands",
				Subcommands: []*cli.Command{
					digestSendCommand(),
					digestPreviewCommand(),
				},
			},
			{
				Name:  "temporal",
				Usage: "Temporal schedule management",
				Subcommands: []*cli.Command{
					{
						Name:  "schedule",
						Usage: "Manage the monitor schedule",
						Subcommands: []*cli.Command{
							createScheduleCommand(),
							deleteScheduleCommand(),
						},
					},
					triggerCommand(),
				},
			},
			{
				Name:  "nats",
				Usage: "NATS match event commands",
				Subcommands: []*cli.Command{
					subscribeCommand(),
					inspectStreamCommand(),
				},
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
		},
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
