package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/brojonat/xrplwatch/service/journal"
	"github.com/brojonat/xrplwatch/service/notify"
)

func digestSendCommand() *cli.Command {
	return &cli.Command{
		Name:  "send",
		Usage: "Send the digest for the configured window now",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "unattended",
				Usage: "Send a \"no new addresses\" message when the window is empty",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			store := journal.NewStore(cfg.JournalPath, nil, logger)
			digester := notify.NewDigester(notify.DigesterConfig{
				Source:           store,
				Sender:           notify.NewWebhook(cfg.DiscordWebhookURL, nil, logger),
				Hours:            cfg.HoursToCheck,
				MaxMessageLength: cfg.MaxMessageLength,
				Unattended:       cfg.Unattended || c.Bool("unattended"),
				Logger:           logger,
			})

			if err := digester.Send(c.Context, time.Now()); err != nil {
				if errors.Is(err, notify.ErrWebhookDisabled) {
					return fmt.Errorf("DISCORD_WEBHOOK_URL is not set")
				}
				return fmt.Errorf("failed to send digest: %w", err)
			}

			fmt.Fprintf(c.App.Writer, "✓ Digest sent for the last %d hours\n", cfg.HoursToCheck)
			return nil
		},
	}
}

func digestPreviewCommand() *cli.Command {
	return &cli.Command{
		Name:  "preview",
		Usage: "Print the digest messages without sending them",
		Flags: append(journalFlags(),
			&cli.IntFlag{
				Name:    "hours",
				Usage:   "Size of the lookback window",
				EnvVars: []string{"HOURS_TO_CHECK"},
				Value:   24,
			},
			&cli.IntFlag{
				Name:    "max-length",
				Usage:   "Maximum characters per message",
				EnvVars: []string{"DISCORD_MAX_MESSAGE_LENGTH"},
				Value:   notify.DefaultMaxMessageLength,
			},
		),
		Action: func(c *cli.Context) error {
			hours := c.Int("hours")
			if hours < 1 {
				return fmt.Errorf("--hours must be at least 1")
			}

			digester := notify.NewDigester(notify.DigesterConfig{
				Source:           openJournal(c),
				Hours:            hours,
				MaxMessageLength: c.Int("max-length"),
			})

			chunks, err := digester.Compose(c.Context, time.Now())
			if err != nil {
				return fmt.Errorf("failed to compose digest: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(c.App.Writer, chunks)
			}
			for i, chunk := range chunks {
				fmt.Fprintf(c.App.Writer, "───── message %d/%d (%d chars) ─────\n", i+1, len(chunks), len([]rune(chunk)))
				fmt.Fprintln(c.App.Writer, chunk)
			}
			return nil
		},
	}
}
