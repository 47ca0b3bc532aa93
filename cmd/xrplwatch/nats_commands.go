package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/urfave/cli/v2"

	natspkg "github.com/brojonat/xrplwatch/service/nats"
)

func natsURLFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "nats-url",
		Usage:   "NATS server URL",
		EnvVars: []string{"NATS_URL"},
		Value:   "nats://localhost:4222",
	}
}

// subscribeCommand streams match events as they are published.
func subscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "subscribe",
		Usage:     "Subscribe to match events",
		ArgsUsage: "[blacklisted_address]",
		Description: `Stream match events published to NATS JetStream.

Events are published to the subject: blacklist.{blacklisted_address}
Without an address every event on the stream is shown.

Example:
  xrplwatch nats subscribe --json`,
		Flags: []cli.Flag{
			natsURLFlag(),
			&cli.BoolFlag{
				Name:    "durable",
				Aliases: []string{"d"},
				Usage:   "Create a durable consumer (survives restarts)",
			},
			&cli.StringFlag{
				Name:  "consumer-name",
				Usage: "Consumer name (required for durable)",
				Value: "xrplwatch-cli",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() > 1 {
				return fmt.Errorf("at most one address may be given")
			}

			subject := natspkg.StreamSubjects
			if c.NArg() == 1 {
				subject = natspkg.Subject(c.Args().Get(0))
			}

			return streamMatches(c.App.Writer, subject, c.String("nats-url"),
				c.Bool("durable"), c.String("consumer-name"), c.Bool("json"))
		},
	}
}

// streamMatches consumes events on subject until interrupted.
func streamMatches(out io.Writer, subject, natsURL string, durable bool, consumerName string, jsonOutput bool) error {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if !jsonOutput {
		fmt.Fprintf(out, "📡 Subscribing to: %s\n", subject)
		fmt.Fprintf(out, "   NATS: %s\n", natsURL)
		if durable {
			fmt.Fprintf(out, "   Consumer: %s (durable)\n", consumerName)
		}
		fmt.Fprintf(out, "\nWaiting for matches... (Ctrl-C to exit)\n\n")
	}

	consumerConfig := jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	}
	if durable {
		consumerConfig.Durable = consumerName
		consumerConfig.Name = consumerName
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cons, err := js.CreateOrUpdateConsumer(ctx, natspkg.StreamName, consumerConfig)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	msgChan := make(chan jetstream.Msg, 10)
	consumeCtx, err := cons.Consume(func(msg jetstream.Msg) {
		msgChan <- msg
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	defer consumeCtx.Stop()

	count := 0
	for {
		select {
		case msg := <-msgChan:
			var event natspkg.MatchEvent
			if err := json.Unmarshal(msg.Data(), &event); err != nil {
				if !jsonOutput {
					fmt.Fprintf(os.Stderr, "Error parsing event: %v\n", err)
				}
				msg.Ack()
				continue
			}

			count++
			if jsonOutput {
				data, _ := json.Marshal(event)
				fmt.Fprintln(out, string(data))
			} else {
				printMatchEvent(out, count, &event)
			}
			msg.Ack()

		case <-ctx.Done():
			if !jsonOutput {
				fmt.Fprintf(out, "\n\n✅ Received %d matches\n", count)
			}
			return nil
		}
	}
}

func printMatchEvent(out io.Writer, n int, event *natspkg.MatchEvent) {
	fmt.Fprintf(out, "─────────────────────────────────────────────────────\n")
	fmt.Fprintf(out, "Match #%d\n", n)
	fmt.Fprintf(out, "─────────────────────────────────────────────────────\n")
	fmt.Fprintf(out, "Address:      %s\n", event.BlacklistedAddress)
	fmt.Fprintf(out, "Task ID:      %s\n", orDefault(event.TaskID, "Unknown"))
	fmt.Fprintf(out, "TX Hash:      %s\n", orDefault(event.TransactionHash, "N/A"))
	fmt.Fprintf(out, "Account:      %s\n", event.Account)
	if event.Memo != "" {
		fmt.Fprintf(out, "Memo:         %s\n", event.Memo)
	}
	fmt.Fprintf(out, "Detected:     %s\n", event.DetectedAt)
	fmt.Fprintf(out, "Published:    %s\n", event.PublishedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "\n")
}

// inspectStreamCommand shows information about the match event stream.
func inspectStreamCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect-stream",
		Usage: "Inspect the BLACKLIST JetStream stream",
		Flags: []cli.Flag{natsURLFlag()},
		Action: func(c *cli.Context) error {
			nc, err := nats.Connect(c.String("nats-url"))
			if err != nil {
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}
			defer nc.Close()

			js, err := jetstream.New(nc)
			if err != nil {
				return fmt.Errorf("failed to create JetStream context: %w", err)
			}

			stream, err := js.Stream(c.Context, natspkg.StreamName)
			if err != nil {
				return fmt.Errorf("failed to get stream: %w", err)
			}

			info, err := stream.Info(c.Context)
			if err != nil {
				return fmt.Errorf("failed to get stream info: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(c.App.Writer, info)
			}

			w := c.App.Writer
			fmt.Fprintf(w, "Stream: %s\n", info.Config.Name)
			fmt.Fprintf(w, "─────────────────────────────────────────────────────\n")
			fmt.Fprintf(w, "Subjects:     %v\n", info.Config.Subjects)
			fmt.Fprintf(w, "Messages:     %d\n", info.State.Msgs)
			fmt.Fprintf(w, "Bytes:        %d\n", info.State.Bytes)
			fmt.Fprintf(w, "First Seq:    %d\n", info.State.FirstSeq)
			fmt.Fprintf(w, "Last Seq:     %d\n", info.State.LastSeq)
			fmt.Fprintf(w, "Consumers:    %d\n", info.State.Consumers)
			fmt.Fprintf(w, "Max Age:      %s\n", info.Config.MaxAge)
			fmt.Fprintf(w, "Storage:      %s\n", info.Config.Storage)
			return nil
		},
	}
}
