package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"

	"github.com/brojonat/xrplwatch/service/journal"
)

func journalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "journal",
			Usage:   "Path to the journal file",
			EnvVars: []string{"JOURNAL_PATH"},
			Value:   "blacklisted_addresses.json",
		},
	}
}

func journalListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Usage:   "List every journal entry, newest first",
		Aliases: []string{"ls"},
		Flags:   journalFlags(),
		Action: func(c *cli.Context) error {
			store := openJournal(c)
			entries, err := store.All(c.Context)
			if err != nil {
				return fmt.Errorf("failed to read journal: %w", err)
			}
			return printEntries(c, entries)
		},
	}
}

func journalRecentCommand() *cli.Command {
	return &cli.Command{
		Name:  "recent",
		Usage: "List entries detected in the last N hours",
		Description: `Entries can be narrowed with jq expressions evaluated against each entry's
JSON form. Every expression must be truthy for an entry to be shown.

Example:
  xrplwatch journal recent --hours 48 --must-jq '.task_id != "Unknown"'`,
		Flags: append(journalFlags(),
			&cli.IntFlag{
				Name:    "hours",
				Usage:   "Size of the lookback window",
				EnvVars: []string{"HOURS_TO_CHECK"},
				Value:   24,
			},
			&cli.StringSliceFlag{
				Name:    "must-jq",
				Usage:   "jq filter expression that must evaluate to true (can be specified multiple times, all must match)",
				Aliases: []string{"jq"},
			},
		),
		Action: func(c *cli.Context) error {
			hours := c.Int("hours")
			if hours < 1 {
				return fmt.Errorf("--hours must be at least 1")
			}

			filters, err := compileFilters(c.StringSlice("must-jq"))
			if err != nil {
				return err
			}

			store := openJournal(c)
			entries, err := store.LoadWithin(c.Context, journal.WindowEndingAt(time.Now(), hours))
			if err != nil {
				return fmt.Errorf("failed to read journal: %w", err)
			}

			entries, err = filterEntries(entries, filters)
			if err != nil {
				return err
			}
			return printEntries(c, entries)
		},
	}
}

func openJournal(c *cli.Context) *journal.Store {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Only errors to stderr
	}))
	return journal.NewStore(c.String("journal"), nil, logger)
}

// compileFilters parses and compiles jq expressions.
func compileFilters(exprs []string) ([]*gojq.Code, error) {
	compiled := make([]*gojq.Code, len(exprs))
	for i, filter := range exprs {
		query, err := gojq.Parse(filter)
		if err != nil {
			return nil, fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
		}
		compiled[i], err = gojq.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
		}
	}
	return compiled, nil
}

// filterEntries keeps the entries for which every filter yields a truthy
// first result. A filter that errors or yields nothing rejects the entry.
func filterEntries(entries []journal.Entry, filters []*gojq.Code) ([]journal.Entry, error) {
	if len(filters) == 0 {
		return entries, nil
	}

	kept := make([]journal.Entry, 0, len(entries))
	for _, entry := range entries {
		// gojq only understands generic JSON values
		data, err := json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("failed to encode entry: %w", err)
		}
		var doc interface{}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode entry: %w", err)
		}

		if matchesAll(doc, filters) {
			kept = append(kept, entry)
		}
	}
	return kept, nil
}

func matchesAll(doc interface{}, filters []*gojq.Code) bool {
	for _, code := range filters {
		iter := code.Run(doc)
		v, ok := iter.Next()
		if !ok {
			return false
		}
		if _, isErr := v.(error); isErr {
			return false
		}
		if !isTruthy(v) {
			return false
		}
	}
	return true
}

// isTruthy checks if a jq result value is truthy.
// In jq, only false and null are falsy.
func isTruthy(v interface{}) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}

func printEntries(c *cli.Context, entries []journal.Entry) error {
	if c.Bool("json") {
		return outputJSON(c.App.Writer, entries)
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tTASK ID\tTX HASH\tDETECTED")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.BlacklistedAddress,
			orDefault(e.TaskID, "Unknown"),
			orDefault(e.TransactionHash, "N/A"),
			e.Timestamp,
		)
	}
	w.Flush()

	fmt.Fprintf(c.App.ErrWriter, "\nTotal: %d entries\n", len(entries))
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
