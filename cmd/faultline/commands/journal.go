package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/faultline/internal/faultstore"
	"git.home.luguber.info/inful/faultline/internal/logfields"
)

// JournalCmd implements the 'journal' command.
type JournalCmd struct {
	Since time.Duration `help:"Only show faults newer than this (e.g. 1h)"`
	Label string        `short:"l" help:"Only show faults with this severity label"`
	Limit int           `short:"n" help:"Maximum number of faults to show" default:"20"`
	JSON  bool          `help:"Print records as JSON"`
	Prune bool          `help:"Remove faults older than the retention window before listing"`
}

func (j *JournalCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	store, err := faultstore.NewSQLiteStore(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if j.Prune {
		retention, err := faultstore.NewRetention(store, cfg.Journal.Retention, cfg.Journal.PruneInterval)
		if err != nil {
			return err
		}
		n, err := retention.PruneNow(ctx)
		if err != nil {
			return err
		}
		slog.Info("Pruned fault journal", slog.Int64("removed", n), logfields.Path(cfg.Journal.Path))
	}

	q := faultstore.Query{Label: j.Label, Limit: j.Limit}
	if j.Since > 0 {
		q.Since = time.Now().Add(-j.Since)
	}
	records, err := store.List(ctx, q)
	if err != nil {
		return err
	}

	if j.JSON {
		enc := json.NewEncoder(g.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TIME\tLABEL\tMESSAGE\tLOCATION\tREQUEST")
	for _, r := range records {
		loc := "-"
		if r.File != "" {
			loc = fmt.Sprintf("%s:%d", r.File, r.Line)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.Timestamp.Local().Format(time.DateTime), r.Label, r.Message, loc, r.RequestID)
	}
	return tw.Flush()
}
