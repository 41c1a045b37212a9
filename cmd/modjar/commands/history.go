package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/modjar/internal/eventstore"
	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
)

// HistoryCmd reads build summaries back from the ledger.
type HistoryCmd struct {
	Limit int    `short:"n" help:"Number of builds to show" default:"10"`
	Since string `help:"Only builds started within this duration, e.g. 24h"`
	Build string `help:"Show the full summary of one build id"`
	JSON  bool   `name:"json" help:"Print summaries as JSON"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if !cfg.Ledger.IsEnabled() {
		return errors.ConfigError("build ledger is disabled").
			WithContext("setting", "ledger.enabled").
			Build()
	}
	store, err := eventstore.NewSQLiteStore(cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	var summaries []*eventstore.BuildSummary
	if h.Build != "" {
		s, err := eventstore.Summarize(ctx, store, h.Build)
		if err != nil {
			return err
		}
		if s == nil {
			return errors.NewError(errors.CategoryNotFound, "build not found in ledger").
				WithContext("build_id", h.Build).
				Build()
		}
		summaries = append(summaries, s)
	} else {
		start := time.Time{}
		if h.Since != "" {
			d, err := time.ParseDuration(h.Since)
			if err != nil {
				return errors.ValidationError("invalid --since duration").
					WithCause(err).
					WithContext("since", h.Since).
					Build()
			}
			start = time.Now().Add(-d)
		}
		if summaries, err = eventstore.History(ctx, store, start, time.Now(), h.Limit); err != nil {
			return err
		}
	}

	w := g.out()
	if h.JSON || h.Build != "" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if h.Build != "" {
			return enc.Encode(summaries[0])
		}
		return enc.Encode(summaries)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BUILD\tSTARTED\tSTATUS\tDURATION\tARTIFACTS\tCHANGED\tFAILED")
	for _, s := range summaries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			s.BuildID,
			s.StartedAt.Local().Format(time.DateTime),
			s.Status,
			s.Duration.Round(time.Millisecond),
			len(s.Artifacts),
			s.Changed,
			strings.Join(s.FailedTasks, ","))
	}
	return tw.Flush()
}
