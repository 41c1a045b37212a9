package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// DocsCmd regenerates the aggregated documentation from existing compiler
// output.
type DocsCmd struct{}

func (d *DocsCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	s, err := newSession(cfg, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	res, err := s.service.Docs.Aggregate(ctx, s.graph, s.links)
	if err != nil {
		return err
	}
	s.recorder.IncElementLists(len(res.Fetch.Fetched), len(res.Fetch.Cached))
	s.exportMetrics()
	printDocs(g.out(), res)
	return nil
}
