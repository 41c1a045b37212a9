package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Targets     []string `arg:"" optional:"" help:"Projects to build together with their dependencies (default: all)"`
	NoDocs      bool     `name:"no-docs" help:"Skip the aggregated documentation"`
	FailFast    bool     `name:"fail-fast" help:"Cancel remaining tasks after the first failure"`
	Concurrency int      `short:"j" help:"Parallel collaborator invocations (default: build.concurrency)"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	s, err := newSession(cfg, sessionOptions{FailFast: b.FailFast, Concurrency: b.Concurrency})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	res, err := s.build(ctx, b.Targets, cfg.Docs.Enabled && !b.NoDocs)
	printResult(g.out(), res)
	return err
}
