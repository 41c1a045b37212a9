package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/modjar/internal/compiler"
)

// AssembleCmd packages what a previous compilation left in the output
// directory without invoking the compiler.
type AssembleCmd struct {
	Targets []string `arg:"" optional:"" help:"Projects to assemble together with their dependencies (default: all)"`
}

func (a *AssembleCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	s, err := newSession(cfg, sessionOptions{Compiler: compiler.Noop{}})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	res, err := s.build(ctx, a.Targets, false)
	printResult(g.out(), res)
	return err
}
