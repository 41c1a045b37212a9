package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// FetchLinksCmd fills the element-list cache ahead of a build, e.g. while
// network access is available.
type FetchLinksCmd struct{}

func (f *FetchLinksCmd) Run(g *Global, root *CLI) error {
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

	report, err := s.cache.Fetch(ctx, s.links)
	if err != nil {
		return err
	}
	w := g.out()
	for _, name := range report.Fetched {
		_, _ = fmt.Fprintf(w, "fetched %s -> %s\n", name, s.cache.Path(name))
	}
	for _, name := range report.Cached {
		_, _ = fmt.Fprintf(w, "cached  %s -> %s\n", name, s.cache.Path(name))
	}
	return nil
}
