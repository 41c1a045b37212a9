package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/modjar/internal/logfields"
	"git.home.luguber.info/inful/modjar/internal/metrics"
	"git.home.luguber.info/inful/modjar/internal/watch"
)

// WatchCmd builds once, then rebuilds on every debounced change. A changed
// build file is reloaded; when it no longer loads the previous one stays
// active.
type WatchCmd struct {
	Targets []string `arg:"" optional:"" help:"Projects to rebuild together with their dependencies (default: all)"`
	NoDocs  bool     `name:"no-docs" help:"Skip the aggregated documentation"`
	Listen  string   `help:"Serve Prometheus metrics on this address (default: metrics.listen)"`
}

func (wc *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	recorder := metrics.NewPrometheusRecorder(nil)
	s, err := newSession(cfg, sessionOptions{Recorder: recorder})
	if err != nil {
		return err
	}
	defer func() { s.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	listen := wc.Listen
	if listen == "" {
		listen = cfg.Metrics.Listen
	}
	if listen != "" {
		srv, err := startMetricsServer(ctx, listen, recorder)
		if err != nil {
			return err
		}
		defer srv.Stop()
	}

	rebuild := func(ctx context.Context) {
		res, err := s.build(ctx, wc.Targets, s.cfg.Docs.Enabled && !wc.NoDocs)
		printResult(g.out(), res)
		if err != nil && ctx.Err() == nil {
			slog.Warn("Rebuild failed; waiting for changes", logfields.Error(err))
		}
	}
	rebuild(ctx)

	for ctx.Err() == nil {
		wctx, restart := context.WithCancel(ctx)
		w := &watch.Watcher{
			Roots:      watch.SourceRoots(s.graph),
			ConfigPath: s.cfg.Path(),
			Debounce:   s.cfg.WatchDebounce(),
			Ignore:     []string{s.cfg.Build.OutputDir},
			Rebuild: func(rctx context.Context, change watch.Change) {
				slog.Info("Change detected; rebuilding", logfields.Count(len(change.Paths)))
				if change.Config {
					next, err := reload(root, recorder)
					if err != nil {
						slog.Error("Build file reload failed; keeping previous configuration", logfields.Error(err))
					} else {
						s.Close()
						s = next
						// Source roots may have moved; watch again after this build.
						defer restart()
					}
				}
				rebuild(rctx)
			},
		}
		err := w.Run(wctx)
		restart()
		if err != nil {
			return err
		}
	}
	return nil
}

func reload(root *CLI, recorder *metrics.PrometheusRecorder) (*session, error) {
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, err
	}
	return newSession(cfg, sessionOptions{Recorder: recorder})
}
