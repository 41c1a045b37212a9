package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/modjar/internal/assemble"
	"git.home.luguber.info/inful/modjar/internal/build"
	"git.home.luguber.info/inful/modjar/internal/compiler"
	"git.home.luguber.info/inful/modjar/internal/config"
	"git.home.luguber.info/inful/modjar/internal/eventstore"
	"git.home.luguber.info/inful/modjar/internal/git"
	"git.home.luguber.info/inful/modjar/internal/javadoc"
	"git.home.luguber.info/inful/modjar/internal/logfields"
	"git.home.luguber.info/inful/modjar/internal/metrics"
	"git.home.luguber.info/inful/modjar/internal/modgraph"
	"git.home.luguber.info/inful/modjar/internal/storage"
	"git.home.luguber.info/inful/modjar/internal/version"
)

type sessionOptions struct {
	// Compiler replaces javac, e.g. compiler.Noop for assembling existing output.
	Compiler    compiler.Compiler
	Generator   javadoc.Generator
	Recorder    *metrics.PrometheusRecorder
	FailFast    bool
	Concurrency int
}

// session holds everything one loaded build file needs to run builds.
type session struct {
	cfg      *config.Config
	graph    *modgraph.Graph
	links    *javadoc.LinkTable
	cache    *javadoc.ElementListCache
	service  *build.Service
	store    storage.Store
	ledger   eventstore.Store
	recorder *metrics.PrometheusRecorder
}

func newSession(cfg *config.Config, opts sessionOptions) (*session, error) {
	graph, err := cfg.Graph()
	if err != nil {
		return nil, err
	}
	links, err := cfg.LinkTable()
	if err != nil {
		return nil, err
	}
	cache, err := javadoc.NewElementListCache(cfg.Docs.CacheDir, javadoc.WithFetchConcurrency(cfg.Docs.FetchConcurrency))
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, graph: graph, links: links, cache: cache, recorder: opts.Recorder}
	if s.recorder == nil {
		s.recorder = metrics.NewPrometheusRecorder(nil)
	}

	comp := opts.Compiler
	if comp == nil {
		comp = &compiler.Javac{Binary: cfg.Build.Javac}
	}
	gen := opts.Generator
	if gen == nil {
		gen = &javadoc.Javadoc{Binary: cfg.Docs.Javadoc}
	}

	svc := build.NewService(comp, &assemble.Assembler{
		Info: assemble.BuildInfo{
			CreatedBy: version.CreatedBy(),
			BuiltBy:   cfg.BuiltBy,
			Revision:  git.RevisionOrUnknown(cfg.Build.RootDir),
			Version:   cfg.ProjectVersion,
			Vendor:    cfg.Vendor,
		},
		Resolver: cfg.Resolver(),
	})
	svc.Docs = javadoc.NewAggregator(gen, cache, cfg.Build.StateDir, cfg.DocsOptions())
	svc.Recorder = s.recorder
	svc.Concurrency = cfg.Build.Concurrency
	if opts.Concurrency > 0 {
		svc.Concurrency = opts.Concurrency
	}
	svc.FailFast = cfg.Build.FailFast || opts.FailFast

	store, err := storage.NewFSStore(filepath.Join(cfg.Build.StateDir, "store"))
	if err != nil {
		return nil, err
	}
	s.store = store
	svc.Store = store

	if cfg.Ledger.IsEnabled() {
		ledger, err := eventstore.NewSQLiteStore(cfg.Ledger.Path)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		s.ledger = ledger
		svc.Ledger = ledger
	}
	s.service = svc
	return s, nil
}

func (s *session) Close() {
	if s.ledger != nil {
		if err := s.ledger.Close(); err != nil {
			slog.Warn("Failed to close build ledger", logfields.Error(err))
		}
	}
	if s.store != nil {
		_ = s.store.Close()
	}
}

// build runs one build, then prunes unreferenced store objects and exports
// metrics. The returned result is non-nil even when err is set.
func (s *session) build(ctx context.Context, targets []string, docs bool) (*build.Result, error) {
	res, err := s.service.Run(ctx, build.Request{
		Graph:   s.graph,
		Links:   s.links,
		Targets: targets,
		Docs:    docs,
	})
	if res != nil && res.Status != build.StatusFailed {
		if n, gcErr := storage.GC(context.WithoutCancel(ctx), s.store); gcErr != nil {
			slog.Warn("Artifact store cleanup failed", logfields.Error(gcErr))
		} else if n > 0 {
			slog.Debug("Pruned artifact store", logfields.Count(n))
		}
	}
	s.exportMetrics()
	return res, err
}

func (s *session) exportMetrics() {
	if s.cfg.Metrics.Textfile == "" {
		return
	}
	if err := s.recorder.WriteTextfile(s.cfg.Metrics.Textfile); err != nil {
		slog.Warn("Failed to write metrics textfile", logfields.Path(s.cfg.Metrics.Textfile), logfields.Error(err))
	}
}

func printResult(w io.Writer, res *build.Result) {
	if res == nil {
		return
	}
	counts := res.Counts()
	_, _ = fmt.Fprintf(w, "Build %s: %s in %s (%d succeeded, %d failed, %d blocked, %d canceled)\n",
		res.BuildID, res.Status, res.Duration.Round(time.Millisecond),
		counts[string(build.TaskSuccess)], counts[string(build.TaskFailed)],
		counts[string(build.TaskBlocked)], counts[string(build.TaskCanceled)])

	if len(res.Artifacts) > 0 {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "MODULE\tENTRIES\tCHANGED\tPATH")
		for _, a := range res.Artifacts {
			_, _ = fmt.Fprintf(tw, "%s\t%d\t%t\t%s\n", a.Module, a.Entries, a.Changed, a.Path)
		}
		_ = tw.Flush()
	}
	for _, t := range res.Tasks {
		switch t.Status {
		case build.TaskFailed:
			_, _ = fmt.Fprintf(w, "  failed:  %s: %v\n", t.ID, t.Err)
		case build.TaskBlocked:
			_, _ = fmt.Fprintf(w, "  blocked: %s (by %s)\n", t.ID, t.BlockedBy)
		}
	}
	if res.Docs != nil {
		printDocs(w, res.Docs)
	}
}

func printDocs(w io.Writer, d *javadoc.Result) {
	_, _ = fmt.Fprintf(w, "Documentation: %s (%d modules", d.OutputDir, len(d.Modules))
	if d.Fix != nil {
		_, _ = fmt.Fprintf(w, ", %d links rewritten", d.Fix.Replacements)
	}
	_, _ = fmt.Fprintln(w, ")")
	if len(d.Findings) > 0 {
		_, _ = fmt.Fprintf(w, "  %d module-qualified external links remain\n", len(d.Findings))
	}
}
