package javadoc

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"git.home.luguber.info/inful/modjar/internal/compiler"
	"git.home.luguber.info/inful/modjar/internal/compose"
	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
	"git.home.luguber.info/inful/modjar/internal/logfields"
	"git.home.luguber.info/inful/modjar/internal/modgraph"
	"git.home.luguber.info/inful/modjar/internal/module"
	"git.home.luguber.info/inful/modjar/internal/project"
	"git.home.luguber.info/inful/modjar/internal/workspace"
)

// Options carries the presentation settings of the aggregated tree.
type Options struct {
	Title      string
	Header     string
	OutputDir  string
	Overview   string
	Favicon    string
	Stylesheet string
	MaxMemory  string
	Links      []string
	// Groups falls back to DefaultGroups when empty.
	Groups     []GroupRule
	AddModules []string
	AddReads   map[string]string
	ExtraArgs  []string
}

// Aggregator runs the documentation pipeline: fetch element lists, generate
// into a staging directory, then publish the fixed tree.
type Aggregator struct {
	Generator Generator
	Cache     *ElementListCache
	// WorkDir is the base of the ephemeral staging workspace.
	WorkDir string
	Options Options
	// Exists prunes patch paths; nil checks the filesystem.
	Exists func(string) bool
}

// NewAggregator wires an aggregator.
func NewAggregator(gen Generator, cache *ElementListCache, workDir string, opts Options) *Aggregator {
	return &Aggregator{Generator: gen, Cache: cache, WorkDir: workDir, Options: opts}
}

func (a *Aggregator) exists(p string) bool {
	if a.Exists != nil {
		return a.Exists(p)
	}
	_, err := os.Stat(p)
	return err == nil
}

// Result describes a published documentation tree.
type Result struct {
	OutputDir string
	Modules   []module.Name
	Fetch     *FetchReport
	Fix       *FixReport
	Findings  []Finding
	Duration  time.Duration
}

// Aggregate produces the documentation of every modular project in graph
// that is not excluded from docs. table must already be validated, which
// NewLinkTable guarantees.
func (a *Aggregator) Aggregate(ctx context.Context, graph *modgraph.Graph, table *LinkTable) (*Result, error) {
	start := time.Now()
	if a.Options.OutputDir == "" {
		return nil, errors.ConfigError("documentation output directory is required").Build()
	}

	fetch, err := a.fetch(ctx, table)
	if err != nil {
		return nil, err
	}

	ws, err := workspace.New(a.WorkDir, "docs")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := ws.Remove(); err != nil {
			slog.Warn("Failed to remove documentation scratch directory", logfields.Error(err))
		}
	}()
	staging, err := ws.Dir("javadoc")
	if err != nil {
		return nil, err
	}

	req, err := a.Request(graph, table, staging)
	if err != nil {
		return nil, err
	}
	if req.Overview, err = a.overview(ws.Path()); err != nil {
		return nil, err
	}

	slog.Info("Generating aggregated documentation",
		logfields.Count(len(req.Modules)),
		logfields.Stage("docs"))
	if err := a.Generator.Generate(ctx, req); err != nil {
		return nil, err
	}

	fixer := NewFixer(table, a.Options.Favicon)
	fix, err := fixer.FixLinks(staging, a.Options.OutputDir)
	if err != nil {
		return nil, err
	}
	findings, err := Audit(a.Options.OutputDir, table)
	if err != nil {
		return nil, err
	}
	for _, f := range findings {
		slog.Warn("Module-qualified external link left in documentation",
			logfields.Path(f.File),
			logfields.URL(f.Href),
			logfields.Module(string(f.Module)))
	}

	res := &Result{
		OutputDir: a.Options.OutputDir,
		Modules:   req.Modules,
		Fetch:     fetch,
		Fix:       fix,
		Findings:  findings,
		Duration:  time.Since(start),
	}
	slog.Info("Documentation published",
		logfields.Path(res.OutputDir),
		slog.Int("html_files", fix.HTMLFiles),
		slog.Int("replacements", fix.Replacements),
		logfields.DurationMS(float64(res.Duration.Milliseconds())))
	return res, nil
}

// GenerateProject renders the documentation of project id alone into
// outputDir, which is replaced. External links are fixed the same way as in
// the aggregated tree.
func (a *Aggregator) GenerateProject(ctx context.Context, graph *modgraph.Graph, table *LinkTable, id, outputDir string) (*FixReport, error) {
	if _, err := a.fetch(ctx, table); err != nil {
		return nil, err
	}
	ws, err := workspace.New(a.WorkDir, "javadoc")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := ws.Remove(); err != nil {
			slog.Warn("Failed to remove documentation scratch directory", logfields.Error(err))
		}
	}()
	staging, err := ws.Dir("javadoc")
	if err != nil {
		return nil, err
	}

	req, err := a.ProjectRequest(graph, table, id, staging)
	if err != nil {
		return nil, err
	}
	slog.Debug("Generating project documentation",
		logfields.Project(id),
		logfields.Module(string(req.Modules[0])))
	if err := a.Generator.Generate(ctx, req); err != nil {
		return nil, err
	}
	return NewFixer(table, a.Options.Favicon).FixLinks(staging, outputDir)
}

func (a *Aggregator) fetch(ctx context.Context, table *LinkTable) (*FetchReport, error) {
	if table.Len() == 0 {
		return &FetchReport{}, nil
	}
	if a.Cache == nil {
		return nil, errors.ConfigError("external modules configured without an element list cache").Build()
	}
	return a.Cache.Fetch(ctx, table)
}

// Request composes the single generator invocation for graph. The module
// path is the union of every documented project's compile module path and
// each module is patched with all of its main source roots.
func (a *Aggregator) Request(graph *modgraph.Graph, table *LinkTable, outputDir string) (Request, error) {
	projects := documentedProjects(graph)
	if len(projects) == 0 {
		return Request{}, errors.DocsError("no modular projects to document").Build()
	}
	req, err := a.request(graph, table, projects, outputDir)
	if err != nil {
		return Request{}, err
	}
	req.Title = a.Options.Title
	req.Header = a.Options.Header
	req.AddReads = a.Options.AddReads

	rules := a.Options.Groups
	if len(rules) == 0 {
		rules = DefaultGroups(graph)
	}
	req.Groups = GroupByPrefix(graph, rules)
	return req, nil
}

// ProjectRequest composes the generator invocation for the module of
// project id. It carries no overview groups and only the read edges of that
// module.
func (a *Aggregator) ProjectRequest(graph *modgraph.Graph, table *LinkTable, id, outputDir string) (Request, error) {
	p, ok := graph.Project(id)
	if !ok || !p.IsModular() {
		return Request{}, errors.DocsError("project has no module to document").
			WithContext(errors.ContextProject, id).
			Build()
	}
	req, err := a.request(graph, table, []*project.Project{p}, outputDir)
	if err != nil {
		return Request{}, err
	}
	name := graph.ModuleName(id)
	req.Title = string(name)
	if reads, ok := a.Options.AddReads[string(name)]; ok {
		req.AddReads = map[string]string{string(name): reads}
	}
	return req, nil
}

func (a *Aggregator) request(graph *modgraph.Graph, table *LinkTable, projects []*project.Project, outputDir string) (Request, error) {
	composer := compose.New(graph, compose.WithExists(a.exists))
	if err := composer.Validate(); err != nil {
		return Request{}, err
	}

	req := Request{
		Stylesheet: a.Options.Stylesheet,
		MaxMemory:  a.Options.MaxMemory,
		Links:      a.Options.Links,
		AddModules: a.Options.AddModules,
		OutputDir:  outputDir,
		ExtraArgs:  a.Options.ExtraArgs,
	}
	for _, p := range projects {
		name := graph.ModuleName(p.ID)
		req.Modules = append(req.Modules, name)
		if p.HasDescriptor() {
			req.ModuleSourcePath = appendUnique(req.ModuleSourcePath, p.Descriptor.Root)
		}
		if roots := a.existing(p.MainSourceRoots()); len(roots) > 0 {
			req.PatchModules = append(req.PatchModules, compiler.PatchModule{Module: name, Paths: roots})
		}
		vis, err := composer.Compose(p.ID)
		if err != nil {
			return Request{}, err
		}
		req.ModulePath = appendUnique(req.ModulePath, vis.ModulePath...)
	}

	if table.Len() > 0 && a.Cache == nil {
		return Request{}, errors.ConfigError("external modules configured without an element list cache").Build()
	}
	for _, name := range table.Modules() {
		u, _ := table.URL(name)
		req.OfflineLinks = append(req.OfflineLinks, OfflineLink{URL: u, Dir: a.Cache.Dir(name)})
	}
	return req, nil
}

// overview returns the overview file handed to the generator. Markdown is
// rendered into the workspace first.
func (a *Aggregator) overview(workDir string) (string, error) {
	src := a.Options.Overview
	if src == "" || !strings.HasSuffix(strings.ToLower(src), ".md") {
		return src, nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return "", fsErr(err, "read overview", src)
	}
	page, err := RenderOverview(data, a.Options.Title)
	if err != nil {
		return "", err
	}
	out := filepath.Join(workDir, "overview.html")
	if err := os.WriteFile(out, page, 0o644); err != nil {
		return "", fsErr(err, "write overview", out)
	}
	return out, nil
}

func documentedProjects(graph *modgraph.Graph) []*project.Project {
	var out []*project.Project
	for _, p := range graph.Modular() {
		if !p.ExcludeFromDocs {
			out = append(out, p)
		}
	}
	return out
}

func documentedModules(graph *modgraph.Graph) []module.Name {
	projects := documentedProjects(graph)
	out := make([]module.Name, 0, len(projects))
	for _, p := range projects {
		out = append(out, graph.ModuleName(p.ID))
	}
	return out
}

func (a *Aggregator) existing(paths []string) []string {
	var out []string
	for _, p := range paths {
		if a.exists(p) {
			out = append(out, p)
		}
	}
	return out
}

func appendUnique(dst []string, items ...string) []string {
	for _, it := range items {
		if it != "" && !slices.Contains(dst, it) {
			dst = append(dst, it)
		}
	}
	return dst
}
