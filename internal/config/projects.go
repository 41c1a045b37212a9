package config

import (
	"maps"
	"time"

	"git.home.luguber.info/inful/modjar/internal/javadoc"
	"git.home.luguber.info/inful/modjar/internal/modgraph"
	"git.home.luguber.info/inful/modjar/internal/module"
	"git.home.luguber.info/inful/modjar/internal/project"
)

// Resolver returns the module name resolver configured for the build.
func (c *Config) Resolver() module.Resolver {
	return module.Resolver{Root: c.ModuleRoot, Separator: c.NameSeparator}
}

// Layout returns the output layout of the build.
func (c *Config) Layout() project.Layout {
	return project.Layout{OutputDir: c.Build.OutputDir, Version: c.ProjectVersion}
}

// WatchDebounce returns the parsed debounce interval.
func (c *Config) WatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Build.WatchDebounce)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// ProjectModels converts the configured projects into the build model.
func (c *Config) ProjectModels() ([]*project.Project, error) {
	out := make([]*project.Project, 0, len(c.Projects))
	for _, pc := range c.Projects {
		p, err := pc.model()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Graph builds the immutable module graph of the configured projects.
func (c *Config) Graph() (*modgraph.Graph, error) {
	projects, err := c.ProjectModels()
	if err != nil {
		return nil, err
	}
	return modgraph.New(c.Resolver(), c.Layout(), projects)
}

// LinkTable returns the validated external module link table.
func (c *Config) LinkTable() (*javadoc.LinkTable, error) {
	return javadoc.NewLinkTable(c.Docs.ExternalModules)
}

// DocsOptions maps the docs section onto aggregator options.
func (c *Config) DocsOptions() javadoc.Options {
	d := c.Docs
	opts := javadoc.Options{
		Title:      d.Title,
		Header:     d.Header,
		OutputDir:  d.OutputDir,
		Overview:   d.Overview,
		Favicon:    d.Favicon,
		Stylesheet: d.Stylesheet,
		MaxMemory:  d.MaxMemory,
		Links:      d.Links,
		AddModules: d.AddModules,
		AddReads:   maps.Clone(d.AddReads),
		ExtraArgs:  d.GeneratorArgs,
	}
	for _, g := range d.Groups {
		opts.Groups = append(opts.Groups, javadoc.GroupRule{Title: g.Title, Patterns: g.Patterns})
	}
	return opts
}

func (pc ProjectConfig) model() (*project.Project, error) {
	base, err := pc.Base.model()
	if err != nil {
		return nil, annotateProject(err, pc.ID)
	}
	p := &project.Project{
		ID:                pc.ID,
		Dir:               pc.Dir,
		Kind:              project.NonModular,
		Base:              base,
		Dependencies:      pc.Dependencies,
		Libraries:         pc.Libraries,
		MainClass:         pc.MainClass,
		LicenseFiles:      pc.LicenseFiles,
		DuplicateTolerant: pc.DuplicateTolerant,
		CompilerArgs:      pc.CompilerArgs,
		SourcesArtifact:   pc.SourcesArtifact,
		JavadocArtifact:   pc.JavadocArtifact,
		ExcludeFromDocs:   pc.ExcludeFromDocs,
	}
	if pc.Modular != nil && *pc.Modular {
		p.Kind = project.Modular
	}
	if pc.Descriptor != "" {
		p.Descriptor = &project.DescriptorLayer{Root: pc.Descriptor}
	}
	for _, lc := range pc.Layers {
		l, err := lc.model()
		if err != nil {
			return nil, annotateProject(err, pc.ID)
		}
		p.Layers = append(p.Layers, l)
	}
	for _, e := range pc.Embedded {
		p.Embedded = append(p.Embedded, project.EmbeddedDependency{
			Artifact:    e.Artifact,
			Relocations: maps.Clone(e.Relocate),
			Attribution: e.Attribution,
		})
	}
	return p, nil
}

func (lc LayerConfig) model() (project.SourceLayer, error) {
	b, err := project.ParseBaseline(lc.Baseline)
	if err != nil {
		return project.SourceLayer{}, err
	}
	return project.SourceLayer{Baseline: b, SourceRoots: lc.Sources, ResourceRoots: lc.Resources}, nil
}
