// Package compose computes compiler visibility for each project: which
// artifacts are on its module path, which roots patch which module, and the
// full invocations for its three compilation passes.
package compose

import (
	"fmt"
	"os"
	"slices"

	"git.home.luguber.info/inful/modjar/internal/compiler"
	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
	"git.home.luguber.info/inful/modjar/internal/modgraph"
	"git.home.luguber.info/inful/modjar/internal/module"
	"git.home.luguber.info/inful/modjar/internal/project"
)

// DescriptorLintArgs silence warnings about automatic modules while keeping all others.
var DescriptorLintArgs = []string{"-Xlint:all,-requires-automatic,-requires-transitive-automatic"}

// Visibility is what the descriptor compilation of one project may see.
type Visibility struct {
	Project          string
	Module           module.Name
	ModulePath       []string
	ModuleSourcePath []string
	PatchModules     []compiler.PatchModule
}

// Patch returns the patch entry for name, if present.
func (v *Visibility) Patch(name module.Name) (compiler.PatchModule, bool) {
	for _, pm := range v.PatchModules {
		if pm.Module == name {
			return pm, true
		}
	}
	return compiler.PatchModule{}, false
}

// Composer derives visibility from an immutable graph.
type Composer struct {
	graph  *modgraph.Graph
	exists func(string) bool
}

// Option configures a Composer.
type Option func(*Composer)

// WithExists replaces the filesystem existence check used to prune patch paths.
func WithExists(fn func(string) bool) Option {
	return func(c *Composer) { c.exists = fn }
}

// New creates a Composer for graph.
func New(graph *modgraph.Graph, opts ...Option) *Composer {
	c := &Composer{graph: graph, exists: pathExists}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// Validate checks that every modular project has a derivable module name.
// It starts no process and is meant to run before any compilation.
func (c *Composer) Validate() error {
	r := c.graph.Resolver()
	for _, p := range c.graph.Modular() {
		if !r.Derivable(p.ID) {
			return errors.ConfigError("module name required but not derivable").
				WithContext(errors.ContextProject, p.ID).
				Build()
		}
	}
	return nil
}

// Compose returns the visibility of project id at the time of the call:
// patch paths that do not exist are dropped and entries left without paths
// are omitted.
func (c *Composer) Compose(id string) (*Visibility, error) {
	p, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	layout := c.graph.Layout()
	v := &Visibility{
		Project:          p.ID,
		Module:           c.graph.ModuleName(p.ID),
		ModulePath:       c.compileClasspath(p),
		ModuleSourcePath: c.moduleSourcePath(),
	}

	for _, q := range c.graph.Modular() {
		var candidates []string
		if q.ID == p.ID {
			candidates = append(candidates, layout.BaseOutputDir(p.ID))
			for _, l := range p.SortedLayers() {
				candidates = append(candidates, layout.LayerOutputDir(p.ID, l.Baseline))
			}
			candidates = append(candidates, v.ModulePath...)
		} else {
			candidates = slices.Clone(q.Base.SourceRoots)
		}

		paths := make([]string, 0, len(candidates))
		for _, path := range candidates {
			if c.exists(path) {
				paths = append(paths, path)
			}
		}
		if len(paths) == 0 {
			continue
		}
		v.PatchModules = append(v.PatchModules, compiler.PatchModule{
			Module: c.graph.ModuleName(q.ID),
			Paths:  paths,
		})
	}
	return v, nil
}

// BaseInvocation compiles the legacy layer against the base outputs of the
// dependency closure.
func (c *Composer) BaseInvocation(id string) (compiler.Invocation, error) {
	p, err := c.lookup(id)
	if err != nil {
		return compiler.Invocation{}, err
	}
	layout := c.graph.Layout()
	return compiler.Invocation{
		Project:     p.ID,
		Kind:        compiler.LayerBase,
		Baseline:    p.Base.Baseline,
		SourceRoots: slices.Clone(p.Base.SourceRoots),
		Classpath:   c.baseClasspath(p),
		OutputDir:   layout.BaseOutputDir(p.ID),
		ExtraArgs:   slices.Clone(p.CompilerArgs),
	}, nil
}

// LayerInvocation compiles one higher-baseline layer against the project's
// own base output.
func (c *Composer) LayerInvocation(id string, baseline project.Baseline) (compiler.Invocation, error) {
	p, err := c.lookup(id)
	if err != nil {
		return compiler.Invocation{}, err
	}
	idx := slices.IndexFunc(p.Layers, func(l project.SourceLayer) bool { return l.Baseline == baseline })
	if idx < 0 {
		return compiler.Invocation{}, errors.ConfigError(fmt.Sprintf("no layer with baseline %s", baseline)).
			WithContext(errors.ContextProject, p.ID).
			Build()
	}
	layout := c.graph.Layout()
	classpath := append([]string{layout.BaseOutputDir(p.ID)}, c.baseClasspath(p)...)
	return compiler.Invocation{
		Project:     p.ID,
		Kind:        compiler.LayerVersioned,
		Baseline:    baseline,
		SourceRoots: slices.Clone(p.Layers[idx].SourceRoots),
		Classpath:   classpath,
		OutputDir:   layout.LayerOutputDir(p.ID, baseline),
		ExtraArgs:   slices.Clone(p.CompilerArgs),
	}, nil
}

// DescriptorInvocation compiles the module descriptor at the descriptor
// baseline with the visibility returned by Compose.
func (c *Composer) DescriptorInvocation(id string) (compiler.Invocation, error) {
	p, err := c.lookup(id)
	if err != nil {
		return compiler.Invocation{}, err
	}
	if !p.HasDescriptor() {
		return compiler.Invocation{}, errors.ConfigError("project has no descriptor layer").
			WithContext(errors.ContextProject, p.ID).
			Build()
	}
	v, err := c.Compose(id)
	if err != nil {
		return compiler.Invocation{}, err
	}
	layout := c.graph.Layout()
	return compiler.Invocation{
		Project:          p.ID,
		Kind:             compiler.LayerDescriptor,
		Baseline:         project.DescriptorBaseline,
		SourceRoots:      []string{p.Descriptor.SourceDir(string(v.Module))},
		ModulePath:       v.ModulePath,
		ModuleSourcePath: v.ModuleSourcePath,
		PatchModules:     v.PatchModules,
		ModuleVersion:    layout.Version,
		OutputDir:        layout.DescriptorOutputDir(p.ID),
		ExtraArgs:        append(slices.Clone(DescriptorLintArgs), p.CompilerArgs...),
	}, nil
}

func (c *Composer) lookup(id string) (*project.Project, error) {
	p, ok := c.graph.Project(id)
	if !ok {
		return nil, errors.ConfigError("unknown project").
			WithContext(errors.ContextProject, id).
			Build()
	}
	return p, nil
}

// compileClasspath lists the project's external libraries and embedded
// artifacts, then those of its dependency closure, then the closure's
// published artifacts.
func (c *Composer) compileClasspath(p *project.Project) []string {
	closure := c.graph.Closure(p.ID)
	var out []string
	out = appendUnique(out, externalArtifacts(p)...)
	for _, q := range closure {
		out = appendUnique(out, externalArtifacts(q)...)
	}
	layout := c.graph.Layout()
	for _, q := range closure {
		out = appendUnique(out, layout.ArtifactPath(q.ID))
	}
	return out
}

func (c *Composer) baseClasspath(p *project.Project) []string {
	closure := c.graph.Closure(p.ID)
	var out []string
	out = appendUnique(out, externalArtifacts(p)...)
	for _, q := range closure {
		out = appendUnique(out, externalArtifacts(q)...)
	}
	layout := c.graph.Layout()
	for _, q := range closure {
		out = appendUnique(out, layout.BaseOutputDir(q.ID))
	}
	return out
}

func (c *Composer) moduleSourcePath() []string {
	var out []string
	for _, q := range c.graph.Modular() {
		if q.HasDescriptor() {
			out = appendUnique(out, q.Descriptor.Root)
		}
	}
	return out
}

func externalArtifacts(p *project.Project) []string {
	out := slices.Clone(p.Libraries)
	for _, e := range p.Embedded {
		out = append(out, e.Artifact)
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
