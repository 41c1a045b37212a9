// Package project defines the build-time model of a source project: its
// layers, its dependencies and where its outputs live.
package project

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
)

// Baseline is an ordered language platform version ("8", "9", "17").
type Baseline int

// DescriptorBaseline is the lowest platform able to express module syntax.
// Descriptor layers are always compiled against it.
const DescriptorBaseline Baseline = 9

func (b Baseline) String() string { return strconv.Itoa(int(b)) }

// ParseBaseline accepts "17" as well as the legacy "1.8" spelling.
func ParseBaseline(s string) (Baseline, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "1.")
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid baseline %q", s)
	}
	return Baseline(n), nil
}

// Kind is resolved once when the graph is built and never queried ad hoc.
type Kind int

const (
	NonModular Kind = iota
	Modular
)

func (k Kind) String() string {
	if k == Modular {
		return "modular"
	}
	return "non-modular"
}

// SourceLayer is one independently compiled set of source roots.
type SourceLayer struct {
	Baseline      Baseline
	SourceRoots   []string
	ResourceRoots []string
}

// DescriptorLayer is a module source root: it holds the project's single
// module-info.java below a directory named after the module, so that every
// descriptor root can be passed as one module source path.
type DescriptorLayer struct {
	Root string
}

// SourceDir returns the directory holding the descriptor of module name.
func (d DescriptorLayer) SourceDir(name string) string {
	return filepath.Join(d.Root, name)
}

// EmbeddedDependency is a third-party artifact merged into the project's
// artifact under relocated package names.
type EmbeddedDependency struct {
	Artifact    string
	Relocations map[string]string
	// Attribution lists extra files copied verbatim into the attribution directory.
	Attribution []string
}

// Project is one node in the module graph.
type Project struct {
	ID   string
	Dir  string
	Kind Kind

	Base       SourceLayer
	Layers     []SourceLayer
	Descriptor *DescriptorLayer

	// Dependencies are identifiers of other projects in the graph.
	Dependencies []string
	// Libraries are local paths to external artifacts.
	Libraries []string

	MainClass         string
	LicenseFiles      []string
	DuplicateTolerant []string
	Embedded          []EmbeddedDependency
	CompilerArgs      []string
	SourcesArtifact   bool
	JavadocArtifact   bool
	ExcludeFromDocs   bool
}

// IsModular reports whether the project takes part in the module graph.
func (p *Project) IsModular() bool {
	return p.Kind == Modular
}

// HasDescriptor reports whether the project compiles its own module descriptor.
func (p *Project) HasDescriptor() bool {
	return p.Descriptor != nil && p.Descriptor.Root != ""
}

// SortedLayers returns the higher-baseline layers in ascending baseline order.
func (p *Project) SortedLayers() []SourceLayer {
	out := slices.Clone(p.Layers)
	slices.SortStableFunc(out, func(a, b SourceLayer) int { return int(a.Baseline) - int(b.Baseline) })
	return out
}

// MainSourceRoots returns base and higher-layer source roots, base first.
func (p *Project) MainSourceRoots() []string {
	roots := slices.Clone(p.Base.SourceRoots)
	for _, l := range p.SortedLayers() {
		roots = append(roots, l.SourceRoots...)
	}
	return roots
}

// Validate checks the layer invariants of a single project.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.ConfigError("project identifier is empty").
			WithContext(errors.ContextPath, p.Dir).
			Build()
	}
	if p.Base.Baseline <= 0 {
		return errors.ConfigError("base layer baseline must be set").
			WithContext(errors.ContextProject, p.ID).
			Build()
	}
	prev := p.Base.Baseline
	for _, l := range p.Layers {
		if l.Baseline <= prev {
			return errors.ConfigError(fmt.Sprintf("layer baseline %s must be higher than %s", l.Baseline, prev)).
				WithContext(errors.ContextProject, p.ID).
				Build()
		}
		prev = l.Baseline
	}
	if p.HasDescriptor() && !p.IsModular() {
		return errors.ConfigError("descriptor layer requires a modular project").
			WithContext(errors.ContextProject, p.ID).
			WithContext(errors.ContextPath, p.Descriptor.Root).
			Build()
	}
	if p.JavadocArtifact && !p.IsModular() {
		return errors.ConfigError("javadoc artifact requires a modular project").
			WithContext(errors.ContextProject, p.ID).
			Build()
	}
	if slices.Contains(p.Dependencies, p.ID) {
		return errors.ConfigError("project depends on itself").
			WithContext(errors.ContextProject, p.ID).
			Build()
	}
	for _, e := range p.Embedded {
		if e.Artifact == "" {
			return errors.ConfigError("embedded dependency has no artifact").
				WithContext(errors.ContextProject, p.ID).
				Build()
		}
	}
	return nil
}
