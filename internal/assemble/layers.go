package assemble

import (
	"io/fs"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/modjar/internal/compiler"
	"git.home.luguber.info/inful/modjar/internal/module"
	"git.home.luguber.info/inful/modjar/internal/project"
)

// Layer is the output of one compilation pass. Base layers may span several
// roots (classes plus resources); the others have exactly one.
type Layer struct {
	Kind     compiler.LayerKind
	Baseline project.Baseline
	Roots    []fs.FS
}

// Origin names the layer in entry metadata and errors.
func (l Layer) Origin() string {
	switch l.Kind {
	case compiler.LayerVersioned:
		return "release" + l.Baseline.String()
	case compiler.LayerDescriptor:
		return "module"
	default:
		return "base"
	}
}

// DirLayer builds a layer from directories, skipping those that do not exist.
func DirLayer(kind compiler.LayerKind, baseline project.Baseline, dirs ...string) Layer {
	l := Layer{Kind: kind, Baseline: baseline}
	for _, d := range dirs {
		if info, err := os.Stat(d); err == nil && info.IsDir() {
			l.Roots = append(l.Roots, os.DirFS(d))
		}
	}
	return l
}

// ProjectLayers returns the standard layers of p under layout: base classes
// and resources, each higher-baseline output, and the descriptor output of
// module name.
func ProjectLayers(layout project.Layout, p *project.Project, name module.Name) []Layer {
	baseDirs := append([]string{layout.BaseOutputDir(p.ID)}, p.Base.ResourceRoots...)
	layers := []Layer{DirLayer(compiler.LayerBase, p.Base.Baseline, baseDirs...)}
	for _, l := range p.SortedLayers() {
		dirs := append([]string{layout.LayerOutputDir(p.ID, l.Baseline)}, l.ResourceRoots...)
		layers = append(layers, DirLayer(compiler.LayerVersioned, l.Baseline, dirs...))
	}
	if p.HasDescriptor() {
		dir := filepath.Join(layout.DescriptorOutputDir(p.ID), string(name))
		layers = append(layers, DirLayer(compiler.LayerDescriptor, project.DescriptorBaseline, dir))
	}
	return layers
}
