// Package compiler describes invocations of the external source compiler and
// runs them. The compiler itself is a collaborator: this package only decides
// what it is called with.
package compiler

import (
	"os"
	"strings"

	"git.home.luguber.info/inful/modjar/internal/module"
	"git.home.luguber.info/inful/modjar/internal/project"
)

// LayerKind identifies which compilation pass an invocation belongs to.
type LayerKind string

const (
	LayerBase       LayerKind = "base"
	LayerVersioned  LayerKind = "versioned"
	LayerDescriptor LayerKind = "descriptor"
)

// PatchModule grants a module visibility into extra roots.
type PatchModule struct {
	Module module.Name
	Paths  []string
}

// Value renders the name=path-list form.
func (p PatchModule) Value() string {
	return string(p.Module) + "=" + JoinPaths(p.Paths)
}

// Invocation is a complete, self-contained request to the compiler.
type Invocation struct {
	Project  string
	Kind     LayerKind
	Baseline project.Baseline

	SourceRoots      []string
	Classpath        []string
	ModulePath       []string
	ModuleSourcePath []string
	PatchModules     []PatchModule
	ModuleVersion    string

	OutputDir string
	ExtraArgs []string
}

// Name identifies the invocation in logs and task ids.
func (inv Invocation) Name() string {
	switch inv.Kind {
	case LayerVersioned:
		return "release" + inv.Baseline.String()
	case LayerDescriptor:
		return "module"
	default:
		return "base"
	}
}

// Args renders the option part of the command line. Source files are
// appended by the runner after discovery.
func (inv Invocation) Args() []string {
	args := []string{
		"--release", inv.Baseline.String(),
		"-d", inv.OutputDir,
		"-encoding", "UTF-8",
	}
	if len(inv.Classpath) > 0 {
		args = append(args, "-classpath", JoinPaths(inv.Classpath))
	}
	if len(inv.ModulePath) > 0 {
		args = append(args, "--module-path", JoinPaths(inv.ModulePath))
	}
	if len(inv.ModuleSourcePath) > 0 {
		args = append(args, "--module-source-path", JoinPaths(inv.ModuleSourcePath))
	}
	if inv.ModuleVersion != "" {
		args = append(args, "--module-version", inv.ModuleVersion)
	}
	for _, pm := range inv.PatchModules {
		if len(pm.Paths) == 0 {
			continue
		}
		args = append(args, "--patch-module", pm.Value())
	}
	return append(args, inv.ExtraArgs...)
}

// Patch returns the patch entry for a module, if present.
func (inv Invocation) Patch(name module.Name) (PatchModule, bool) {
	for _, pm := range inv.PatchModules {
		if pm.Module == name {
			return pm, true
		}
	}
	return PatchModule{}, false
}

// JoinPaths joins paths with the platform list separator.
func JoinPaths(paths []string) string {
	return strings.Join(paths, string(os.PathListSeparator))
}
