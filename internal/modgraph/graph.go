// Package modgraph builds the immutable project graph shared by every
// component of a build. It is computed once per invocation and only read
// afterwards.
package modgraph

import (
	stderrors "errors"
	"fmt"
	"slices"

	"git.home.luguber.info/inful/modjar/internal/dag"
	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
	"git.home.luguber.info/inful/modjar/internal/module"
	"git.home.luguber.info/inful/modjar/internal/project"
)

// Graph is a validated snapshot of all projects, their derived module names
// and the dependency edges between them.
type Graph struct {
	resolver module.Resolver
	layout   project.Layout
	order    []string
	projects map[string]*project.Project
	names    map[string]module.Name
	byName   map[module.Name]string
	deps     *dag.Graph
}

// New validates projects and returns the graph. Every failure is a
// configuration error: empty or underivable identifiers, duplicate
// identifiers, module name collisions, unknown dependencies and cycles.
func New(resolver module.Resolver, layout project.Layout, projects []*project.Project) (*Graph, error) {
	g := &Graph{
		resolver: resolver,
		layout:   layout,
		projects: make(map[string]*project.Project, len(projects)),
		names:    make(map[string]module.Name, len(projects)),
		byName:   make(map[module.Name]string, len(projects)),
		deps:     dag.New(),
	}

	for _, p := range projects {
		if !resolver.Derivable(p.ID) {
			return nil, errors.ConfigError(fmt.Sprintf("cannot derive module name from project identifier %q", p.ID)).
				WithContext(errors.ContextProject, p.ID).
				WithContext(errors.ContextPath, p.Dir).
				Build()
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := g.projects[p.ID]; dup {
			return nil, errors.ConfigError("duplicate project identifier").
				WithContext(errors.ContextProject, p.ID).
				Build()
		}
		name := resolver.Resolve(p.ID)
		if other, clash := g.byName[name]; clash {
			return nil, errors.ConfigError(fmt.Sprintf("projects %q and %q both resolve to module %s", other, p.ID, name)).
				WithContext(errors.ContextProject, p.ID).
				WithContext(errors.ContextModule, string(name)).
				Build()
		}
		g.projects[p.ID] = p
		g.names[p.ID] = name
		g.byName[name] = p.ID
		g.deps.AddNode(p.ID)
	}

	for _, p := range projects {
		for _, dep := range p.Dependencies {
			if _, ok := g.projects[dep]; !ok {
				return nil, errors.ConfigError(fmt.Sprintf("unknown dependency %q", dep)).
					WithContext(errors.ContextProject, p.ID).
					Build()
			}
			g.deps.AddEdge(dep, p.ID)
		}
	}

	order, err := g.deps.TopologicalSort()
	if err != nil {
		var cycle *dag.CycleError
		if stderrors.As(err, &cycle) {
			return nil, errors.WrapError(err, errors.CategoryConfig, "project dependency cycle").
				Fatal().
				WithContext(errors.ContextProject, cycle.Cycle[0]).
				Build()
		}
		return nil, err
	}
	g.order = order
	return g, nil
}

// Resolver returns the module name resolver the graph was built with.
func (g *Graph) Resolver() module.Resolver { return g.resolver }

// Layout returns the output layout shared by all projects.
func (g *Graph) Layout() project.Layout { return g.layout }

// Projects returns every project in dependency order.
func (g *Graph) Projects() []*project.Project {
	out := make([]*project.Project, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.projects[id])
	}
	return out
}

// Modular returns the modular projects in dependency order.
func (g *Graph) Modular() []*project.Project {
	var out []*project.Project
	for _, id := range g.order {
		if p := g.projects[id]; p.IsModular() {
			out = append(out, p)
		}
	}
	return out
}

// Project looks a project up by identifier.
func (g *Graph) Project(id string) (*project.Project, bool) {
	p, ok := g.projects[id]
	return p, ok
}

// ModuleName returns the derived module name of a project.
func (g *Graph) ModuleName(id string) module.Name {
	return g.names[id]
}

// ProjectForModule finds the project that owns a module name.
func (g *Graph) ProjectForModule(name module.Name) (*project.Project, bool) {
	id, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return g.projects[id], true
}

// Dependencies returns the direct in-graph dependencies of a project, in dependency order.
func (g *Graph) Dependencies(id string) []*project.Project {
	return g.lookup(g.deps.Predecessors(id))
}

// Closure returns the transitive in-graph dependencies of a project, in dependency order.
func (g *Graph) Closure(id string) []*project.Project {
	return g.lookup(g.deps.Ancestors(id))
}

// Dependents returns every project that transitively depends on id.
func (g *Graph) Dependents(id string) []*project.Project {
	return g.lookup(g.deps.Descendants(id))
}

func (g *Graph) lookup(ids []string) []*project.Project {
	out := make([]*project.Project, 0, len(ids))
	for _, id := range g.order {
		if slices.Contains(ids, id) {
			out = append(out, g.projects[id])
		}
	}
	return out
}
