package build

import (
	"slices"

	"git.home.luguber.info/inful/modjar/internal/compiler"
	"git.home.luguber.info/inful/modjar/internal/compose"
	"git.home.luguber.info/inful/modjar/internal/dag"
	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
	"git.home.luguber.info/inful/modjar/internal/modgraph"
	"git.home.luguber.info/inful/modjar/internal/project"
	"git.home.luguber.info/inful/modjar/internal/relocate"
)

// TaskKind groups tasks for metrics and reporting.
type TaskKind string

const (
	TaskCompile  TaskKind = "compile"
	TaskAssemble TaskKind = "assemble"
	TaskDocs     TaskKind = "docs"
)

// DocsTaskID identifies the single documentation task.
const DocsTaskID = "docs"

// Task is one node of the build graph.
type Task struct {
	ID      string
	Kind    TaskKind
	Project string
	// Invocation is set for compile tasks. Descriptor invocations are
	// recomposed when the task runs so patch paths reflect compiled outputs.
	Invocation compiler.Invocation
}

// CompileTaskID names the compile task of one layer: compile:<id>:base,
// compile:<id>:<baseline> or compile:<id>:module.
func CompileTaskID(id string, kind compiler.LayerKind, baseline project.Baseline) string {
	switch kind {
	case compiler.LayerVersioned:
		return "compile:" + id + ":" + baseline.String()
	case compiler.LayerDescriptor:
		return "compile:" + id + ":module"
	default:
		return "compile:" + id + ":base"
	}
}

// AssembleTaskID names the assemble task of a project.
func AssembleTaskID(id string) string { return "assemble:" + id }

// Plan is the task graph of one build.
type Plan struct {
	graph *dag.Graph
	tasks map[string]*Task
	order []string
}

// NewPlan composes every task for the projects in targets and their
// dependency closure (all projects when targets is empty), plus the docs
// task when docs is set. Any configuration problem is returned before a
// task exists.
func NewPlan(graph *modgraph.Graph, composer *compose.Composer, targets []string, docs bool) (*Plan, error) {
	if err := composer.Validate(); err != nil {
		return nil, err
	}
	selected, err := selectProjects(graph, targets)
	if err != nil {
		return nil, err
	}

	p := &Plan{graph: dag.New(), tasks: map[string]*Task{}}
	add := func(t *Task) {
		p.tasks[t.ID] = t
		p.graph.AddNode(t.ID)
	}

	for _, proj := range selected {
		for _, e := range proj.Embedded {
			if _, err := relocate.NewMap(e.Relocations); err != nil {
				return nil, withProject(err, proj.ID)
			}
		}

		inv, err := composer.BaseInvocation(proj.ID)
		if err != nil {
			return nil, err
		}
		add(&Task{ID: CompileTaskID(proj.ID, compiler.LayerBase, 0), Kind: TaskCompile, Project: proj.ID, Invocation: inv})

		for _, l := range proj.SortedLayers() {
			inv, err := composer.LayerInvocation(proj.ID, l.Baseline)
			if err != nil {
				return nil, err
			}
			add(&Task{ID: CompileTaskID(proj.ID, compiler.LayerVersioned, l.Baseline), Kind: TaskCompile, Project: proj.ID, Invocation: inv})
		}

		if proj.HasDescriptor() {
			inv, err := composer.DescriptorInvocation(proj.ID)
			if err != nil {
				return nil, err
			}
			add(&Task{ID: CompileTaskID(proj.ID, compiler.LayerDescriptor, 0), Kind: TaskCompile, Project: proj.ID, Invocation: inv})
		}

		add(&Task{ID: AssembleTaskID(proj.ID), Kind: TaskAssemble, Project: proj.ID})
	}
	if docs {
		add(&Task{ID: DocsTaskID, Kind: TaskDocs})
	}

	p.link(graph, selected, docs)

	order, err := p.graph.TopologicalSort()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "task graph is not acyclic").Build()
	}
	p.order = order
	return p, nil
}

// link adds the ordering edges between tasks.
func (p *Plan) link(graph *modgraph.Graph, selected []*project.Project, docs bool) {
	var modular []*project.Project
	for _, proj := range selected {
		if proj.IsModular() {
			modular = append(modular, proj)
		}
	}

	for _, proj := range selected {
		base := CompileTaskID(proj.ID, compiler.LayerBase, 0)
		assemble := AssembleTaskID(proj.ID)

		for _, dep := range graph.Dependencies(proj.ID) {
			p.graph.AddEdge(CompileTaskID(dep.ID, compiler.LayerBase, 0), base)
		}
		p.graph.AddEdge(base, assemble)

		var layers []string
		for _, l := range proj.SortedLayers() {
			id := CompileTaskID(proj.ID, compiler.LayerVersioned, l.Baseline)
			layers = append(layers, id)
			p.graph.AddEdge(base, id)
			p.graph.AddEdge(id, assemble)
		}

		if proj.HasDescriptor() {
			desc := CompileTaskID(proj.ID, compiler.LayerDescriptor, 0)
			p.graph.AddEdge(base, desc)
			for _, q := range modular {
				p.graph.AddEdge(CompileTaskID(q.ID, compiler.LayerBase, 0), desc)
			}
			for _, id := range layers {
				p.graph.AddEdge(id, desc)
			}
			for _, dep := range graph.Closure(proj.ID) {
				p.graph.AddEdge(AssembleTaskID(dep.ID), desc)
			}
			p.graph.AddEdge(desc, assemble)
		}

		for _, dep := range graph.Closure(proj.ID) {
			p.graph.AddEdge(AssembleTaskID(dep.ID), assemble)
		}
		if docs {
			p.graph.AddEdge(assemble, DocsTaskID)
		}
	}
}

// Tasks returns the tasks in a valid execution order.
func (p *Plan) Tasks() []*Task {
	out := make([]*Task, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.tasks[id])
	}
	return out
}

// Task returns the task with id.
func (p *Plan) Task(id string) (*Task, bool) {
	t, ok := p.tasks[id]
	return t, ok
}

// Prerequisites returns the tasks that must succeed before id runs.
func (p *Plan) Prerequisites(id string) []string {
	return p.graph.Predecessors(id)
}

// Dependents returns every task downstream of id.
func (p *Plan) Dependents(id string) []string {
	return p.graph.Descendants(id)
}

// Projects returns the identifiers of the projects the plan builds.
func (p *Plan) Projects() []string {
	var out []string
	for _, id := range p.order {
		if t := p.tasks[id]; t.Kind == TaskAssemble {
			out = append(out, t.Project)
		}
	}
	return out
}

func selectProjects(graph *modgraph.Graph, targets []string) ([]*project.Project, error) {
	all := graph.Projects()
	if len(targets) == 0 {
		return all, nil
	}
	want := map[string]bool{}
	for _, id := range targets {
		if _, ok := graph.Project(id); !ok {
			return nil, errors.ConfigError("unknown project").
				WithContext(errors.ContextProject, id).
				Build()
		}
		want[id] = true
		for _, dep := range graph.Closure(id) {
			want[dep.ID] = true
		}
	}
	return slices.DeleteFunc(all, func(p *project.Project) bool { return !want[p.ID] }), nil
}

func withProject(err error, id string) error {
	if ce, ok := errors.AsClassified(err); ok {
		return ce.WithContext(errors.ContextProject, id)
	}
	return errors.WrapError(err, errors.CategoryInternal, "plan build").
		WithContext(errors.ContextProject, id).
		Build()
}
