package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/modjar/internal/assemble"
	"git.home.luguber.info/inful/modjar/internal/classfile/classfiletest"
	"git.home.luguber.info/inful/modjar/internal/compiler"
	"git.home.luguber.info/inful/modjar/internal/compose"
	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
	"git.home.luguber.info/inful/modjar/internal/modgraph"
	"git.home.luguber.info/inful/modjar/internal/module"
	"git.home.luguber.info/inful/modjar/internal/project"
)

type fixture struct {
	root   string
	layout project.Layout
	graph  *modgraph.Graph
}

// newFixture builds core (modular, base 8 plus a release 11 layer), api
// (modular, depends on core) and tools (non-modular, independent).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	layout := project.Layout{OutputDir: filepath.Join(root, "build"), Version: "1.0.0"}

	src := func(id, rel string) string { return filepath.Join(root, id, rel) }
	for _, d := range []string{"core/src/main/java", "core/src/main/java11", "core/src/module/org.core", "api/src/main/java", "api/src/module/org.api", "tools/src/main/java"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}

	projects := []*project.Project{
		{
			ID:         "core",
			Kind:       project.Modular,
			Base:       project.SourceLayer{Baseline: 8, SourceRoots: []string{src("core", "src/main/java")}},
			Layers:     []project.SourceLayer{{Baseline: 11, SourceRoots: []string{src("core", "src/main/java11")}}},
			Descriptor: &project.DescriptorLayer{Root: src("core", "src/module")},
		},
		{
			ID:           "api",
			Kind:         project.Modular,
			Base:         project.SourceLayer{Baseline: 8, SourceRoots: []string{src("api", "src/main/java")}},
			Descriptor:   &project.DescriptorLayer{Root: src("api", "src/module")},
			Dependencies: []string{"core"},
		},
		{
			ID:   "tools",
			Kind: project.NonModular,
			Base: project.SourceLayer{Baseline: 8, SourceRoots: []string{src("tools", "src/main/java")}},
		},
	}
	graph, err := modgraph.New(module.Default(), layout, projects)
	require.NoError(t, err)
	return &fixture{root: root, layout: layout, graph: graph}
}

func (f *fixture) plan(t *testing.T, targets []string, docs bool) *Plan {
	t.Helper()
	p, err := NewPlan(f.graph, compose.New(f.graph), targets, docs)
	require.NoError(t, err)
	return p
}

// fakeCompiler writes one class per compile pass and a real module
// descriptor for descriptor passes.
type fakeCompiler struct {
	mu    sync.Mutex
	calls []compiler.Invocation
	fail  map[string]bool // keyed by "<project>:<layer name>"
	delay time.Duration
}

func (c *fakeCompiler) Compile(ctx context.Context, inv compiler.Invocation) (*compiler.Result, error) {
	c.mu.Lock()
	c.calls = append(c.calls, inv)
	c.mu.Unlock()

	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.fail[inv.Project+":"+inv.Name()] {
		return &compiler.Result{Output: "error: cannot find symbol"}, errors.CollaboratorError("compiler exited with failure", "error: cannot find symbol").
			WithContext(errors.ContextProject, inv.Project).
			Build()
	}

	var rel string
	var data []byte
	switch inv.Kind {
	case compiler.LayerDescriptor:
		name := filepath.Base(inv.SourceRoots[0])
		rel = filepath.Join(name, "module-info.class")
		data = classfiletest.New().BuildModule(name)
	default:
		class := "org/" + inv.Project + "/Main"
		rel = class + ".class"
		b := classfiletest.New()
		b.UTF8("release " + inv.Baseline.String())
		data = b.BuildClass(class)
	}
	out := filepath.Join(inv.OutputDir, rel)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return nil, err
	}
	return &compiler.Result{Sources: 1}, nil
}

func (c *fakeCompiler) invoked(project, layer string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, inv := range c.calls {
		if inv.Project == project && inv.Name() == layer {
			return true
		}
	}
	return false
}

func fixedAssembler() *assemble.Assembler {
	return &assemble.Assembler{
		Info:     assemble.BuildInfo{CreatedBy: "modjar test", BuiltBy: "ci", Revision: "abc123", Version: "1.0.0", Vendor: "example.org"},
		Resolver: module.Default(),
		Now:      func() time.Time { return time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC) },
	}
}

func newTestService(c compiler.Compiler) *Service {
	s := NewService(c, fixedAssembler())
	s.Concurrency = 4
	n := 0
	var mu sync.Mutex
	s.NewID = func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("build-%03d", n)
	}
	return s
}
