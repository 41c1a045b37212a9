package compose

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/modjar/internal/compiler"
	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
	"git.home.luguber.info/inful/modjar/internal/modgraph"
	"git.home.luguber.info/inful/modjar/internal/module"
	"git.home.luguber.info/inful/modjar/internal/project"
)

func always(string) bool { return true }

func modular(root, id string, deps ...string) *project.Project {
	return &project.Project{
		ID:   id,
		Kind: project.Modular,
		Base: project.SourceLayer{
			Baseline:    8,
			SourceRoots: []string{filepath.Join(root, id, "src", "main", "java")},
		},
		Descriptor:   &project.DescriptorLayer{Root: filepath.Join(root, id, "src", "module")},
		Dependencies: deps,
	}
}

func graph(t *testing.T, out string, ps ...*project.Project) *modgraph.Graph {
	t.Helper()
	g, err := modgraph.New(module.Default(), project.Layout{OutputDir: out, Version: "1.0.0"}, ps)
	require.NoError(t, err)
	return g
}

func TestComposePatchMapCompleteness(t *testing.T) {
	a := modular("/src", "a", "b")
	a.Layers = []project.SourceLayer{{Baseline: 11, SourceRoots: []string{"/src/a/java11"}}}
	b := modular("/src", "b")
	c := modular("/src", "c")
	g := graph(t, "/out", a, b, c)

	v, err := New(g, WithExists(always)).Compose("a")
	require.NoError(t, err)

	pa, ok := v.Patch("org.a")
	require.True(t, ok)
	assert.Equal(t, []string{
		"/out/a/classes/main",
		"/out/a/classes/release11",
		"/out/b/libs/b-1.0.0.jar",
	}, pa.Paths)

	pb, ok := v.Patch("org.b")
	require.True(t, ok)
	assert.Equal(t, []string{"/src/b/src/main/java"}, pb.Paths, "other projects are patched with legacy source roots only")

	pc, ok := v.Patch("org.c")
	require.True(t, ok)
	assert.Equal(t, []string{"/src/c/src/main/java"}, pc.Paths)

	for _, pm := range v.PatchModules {
		if pm.Module == "org.a" {
			continue
		}
		for _, p := range pm.Paths {
			assert.NotContains(t, p, "/out/", "no compiled output patches another module")
		}
	}

	assert.Equal(t, []string{"/out/b/libs/b-1.0.0.jar"}, v.ModulePath)
	assert.Equal(t, []string{"/src/b/src/module", "/src/c/src/module", "/src/a/src/module"}, v.ModuleSourcePath)
}

func TestComposeOmitsEmptyPatchEntries(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "build")

	api := modular(root, "api", "core")
	core := &project.Project{
		ID:   "core",
		Kind: project.Modular,
		Base: project.SourceLayer{Baseline: 8, SourceRoots: []string{filepath.Join(root, "core", "src", "main", "java")}},
	}
	empty := modular(root, "empty")
	g := graph(t, out, api, core, empty)

	require.NoError(t, os.MkdirAll(core.Base.SourceRoots[0], 0o755))
	require.NoError(t, os.MkdirAll(g.Layout().BaseOutputDir("api"), 0o755))

	v, err := New(g).Compose("api")
	require.NoError(t, err)

	pc, ok := v.Patch("org.core")
	require.True(t, ok, "core is patched without having a descriptor layer")
	assert.Equal(t, core.Base.SourceRoots, pc.Paths)

	pa, ok := v.Patch("org.api")
	require.True(t, ok)
	assert.Equal(t, []string{g.Layout().BaseOutputDir("api")}, pa.Paths, "missing outputs are filtered")

	_, ok = v.Patch("org.empty")
	assert.False(t, ok, "entries without existing paths are omitted")
}

func TestComposeSkipsNonModularProjects(t *testing.T) {
	lib := &project.Project{ID: "legacy", Kind: project.NonModular, Base: project.SourceLayer{Baseline: 8, SourceRoots: []string{"/src/legacy"}}}
	api := modular("/src", "api", "legacy")
	g := graph(t, "/out", lib, api)

	v, err := New(g, WithExists(always)).Compose("api")
	require.NoError(t, err)
	_, ok := v.Patch("org.legacy")
	assert.False(t, ok)
	assert.Contains(t, v.ModulePath, "/out/legacy/libs/legacy-1.0.0.jar")
}

func TestInvocations(t *testing.T) {
	core := modular("/src", "core")
	core.Libraries = []string{"/repo/opentest4j.jar"}
	api := modular("/src", "api", "core")
	api.Layers = []project.SourceLayer{{Baseline: 17, SourceRoots: []string{"/src/api/java17"}}}
	api.Embedded = []project.EmbeddedDependency{{Artifact: "/repo/picocli.jar"}}
	api.CompilerArgs = []string{"-Werror"}
	g := graph(t, "/out", core, api)
	c := New(g, WithExists(always))

	base, err := c.BaseInvocation("api")
	require.NoError(t, err)
	assert.Equal(t, compiler.LayerBase, base.Kind)
	assert.Equal(t, project.Baseline(8), base.Baseline)
	assert.Equal(t, []string{"/repo/picocli.jar", "/repo/opentest4j.jar", "/out/core/classes/main"}, base.Classpath)
	assert.Equal(t, "/out/api/classes/main", base.OutputDir)
	assert.Equal(t, []string{"-Werror"}, base.ExtraArgs)

	layer, err := c.LayerInvocation("api", 17)
	require.NoError(t, err)
	assert.Equal(t, project.Baseline(17), layer.Baseline)
	assert.Equal(t, "/out/api/classes/main", layer.Classpath[0])
	assert.Equal(t, "/out/api/classes/release17", layer.OutputDir)

	_, err = c.LayerInvocation("api", 21)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))

	desc, err := c.DescriptorInvocation("api")
	require.NoError(t, err)
	assert.Equal(t, project.DescriptorBaseline, desc.Baseline, "descriptor baseline is independent of higher layers")
	assert.Equal(t, []string{"/src/api/src/module/org.api"}, desc.SourceRoots)
	assert.Equal(t, "1.0.0", desc.ModuleVersion)
	assert.Equal(t, []string{"/repo/picocli.jar", "/repo/opentest4j.jar", "/out/core/libs/core-1.0.0.jar"}, desc.ModulePath)
	assert.Contains(t, desc.ExtraArgs, "-Werror")
}

func TestDescriptorInvocationRequiresDescriptor(t *testing.T) {
	core := modular("/src", "core")
	core.Descriptor = nil
	g := graph(t, "/out", core)

	_, err := New(g).DescriptorInvocation("core")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))

	_, err = New(g).Compose("missing")
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}
