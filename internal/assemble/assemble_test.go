package assemble

import (
	"context"
	iofs "io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/modjar/internal/compiler"
	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
	"git.home.luguber.info/inful/modjar/internal/jar"
	"git.home.luguber.info/inful/modjar/internal/module"
	"git.home.luguber.info/inful/modjar/internal/project"
)

func file(s string) *fstest.MapFile { return &fstest.MapFile{Data: []byte(s)} }

func fixedClock(ts string) func() time.Time {
	return func() time.Time {
		t, _ := time.Parse(time.RFC3339, ts)
		return t
	}
}

func newAssembler(ts string) *Assembler {
	return &Assembler{
		Info:     BuildInfo{CreatedBy: "modjar test", BuiltBy: "ci", Revision: "abc123", Version: "1.2.0-SNAPSHOT", Vendor: "example.org"},
		Resolver: module.Default(),
		Now:      fixedClock(ts),
	}
}

func apiProject() *project.Project {
	return &project.Project{ID: "api", Kind: project.Modular, Base: project.SourceLayer{Baseline: 8}}
}

func baseLayer(ms ...fstest.MapFS) Layer {
	return Layer{Kind: compiler.LayerBase, Baseline: 8, Roots: roots(ms...)}
}

func TestOverrideOrdering(t *testing.T) {
	layers := []Layer{
		{Kind: compiler.LayerVersioned, Baseline: 17, Roots: roots(fstest.MapFS{"org/api/X.class": file("seventeen")})},
		baseLayer(fstest.MapFS{"org/api/X.class": file("base")}),
		{Kind: compiler.LayerVersioned, Baseline: 11, Roots: roots(fstest.MapFS{"org/api/X.class": file("eleven")})},
	}

	art, err := newAssembler("2026-10-19T10:00:00Z").Assemble(context.Background(), apiProject(), layers)
	require.NoError(t, err)

	root, ok := art.Get("org/api/X.class")
	require.True(t, ok)
	assert.Equal(t, "base", string(root.Data))

	v11, ok := art.Get("META-INF/versions/11/org/api/X.class")
	require.True(t, ok)
	assert.Equal(t, "eleven", string(v11.Data))

	v17, ok := art.Get("META-INF/versions/17/org/api/X.class")
	require.True(t, ok)
	assert.Equal(t, "seventeen", string(v17.Data))

	m, _, err := art.Manifest()
	require.NoError(t, err)
	mr, _ := m.Get(jar.AttrMultiRelease)
	assert.Equal(t, "true", mr)
}

func TestDescriptorAtUnversionedRoot(t *testing.T) {
	layers := []Layer{
		baseLayer(fstest.MapFS{"org/api/A.class": file("a")}),
		{Kind: compiler.LayerVersioned, Baseline: 11, Roots: roots(fstest.MapFS{"org/api/A.class": file("a11")})},
		{Kind: compiler.LayerDescriptor, Baseline: 9, Roots: roots(fstest.MapFS{
			"module-info.class":   file("descriptor"),
			"org/core/Impl.class": file("implicitly compiled"),
		})},
	}

	art, err := newAssembler("2026-10-19T10:00:00Z").Assemble(context.Background(), apiProject(), layers)
	require.NoError(t, err)

	assert.Equal(t, []string{"module-info.class"}, art.Descriptors())
	assert.False(t, art.Has("org/core/Impl.class"), "only the descriptor is taken from the descriptor layer")

	m, _, err := art.Manifest()
	require.NoError(t, err)
	_, ok := m.Get(jar.AttrAutomaticModuleName)
	assert.False(t, ok)
}

func TestDescriptorErrors(t *testing.T) {
	tests := []struct {
		name   string
		layers []Layer
	}{
		{
			name: "descriptor in versioned layer",
			layers: []Layer{
				baseLayer(fstest.MapFS{"a/A.class": file("a")}),
				{Kind: compiler.LayerVersioned, Baseline: 11, Roots: roots(fstest.MapFS{"module-info.class": file("d")})},
			},
		},
		{
			name: "descriptor layer without descriptor",
			layers: []Layer{
				baseLayer(fstest.MapFS{"a/A.class": file("a")}),
				{Kind: compiler.LayerDescriptor, Baseline: 9, Roots: roots(fstest.MapFS{"x.class": file("x")})},
			},
		},
		{
			name: "two descriptors",
			layers: []Layer{
				baseLayer(fstest.MapFS{"module-info.class": file("legacy")}),
				{Kind: compiler.LayerDescriptor, Baseline: 9, Roots: roots(fstest.MapFS{"module-info.class": file("d")})},
			},
		},
		{
			name:   "missing base layer",
			layers: []Layer{{Kind: compiler.LayerVersioned, Baseline: 11}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newAssembler("2026-10-19T10:00:00Z").Assemble(context.Background(), apiProject(), tt.layers)
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryComposition), "got %v", err)
			c, _ := errors.AsClassified(err)
			proj, _ := c.Context().GetString(errors.ContextProject)
			assert.Equal(t, "api", proj)
		})
	}
}

func TestUnversionedCollision(t *testing.T) {
	classes := fstest.MapFS{"org/api/messages.properties": file("compiled copy")}
	resources := fstest.MapFS{"org/api/messages.properties": file("resource")}

	_, err := newAssembler("2026-10-19T10:00:00Z").Assemble(context.Background(), apiProject(), []Layer{baseLayer(classes, resources)})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryComposition))

	p := apiProject()
	p.DuplicateTolerant = []string{"org/api/*.properties"}
	art, err := newAssembler("2026-10-19T10:00:00Z").Assemble(context.Background(), p, []Layer{baseLayer(classes, resources)})
	require.NoError(t, err)
	e, _ := art.Get("org/api/messages.properties")
	assert.Equal(t, "resource", string(e.Data), "later write wins for tolerated paths")
}

func TestIdempotence(t *testing.T) {
	dir := t.TempDir()
	license := filepath.Join(dir, "LICENSE.md")
	require.NoError(t, os.WriteFile(license, []byte("EPL"), 0o644))

	p := apiProject()
	p.LicenseFiles = []string{license}
	p.MainClass = "org.api.Main"

	layers := func() []Layer {
		return []Layer{
			baseLayer(fstest.MapFS{"org/api/A.class": file("a"), "org/api/B.class": file("b")}),
			{Kind: compiler.LayerDescriptor, Baseline: 9, Roots: roots(fstest.MapFS{"module-info.class": file("d")})},
		}
	}

	first, err := newAssembler("2026-10-19T10:00:00Z").Assemble(context.Background(), p, layers())
	require.NoError(t, err)
	second, err := newAssembler("2026-10-19T10:00:00Z").Assemble(context.Background(), p, layers())
	require.NoError(t, err)
	later, err := newAssembler("2026-10-20T23:59:00Z").Assemble(context.Background(), p, layers())
	require.NoError(t, err)

	b1, err := first.Bytes()
	require.NoError(t, err)
	b2, err := second.Bytes()
	require.NoError(t, err)
	assert.Equal(t, b1, b2, "same inputs and clock give identical bytes")

	b3, err := later.Bytes()
	require.NoError(t, err)
	assert.NotEqual(t, b1, b3)
	assert.Equal(t, jar.Digest(first), jar.Digest(later), "only volatile attributes differ")

	assert.True(t, first.Has("META-INF/LICENSE.md"))
	m, _, err := first.Manifest()
	require.NoError(t, err)
	for name, want := range map[string]string{
		jar.AttrCreatedBy:             "modjar test",
		jar.AttrBuiltBy:               "ci",
		jar.AttrBuildDate:             "2026-10-19",
		jar.AttrBuildTime:             "10:00:00.000+0000",
		jar.AttrBuildRevision:         "abc123",
		jar.AttrSpecificationTitle:    "api",
		jar.AttrSpecificationVersion:  "1.2.0",
		jar.AttrImplementationVersion: "1.2.0-SNAPSHOT",
		jar.AttrImplementationVendor:  "example.org",
		jar.AttrMainClass:             "org.api.Main",
	} {
		got, ok := m.Get(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := m.Get(jar.AttrMultiRelease)
	assert.False(t, ok)
}

func TestAutomaticModuleNameWithoutDescriptor(t *testing.T) {
	p := &project.Project{ID: "platform-core", Kind: project.Modular, Base: project.SourceLayer{Baseline: 8}}
	art, err := newAssembler("2026-10-19T10:00:00Z").Assemble(context.Background(), p, []Layer{baseLayer(fstest.MapFS{"a/A.class": file("a")})})
	require.NoError(t, err)
	m, _, err := art.Manifest()
	require.NoError(t, err)
	name, _ := m.Get(jar.AttrAutomaticModuleName)
	assert.Equal(t, "org.platform.core", name)
}

func TestProjectLayersAndSources(t *testing.T) {
	root := t.TempDir()
	layout := project.Layout{OutputDir: filepath.Join(root, "build"), Version: "1.0"}
	p := &project.Project{
		ID:   "api",
		Kind: project.Modular,
		Base: project.SourceLayer{
			Baseline:      8,
			SourceRoots:   []string{filepath.Join(root, "src", "main", "java")},
			ResourceRoots: []string{filepath.Join(root, "src", "main", "resources")},
		},
		Layers:     []project.SourceLayer{{Baseline: 17, SourceRoots: []string{filepath.Join(root, "src", "main", "java17")}}},
		Descriptor: &project.DescriptorLayer{Root: filepath.Join(root, "src", "module")},
	}

	write := func(path, content string) {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write(filepath.Join(layout.BaseOutputDir("api"), "org", "api", "A.class"), "a8")
	write(filepath.Join(p.Base.ResourceRoots[0], "org", "api", "a.properties"), "k=v")
	write(filepath.Join(layout.LayerOutputDir("api", 17), "org", "api", "A.class"), "a17")
	write(filepath.Join(layout.DescriptorOutputDir("api"), "org.api", "module-info.class"), "d")
	write(filepath.Join(p.Base.SourceRoots[0], "org", "api", "A.java"), "class A {}")
	write(filepath.Join(p.Layers[0].SourceRoots[0], "org", "api", "A.java"), "class A { /* 17 */ }")
	write(filepath.Join(p.Descriptor.SourceDir("org.api"), "module-info.java"), "module org.api {}")

	a := newAssembler("2026-10-19T10:00:00Z")
	art, err := a.Assemble(context.Background(), p, ProjectLayers(layout, p, "org.api"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"META-INF/MANIFEST.MF",
		"META-INF/versions/17/org/api/A.class",
		"module-info.class",
		"org/api/A.class",
		"org/api/a.properties",
	}, art.Paths())

	src, err := a.AssembleSources(p, "org.api")
	require.NoError(t, err)
	e, ok := src.Get("org/api/A.java")
	require.True(t, ok)
	assert.Equal(t, "class A {}", string(e.Data), "first source root wins")
	assert.True(t, src.Has("module-info.java"))
	assert.True(t, src.Has("org/api/a.properties"))
}

func TestAssembleJavadoc(t *testing.T) {
	root := t.TempDir()
	docs := filepath.Join(root, "api")
	license := filepath.Join(root, "LICENSE.md")
	for path, content := range map[string]string{
		filepath.Join(docs, "index.html"):                                    "<html></html>",
		filepath.Join(docs, "element-list"):                                  "module:org.api\norg.api\n",
		filepath.Join(docs, "org.api", "org", "api", "package-summary.html"): "<p>api</p>",
		license:                                                              "license",
	} {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	p := apiProject()
	p.LicenseFiles = []string{license}

	art, err := newAssembler("2026-10-19T10:00:00Z").AssembleJavadoc(p, docs)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"META-INF/LICENSE.md",
		"META-INF/MANIFEST.MF",
		"element-list",
		"index.html",
		"org.api/org/api/package-summary.html",
	}, art.Paths())

	_, err = newAssembler("2026-10-19T10:00:00Z").AssembleJavadoc(p, filepath.Join(root, "missing"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryDocs))
}

func roots(ms ...fstest.MapFS) []iofs.FS {
	out := make([]iofs.FS, 0, len(ms))
	for _, m := range ms {
		out = append(out, m)
	}
	return out
}
