package compiler

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
)

func TestArgs(t *testing.T) {
	sep := string(os.PathListSeparator)
	inv := Invocation{
		Project:          "api",
		Kind:             LayerDescriptor,
		Baseline:         9,
		OutputDir:        "/out/api/classes/module",
		ModulePath:       []string{"/libs/a.jar", "/libs/b.jar"},
		ModuleSourcePath: []string{"/src/api/src/module"},
		ModuleVersion:    "1.0.0",
		PatchModules: []PatchModule{
			{Module: "org.api", Paths: []string{"/out/api/classes/main"}},
			{Module: "org.core", Paths: nil},
			{Module: "org.core2", Paths: []string{"/src/core2/java"}},
		},
		ExtraArgs: []string{"-Xlint:all"},
	}

	want := []string{
		"--release", "9",
		"-d", "/out/api/classes/module",
		"-encoding", "UTF-8",
		"--module-path", "/libs/a.jar" + sep + "/libs/b.jar",
		"--module-source-path", "/src/api/src/module",
		"--module-version", "1.0.0",
		"--patch-module", "org.api=/out/api/classes/main",
		"--patch-module", "org.core2=/src/core2/java",
		"-Xlint:all",
	}
	assert.Equal(t, want, inv.Args())
	assert.Equal(t, "module", inv.Name())
}

func TestArgsClasspath(t *testing.T) {
	inv := Invocation{Kind: LayerVersioned, Baseline: 17, OutputDir: "/o", Classpath: []string{"/a"}}
	assert.Equal(t, []string{"--release", "17", "-d", "/o", "-encoding", "UTF-8", "-classpath", "/a"}, inv.Args())
	assert.Equal(t, "release17", inv.Name())
}

func TestDiscoverSources(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "org", "api"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "org", "api", "B.java"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "org", "api", "A.java"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "org", "api", "notes.txt"), nil, 0o644))

	got, err := DiscoverSources([]string{root, filepath.Join(root, "missing")})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "org", "api", "A.java"),
		filepath.Join(root, "org", "api", "B.java"),
	}, got)
}

func TestJavacSkipsEmptySources(t *testing.T) {
	j := &Javac{Binary: "definitely-not-a-compiler"}
	res, err := j.Compile(context.Background(), Invocation{Project: "core", SourceRoots: []string{t.TempDir()}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sources)
}

func TestJavacWithoutSourcesRemovesStaleOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "classes", "release17")
	require.NoError(t, os.MkdirAll(filepath.Join(out, "org", "core"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "org", "core", "Old.class"), []byte{0xCA, 0xFE}, 0o644))

	j := &Javac{Binary: "definitely-not-a-compiler"}
	res, err := j.Compile(context.Background(), Invocation{Project: "core", Baseline: 17, SourceRoots: []string{t.TempDir()}, OutputDir: out})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sources)
	assert.NoDirExists(t, out)
}

func TestJavacMissingBinary(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "A.java"), []byte("class A {}"), 0o644))

	j := &Javac{Binary: "definitely-not-a-compiler"}
	_, err := j.Compile(context.Background(), Invocation{Project: "core", SourceRoots: []string{root}, OutputDir: t.TempDir()})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryCollaborator))
	assert.ErrorIs(t, err, ErrCompilerNotFound)
}

func TestJavacFailureCarriesDiagnostics(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script compiler stub")
	}
	dir := t.TempDir()
	stub := filepath.Join(dir, "fake-javac")
	require.NoError(t, os.WriteFile(stub, []byte("#!/bin/sh\necho 'A.java:1: error: boom' >&2\nexit 1\n"), 0o755))

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "A.java"), []byte("class A {"), 0o644))

	j := &Javac{Binary: stub}
	_, err := j.Compile(context.Background(), Invocation{Project: "core", Baseline: 8, SourceRoots: []string{src}, OutputDir: filepath.Join(dir, "out")})
	require.Error(t, err)

	classified, ok := errors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryCollaborator, classified.Category())
	assert.Contains(t, classified.Diagnostics(), "A.java:1: error: boom")
	assert.ErrorIs(t, err, ErrCompilationFailed)
}

func TestJavacSuccess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script compiler stub")
	}
	dir := t.TempDir()
	stub := filepath.Join(dir, "fake-javac")
	// Writes a marker into the -d directory.
	require.NoError(t, os.WriteFile(stub, []byte("#!/bin/sh\nwhile [ \"$1\" != \"-d\" ]; do shift; done\ntouch \"$2/A.class\"\n"), 0o755))

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "A.java"), []byte("class A {}"), 0o644))
	out := filepath.Join(dir, "out")

	j := &Javac{Binary: stub}
	res, err := j.Compile(context.Background(), Invocation{Project: "core", Baseline: 8, SourceRoots: []string{src}, OutputDir: out})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sources)
	assert.FileExists(t, filepath.Join(out, "A.class"))
}
