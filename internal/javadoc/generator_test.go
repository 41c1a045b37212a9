package javadoc

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/modjar/internal/compiler"
	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
	"git.home.luguber.info/inful/modjar/internal/module"
)

func TestRequestArgs(t *testing.T) {
	sep := string(os.PathListSeparator)
	req := Request{
		Title:            "Example 1.0 API",
		Header:           "Example",
		Overview:         "/work/overview.html",
		Modules:          []module.Name{"org.api", "org.core"},
		ModuleSourcePath: []string{"/src/api/src/module", "/src/core/src/module"},
		PatchModules: []compiler.PatchModule{
			{Module: "org.api", Paths: []string{"/src/api/java", "/src/api/java9"}},
		},
		ModulePath:   []string{"/libs/a.jar"},
		Links:        []string{"https://docs.oracle.com/en/java/javase/17/docs/api/"},
		OfflineLinks: []OfflineLink{{URL: otaBase, Dir: "/cache/org.opentest4j"}},
		Groups:       []Group{{Title: "Core", Patterns: []string{"org.core*", "org.api*"}}},
		AddReads:     map[string]string{"org.core": "info.picocli"},
		OutputDir:    "/work/javadoc",
	}

	want := []string{
		"-d", "/work/javadoc",
		"-encoding", "UTF-8",
		"-protected",
		"-doctitle", "Example 1.0 API", "-windowtitle", "Example 1.0 API",
		"-header", "Example",
		"-overview", "/work/overview.html",
		"-splitindex", "-Xdoclint:all,-accessibility,-missing", "-html5",
		"-tag", "apiNote:a:API Note:",
		"-tag", "implNote:a:Implementation Note:",
		"-link", "https://docs.oracle.com/en/java/javase/17/docs/api/",
		"-linkoffline", otaBase, "/cache/org.opentest4j",
		"-group", "Core", "org.core*:org.api*",
		"-use", "-notimestamp",
		"--module", "org.api,org.core",
		"--module-source-path", "/src/api/src/module" + sep + "/src/core/src/module",
		"--patch-module", "org.api=/src/api/java" + sep + "/src/api/java9",
		"--module-path", "/libs/a.jar",
		"--add-reads", "org.core=info.picocli",
	}
	assert.Equal(t, want, req.Args())
}

func TestJavadocFailureCarriesDiagnostics(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script generator stub")
	}
	dir := t.TempDir()
	stub := filepath.Join(dir, "fake-javadoc")
	require.NoError(t, os.WriteFile(stub, []byte("#!/bin/sh\necho 'error: module not found: org.nope' >&2\nexit 2\n"), 0o755))

	err := (&Javadoc{Binary: stub}).Generate(context.Background(), Request{OutputDir: filepath.Join(dir, "out")})
	require.Error(t, err)
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryCollaborator, ce.Category())
	assert.Contains(t, ce.Diagnostics(), "module not found: org.nope")
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestJavadocMissingBinary(t *testing.T) {
	err := (&Javadoc{Binary: "definitely-not-javadoc"}).Generate(context.Background(), Request{OutputDir: t.TempDir()})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGeneratorNotFound)
	assert.True(t, errors.HasCategory(err, errors.CategoryCollaborator))
}

func TestJavadocSuccess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script generator stub")
	}
	dir := t.TempDir()
	stub := filepath.Join(dir, "fake-javadoc")
	require.NoError(t, os.WriteFile(stub, []byte("#!/bin/sh\nwhile [ \"$1\" != \"-d\" ]; do shift; done\necho '<html></html>' > \"$2/index.html\"\n"), 0o755))

	out := filepath.Join(dir, "out")
	require.NoError(t, (&Javadoc{Binary: stub}).Generate(context.Background(), Request{OutputDir: out}))
	assert.FileExists(t, filepath.Join(out, "index.html"))
}
