package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderDefaults(t *testing.T) {
	err := NewError(CategoryDocs, "group patterns overlap").Build()

	assert.Equal(t, CategoryDocs, err.Category())
	assert.Equal(t, SeverityError, err.Severity())
	assert.Equal(t, RetryNever, err.RetryStrategy())
	assert.Equal(t, "[docs:error] group patterns overlap", err.Error())
}

func TestConfigErrorIsFatalUserAction(t *testing.T) {
	err := ConfigError("duplicate module name").WithContext(ContextModule, "org.core").Build()

	assert.Equal(t, SeverityFatal, err.Severity())
	assert.Equal(t, RetryUserAction, GetRetryStrategy(err))
	assert.Equal(t, "[config:fatal] duplicate module name (module=org.core)", err.Error())
}

func TestErrorRendersContextSortedWithoutDiagnostics(t *testing.T) {
	cause := fmt.Errorf("exit status 1")
	err := CollaboratorError("compiler exited with failure", "Foo.java:3: error: ';' expected").
		WithContext(ContextProject, "core").
		WithContext(ContextPath, "build/classes/core").
		WithCause(cause).
		Build()

	assert.Equal(t, "[collaborator:error] compiler exited with failure (path=build/classes/core, project=core): exit status 1", err.Error())
	assert.Equal(t, "Foo.java:3: error: ';' expected", err.Diagnostics())
	assert.Same(t, cause, stderrors.Unwrap(err))
}

func TestBuildCopiesContext(t *testing.T) {
	b := CompositionError("ambiguous entry").WithContext(ContextProject, "core")
	first := b.Build()
	second := b.WithContext(ContextPath, "org/core/A.class").Build()

	_, ok := first.Context().Get(ContextPath)
	assert.False(t, ok)
	path, _ := second.Context().GetString(ContextPath)
	assert.Equal(t, "org/core/A.class", path)
}

func TestWithContextReturnsCopy(t *testing.T) {
	orig := GitError("no revision").Build()
	annotated := orig.WithContext(ContextPath, "/repo")

	assert.Empty(t, orig.Context())
	assert.Equal(t, "/repo", annotated.Context()[ContextPath])
}

func TestClassificationThroughWrapping(t *testing.T) {
	inner := FileSystemError("cannot read layer").WithContext(ContextProject, "api").Build()
	wrapped := fmt.Errorf("assemble api: %w", inner)

	got, ok := AsClassified(wrapped)
	require.True(t, ok)
	assert.Same(t, inner, got)
	assert.True(t, HasCategory(wrapped, CategoryFileSystem))
	assert.False(t, HasCategory(wrapped, CategoryConfig))
	assert.Equal(t, CategoryFileSystem, GetCategory(wrapped))
	assert.True(t, stderrors.Is(wrapped, FileSystemError("cannot read layer").Build()))
}

func TestUnclassifiedDefaults(t *testing.T) {
	err := stderrors.New("boom")

	_, ok := AsClassified(err)
	assert.False(t, ok)
	assert.False(t, HasCategory(err, CategoryInternal))
	assert.Equal(t, CategoryInternal, GetCategory(err))
	assert.Equal(t, RetryNever, GetRetryStrategy(err))
}

func TestAttrs(t *testing.T) {
	err := CollaboratorError("generator failed", "warning: no comment").
		WithContext(ContextProject, "core").
		WithContext(ContextURL, "").
		Build()

	attrs := err.Attrs()
	require.Len(t, attrs, 3)
	assert.Equal(t, slog.String("category", "collaborator"), attrs[0])
	assert.Equal(t, slog.String(ContextProject, "core"), attrs[1])
	assert.Equal(t, slog.String(ContextDiagnostics, "warning: no comment"), attrs[2])
}

func TestCategoryExitCodes(t *testing.T) {
	cases := map[ErrorCategory]int{
		CategoryValidation:   2,
		CategoryNotFound:     4,
		CategoryConfig:       7,
		CategoryNetwork:      8,
		CategoryGit:          8,
		CategoryInternal:     10,
		CategoryComposition:  11,
		CategoryCollaborator: 11,
		CategoryFileSystem:   11,
		CategoryDocs:         11,
		CategoryRuntime:      12,
		CategoryEventStore:   12,
		ErrorCategory("x"):   1,
	}
	for category, want := range cases {
		assert.Equal(t, want, category.ExitCode(), "category %s", category)
	}
}

func TestCanceledIsNotClassified(t *testing.T) {
	err := fmt.Errorf("build: %w", context.Canceled)
	assert.False(t, HasCategory(err, CategoryRuntime))
}
