package errors

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(verbose bool) (*CLIErrorAdapter, *bytes.Buffer, *bytes.Buffer, *int) {
	var out, logs bytes.Buffer
	code := -1
	a := NewCLIErrorAdapter(verbose, slog.New(slog.NewTextHandler(&logs, nil)))
	a.out = &out
	a.exit = func(c int) { code = c }
	return a, &out, &logs, &code
}

func TestExitCodeFor(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)

	assert.Equal(t, 0, a.ExitCodeFor(nil))
	assert.Equal(t, 1, a.ExitCodeFor(fmt.Errorf("plain")))
	assert.Equal(t, 7, a.ExitCodeFor(ConfigError("bad").Build()))
	assert.Equal(t, 11, a.ExitCodeFor(fmt.Errorf("wrapped: %w", CompositionError("clash").Build())))
	assert.Equal(t, ExitInterrupted, a.ExitCodeFor(fmt.Errorf("run: %w", context.Canceled)))
}

func TestFormatErrorShowsLocation(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)
	err := ConfigError("unknown dependency").
		WithContext(ContextProject, "api").
		WithContext(ContextPath, "modjar.yaml").
		WithContext("dependency", "missing").
		Build()

	assert.Equal(t, "Error: unknown dependency [project=api] [path=modjar.yaml]", a.FormatError(err))
}

func TestFormatErrorVerboseUsesFullError(t *testing.T) {
	a := NewCLIErrorAdapter(true, nil)
	err := NetworkError("fetch element list").WithContext(ContextURL, "https://example.org/api/").Build()

	assert.Equal(t, "Error: "+err.Error(), a.FormatError(err))
}

func TestFormatErrorAppendsDiagnostics(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)
	err := CollaboratorError("compiler exited with failure", "A.java:1: error: class expected\n").Build()

	assert.Equal(t, "Error: compiler exited with failure\nA.java:1: error: class expected", a.FormatError(err))
}

func TestFormatErrorHidesInternalDetails(t *testing.T) {
	err := InternalError("scheduler lost a task").Build()

	assert.Equal(t, "Internal error occurred (use -v for details)", NewCLIErrorAdapter(false, nil).FormatError(err))
	assert.Contains(t, NewCLIErrorAdapter(true, nil).FormatError(err), "scheduler lost a task")
}

func TestHandleErrorFatalIsLogged(t *testing.T) {
	a, out, logs, code := newTestAdapter(false)

	a.HandleError(ConfigError("cycle detected").WithContext(ContextProject, "core").Build())

	assert.Equal(t, 7, *code)
	assert.Equal(t, "Error: cycle detected [project=core]\n", out.String())
	assert.Contains(t, logs.String(), `msg="cycle detected"`)
	assert.Contains(t, logs.String(), "category=config")
}

func TestHandleErrorNonFatalStaysQuiet(t *testing.T) {
	a, out, logs, code := newTestAdapter(false)

	a.HandleError(CollaboratorError("generator failed", "bad tag").Build())

	assert.Equal(t, 11, *code)
	assert.Contains(t, out.String(), "bad tag")
	assert.Empty(t, logs.String())
}

func TestHandleErrorInterrupted(t *testing.T) {
	a, out, logs, code := newTestAdapter(false)

	a.HandleError(context.Canceled)

	assert.Equal(t, ExitInterrupted, *code)
	assert.Equal(t, "Interrupted\n", out.String())
	assert.Empty(t, logs.String())
}

func TestHandleErrorNil(t *testing.T) {
	a, out, _, code := newTestAdapter(true)

	a.HandleError(nil)

	require.Equal(t, -1, *code)
	assert.Empty(t, out.String())
}
