package compiler

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
	"git.home.luguber.info/inful/modjar/internal/logfields"
)

var (
	// ErrCompilerNotFound indicates the compiler executable was not detected.
	ErrCompilerNotFound = stderrors.New("compiler binary not found")
	// ErrCompilationFailed indicates the compiler returned a non-zero exit status.
	ErrCompilationFailed = stderrors.New("compilation failed")
)

// Result describes a finished compilation.
type Result struct {
	Sources  int
	Output   string
	Duration time.Duration
}

// Compiler runs one invocation to completion. Implementations must be safe
// for concurrent use; the scheduler calls them from several goroutines.
type Compiler interface {
	Compile(ctx context.Context, inv Invocation) (*Result, error)
}

// Func adapts a function to the Compiler interface.
type Func func(ctx context.Context, inv Invocation) (*Result, error)

func (f Func) Compile(ctx context.Context, inv Invocation) (*Result, error) { return f(ctx, inv) }

// Javac invokes a javac-compatible binary.
type Javac struct {
	// Binary defaults to "javac" on PATH.
	Binary string
}

func (j *Javac) binary() string {
	if j.Binary == "" {
		return "javac"
	}
	return j.Binary
}

// Compile discovers the source files below the invocation's roots, recreates
// the output directory and runs the compiler. An invocation without sources
// only removes the previous output, so deleted layers are not packaged again.
func (j *Javac) Compile(ctx context.Context, inv Invocation) (*Result, error) {
	start := time.Now()
	sources, err := DiscoverSources(inv.SourceRoots)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "discover sources").
			WithContext(errors.ContextProject, inv.Project).
			Build()
	}
	if inv.OutputDir != "" {
		if err := os.RemoveAll(inv.OutputDir); err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "clean output directory").
				WithContext(errors.ContextPath, inv.OutputDir).
				Build()
		}
	}
	if len(sources) == 0 {
		slog.Debug("No sources, skipping compilation",
			logfields.Project(inv.Project), logfields.Layer(inv.Name()))
		return &Result{Duration: time.Since(start)}, nil
	}

	bin, err := exec.LookPath(j.binary())
	if err != nil {
		return nil, errors.WrapError(fmt.Errorf("%w: %w", ErrCompilerNotFound, err), errors.CategoryCollaborator, "compiler unavailable").
			WithContext(errors.ContextProject, inv.Project).
			WithContext(errors.ContextPath, j.binary()).
			Build()
	}

	if err := os.MkdirAll(inv.OutputDir, 0o755); err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "create output directory").
			WithContext(errors.ContextPath, inv.OutputDir).
			Build()
	}

	args := append(inv.Args(), sources...)
	cmd := exec.CommandContext(ctx, bin, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	slog.Debug("Invoking compiler",
		logfields.Project(inv.Project),
		logfields.Layer(inv.Name()),
		logfields.Tool(bin),
		slog.Int("sources", len(sources)))

	runErr := cmd.Run()
	res := &Result{Sources: len(sources), Output: out.String(), Duration: time.Since(start)}
	if runErr != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, errors.CollaboratorError("compiler exited with failure", res.Output).
			WithCause(fmt.Errorf("%w: %w", ErrCompilationFailed, runErr)).
			WithContext(errors.ContextProject, inv.Project).
			WithContext("layer", inv.Name()).
			Build()
	}
	if strings.TrimSpace(res.Output) != "" {
		slog.Info("Compiler output", logfields.Project(inv.Project), logfields.Layer(inv.Name()), slog.String("output", res.Output))
	}
	return res, nil
}

// Noop performs no compilation; useful for dry runs.
type Noop struct{}

func (Noop) Compile(_ context.Context, inv Invocation) (*Result, error) {
	slog.Debug("Noop compiler skipping", logfields.Project(inv.Project), logfields.Layer(inv.Name()))
	return &Result{}, nil
}

// DiscoverSources returns every *.java file below roots, sorted. Missing
// roots are skipped.
func DiscoverSources(roots []string) ([]string, error) {
	var out []string
	for _, root := range roots {
		if _, err := os.Stat(root); os.IsNotExist(err) {
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(d.Name(), ".java") {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(out)
	return out, nil
}
