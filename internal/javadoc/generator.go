package javadoc

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"git.home.luguber.info/inful/modjar/internal/compiler"
	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
	"git.home.luguber.info/inful/modjar/internal/logfields"
	"git.home.luguber.info/inful/modjar/internal/module"
)

var (
	// ErrGeneratorNotFound indicates the documentation tool was not detected.
	ErrGeneratorNotFound = stderrors.New("documentation generator binary not found")
	// ErrGenerationFailed indicates the documentation tool returned a non-zero exit status.
	ErrGenerationFailed = stderrors.New("documentation generation failed")
)

// DefaultDoclint enables every doclint group except accessibility and missing comments.
const DefaultDoclint = "-Xdoclint:all,-accessibility,-missing"

// DefaultTags declares the block tags used across the documented sources.
var DefaultTags = []string{
	"apiNote:a:API Note:",
	"implNote:a:Implementation Note:",
}

// OfflineLink points the generator at a locally cached element list for
// documentation published under URL.
type OfflineLink struct {
	URL string
	Dir string
}

// Request is one invocation of the documentation generator across all
// documented modules.
type Request struct {
	Title      string
	Header     string
	Overview   string
	Stylesheet string
	MaxMemory  string

	Modules          []module.Name
	ModuleSourcePath []string
	PatchModules     []compiler.PatchModule
	ModulePath       []string
	AddModules       []string
	AddReads         map[string]string

	Links        []string
	OfflineLinks []OfflineLink
	Groups       []Group

	OutputDir string
	ExtraArgs []string
}

// Args renders the generator command line.
func (r Request) Args() []string {
	var args []string
	if r.MaxMemory != "" {
		args = append(args, "-J-Xmx"+r.MaxMemory)
	}
	args = append(args,
		"-d", r.OutputDir,
		"-encoding", "UTF-8",
		"-protected",
	)
	if r.Title != "" {
		args = append(args, "-doctitle", r.Title, "-windowtitle", r.Title)
	}
	if r.Header != "" {
		args = append(args, "-header", r.Header)
	}
	if r.Overview != "" {
		args = append(args, "-overview", r.Overview)
	}
	args = append(args, "-splitindex", DefaultDoclint, "-html5")
	for _, tag := range DefaultTags {
		args = append(args, "-tag", tag)
	}
	for _, l := range r.Links {
		args = append(args, "-link", l)
	}
	for _, l := range r.OfflineLinks {
		args = append(args, "-linkoffline", l.URL, l.Dir)
	}
	for _, g := range r.Groups {
		args = append(args, "-group", g.Title, strings.Join(g.Patterns, ":"))
	}
	if r.Stylesheet != "" {
		args = append(args, "--add-stylesheet", r.Stylesheet)
	}
	args = append(args, "-use", "-notimestamp")

	if len(r.Modules) > 0 {
		names := make([]string, 0, len(r.Modules))
		for _, m := range r.Modules {
			names = append(names, string(m))
		}
		args = append(args, "--module", strings.Join(names, ","))
	}
	if len(r.ModuleSourcePath) > 0 {
		args = append(args, "--module-source-path", compiler.JoinPaths(r.ModuleSourcePath))
	}
	for _, pm := range r.PatchModules {
		if len(pm.Paths) > 0 {
			args = append(args, "--patch-module", pm.Value())
		}
	}
	if len(r.ModulePath) > 0 {
		args = append(args, "--module-path", compiler.JoinPaths(r.ModulePath))
	}
	if len(r.AddModules) > 0 {
		args = append(args, "--add-modules", strings.Join(r.AddModules, ","))
	}
	for _, m := range slices.Sorted(maps.Keys(r.AddReads)) {
		args = append(args, "--add-reads", m+"="+r.AddReads[m])
	}
	return append(args, r.ExtraArgs...)
}

// Generator renders API documentation for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) error
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) error

func (f GeneratorFunc) Generate(ctx context.Context, req Request) error { return f(ctx, req) }

// Javadoc invokes a javadoc-compatible binary.
type Javadoc struct {
	// Binary defaults to "javadoc" on PATH.
	Binary string
}

func (j *Javadoc) binary() string {
	if j.Binary == "" {
		return "javadoc"
	}
	return j.Binary
}

// Generate runs the generator with req.Args. Tool output is logged at debug
// level on success and attached to the error otherwise.
func (j *Javadoc) Generate(ctx context.Context, req Request) error {
	bin, err := exec.LookPath(j.binary())
	if err != nil {
		return errors.WrapError(fmt.Errorf("%w: %w", ErrGeneratorNotFound, err), errors.CategoryCollaborator, "documentation generator unavailable").
			WithContext(errors.ContextPath, j.binary()).
			Build()
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create documentation output").
			WithContext(errors.ContextPath, req.OutputDir).
			Build()
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, bin, req.Args()...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	slog.Debug("Invoking documentation generator",
		logfields.Tool(bin),
		logfields.Count(len(req.Modules)),
		logfields.Path(req.OutputDir))

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.CollaboratorError("documentation generator exited with failure", out.String()).
			WithCause(fmt.Errorf("%w: %w", ErrGenerationFailed, err)).
			WithContext(errors.ContextPath, req.OutputDir).
			Build()
	}
	slog.Debug("Documentation generator finished",
		logfields.DurationMS(float64(time.Since(start).Milliseconds())),
		slog.String("output", out.String()))
	return nil
}
