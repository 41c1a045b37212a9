package build

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/modjar/internal/assemble"
	"git.home.luguber.info/inful/modjar/internal/compiler"
	"git.home.luguber.info/inful/modjar/internal/compose"
	"git.home.luguber.info/inful/modjar/internal/eventstore"
	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
	"git.home.luguber.info/inful/modjar/internal/javadoc"
	"git.home.luguber.info/inful/modjar/internal/logfields"
	"git.home.luguber.info/inful/modjar/internal/metrics"
	"git.home.luguber.info/inful/modjar/internal/modgraph"
	"git.home.luguber.info/inful/modjar/internal/observability"
	"git.home.luguber.info/inful/modjar/internal/relocate"
	"git.home.luguber.info/inful/modjar/internal/storage"
)

// BuildService is the entry point shared by the CLI commands and watch mode.
type BuildService interface {
	Run(ctx context.Context, req Request) (*Result, error)
}

// Request selects what one run builds.
type Request struct {
	Graph *modgraph.Graph
	// Links is the validated external module table for the docs task.
	Links *javadoc.LinkTable
	// Targets restricts the run to these projects and their dependency
	// closure. Empty builds every project.
	Targets []string
	// Docs adds the aggregated documentation task.
	Docs bool
}

// Status is the overall outcome of a run.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusPartial  Status = "partial"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

// ArtifactResult describes one written artifact.
type ArtifactResult struct {
	Project string
	Module  string
	Path    string
	Digest  string
	Entries int
	// Changed is false when the normalized content equals the last build's.
	Changed bool
	// Classifier is empty for the module artifact, ClassifierSources or
	// ClassifierJavadoc otherwise.
	Classifier string
}

// Artifact classifiers.
const (
	ClassifierSources = "sources"
	ClassifierJavadoc = "javadoc"
)

// Result describes a finished run.
type Result struct {
	BuildID   string
	Status    Status
	Tasks     []TaskResult
	Artifacts []ArtifactResult
	Docs      *javadoc.Result
	StartTime time.Time
	Duration  time.Duration
}

// Task returns the result of task id.
func (r *Result) Task(id string) (TaskResult, bool) {
	i := slices.IndexFunc(r.Tasks, func(t TaskResult) bool { return t.ID == id })
	if i < 0 {
		return TaskResult{}, false
	}
	return r.Tasks[i], true
}

// Counts returns the number of tasks per status.
func (r *Result) Counts() map[string]int {
	out := map[string]int{}
	for _, t := range r.Tasks {
		out[string(t.Status)]++
	}
	return out
}

// Service is the standard BuildService.
type Service struct {
	Compiler  compiler.Compiler
	Assembler *assemble.Assembler
	Merger    *relocate.Merger
	// Docs runs the docs task; nil disables documentation.
	Docs *javadoc.Aggregator
	// Store tracks artifact digests between runs; nil reports every artifact as changed.
	Store storage.Store
	// Ledger receives build events; nil disables the ledger.
	Ledger   eventstore.Store
	Recorder metrics.Recorder

	Concurrency int
	FailFast    bool

	// NewID defaults to random UUIDs.
	NewID func() string
	// ComposeOptions are passed to the composer, mainly to stub the filesystem in tests.
	ComposeOptions []compose.Option
}

// NewService wires a service with the defaults for everything optional.
func NewService(c compiler.Compiler, a *assemble.Assembler) *Service {
	return &Service{
		Compiler:  c,
		Assembler: a,
		Merger:    &relocate.Merger{},
		Recorder:  metrics.NoopRecorder{},
	}
}

func (s *Service) recorder() metrics.Recorder {
	if s.Recorder == nil {
		return metrics.NoopRecorder{}
	}
	return s.Recorder
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

// run carries the state of one build across tasks.
type run struct {
	req      Request
	composer *compose.Composer
	ledger   *eventstore.Ledger

	mu        sync.Mutex
	artifacts []ArtifactResult
	docs      *javadoc.Result
}

func (r *run) addArtifact(a ArtifactResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.artifacts = append(r.artifacts, a)
}

// Run executes the build described by req. The returned error is the first
// failure in task order; the result is always returned.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res := &Result{BuildID: s.newID(), StartTime: start}
	ctx = observability.WithBuildID(ctx, res.BuildID)
	rec := s.recorder()

	if req.Graph == nil {
		res.Status = StatusFailed
		return res, errors.ConfigError("build requires a module graph").Build()
	}
	if req.Docs && s.Docs == nil {
		res.Status = StatusFailed
		return res, errors.ConfigError("documentation requested but not configured").Build()
	}

	r := &run{
		req:      req,
		composer: compose.New(req.Graph, s.ComposeOptions...),
		ledger:   eventstore.NewLedger(s.Ledger, res.BuildID),
	}

	plan, err := NewPlan(req.Graph, r.composer, req.Targets, req.Docs)
	if err != nil {
		res.Status = StatusFailed
		res.Duration = time.Since(start)
		observability.ErrorContext(ctx, "Build aborted before any task started", logfields.Error(err))
		rec.IncBuildOutcome(string(res.Status))
		return res, err
	}

	concurrency := max(s.Concurrency, 1)
	rec.SetConcurrency(concurrency)
	s.appendEvent(ctx, r.ledger.BuildStarted(ctx, eventstore.BuildStarted{
		ProjectVersion: req.Graph.Layout().Version,
		Revision:       s.Assembler.Info.Revision,
		Projects:       plan.Projects(),
		Concurrency:    concurrency,
	}))
	observability.InfoContext(ctx, "Build started",
		logfields.Count(len(plan.Tasks())),
		slog.Int("concurrency", concurrency))

	sched := newScheduler(plan, concurrency, s.FailFast, func(ctx context.Context, t *Task) error {
		return s.runTask(ctx, r, t)
	})
	sched.finished = func(ctx context.Context, tr TaskResult) { s.taskFinished(ctx, r, tr) }
	res.Tasks = sched.execute(ctx)

	res.Artifacts = r.artifacts
	slices.SortFunc(res.Artifacts, func(a, b ArtifactResult) int {
		if a.Project != b.Project {
			return indexOf(plan.Projects(), a.Project) - indexOf(plan.Projects(), b.Project)
		}
		return strings.Compare(a.Classifier, b.Classifier)
	})
	res.Docs = r.docs
	res.Status, err = outcome(ctx, res.Tasks)
	res.Duration = time.Since(start)

	var paths []string
	for _, a := range res.Artifacts {
		paths = append(paths, a.Path)
	}
	s.appendEvent(ctx, r.ledger.BuildFinished(context.WithoutCancel(ctx), eventstore.BuildFinished{
		Outcome:    string(res.Status),
		DurationMS: float64(res.Duration.Milliseconds()),
		Tasks:      res.Counts(),
		Artifacts:  paths,
	}))
	rec.ObserveBuildDuration(res.Duration)
	rec.IncBuildOutcome(string(res.Status))

	level := slog.LevelInfo
	if res.Status != StatusSuccess {
		level = slog.LevelError
	}
	slog.LogAttrs(ctx, level, "Build finished",
		logfields.BuildID(res.BuildID),
		slog.String("status", string(res.Status)),
		logfields.Count(len(res.Artifacts)),
		logfields.DurationMS(float64(res.Duration.Milliseconds())))
	return res, err
}

// outcome derives the run status: canceled when the caller canceled,
// success when every task succeeded, partial when at least one artifact
// was still assembled, failed otherwise.
func outcome(ctx context.Context, tasks []TaskResult) (Status, error) {
	if err := ctx.Err(); err != nil {
		return StatusCanceled, err
	}
	var first error
	assembled := false
	for _, t := range tasks {
		if t.Kind == TaskAssemble && t.Status == TaskSuccess {
			assembled = true
		}
		if first == nil && t.Err != nil && t.Status == TaskFailed {
			first = t.Err
		}
	}
	if first == nil {
		for _, t := range tasks {
			if t.Status == TaskCanceled {
				return StatusCanceled, context.Canceled
			}
		}
		return StatusSuccess, nil
	}
	if assembled {
		return StatusPartial, first
	}
	return StatusFailed, first
}

func (s *Service) taskFinished(ctx context.Context, r *run, tr TaskResult) {
	rec := s.recorder()
	rec.ObserveTaskDuration(string(tr.Kind), tr.Duration)
	rec.IncTaskResult(string(tr.Kind), metrics.ResultLabel(tr.Status))

	ev := eventstore.TaskFinished{
		Task:       tr.ID,
		Status:     string(tr.Status),
		DurationMS: float64(tr.Duration.Milliseconds()),
	}
	if tr.Err != nil {
		ev.Error = tr.Err.Error()
	}
	s.appendEvent(ctx, r.ledger.TaskFinished(context.WithoutCancel(ctx), ev))

	ctx = observability.WithTask(ctx, tr.ID)
	attrs := []slog.Attr{
		logfields.TaskStatus(string(tr.Status)),
		logfields.DurationMS(float64(tr.Duration.Milliseconds())),
	}
	switch tr.Status {
	case TaskSuccess:
		observability.DebugContext(ctx, "Task finished", attrs...)
	case TaskFailed:
		if ce, ok := errors.AsClassified(tr.Err); ok {
			attrs = append(attrs, ce.Attrs()...)
		}
		observability.ErrorContext(ctx, "Task failed", append(attrs, logfields.Error(tr.Err))...)
	case TaskBlocked:
		observability.WarnContext(ctx, "Task blocked", append(attrs, slog.String("blocked_by", tr.BlockedBy))...)
	default:
		observability.DebugContext(ctx, "Task canceled", attrs...)
	}
}

func (s *Service) appendEvent(ctx context.Context, err error) {
	if err != nil {
		observability.WarnContext(ctx, "Failed to append build event", logfields.Error(err))
	}
}

func indexOf(ids []string, id string) int {
	return slices.Index(ids, id)
}
