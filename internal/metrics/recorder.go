package metrics

import "time"

// ResultLabel enumerates task result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultBlocked  ResultLabel = "blocked"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for builds and their tasks. Task
// kinds are "compile", "assemble" and "docs".
type Recorder interface {
	ObserveTaskDuration(kind string, d time.Duration)
	IncTaskResult(kind string, result ResultLabel)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome string) // outcome: success|partial|failed|canceled
	ObserveArtifact(project string, entries int, changed bool)
	IncElementLists(fetched, cached int)
	SetConcurrency(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveTaskDuration(string, time.Duration) {}
func (NoopRecorder) IncTaskResult(string, ResultLabel)         {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)        {}
func (NoopRecorder) IncBuildOutcome(string)                    {}
func (NoopRecorder) ObserveArtifact(string, int, bool)         {}
func (NoopRecorder) IncElementLists(int, int)                  {}
func (NoopRecorder) SetConcurrency(int)                        {}
