package eventstore

import (
	"context"
	"encoding/json"

	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
)

// BuildStarted is the payload of a build_started event.
type BuildStarted struct {
	ProjectVersion string   `json:"project_version"`
	Revision       string   `json:"revision"`
	Projects       []string `json:"projects"`
	Concurrency    int      `json:"concurrency"`
}

// TaskFinished is the payload of a task_finished event.
type TaskFinished struct {
	Task       string  `json:"task"`
	Status     string  `json:"status"`
	DurationMS float64 `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`
}

// ArtifactWritten is the payload of an artifact_written event.
type ArtifactWritten struct {
	Project string `json:"project"`
	Module  string `json:"module"`
	Path    string `json:"path"`
	Digest  string `json:"digest"`
	Entries int    `json:"entries"`
	Changed bool   `json:"changed"`
}

// DocsGenerated is the payload of a docs_generated event.
type DocsGenerated struct {
	OutputDir    string   `json:"output_dir"`
	Modules      []string `json:"modules"`
	Fetched      int      `json:"fetched"`
	Replacements int      `json:"replacements"`
	Findings     int      `json:"findings"`
}

// BuildFinished is the payload of a build_finished event.
type BuildFinished struct {
	Outcome    string         `json:"outcome"`
	DurationMS float64        `json:"duration_ms"`
	Tasks      map[string]int `json:"tasks"`
	Artifacts  []string       `json:"artifacts,omitempty"`
}

// Ledger appends typed events for a single build. A Ledger without a store
// discards everything, so callers never need to check whether the ledger is
// enabled.
type Ledger struct {
	store   Store
	buildID string
}

// NewLedger binds store to buildID. store may be nil.
func NewLedger(store Store, buildID string) *Ledger {
	return &Ledger{store: store, buildID: buildID}
}

// BuildID returns the build the ledger appends for.
func (l *Ledger) BuildID() string { return l.buildID }

func (l *Ledger) BuildStarted(ctx context.Context, p BuildStarted) error {
	return l.append(ctx, TypeBuildStarted, p, nil)
}

func (l *Ledger) TaskFinished(ctx context.Context, p TaskFinished) error {
	return l.append(ctx, TypeTaskFinished, p, map[string]string{"task": p.Task})
}

func (l *Ledger) ArtifactWritten(ctx context.Context, p ArtifactWritten) error {
	return l.append(ctx, TypeArtifactWritten, p, map[string]string{"project": p.Project})
}

func (l *Ledger) DocsGenerated(ctx context.Context, p DocsGenerated) error {
	return l.append(ctx, TypeDocsGenerated, p, nil)
}

func (l *Ledger) BuildFinished(ctx context.Context, p BuildFinished) error {
	return l.append(ctx, TypeBuildFinished, p, nil)
}

func (l *Ledger) append(ctx context.Context, eventType string, payload any, metadata map[string]string) error {
	if l == nil || l.store == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.WrapError(err, errors.CategoryEventStore, "marshal event payload").
			WithContext("build_id", l.buildID).
			WithContext("event_type", eventType).
			Build()
	}
	return l.store.Append(ctx, Event{BuildID: l.buildID, Type: eventType, Payload: data, Metadata: metadata})
}
