package eventstore

import (
	"context"
	"sort"
	"time"
)

const statusRunning = "running"

// BuildSummary is a read model of one build folded from its events.
type BuildSummary struct {
	BuildID        string         `json:"build_id"`
	ProjectVersion string         `json:"project_version,omitempty"`
	Revision       string         `json:"revision,omitempty"`
	Status         string         `json:"status"`
	StartedAt      time.Time      `json:"started_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	Duration       time.Duration  `json:"duration,omitempty"`
	Tasks          map[string]int `json:"tasks,omitempty"`
	Artifacts      []string       `json:"artifacts,omitempty"`
	Changed        int            `json:"changed"`
	Docs           bool           `json:"docs"`
	FailedTasks    []string       `json:"failed_tasks,omitempty"`
}

// History folds every event between start and end into summaries, newest
// first, keeping at most limit entries (0 keeps all).
func History(ctx context.Context, store Store, start, end time.Time, limit int) ([]*BuildSummary, error) {
	events, err := store.Between(ctx, start, end)
	if err != nil {
		return nil, err
	}

	builds := make(map[string]*BuildSummary)
	var order []*BuildSummary
	for _, ev := range events {
		s, ok := builds[ev.BuildID]
		if !ok {
			s = &BuildSummary{BuildID: ev.BuildID, Status: statusRunning, StartedAt: ev.At, Tasks: map[string]int{}}
			builds[ev.BuildID] = s
			order = append(order, s)
		}
		apply(s, ev)
	}

	sort.SliceStable(order, func(i, j int) bool { return order[i].StartedAt.After(order[j].StartedAt) })
	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}
	return order, nil
}

// Summarize folds the events of a single build.
func Summarize(ctx context.Context, store Store, buildID string) (*BuildSummary, error) {
	events, err := store.Build(ctx, buildID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	s := &BuildSummary{BuildID: buildID, Status: statusRunning, StartedAt: events[0].At, Tasks: map[string]int{}}
	for _, ev := range events {
		apply(s, ev)
	}
	return s, nil
}

func apply(s *BuildSummary, ev Event) {
	switch ev.Type {
	case TypeBuildStarted:
		var p BuildStarted
		if ev.Decode(&p) == nil {
			s.ProjectVersion = p.ProjectVersion
			s.Revision = p.Revision
		}
		s.StartedAt = ev.At

	case TypeTaskFinished:
		var p TaskFinished
		if ev.Decode(&p) == nil {
			s.Tasks[p.Status]++
			if p.Status == "failed" {
				s.FailedTasks = append(s.FailedTasks, p.Task)
			}
		}

	case TypeArtifactWritten:
		var p ArtifactWritten
		if ev.Decode(&p) == nil {
			s.Artifacts = append(s.Artifacts, p.Path)
			if p.Changed {
				s.Changed++
			}
		}

	case TypeDocsGenerated:
		s.Docs = true

	case TypeBuildFinished:
		var p BuildFinished
		if ev.Decode(&p) == nil {
			s.Status = p.Outcome
		}
		at := ev.At
		s.CompletedAt = &at
		s.Duration = at.Sub(s.StartedAt)
	}
}
