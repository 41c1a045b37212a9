package eventstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordBuild(t *testing.T, store Store, buildID, outcome string) {
	t.Helper()
	ctx := t.Context()
	l := NewLedger(store, buildID)
	require.NoError(t, l.BuildStarted(ctx, BuildStarted{ProjectVersion: "1.0.0", Revision: "abc", Projects: []string{"core", "api"}, Concurrency: 2}))
	require.NoError(t, l.TaskFinished(ctx, TaskFinished{Task: "compile:core:base", Status: "success", DurationMS: 12}))
	require.NoError(t, l.TaskFinished(ctx, TaskFinished{Task: "compile:api:base", Status: "failed", Error: "boom"}))
	require.NoError(t, l.TaskFinished(ctx, TaskFinished{Task: "assemble:api", Status: "blocked"}))
	require.NoError(t, l.ArtifactWritten(ctx, ArtifactWritten{Project: "core", Module: "org.core", Path: "build/core.jar", Digest: "d1", Entries: 3, Changed: true}))
	require.NoError(t, l.BuildFinished(ctx, BuildFinished{Outcome: outcome, DurationMS: 40}))
}

func TestSummarize(t *testing.T) {
	store := newStore(t)
	recordBuild(t, store, testBuildID, "partial")

	s, err := Summarize(t.Context(), store, testBuildID)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "partial", s.Status)
	assert.Equal(t, "1.0.0", s.ProjectVersion)
	assert.Equal(t, map[string]int{"success": 1, "failed": 1, "blocked": 1}, s.Tasks)
	assert.Equal(t, []string{"compile:api:base"}, s.FailedTasks)
	assert.Equal(t, []string{"build/core.jar"}, s.Artifacts)
	assert.Equal(t, 1, s.Changed)
	assert.False(t, s.Docs)
	assert.NotNil(t, s.CompletedAt)

	missing, err := Summarize(t.Context(), store, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestHistoryNewestFirst(t *testing.T) {
	store := newStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }
	recordBuild(t, store, "first", "success")
	store.now = func() time.Time { return base.Add(time.Minute) }
	recordBuild(t, store, "second", "failed")

	all, err := History(t.Context(), store, time.Time{}, base.Add(time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "second", all[0].BuildID)
	assert.Equal(t, "failed", all[0].Status)

	limited, err := History(t.Context(), store, time.Time{}, base.Add(time.Hour), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestNilLedgerDiscards(t *testing.T) {
	l := NewLedger(nil, testBuildID)
	assert.NoError(t, l.BuildFinished(t.Context(), BuildFinished{Outcome: "success"}))
	var none *Ledger
	assert.NoError(t, none.DocsGenerated(t.Context(), DocsGenerated{}))
}
