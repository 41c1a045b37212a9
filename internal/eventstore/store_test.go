package eventstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBuildID = "b5a3c0de-0000-4000-8000-000000000001"

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAndBuild(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	require.NoError(t, store.Append(ctx, Event{BuildID: testBuildID, Type: "custom", Payload: []byte(`{"k":1}`), Metadata: map[string]string{"key": "value"}}))
	require.NoError(t, store.Append(ctx, Event{BuildID: "other", Type: "custom"}))

	events, err := store.Build(ctx, testBuildID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "custom", events[0].Type)
	assert.Positive(t, events[0].Seq)
	assert.Equal(t, "value", events[0].Metadata["key"])
	var payload struct{ K int }
	require.NoError(t, events[0].Decode(&payload))
	assert.Equal(t, 1, payload.K)

	other, err := store.Build(ctx, "other")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.JSONEq(t, "{}", string(other[0].Payload))
	assert.Nil(t, other[0].Metadata)
}

func TestAppendKeepsExplicitTime(t *testing.T) {
	store := newStore(t)
	at := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)

	require.NoError(t, store.Append(t.Context(), Event{BuildID: testBuildID, Type: "tick", At: at}))

	events, err := store.Build(t.Context(), testBuildID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, at.Equal(events[0].At))
}

func TestBetween(t *testing.T) {
	store := newStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	store.now = func() time.Time { return current }

	for i := range 3 {
		current = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.Append(t.Context(), Event{BuildID: testBuildID, Type: "tick"}))
	}

	events, err := store.Between(t.Context(), base.Add(30*time.Minute), base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Less(t, events[0].Seq, events[1].Seq)
}

func TestPersistentStoreCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "ledger.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, NewLedger(store, testBuildID).BuildStarted(t.Context(), BuildStarted{Concurrency: 1}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	events, err := reopened.Build(t.Context(), testBuildID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, TypeBuildStarted, events[0].Type)
}

func TestNilLedgerTaskFinished(t *testing.T) {
	var l *Ledger
	require.NoError(t, l.BuildFinished(t.Context(), BuildFinished{Outcome: "success"}))
	require.NoError(t, NewLedger(nil, testBuildID).TaskFinished(t.Context(), TaskFinished{Task: "t"}))
}
