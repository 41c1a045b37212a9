package storage

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Store = (*FSStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	fsStore, err := NewFSStore(filepath.Join(t.TempDir(), ".modjar"))
	require.NoError(t, err)
	return map[string]Store{"fs": fsStore, "memory": NewMemoryStore()}
}

func TestPutGetDelete(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			hash, err := s.Put(ctx, &Object{
				Type:     ObjectTypeArtifact,
				Data:     []byte("META-INF/MANIFEST.MF\n"),
				Metadata: Metadata{Custom: map[string]string{"module": "org.example.core"}},
			})
			require.NoError(t, err)
			assert.Len(t, hash, 64)

			again, err := s.Put(ctx, &Object{Type: ObjectTypeArtifact, Data: []byte("META-INF/MANIFEST.MF\n")})
			require.NoError(t, err)
			assert.Equal(t, hash, again)

			obj, err := s.Get(ctx, hash)
			require.NoError(t, err)
			assert.Equal(t, ObjectTypeArtifact, obj.Type)
			assert.Equal(t, "org.example.core", obj.Metadata.Custom["module"])
			assert.EqualValues(t, 21, obj.Size)

			ok, err := s.Exists(ctx, hash)
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, s.Delete(ctx, hash))
			_, err = s.Get(ctx, hash)
			assert.True(t, IsNotFound(err))
			assert.True(t, IsNotFound(s.Delete(ctx, hash)))
		})
	}
}

func TestListByType(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			a, err := s.Put(ctx, &Object{Type: ObjectTypeArtifact, Data: []byte("a")})
			require.NoError(t, err)
			b, err := s.Put(ctx, &Object{Type: ObjectTypeSources, Data: []byte("b")})
			require.NoError(t, err)

			arts, err := s.List(ctx, ObjectTypeArtifact)
			require.NoError(t, err)
			assert.Equal(t, []string{a}, arts)

			all, err := s.List(ctx, "")
			require.NoError(t, err)
			sort.Strings(all)
			want := []string{a, b}
			sort.Strings(want)
			assert.Equal(t, want, all)
		})
	}
}

func TestRecordReportsChanges(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			ref := ArtifactRef("org.example.core")

			changed, err := Record(ctx, s, ref, &Object{Hash: "d1d1", Type: ObjectTypeArtifact, Data: []byte("x")})
			require.NoError(t, err)
			assert.True(t, changed, "first record is a change")

			changed, err = Record(ctx, s, ref, &Object{Hash: "d1d1", Type: ObjectTypeArtifact, Data: []byte("x")})
			require.NoError(t, err)
			assert.False(t, changed)

			changed, err = Record(ctx, s, ref, &Object{Hash: "e2e2", Type: ObjectTypeArtifact, Data: []byte("y")})
			require.NoError(t, err)
			assert.True(t, changed)

			got, err := s.Ref(ctx, ref)
			require.NoError(t, err)
			assert.Equal(t, "e2e2", got)

			removed, err := GC(ctx, s)
			require.NoError(t, err)
			assert.Equal(t, 1, removed)
			ok, err := s.Exists(ctx, "d1d1")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestFSStoreRefLayout(t *testing.T) {
	base := filepath.Join(t.TempDir(), "state")
	s, err := NewFSStore(base)
	require.NoError(t, err)

	require.NoError(t, s.SetRef(t.Context(), ArtifactRef("org.example.api"), "abc"))
	data, err := os.ReadFile(filepath.Join(base, "refs", "artifacts", "org.example.api"))
	require.NoError(t, err)
	assert.Equal(t, "abc\n", string(data))

	refs, err := s.Refs(t.Context())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"artifacts/org.example.api": "abc"}, refs)

	missing, err := s.Ref(t.Context(), SourcesRef("org.example.api"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}
