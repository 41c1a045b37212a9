package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/modjar/internal/module"
	"git.home.luguber.info/inful/modjar/internal/modgraph"
	"git.home.luguber.info/inful/modjar/internal/project"
)

type recorder struct {
	mu      sync.Mutex
	changes []Change
	hold    chan struct{}
	calls   chan struct{}
}

func newRecorder() *recorder {
	return &recorder{calls: make(chan struct{}, 16)}
}

func (r *recorder) rebuild(ctx context.Context, c Change) {
	r.mu.Lock()
	r.changes = append(r.changes, c)
	hold := r.hold
	r.mu.Unlock()
	r.calls <- struct{}{}
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
		}
	}
}

func (r *recorder) snapshot() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Change(nil), r.changes...)
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.calls:
	case <-time.After(5 * time.Second):
		t.Fatal("rebuild was not triggered")
	}
}

func startWatcher(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	// Give the watcher time to register its directories.
	time.Sleep(100 * time.Millisecond)
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRunDebouncesBurst(t *testing.T) {
	root := t.TempDir()
	rec := newRecorder()
	startWatcher(t, &Watcher{Roots: []string{root}, Debounce: 150 * time.Millisecond, Rebuild: rec.rebuild})

	a := filepath.Join(root, "A.java")
	b := filepath.Join(root, "B.java")
	write(t, a, "class A {}")
	write(t, b, "class B {}")
	rec.wait(t)

	time.Sleep(300 * time.Millisecond)
	changes := rec.snapshot()
	require.Len(t, changes, 1)
	assert.Contains(t, changes[0].Paths, a)
	assert.Contains(t, changes[0].Paths, b)
	assert.False(t, changes[0].Config)
}

func TestRunWatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	rec := newRecorder()
	startWatcher(t, &Watcher{Roots: []string{root}, Debounce: 50 * time.Millisecond, Rebuild: rec.rebuild})

	require.NoError(t, os.Mkdir(filepath.Join(root, "pkg"), 0o755))
	rec.wait(t)
	time.Sleep(100 * time.Millisecond)

	nested := filepath.Join(root, "pkg", "C.java")
	write(t, nested, "class C {}")
	rec.wait(t)
	changes := rec.snapshot()
	assert.Contains(t, changes[len(changes)-1].Paths, nested)
}

func TestRunFlagsConfigChanges(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.Mkdir(src, 0o755))
	cfgPath := filepath.Join(dir, "modjar.yaml")
	write(t, cfgPath, "version: \"1\"\n")

	rec := newRecorder()
	startWatcher(t, &Watcher{
		Roots:      []string{src},
		ConfigPath: cfgPath,
		Debounce:   50 * time.Millisecond,
		Rebuild:    rec.rebuild,
	})

	write(t, filepath.Join(dir, "notes.txt"), "sibling of the build file")
	write(t, cfgPath, "version: \"1\"\n# edited\n")
	rec.wait(t)

	changes := rec.snapshot()
	require.Len(t, changes, 1)
	assert.True(t, changes[0].Config)
	assert.Equal(t, []string{cfgPath}, changes[0].Paths)
}

func TestRunQueuesChangesDuringRebuild(t *testing.T) {
	root := t.TempDir()
	rec := newRecorder()
	rec.hold = make(chan struct{})
	startWatcher(t, &Watcher{Roots: []string{root}, Debounce: 30 * time.Millisecond, Rebuild: rec.rebuild})

	write(t, filepath.Join(root, "A.java"), "class A {}")
	rec.wait(t)

	second := filepath.Join(root, "B.java")
	write(t, second, "class B {}")
	time.Sleep(150 * time.Millisecond)
	assert.Len(t, rec.snapshot(), 1, "rebuilds must not overlap")

	close(rec.hold)
	rec.wait(t)
	changes := rec.snapshot()
	require.Len(t, changes, 2)
	assert.Equal(t, []string{second}, changes[1].Paths)
}

func TestRunIgnoresScratchAndOutput(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "build")
	require.NoError(t, os.Mkdir(out, 0o755))
	rec := newRecorder()
	startWatcher(t, &Watcher{
		Roots:    []string{root},
		Ignore:   []string{out},
		Debounce: 30 * time.Millisecond,
		Rebuild:  rec.rebuild,
	})

	write(t, filepath.Join(root, ".A.java.swp"), "x")
	write(t, filepath.Join(root, "A.java~"), "x")
	write(t, filepath.Join(out, "core.jar"), "x")
	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestShouldIgnoreEvent(t *testing.T) {
	cases := map[string]bool{
		"/src/Foo.java":         false,
		"/src/module-info.java": false,
		"/src/.hidden":          true,
		"/src/Foo.java~":        true,
		"/src/.Foo.java.swp":    true,
		"/src/#Foo.java#":       true,
		"/src/Thumbs.db":        true,
	}
	for path, want := range cases {
		assert.Equal(t, want, shouldIgnoreEvent(path), path)
	}
}

func TestSourceRoots(t *testing.T) {
	dir := t.TempDir()
	main := filepath.Join(dir, "core", "src", "main", "java")
	java11 := filepath.Join(dir, "core", "src", "main", "java11")
	desc := filepath.Join(dir, "core", "src", "module")
	for _, d := range []string{main, java11, desc} {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}
	core := &project.Project{
		ID:   "core",
		Dir:  filepath.Join(dir, "core"),
		Kind: project.Modular,
		Base: project.SourceLayer{Baseline: 8, SourceRoots: []string{main}, ResourceRoots: []string{filepath.Join(dir, "absent")}},
		Layers: []project.SourceLayer{
			{Baseline: 11, SourceRoots: []string{java11}},
		},
		Descriptor: &project.DescriptorLayer{Root: desc},
	}
	g, err := modgraph.New(module.Default(), project.Layout{OutputDir: filepath.Join(dir, "build")}, []*project.Project{core})
	require.NoError(t, err)

	assert.Equal(t, []string{main, java11, desc}, SourceRoots(g))
}
