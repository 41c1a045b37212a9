// Package watch rebuilds when project sources or the build file change.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
	"git.home.luguber.info/inful/modjar/internal/logfields"
	"git.home.luguber.info/inful/modjar/internal/modgraph"
)

// DefaultDebounce is used when no debounce interval is configured.
const DefaultDebounce = 500 * time.Millisecond

// Change describes what happened since the last rebuild.
type Change struct {
	Paths []string
	// Config is set when the build file itself changed.
	Config bool
}

func (c *Change) add(path string, config bool) {
	if !slices.Contains(c.Paths, path) {
		c.Paths = append(c.Paths, path)
	}
	c.Config = c.Config || config
}

func (c *Change) empty() bool { return len(c.Paths) == 0 }

// RebuildFunc runs one rebuild. Calls never overlap.
type RebuildFunc func(ctx context.Context, change Change)

// Watcher watches directory trees and a config file.
type Watcher struct {
	Roots      []string
	ConfigPath string
	Debounce   time.Duration
	// Ignore lists directory prefixes whose events are dropped, typically
	// the build output.
	Ignore  []string
	Rebuild RebuildFunc
}

// SourceRoots lists every directory whose content feeds a build of graph:
// source and resource roots of all layers plus descriptor roots. Roots
// that do not exist are skipped.
func SourceRoots(graph *modgraph.Graph) []string {
	var out []string
	add := func(dirs ...string) {
		for _, d := range dirs {
			if info, err := os.Stat(d); err == nil && info.IsDir() && !slices.Contains(out, d) {
				out = append(out, d)
			}
		}
	}
	for _, p := range graph.Projects() {
		add(p.Base.SourceRoots...)
		add(p.Base.ResourceRoots...)
		for _, l := range p.SortedLayers() {
			add(l.SourceRoots...)
			add(l.ResourceRoots...)
		}
		if p.HasDescriptor() {
			add(p.Descriptor.Root)
		}
	}
	return out
}

// Run watches until ctx is done. Events are collected for the debounce
// interval; a change arriving while a rebuild runs is delivered right
// after it.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "create file watcher").Build()
	}
	defer func() { _ = fw.Close() }()

	for _, root := range w.Roots {
		addDirsRecursive(fw, root)
	}
	configPath := ""
	if w.ConfigPath != "" {
		configPath, _ = filepath.Abs(w.ConfigPath)
		if err := fw.Add(filepath.Dir(configPath)); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "watch config directory").
				WithContext(errors.ContextPath, configPath).
				Build()
		}
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	slog.Info("Watching for changes",
		logfields.Count(len(w.Roots)),
		logfields.Path(configPath),
		slog.Duration("debounce", debounce))

	var (
		pending  Change
		due      bool
		busy     bool
		timer    *time.Timer
		timerC   <-chan time.Time
		finished = make(chan struct{}, 1)
	)
	start := func() {
		change := pending
		pending, due, busy = Change{}, false, true
		go func() {
			w.Rebuild(ctx, change)
			finished <- struct{}{}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			if busy {
				<-finished
			}
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			isConfig := configPath != "" && filepath.Clean(ev.Name) == configPath
			if !isConfig && !w.relevant(ev.Name, configPath) {
				continue
			}
			if ev.Op&fsnotify.Create == fsnotify.Create {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					addDirsRecursive(fw, ev.Name)
				}
			}
			slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			pending.add(ev.Name, isConfig)
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			timerC = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(err))

		case <-timerC:
			timerC = nil
			if pending.empty() {
				continue
			}
			if busy {
				due = true
				continue
			}
			start()

		case <-finished:
			busy = false
			if due && !pending.empty() {
				start()
			}
		}
	}
}

// relevant drops events outside the watched roots (the config directory
// reports its siblings too), in ignored trees, or on editor scratch files.
func (w *Watcher) relevant(path, configPath string) bool {
	if shouldIgnoreEvent(path) {
		return false
	}
	for _, prefix := range w.Ignore {
		if within(path, prefix) {
			return false
		}
	}
	for _, root := range w.Roots {
		if within(path, root) {
			return true
		}
	}
	return false
}

func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func addDirsRecursive(w *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.Add(path); err != nil {
				slog.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
}

// shouldIgnoreEvent reports hidden, editor swap and lock files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
