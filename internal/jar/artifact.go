// Package jar models a zip-based library artifact as an ordered bag of
// entries and reads and writes it deterministically.
package jar

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
)

const (
	// VersionedPrefix is the reserved segment under which version-aware
	// loaders look for per-baseline overrides.
	VersionedPrefix = "META-INF/versions/"
	// DescriptorName is the fixed file name of a compiled module descriptor.
	DescriptorName = "module-info.class"
	// ManifestPath is the location of the manifest.
	ManifestPath = "META-INF/MANIFEST.MF"
)

// Entry is one file in an artifact.
type Entry struct {
	Path string
	Data []byte
	// Origin names the layer or artifact that produced the entry.
	Origin string
	// DuplicateTolerant allows a later entry at the same path to replace this one.
	DuplicateTolerant bool
}

// Artifact is an ordered bag of entries with at most one entry per path.
type Artifact struct {
	entries  []Entry
	index    map[string]int
	tolerate []string
}

// New returns an empty artifact.
func New() *Artifact {
	return &Artifact{index: make(map[string]int)}
}

// Tolerate marks paths (exact or path.Match patterns) as duplicate-tolerant.
func (a *Artifact) Tolerate(patterns ...string) {
	a.tolerate = append(a.tolerate, patterns...)
}

// Tolerated reports whether p was marked duplicate-tolerant.
func (a *Artifact) Tolerated(p string) bool {
	for _, pattern := range a.tolerate {
		if pattern == p {
			return true
		}
		if ok, _ := path.Match(pattern, p); ok {
			return true
		}
	}
	return false
}

// CleanPath normalises an entry path to slash-separated and relative form.
func CleanPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

// Put adds e. A second entry at an occupied path is a composition error
// unless the path or either entry is duplicate-tolerant, in which case the
// later write replaces the earlier one.
func (a *Artifact) Put(e Entry) error {
	e.Path = CleanPath(e.Path)
	if e.Path == "" || e.Path == "." {
		return errors.CompositionError("empty entry path").
			WithContext("origin", e.Origin).
			Build()
	}
	if i, ok := a.index[e.Path]; ok {
		prev := a.entries[i]
		if !prev.DuplicateTolerant && !e.DuplicateTolerant && !a.Tolerated(e.Path) {
			return errors.CompositionError("ambiguous duplicate entry").
				WithContext(errors.ContextPath, e.Path).
				WithContext("origins", fmt.Sprintf("%s, %s", prev.Origin, e.Origin)).
				Build()
		}
		a.entries[i] = e
		return nil
	}
	a.index[e.Path] = len(a.entries)
	a.entries = append(a.entries, e)
	return nil
}

// Replace sets e unconditionally (last write wins).
func (a *Artifact) Replace(e Entry) {
	e.Path = CleanPath(e.Path)
	if i, ok := a.index[e.Path]; ok {
		a.entries[i] = e
		return
	}
	a.index[e.Path] = len(a.entries)
	a.entries = append(a.entries, e)
}

// Get returns the entry at p.
func (a *Artifact) Get(p string) (Entry, bool) {
	i, ok := a.index[CleanPath(p)]
	if !ok {
		return Entry{}, false
	}
	return a.entries[i], true
}

// Has reports whether an entry exists at p.
func (a *Artifact) Has(p string) bool {
	_, ok := a.index[CleanPath(p)]
	return ok
}

// Remove deletes the entry at p and reports whether it existed.
func (a *Artifact) Remove(p string) bool {
	p = CleanPath(p)
	i, ok := a.index[p]
	if !ok {
		return false
	}
	a.entries = slices.Delete(a.entries, i, i+1)
	delete(a.index, p)
	for j := i; j < len(a.entries); j++ {
		a.index[a.entries[j].Path] = j
	}
	return true
}

// Entries returns the entries in insertion order.
func (a *Artifact) Entries() []Entry {
	return slices.Clone(a.entries)
}

// Paths returns all entry paths, sorted.
func (a *Artifact) Paths() []string {
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Path)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of entries.
func (a *Artifact) Len() int { return len(a.entries) }

// Descriptors returns the paths of every module descriptor, versioned or not.
func (a *Artifact) Descriptors() []string {
	var out []string
	for _, p := range a.Paths() {
		if path.Base(p) == DescriptorName {
			out = append(out, p)
		}
	}
	return out
}

// HasVersionedEntries reports whether anything lives under VersionedPrefix.
func (a *Artifact) HasVersionedEntries() bool {
	for _, e := range a.entries {
		if strings.HasPrefix(e.Path, VersionedPrefix) {
			return true
		}
	}
	return false
}

// VersionedPath returns the path of rel under the prefix for baseline.
func VersionedPath(baseline int, rel string) string {
	return fmt.Sprintf("%s%d/%s", VersionedPrefix, baseline, CleanPath(rel))
}

// SplitVersioned splits a versioned path into baseline and relative path.
func SplitVersioned(p string) (baseline string, rel string, ok bool) {
	if !strings.HasPrefix(p, VersionedPrefix) {
		return "", p, false
	}
	rest := strings.TrimPrefix(p, VersionedPrefix)
	baseline, rel, found := strings.Cut(rest, "/")
	if !found || baseline == "" {
		return "", p, false
	}
	return baseline, rel, true
}

// Manifest parses the manifest entry, if any.
func (a *Artifact) Manifest() (*Manifest, bool, error) {
	e, ok := a.Get(ManifestPath)
	if !ok {
		return nil, false, nil
	}
	m, err := ParseManifest(e.Data)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// SetManifest writes m as the manifest entry.
func (a *Artifact) SetManifest(m *Manifest, origin string) {
	a.Replace(Entry{Path: ManifestPath, Data: m.Bytes(), Origin: origin})
}

// Clone returns an independent copy sharing entry data.
func (a *Artifact) Clone() *Artifact {
	out := &Artifact{
		entries:  slices.Clone(a.entries),
		index:    make(map[string]int, len(a.index)),
		tolerate: slices.Clone(a.tolerate),
	}
	for k, v := range a.index {
		out.index[k] = v
	}
	return out
}

// Tolerances returns the duplicate-tolerant patterns.
func (a *Artifact) Tolerances() []string {
	return slices.Clone(a.tolerate)
}
