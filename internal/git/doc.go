// Package git reads provenance of the source tree being built: the HEAD
// commit written into artifact manifests and whether the work tree has
// uncommitted changes.
package git
