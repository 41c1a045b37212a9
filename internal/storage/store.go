// Package storage keeps content-addressed records of assembled artifacts.
//
// Each artifact is recorded under its normalized digest together with an
// index of its entries, and a named ref per module points at the digest
// of the last written artifact. Comparing a new digest with the ref tells
// the build whether an artifact's content changed.
package storage

import (
	"context"
	"errors"
	"time"
)

// ObjectStore provides content-addressable storage for artifact records.
type ObjectStore interface {
	// Put stores an object and returns its hash. An existing object is kept.
	Put(ctx context.Context, obj *Object) (hash string, err error)

	// Get retrieves an object by hash, or ErrNotFound.
	Get(ctx context.Context, hash string) (*Object, error)

	Exists(ctx context.Context, hash string) (bool, error)

	// Delete removes an object by hash, or returns ErrNotFound.
	Delete(ctx context.Context, hash string) error

	// List returns all hashes of the given type; empty type lists all.
	List(ctx context.Context, objectType ObjectType) ([]string, error)

	Close() error
}

// RefStore maps names to object hashes.
type RefStore interface {
	SetRef(ctx context.Context, name, hash string) error
	// Ref returns the hash a name points at, or "" when unset.
	Ref(ctx context.Context, name string) (string, error)
	Refs(ctx context.Context) (map[string]string, error)
}

// Store combines objects and refs.
type Store interface {
	ObjectStore
	RefStore
}

// Object represents a stored record with its metadata.
type Object struct {
	// Hash is the content hash. When empty, Put uses the SHA-256 of Data.
	Hash     string
	Type     ObjectType
	Size     int64
	Data     []byte
	Metadata Metadata
}

// Metadata stores object metadata.
type Metadata struct {
	CreatedAt time.Time
	Custom    map[string]string
}

// ObjectType identifies the kind of stored object.
type ObjectType string

const (
	// ObjectTypeArtifact is the entry index of a module artifact.
	ObjectTypeArtifact ObjectType = "artifact"

	// ObjectTypeSources is the entry index of a sources artifact.
	ObjectTypeSources ObjectType = "sources"

	// ObjectTypeJavadoc is the entry index of a documentation artifact.
	ObjectTypeJavadoc ObjectType = "javadoc"
)

// ErrNotFound is returned when an object doesn't exist.
type ErrNotFound struct {
	Hash string
}

func (e ErrNotFound) Error() string {
	return "object not found: " + e.Hash
}

// IsNotFound reports whether err is an ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// ArtifactRef is the ref name tracking a module's artifact.
func ArtifactRef(module string) string { return "artifacts/" + module }

// SourcesRef is the ref name tracking a module's sources artifact.
func SourcesRef(module string) string { return "sources/" + module }

// JavadocRef is the ref name tracking a module's documentation artifact.
func JavadocRef(module string) string { return "javadoc/" + module }

// Record stores obj and moves ref to it, reporting whether the ref pointed
// somewhere else before.
func Record(ctx context.Context, s Store, ref string, obj *Object) (changed bool, err error) {
	hash, err := s.Put(ctx, obj)
	if err != nil {
		return false, err
	}
	prev, err := s.Ref(ctx, ref)
	if err != nil {
		return false, err
	}
	if prev == hash {
		return false, nil
	}
	if err := s.SetRef(ctx, ref, hash); err != nil {
		return false, err
	}
	return true, nil
}

// GC deletes objects no ref points at and returns how many were removed.
func GC(ctx context.Context, s Store) (int, error) {
	refs, err := s.Refs(ctx)
	if err != nil {
		return 0, err
	}
	live := make(map[string]bool, len(refs))
	for _, h := range refs {
		live[h] = true
	}
	all, err := s.List(ctx, "")
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, h := range all {
		if live[h] {
			continue
		}
		if err := s.Delete(ctx, h); err != nil && !IsNotFound(err) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
