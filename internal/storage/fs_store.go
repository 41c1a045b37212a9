package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
)

// FSStore is a filesystem-based Store with this layout:
//
//	<state>/
//	  objects/
//	    ab/
//	      cd1234...            (first 2 chars = subdir, rest = filename)
//	      cd1234....meta.json
//	  refs/
//	    artifacts/
//	      org.example.core     (file containing the object hash)
type FSStore struct {
	basePath string
	mu       sync.RWMutex
	now      func() time.Time
}

// NewFSStore creates the store layout under basePath.
func NewFSStore(basePath string) (*FSStore, error) {
	for _, dir := range []string{
		filepath.Join(basePath, "objects"),
		filepath.Join(basePath, "refs"),
	} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fsErr(err, "create store directory", dir)
		}
	}
	return &FSStore{basePath: basePath, now: time.Now}, nil
}

// Put stores an object and returns its content hash.
func (s *FSStore) Put(_ context.Context, obj *Object) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := obj.Hash
	if hash == "" {
		h := sha256.Sum256(obj.Data)
		hash = hex.EncodeToString(h[:])
	}

	objectPath := s.objectPath(hash)
	if _, err := os.Stat(objectPath); err == nil {
		return hash, nil
	}
	if err := os.MkdirAll(filepath.Dir(objectPath), 0o750); err != nil {
		return "", fsErr(err, "create object directory", objectPath)
	}
	if err := os.WriteFile(objectPath, obj.Data, 0o600); err != nil {
		return "", fsErr(err, "write object", objectPath)
	}

	metadata := Metadata{CreatedAt: s.now(), Custom: make(map[string]string)}
	maps.Copy(metadata.Custom, obj.Metadata.Custom)
	metadata.Custom["object_type"] = string(obj.Type)
	if err := s.writeMetadata(hash, metadata); err != nil {
		return hash, err
	}
	return hash, nil
}

// Get retrieves an object by its content hash.
func (s *FSStore) Get(_ context.Context, hash string) (*Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objectPath := s.objectPath(hash)
	// #nosec G304 - objectPath is internal, constructed from the hash
	data, err := os.ReadFile(objectPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound{Hash: hash}
		}
		return nil, fsErr(err, "read object", objectPath)
	}

	metadata, err := s.readMetadata(hash)
	if err != nil {
		metadata = Metadata{Custom: map[string]string{}}
	}
	return &Object{
		Hash:     hash,
		Type:     ObjectType(metadata.Custom["object_type"]),
		Size:     int64(len(data)),
		Data:     data,
		Metadata: metadata,
	}, nil
}

// Exists checks if an object with the given hash exists.
func (s *FSStore) Exists(_ context.Context, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.objectPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fsErr(err, "stat object", s.objectPath(hash))
	}
	return true, nil
}

// Delete removes an object by its content hash.
func (s *FSStore) Delete(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	objectPath := s.objectPath(hash)
	if err := os.Remove(objectPath); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound{Hash: hash}
		}
		return fsErr(err, "delete object", objectPath)
	}
	_ = os.Remove(s.metadataPath(hash))
	_ = os.Remove(filepath.Dir(objectPath)) // only succeeds when empty
	return nil
}

// List returns all object hashes matching the given type filter.
func (s *FSStore) List(_ context.Context, objectType ObjectType) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hashes []string
	objectsDir := filepath.Join(s.basePath, "objects")
	err := filepath.WalkDir(objectsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, ".meta.json") {
			return nil
		}
		rel, err := filepath.Rel(objectsDir, path)
		if err != nil {
			return nil
		}
		hash := strings.ReplaceAll(rel, string(filepath.Separator), "")
		if objectType != "" {
			if md, err := s.readMetadata(hash); err == nil && ObjectType(md.Custom["object_type"]) != objectType {
				return nil
			}
		}
		hashes = append(hashes, hash)
		return nil
	})
	if err != nil {
		return nil, fsErr(err, "walk objects", objectsDir)
	}
	return hashes, nil
}

// Close releases resources.
func (s *FSStore) Close() error { return nil }

// SetRef points name at hash, replacing the ref file atomically.
func (s *FSStore) SetRef(_ context.Context, name, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	refPath := s.refPath(name)
	if err := os.MkdirAll(filepath.Dir(refPath), 0o750); err != nil {
		return fsErr(err, "create ref directory", refPath)
	}
	tmp := refPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(hash+"\n"), 0o600); err != nil {
		return fsErr(err, "write ref", refPath)
	}
	if err := os.Rename(tmp, refPath); err != nil {
		return fsErr(err, "write ref", refPath)
	}
	return nil
}

// Ref returns the hash name points at, or "" when the ref does not exist.
func (s *FSStore) Ref(_ context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refPath := s.refPath(name)
	// #nosec G304 - refPath is internal, constructed from the ref name
	data, err := os.ReadFile(refPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fsErr(err, "read ref", refPath)
	}
	return strings.TrimSpace(string(data)), nil
}

// Refs returns every ref keyed by name.
func (s *FSStore) Refs(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refsDir := filepath.Join(s.basePath, "refs")
	out := map[string]string{}
	err := filepath.WalkDir(refsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || strings.HasSuffix(path, ".tmp") {
			return err
		}
		rel, err := filepath.Rel(refsDir, path)
		if err != nil {
			return nil
		}
		// #nosec G304 - path comes from walking the refs directory
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = strings.TrimSpace(string(data))
		return nil
	})
	if err != nil {
		return nil, fsErr(err, "walk refs", refsDir)
	}
	return out, nil
}

func (s *FSStore) objectPath(hash string) string {
	if len(hash) < 2 {
		return filepath.Join(s.basePath, "objects", hash)
	}
	return filepath.Join(s.basePath, "objects", hash[:2], hash[2:])
}

func (s *FSStore) metadataPath(hash string) string {
	return s.objectPath(hash) + ".meta.json"
}

func (s *FSStore) refPath(name string) string {
	return filepath.Join(s.basePath, "refs", filepath.FromSlash(name))
}

func (s *FSStore) readMetadata(hash string) (Metadata, error) {
	// #nosec G304 - metadataPath is internal, constructed from the hash
	data, err := os.ReadFile(s.metadataPath(hash))
	if err != nil {
		return Metadata{}, err
	}
	var metadata Metadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return Metadata{}, err
	}
	return metadata, nil
}

func (s *FSStore) writeMetadata(hash string, metadata Metadata) error {
	data, err := json.Marshal(metadata)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "marshal object metadata").Build()
	}
	if err := os.WriteFile(s.metadataPath(hash), data, 0o600); err != nil {
		return fsErr(err, "write object metadata", s.metadataPath(hash))
	}
	return nil
}

func fsErr(err error, message, path string) error {
	return errors.WrapError(err, errors.CategoryFileSystem, message).
		WithContext(errors.ContextPath, path).
		Build()
}
