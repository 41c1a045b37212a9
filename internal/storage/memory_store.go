package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store. Nothing survives the process.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*Object
	refs    map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]*Object),
		refs:    make(map[string]string),
	}
}

func (m *MemoryStore) Put(_ context.Context, obj *Object) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hash := obj.Hash
	if hash == "" {
		h := sha256.Sum256(obj.Data)
		hash = hex.EncodeToString(h[:])
	}
	if _, ok := m.objects[hash]; ok {
		return hash, nil
	}
	stored := &Object{
		Hash:     hash,
		Type:     obj.Type,
		Size:     int64(len(obj.Data)),
		Data:     append([]byte(nil), obj.Data...),
		Metadata: Metadata{CreatedAt: time.Now(), Custom: maps.Clone(obj.Metadata.Custom)},
	}
	m.objects[hash] = stored
	return hash, nil
}

func (m *MemoryStore) Get(_ context.Context, hash string) (*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[hash]
	if !ok {
		return nil, ErrNotFound{Hash: hash}
	}
	cp := *obj
	cp.Data = append([]byte(nil), obj.Data...)
	return &cp, nil
}

func (m *MemoryStore) Exists(_ context.Context, hash string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[hash]
	return ok, nil
}

func (m *MemoryStore) Delete(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[hash]; !ok {
		return ErrNotFound{Hash: hash}
	}
	delete(m.objects, hash)
	return nil
}

func (m *MemoryStore) List(_ context.Context, objectType ObjectType) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for h, obj := range m.objects {
		if objectType == "" || obj.Type == objectType {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) SetRef(_ context.Context, name, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs[name] = hash
	return nil
}

func (m *MemoryStore) Ref(_ context.Context, name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refs[name], nil
}

func (m *MemoryStore) Refs(_ context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.refs), nil
}
