// Package store provides content-store implementations for playground
// bundles: an in-memory store for tests and embedded use, and a local
// directory store with change watching for serving playgrounds from disk.
package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory swing.Store. File order within a bundle is
// insertion order.
type MemoryStore struct {
	mu      sync.RWMutex
	bundles map[string]*memBundle
}

type memBundle struct {
	names []string
	files map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bundles: make(map[string]*memBundle)}
}

// Read returns the content of a named file.
func (s *MemoryStore) Read(ctx context.Context, bundleID, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bundles[bundleID]
	if !ok {
		return nil, fmt.Errorf("bundle %q not found", bundleID)
	}
	data, ok := b.files[name]
	if !ok {
		return nil, fmt.Errorf("file %q not found in bundle %q", name, bundleID)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Write stores content under name, creating the bundle on first write.
func (s *MemoryStore) Write(ctx context.Context, bundleID, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bundles[bundleID]
	if !ok {
		b = &memBundle{files: make(map[string][]byte)}
		s.bundles[bundleID] = b
	}
	if _, exists := b.files[name]; !exists {
		b.names = append(b.names, name)
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	b.files[name] = stored
	return nil
}

// Delete removes the named file if present.
func (s *MemoryStore) Delete(ctx context.Context, bundleID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bundles[bundleID]
	if !ok {
		return nil
	}
	if _, exists := b.files[name]; !exists {
		return nil
	}
	delete(b.files, name)
	for i, n := range b.names {
		if n == name {
			b.names = append(b.names[:i], b.names[i+1:]...)
			break
		}
	}
	return nil
}

// List returns the bundle's file names in insertion order.
func (s *MemoryStore) List(ctx context.Context, bundleID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bundles[bundleID]
	if !ok {
		return nil, nil
	}
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out, nil
}

// BundleIDs returns the identifiers of all bundles in the store.
func (s *MemoryStore) BundleIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.bundles))
	for id := range s.bundles {
		ids = append(ids, id)
	}
	return ids
}
