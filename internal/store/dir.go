package store

import (
	"context"
	"os"
	"path/filepath"
	"sort"
)

// DirStore serves bundles from a local directory tree. The bundle ID is a
// path relative to the root ("" is the root itself); file names never
// traverse outside their bundle directory.
type DirStore struct {
	root string
}

// NewDirStore creates a store rooted at dir.
func NewDirStore(dir string) *DirStore {
	return &DirStore{root: dir}
}

// Root returns the store's root directory.
func (s *DirStore) Root() string {
	return s.root
}

func (s *DirStore) path(bundleID, name string) string {
	return filepath.Join(s.root, filepath.FromSlash(bundleID), filepath.Base(name))
}

// Read returns the content of a named file.
func (s *DirStore) Read(ctx context.Context, bundleID, name string) ([]byte, error) {
	return os.ReadFile(s.path(bundleID, name))
}

// Write stores content under name.
func (s *DirStore) Write(ctx context.Context, bundleID, name string, data []byte) error {
	dir := filepath.Join(s.root, filepath.FromSlash(bundleID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(s.path(bundleID, name), data, 0644)
}

// Delete removes the named file if present.
func (s *DirStore) Delete(ctx context.Context, bundleID, name string) error {
	err := os.Remove(s.path(bundleID, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// List returns the bundle's file names, sorted for a stable order.
func (s *DirStore) List(ctx context.Context, bundleID string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, filepath.FromSlash(bundleID)))
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
