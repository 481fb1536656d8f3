package swing

import "sync"

// Bundle is the named set of source files composing one playground. Keys are
// unique and insertion order is preserved, matching the ordering contract of
// the external content store. Safe for concurrent use: role updates may land
// from independent change handlers at the same time.
type Bundle struct {
	mu    sync.RWMutex
	id    string
	names []string
	files map[string]string
}

// NewBundle creates an empty bundle with the given content-store identifier.
func NewBundle(id string) *Bundle {
	return &Bundle{
		id:    id,
		files: make(map[string]string),
	}
}

// ID returns the owning content-bundle identifier.
func (b *Bundle) ID() string {
	return b.id
}

// Get returns the content of the named file.
func (b *Bundle) Get(name string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	content, ok := b.files[name]
	return content, ok
}

// Has reports whether the bundle contains the named file.
func (b *Bundle) Has(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.files[name]
	return ok
}

// Set stores content under name, appending the name to the ordering on first
// insert.
func (b *Bundle) Set(name, content string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.files[name]; !ok {
		b.names = append(b.names, name)
	}
	b.files[name] = content
}

// Delete removes the named file if present.
func (b *Bundle) Delete(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleteLocked(name)
}

func (b *Bundle) deleteLocked(name string) {
	if _, ok := b.files[name]; !ok {
		return
	}
	delete(b.files, name)
	for i, n := range b.names {
		if n == name {
			b.names = append(b.names[:i], b.names[i+1:]...)
			break
		}
	}
}

// Rename moves content from oldName to newName, preserving content. The new
// entry takes the old entry's position in the ordering. Renaming to an
// existing name overwrites it.
func (b *Bundle) Rename(oldName, newName string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	content, ok := b.files[oldName]
	if !ok || oldName == newName {
		return ok && oldName == newName
	}
	b.deleteLocked(newName)
	for i, n := range b.names {
		if n == oldName {
			b.names[i] = newName
			break
		}
	}
	delete(b.files, oldName)
	b.files[newName] = content
	return true
}

// Names returns the file names in insertion order. The returned slice is a
// copy.
func (b *Bundle) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}

// Len returns the number of files in the bundle.
func (b *Bundle) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.names)
}
