package localefile

import (
	"fmt"
	"sort"
	"sync"
)

// Backend converts between raw file bytes and the Document model for one
// locale file format.
type Backend interface {
	// Name is the format identifier used in the configuration.
	Name() string
	// Extensions lists the file extensions the backend claims, dot included.
	Extensions() []string
	// Parse decodes file content into a Document.
	Parse(data []byte) (*Document, error)
	// Marshal serializes a Document back to file content.
	Marshal(doc *Document) ([]byte, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Backend)
)

// Register makes a backend available under its name. Backends register
// themselves from init; registering the same name twice panics.
func Register(b Backend) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[b.Name()]; dup {
		panic(fmt.Sprintf("localefile: backend %q registered twice", b.Name()))
	}
	registry[b.Name()] = b
}

// Lookup returns the backend registered under name.
func Lookup(name string) (Backend, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	b, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("no locale file backend %q", name)
	}
	return b, nil
}

// Formats returns the sorted names of all registered backends.
func Formats() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
