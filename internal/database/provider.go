package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Opener creates a persister from a backend-specific target (path or DSN).
type Opener func(ctx context.Context, target string) (Persister, error)

var (
	backendsMu sync.RWMutex
	backends   = map[string]Opener{
		BackendFile: func(_ context.Context, target string) (Persister, error) {
			return NewFileStore(target)
		},
	}
)

// BackendFile is the built-in file backend.
const BackendFile = "file"

// RegisterBackend registers a persister constructor under name.
// This is called by the postgres and mariadb packages to avoid import cycles.
func RegisterBackend(name string, open Opener) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = open
}

// Backends returns the registered backend names in sorted order.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open creates a persister for the named backend.
func Open(ctx context.Context, backend, target string) (Persister, error) {
	backendsMu.RLock()
	open, ok := backends[backend]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown storage backend %q (registered: %v)", backend, Backends())
	}
	if target == "" {
		return nil, fmt.Errorf("storage backend %q requires a target", backend)
	}
	p, err := open(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("opening %s backend: %w", backend, err)
	}
	return p, nil
}
