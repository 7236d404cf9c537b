package asset

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Loader produces a concrete Asset for a normalized path. The Cache calls it
// at most once per cold path.
type Loader interface {
	Load(ctx context.Context, path string) (Asset, error)
}

// LoaderFunc adapts a plain function to the Loader interface.
type LoaderFunc func(ctx context.Context, path string) (Asset, error)

func (f LoaderFunc) Load(ctx context.Context, path string) (Asset, error) {
	return f(ctx, path)
}

// Mux dispatches loads to the Loader registered for the path's extension.
type Mux struct {
	mu      sync.RWMutex
	loaders map[string]Loader
}

func NewMux() *Mux {
	return &Mux{loaders: make(map[string]Loader)}
}

// Handle registers l for every extension in exts ("png", ".PNG" and "png" are
// equivalent). A later registration replaces an earlier one.
func (m *Mux) Handle(l Loader, exts ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ext := range exts {
		m.loaders[strings.ToLower(strings.TrimPrefix(ext, "."))] = l
	}
}

// Extensions lists the registered extensions in sorted order.
func (m *Mux) Extensions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.loaders))
	for ext := range m.loaders {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func (m *Mux) Load(ctx context.Context, path string) (Asset, error) {
	ext := Extension(path)

	m.mu.RLock()
	l, ok := m.loaders[ext]
	m.mu.RUnlock()

	if !ok {
		return nil, &LoadError{Path: path, Cause: fmt.Errorf("%w %q", ErrNoLoader, ext)}
	}
	return l.Load(ctx, path)
}
