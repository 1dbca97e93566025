package loader

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Loader transforms a module in place.
type Loader interface {
	Name() string
	Load(ctx context.Context, m *Module, opts Options) error
}

// Func adapts a function to the Loader interface.
type Func struct {
	LoaderName string
	Fn         func(ctx context.Context, m *Module, opts Options) error
}

func (f Func) Name() string { return f.LoaderName }

func (f Func) Load(ctx context.Context, m *Module, opts Options) error { return f.Fn(ctx, m, opts) }

// Options are the per-rule options of one loader.
type Options map[string]any

// Bool returns the option as a bool; missing or mistyped values are false.
func (o Options) Bool(key string) bool {
	b, _ := o[key].(bool)
	return b
}

// String returns the option as a string or def.
func (o Options) String(key, def string) string {
	if s, ok := o[key].(string); ok && s != "" {
		return s
	}
	return def
}

// Registry holds the loaders a rule may name.
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]Loader
}

// NewRegistry creates an empty loader registry.
func NewRegistry() *Registry {
	return &Registry{loaders: make(map[string]Loader)}
}

// Register adds a loader. Names must be unique.
func (r *Registry) Register(l Loader) error {
	if l == nil {
		return fmt.Errorf("cannot register nil loader")
	}
	name := l.Name()
	if name == "" {
		return fmt.Errorf("loader name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.loaders[name]; exists {
		return fmt.Errorf("loader %s already registered", name)
	}
	r.loaders[name] = l
	return nil
}

// Get returns the loader registered under name.
func (r *Registry) Get(name string) (Loader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.loaders[name]
	return l, ok
}

// Names lists registered loaders alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.loaders))
	for n := range r.loaders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
