package plugin

import (
	"context"
	"fmt"
	"sync"

	"git.home.luguber.info/inful/assetpack/internal/logfields"
)

// Registry holds plugins in registration order.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	index   map[string]int
}

// NewRegistry creates a new empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register appends a plugin. Nil plugins, empty names and duplicates are rejected.
func (r *Registry) Register(p Plugin) error {
	if p == nil {
		return fmt.Errorf("cannot register nil plugin")
	}
	name := p.Name()
	if name == "" {
		return fmt.Errorf("plugin name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[name]; exists {
		return fmt.Errorf("plugin %s already registered", name)
	}
	r.index[name] = len(r.plugins)
	r.plugins = append(r.plugins, p)
	return nil
}

// RunHook invokes point on every plugin implementing it, in registration
// order. The first failure stops the run and is returned as *PluginError.
func (r *Registry) RunHook(ctx context.Context, point HookPoint, bc *BuildContext) error {
	if !point.IsValid() {
		return fmt.Errorf("unknown hook point %q", point)
	}

	r.mu.RLock()
	plugins := make([]Plugin, len(r.plugins))
	copy(plugins, r.plugins)
	r.mu.RUnlock()

	for _, p := range plugins {
		if !Implements(p, point) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if bc != nil && bc.Logger != nil {
			bc.Logger.Debug("Running plugin hook", logfields.Plugin(p.Name()), logfields.Hook(string(point)))
		}
		if err := safeInvoke(ctx, p, point, bc); err != nil {
			return NewPluginError(p.Name(), string(point), err)
		}
	}
	return nil
}

func safeInvoke(ctx context.Context, p Plugin, point HookPoint, bc *BuildContext) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return invoke(ctx, p, point, bc)
}

// Get returns the plugin registered under name.
func (r *Registry) Get(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.plugins[i], true
}

// Names lists plugin names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.plugins))
	for i, p := range r.plugins {
		out[i] = p.Name()
	}
	return out
}

// Has checks if a plugin with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[name]
	return ok
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}
