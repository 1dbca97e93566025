package plugin

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
)

// Factory builds a plugin from its configured options.
type Factory func(options map[string]any) (Plugin, error)

// Factories maps plugin names to factories.
type Factories struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewFactories creates an empty factory table.
func NewFactories() *Factories {
	return &Factories{factories: make(map[string]Factory)}
}

// RegisterFactory adds a factory under name.
func (f *Factories) RegisterFactory(name string, fn Factory) error {
	if name == "" || fn == nil {
		return fmt.Errorf("factory needs a name and a constructor")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.factories[name]; exists {
		return fmt.Errorf("plugin factory %s already registered", name)
	}
	f.factories[name] = fn
	return nil
}

// Names lists the known plugin names alphabetically.
func (f *Factories) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.factories))
	for n := range f.factories {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Instantiate builds one plugin per configuration entry, in configuration order.
func (f *Factories) Instantiate(cfgs []config.PluginConfig) ([]Plugin, error) {
	out := make([]Plugin, 0, len(cfgs))
	for _, pc := range cfgs {
		f.mu.RLock()
		fn, ok := f.factories[pc.Name]
		f.mu.RUnlock()
		if !ok {
			return nil, errors.ConfigError(fmt.Sprintf("unknown plugin %q", pc.Name)).
				WithContext("available", f.Names()).
				Build()
		}
		p, err := fn(pc.Options)
		if err != nil {
			return nil, errors.WrapError(NewPluginError(pc.Name, "configure", err), errors.CategoryConfig, "invalid plugin options").
				Fatal().UserAction().
				WithContext("plugin", pc.Name).
				Build()
		}
		out = append(out, p)
	}
	return out, nil
}

// NewRegistry instantiates cfgs and registers them in order.
func (f *Factories) NewRegistry(cfgs []config.PluginConfig) (*Registry, error) {
	plugins, err := f.Instantiate(cfgs)
	if err != nil {
		return nil, err
	}
	r := NewRegistry()
	for _, p := range plugins {
		if err := r.Register(p); err != nil {
			return nil, errors.WrapError(err, errors.CategoryConfig, "failed to register plugin").Build()
		}
	}
	return r, nil
}

// DecodeOptions copies an options map into a typed struct using its yaml tags.
func DecodeOptions(options map[string]any, out any) error {
	if len(options) == 0 {
		return nil
	}
	b, err := yaml.Marshal(options)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	return dec.Decode(out)
}
