package config

import (
	"gopkg.in/yaml.v3"
)

// Mode selects development or production behaviour.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// IsValid reports whether m is a known mode.
func (m Mode) IsValid() bool {
	return m == ModeDevelopment || m == ModeProduction
}

// ModuleType is how a matched module is treated once its loaders have run.
type ModuleType string

const (
	TypeJavaScript    ModuleType = "javascript/auto"
	TypeAsset         ModuleType = "asset"
	TypeAssetResource ModuleType = "asset/resource"
	TypeAssetInline   ModuleType = "asset/inline"
	TypeAssetSource   ModuleType = "asset/source"
)

// IsAsset reports whether t is one of the asset module types.
func (t ModuleType) IsAsset() bool {
	switch t {
	case TypeAsset, TypeAssetResource, TypeAssetInline, TypeAssetSource:
		return true
	default:
		return false
	}
}

// IsValid reports whether t is empty (defaults to javascript/auto) or a known type.
func (t ModuleType) IsValid() bool {
	return t == "" || t == TypeJavaScript || t.IsAsset()
}

// Devtool selects source map generation.
type Devtool string

const (
	DevtoolNone            Devtool = "none"
	DevtoolSourceMap       Devtool = "source-map"
	DevtoolInlineSourceMap Devtool = "inline-source-map"
)

// UnmatchedPolicy decides what happens to files no rule claims.
type UnmatchedPolicy string

const (
	UnmatchedPassthrough UnmatchedPolicy = "passthrough"
	UnmatchedIgnore      UnmatchedPolicy = "ignore"
	UnmatchedReject      UnmatchedPolicy = "reject"
)

// Precedence decides which rule wins when several match one file.
type Precedence string

const (
	PrecedenceFirst Precedence = "first"
	PrecedenceLast  Precedence = "last"
)

// Config is the complete build configuration. A build works on its own Clone.
type Config struct {
	Mode        Mode            `yaml:"mode" toml:"mode"`
	Context     string          `yaml:"context,omitempty" toml:"context,omitempty"`
	Entry       string          `yaml:"entry" toml:"entry"`
	Devtool     Devtool         `yaml:"devtool,omitempty" toml:"devtool,omitempty"`
	Output      OutputConfig    `yaml:"output" toml:"output"`
	Module      ModuleConfig    `yaml:"module" toml:"module"`
	Plugins     []PluginConfig  `yaml:"plugins" toml:"plugins"`
	DevServer   DevServerConfig `yaml:"dev_server" toml:"dev_server"`
	Cache       CacheConfig     `yaml:"cache" toml:"cache"`
	Parallelism int             `yaml:"parallelism,omitempty" toml:"parallelism,omitempty"`
}

// OutputConfig controls where and under which names artifacts are written.
type OutputConfig struct {
	Path                string `yaml:"path" toml:"path"`
	Filename            string `yaml:"filename" toml:"filename"`
	AssetModuleFilename string `yaml:"asset_module_filename" toml:"asset_module_filename"`
	PublicPath          string `yaml:"public_path" toml:"public_path"`
	Clean               bool   `yaml:"clean" toml:"clean"`
}

// ModuleConfig holds the loader rules.
type ModuleConfig struct {
	Rules      []RuleConfig    `yaml:"rules" toml:"rules"`
	Unmatched  UnmatchedPolicy `yaml:"unmatched,omitempty" toml:"unmatched,omitempty"`
	Precedence Precedence      `yaml:"rule_precedence,omitempty" toml:"rule_precedence,omitempty"`
}

// RuleConfig maps a file pattern to a loader chain or an asset module type.
type RuleConfig struct {
	Test    string       `yaml:"test,omitempty" toml:"test,omitempty"`
	Glob    string       `yaml:"glob,omitempty" toml:"glob,omitempty"`
	Exclude string       `yaml:"exclude,omitempty" toml:"exclude,omitempty"`
	Use     []LoaderRef  `yaml:"use,omitempty" toml:"use,omitempty"`
	Type    ModuleType   `yaml:"type,omitempty" toml:"type,omitempty"`
	Parser  ParserConfig `yaml:"parser,omitempty" toml:"parser,omitempty"`
}

// ParserConfig tunes asset handling for a rule.
type ParserConfig struct {
	// DataURLMaxSize is the inline threshold in bytes for the "asset" type.
	DataURLMaxSize int `yaml:"data_url_max_size,omitempty" toml:"data_url_max_size,omitempty"`
}

// DefaultDataURLMaxSize is the inline threshold used when a rule sets none.
const DefaultDataURLMaxSize = 8096

// LoaderRef names a loader and its options. In YAML a bare string is accepted.
type LoaderRef struct {
	Loader  string         `yaml:"loader" toml:"loader"`
	Options map[string]any `yaml:"options,omitempty" toml:"options,omitempty"`
}

// UnmarshalYAML accepts either "css-loader" or {loader: css-loader, options: {...}}.
func (l *LoaderRef) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		l.Loader = value.Value
		l.Options = nil
		return nil
	}
	type plain LoaderRef
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*l = LoaderRef(p)
	return nil
}

// MarshalYAML writes option-less loaders back as plain strings.
func (l LoaderRef) MarshalYAML() (any, error) {
	if len(l.Options) == 0 {
		return l.Loader, nil
	}
	type plain LoaderRef
	return plain(l), nil
}

// PluginConfig names a plugin and its options.
type PluginConfig struct {
	Name    string         `yaml:"name" toml:"name"`
	Options map[string]any `yaml:"options,omitempty" toml:"options,omitempty"`
}

// DevServerConfig configures the `serve` command.
type DevServerConfig struct {
	Hot  bool   `yaml:"hot" toml:"hot"`
	Port int    `yaml:"port" toml:"port"`
	Host string `yaml:"host,omitempty" toml:"host,omitempty"`
	// HistoryFallback serves index.html for unknown paths without an extension.
	HistoryFallback bool `yaml:"history_fallback" toml:"history_fallback"`
}

// CacheConfig configures the persistent transpile cache.
type CacheConfig struct {
	Directory string `yaml:"directory" toml:"directory"`
}

// HasPlugin reports whether a plugin with the given name is configured.
func (c *Config) HasPlugin(name string) bool {
	for _, p := range c.Plugins {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so a build can own an immutable view of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Module.Rules != nil {
		cp.Module.Rules = make([]RuleConfig, len(c.Module.Rules))
		for i, r := range c.Module.Rules {
			rc := r
			if r.Use != nil {
				rc.Use = make([]LoaderRef, len(r.Use))
				for j, u := range r.Use {
					rc.Use[j] = LoaderRef{Loader: u.Loader, Options: copyOptions(u.Options)}
				}
			}
			cp.Module.Rules[i] = rc
		}
	}
	if c.Plugins != nil {
		cp.Plugins = make([]PluginConfig, len(c.Plugins))
		for i, p := range c.Plugins {
			cp.Plugins[i] = PluginConfig{Name: p.Name, Options: copyOptions(p.Options)}
		}
	}
	return &cp
}

func copyOptions(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyOptions(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = copyValue(t[i])
		}
		return out
	default:
		return v
	}
}
