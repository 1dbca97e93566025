package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
)

// DefaultConfigFiles are searched, in order, when no configuration path is given.
var DefaultConfigFiles = []string{"assetpack.yaml", "assetpack.yml", "assetpack.toml"}

// Load reads a YAML or TOML configuration file (chosen by extension), expands
// ${VAR} references and applies it on top of Default(env). Fields absent from
// the file keep their defaults. The result is validated.
func Load(path string, env Env) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewError(errors.CategoryNotFound, "configuration file not found").
				WithCause(err).
				WithContext("path", path).
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read configuration file").
			WithContext("path", path).
			Build()
	}

	cfg, err := Parse(data, formatFor(path), env)
	if err != nil {
		if ce, ok := errors.AsClassified(err); ok {
			return nil, ce.WithContext("path", path)
		}
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path when given, otherwise the first DefaultConfigFiles
// entry that exists, otherwise the validated built-in defaults.
func LoadOrDefault(path string, env Env) (*Config, string, error) {
	if path != "" {
		cfg, err := Load(path, env)
		return cfg, path, err
	}
	for _, candidate := range DefaultConfigFiles {
		if _, err := os.Stat(candidate); err == nil {
			cfg, err := Load(candidate, env)
			return cfg, candidate, err
		}
	}
	cfg := Default(env)
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, "", nil
}

// Format is a configuration file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

func formatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Parse decodes configuration bytes in the given format on top of the defaults for env.
func Parse(data []byte, format Format, env Env) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var raw map[string]any
	var err error
	switch format {
	case FormatTOML:
		err = toml.Unmarshal([]byte(expanded), &raw)
	default:
		err = yaml.Unmarshal([]byte(expanded), &raw)
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse configuration").
			WithContext("format", string(format)).
			Build()
	}

	mode := env.Mode()
	if m, ok := raw["mode"].(string); ok && m != "" {
		mode, _ = modes.Normalize(Mode(m))
	}
	cfg := defaultsFor(mode, env.Serve)

	// Both syntaxes are decoded through one YAML tree so that mixed forms such
	// as use = ["css-loader", {loader = "x"}] behave the same in either format.
	normalized, err := yaml.Marshal(raw)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to normalize configuration").Build()
	}
	if err := yaml.Unmarshal(normalized, cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to decode configuration").Build()
	}
	cfg.normalize()
	cfg.applyServe(env.Serve)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal renders cfg in the given format.
func (c *Config) Marshal(format Format) ([]byte, error) {
	switch format {
	case FormatTOML:
		var buf bytes.Buffer
		enc := toml.NewEncoder(&buf)
		enc.SetIndentTables(true)
		if err := enc.Encode(c); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatYAML, "":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, errors.ValidationError(fmt.Sprintf("unsupported configuration format %q", format)).Build()
	}
}

// Init writes a starter configuration file. An existing file is only replaced when force is set.
func Init(path string, env Env, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).
			Build()
	}
	// The starter never carries the hot-reload plugin; `serve` adds it through SERVE.
	env.Serve = false
	data, err := Default(env).Marshal(formatFor(path))
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to render starter configuration").Build()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to create configuration directory").Build()
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write configuration file").
			WithContext("path", path).
			Build()
	}
	return nil
}
