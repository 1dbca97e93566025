package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/gobwas/glob"

	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
)

// Validate checks the configuration and returns the first problem as a classified error.
func (c *Config) Validate() error {
	if !c.Mode.IsValid() {
		return errors.ValidationError(fmt.Sprintf("unknown mode %q", c.Mode)).
			WithContext("allowed", []string{string(ModeDevelopment), string(ModeProduction)}).
			Build()
	}
	if strings.TrimSpace(c.Entry) == "" {
		return errors.ValidationError("entry must not be empty").Build()
	}
	switch c.Devtool {
	case "", DevtoolNone, DevtoolSourceMap, DevtoolInlineSourceMap:
	default:
		return errors.ValidationError(fmt.Sprintf("unknown devtool %q", c.Devtool)).Build()
	}
	if err := c.Output.validate(); err != nil {
		return err
	}
	if err := c.Module.validate(); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(c.Plugins))
	for i, p := range c.Plugins {
		if strings.TrimSpace(p.Name) == "" {
			return errors.ValidationError("plugin name must not be empty").WithContext("plugin_index", i).Build()
		}
		if _, dup := seen[p.Name]; dup {
			return errors.ValidationError(fmt.Sprintf("duplicate plugin %q", p.Name)).WithContext("plugin_index", i).Build()
		}
		seen[p.Name] = struct{}{}
	}
	if c.DevServer.Port <= 0 || c.DevServer.Port > 65535 {
		return errors.ValidationError(fmt.Sprintf("dev_server.port must be between 1 and 65535, got %d", c.DevServer.Port)).Build()
	}
	if c.Parallelism < 0 {
		return errors.ValidationError("parallelism must not be negative").Build()
	}
	return nil
}

func (o OutputConfig) validate() error {
	if strings.TrimSpace(o.Path) == "" {
		return errors.ValidationError("output.path must not be empty").Build()
	}
	for _, f := range []struct{ field, v string }{
		{"output.filename", o.Filename},
		{"output.asset_module_filename", o.AssetModuleFilename},
	} {
		field, v := f.field, f.v
		if strings.TrimSpace(v) == "" {
			return errors.ValidationError(field + " must not be empty").Build()
		}
		if filepath.IsAbs(v) || strings.Contains(filepath.ToSlash(v), "../") {
			return errors.ValidationError(field+" must stay inside the output directory").
				WithContext("value", v).
				Build()
		}
	}
	return nil
}

func (m ModuleConfig) validate() error {
	switch m.Unmatched {
	case "", UnmatchedPassthrough, UnmatchedIgnore, UnmatchedReject:
	default:
		return errors.ValidationError(fmt.Sprintf("unknown module.unmatched policy %q", m.Unmatched)).Build()
	}
	switch m.Precedence {
	case "", PrecedenceFirst, PrecedenceLast:
	default:
		return errors.ValidationError(fmt.Sprintf("unknown module.rule_precedence %q", m.Precedence)).Build()
	}
	for i, r := range m.Rules {
		if err := r.validate(); err != nil {
			if ce, ok := errors.AsClassified(err); ok {
				return ce.WithContext("rule_index", i)
			}
			return err
		}
	}
	return nil
}

func (r RuleConfig) validate() error {
	if r.Test == "" && r.Glob == "" {
		return errors.RuleError("rule needs a test pattern or a glob").Build()
	}
	for _, f := range []struct{ field, expr string }{{"test", r.Test}, {"exclude", r.Exclude}} {
		field, expr := f.field, f.expr
		if expr == "" {
			continue
		}
		if _, err := regexp.Compile(expr); err != nil {
			return errors.WrapError(err, errors.CategoryRule, fmt.Sprintf("invalid %s pattern", field)).
				Fatal().UserAction().
				WithContext("pattern", expr).
				Build()
		}
	}
	if r.Glob != "" {
		if _, err := glob.Compile(r.Glob, '/'); err != nil {
			return errors.WrapError(err, errors.CategoryRule, "invalid glob pattern").
				Fatal().UserAction().
				WithContext("pattern", r.Glob).
				Build()
		}
	}
	if len(r.Use) == 0 && r.Type == "" {
		return errors.RuleError("rule needs a loader chain (use) or a module type").Build()
	}
	if !r.Type.IsValid() {
		return errors.RuleError(fmt.Sprintf("unknown module type %q", r.Type)).Build()
	}
	for _, u := range r.Use {
		if strings.TrimSpace(u.Loader) == "" {
			return errors.RuleError("loader name must not be empty").Build()
		}
	}
	if r.Parser.DataURLMaxSize < 0 {
		return errors.RuleError("parser.data_url_max_size must not be negative").Build()
	}
	return nil
}

// SourceRoot is the directory walked by a build: Context, or the entry's directory.
func (c *Config) SourceRoot() string {
	if c.Context != "" {
		return filepath.Clean(c.Context)
	}
	return filepath.Dir(filepath.Clean(c.Entry))
}

// EffectiveParallelism is Parallelism, or GOMAXPROCS when unset.
func (c *Config) EffectiveParallelism() int {
	if c.Parallelism > 0 {
		return c.Parallelism
	}
	return runtime.GOMAXPROCS(0)
}

// applyServe makes the hot-reload plugin present exactly when serve is set.
func (c *Config) applyServe(serve bool) {
	has := c.HasPlugin(PluginHotReload)
	switch {
	case serve && !has:
		c.Plugins = append(c.Plugins, PluginConfig{Name: PluginHotReload})
	case !serve && has:
		kept := c.Plugins[:0]
		for _, p := range c.Plugins {
			if p.Name != PluginHotReload {
				kept = append(kept, p)
			}
		}
		c.Plugins = kept
	}
}
