package config

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Snapshot computes a stable hash of the fields that affect build output.
// Rule and plugin order is significant and kept. Dev server settings are
// left out so that changing the port does not look like a new build.
func (c *Config) Snapshot() string {
	if c == nil {
		return ""
	}
	h := sha256.New()
	w := func(parts ...string) { h.Write([]byte(strings.Join(parts, "="))); h.Write([]byte{0}) }

	w("mode", string(c.Mode))
	w("context", c.SourceRoot())
	w("entry", c.Entry)
	w("devtool", string(c.Devtool))

	w("output.path", c.Output.Path)
	w("output.filename", c.Output.Filename)
	w("output.asset_module_filename", c.Output.AssetModuleFilename)
	w("output.public_path", c.Output.PublicPath)
	w("output.clean", strconv.FormatBool(c.Output.Clean))

	w("module.unmatched", string(c.Module.Unmatched))
	w("module.rule_precedence", string(c.Module.Precedence))
	for i, r := range c.Module.Rules {
		p := "module.rules." + strconv.Itoa(i)
		w(p+".test", r.Test)
		w(p+".glob", r.Glob)
		w(p+".exclude", r.Exclude)
		w(p+".type", string(r.Type))
		w(p+".data_url_max_size", strconv.Itoa(r.Parser.DataURLMaxSize))
		for j, u := range r.Use {
			w(p+".use."+strconv.Itoa(j), u.Loader, optionsKey(u.Options))
		}
	}
	for i, pl := range c.Plugins {
		w("plugins."+strconv.Itoa(i), pl.Name, optionsKey(pl.Options))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// optionsKey renders options with sorted keys.
func optionsKey(opts map[string]any) string {
	if len(opts) == 0 {
		return ""
	}
	b, err := yaml.Marshal(opts)
	if err != nil {
		return ""
	}
	return string(b)
}

// Overrides are command-line values that take precedence over the file.
type Overrides struct {
	Mode       string
	Entry      string
	OutputPath string
	Port       int
	NoHot      bool
}

// ApplyOverrides sets every non-zero override on c and re-validates it.
func (c *Config) ApplyOverrides(o Overrides) error {
	if o.Mode != "" {
		m, _ := modes.Normalize(Mode(o.Mode))
		if m != c.Mode {
			c.retargetImageRule(c.Mode, m)
		}
		c.Mode = m
	}
	if o.Entry != "" {
		c.Entry = o.Entry
	}
	if o.OutputPath != "" {
		c.Output.Path = o.OutputPath
	}
	if o.Port != 0 {
		c.DevServer.Port = o.Port
	}
	if o.NoHot {
		c.DevServer.Hot = false
	}
	return c.Validate()
}
