// Package manifest writes a JSON map from logical names to emitted URLs.
package manifest

import (
	"context"
	"encoding/json"
	"strings"

	"git.home.luguber.info/inful/assetpack/internal/assets"
	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/plugin"
)

// Options configure the manifest plugin.
type Options struct {
	Filename string `yaml:"filename"`
}

// Plugin emits manifest.json.
type Plugin struct {
	filename string
}

// New returns the plugin with defaults applied.
func New(opts Options) *Plugin {
	if opts.Filename == "" {
		opts.Filename = "manifest.json"
	}
	return &Plugin{filename: opts.Filename}
}

// Factory builds the plugin from configuration options.
func Factory(options map[string]any) (plugin.Plugin, error) {
	var opts Options
	if err := plugin.DecodeOptions(options, &opts); err != nil {
		return nil, err
	}
	return New(opts), nil
}

func (p *Plugin) Name() string { return config.PluginManifest }

// OnEmit maps chunk names ("main.js", "main.css") and the source paths of
// emitted asset files to their public URLs. Inlined assets are left out.
func (p *Plugin) OnEmit(_ context.Context, bc *plugin.BuildContext) error {
	publicPath := bc.Config.Output.PublicPath
	entries := make(map[string]string)
	for _, c := range bc.Chunks {
		entries[c.Name+"."+string(c.Kind)] = assets.PublicURL(publicPath, c.File)
	}
	for src, u := range bc.Assets {
		if strings.HasPrefix(u, "data:") {
			continue
		}
		entries[src] = u
	}
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	bc.Outputs.Set(p.filename, append(b, '\n'))
	return nil
}
