// Package plugins wires the built-in plugins into a factory table.
package plugins

import (
	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/plugin"
	"git.home.luguber.info/inful/assetpack/internal/plugins/cssextract"
	"git.home.luguber.info/inful/assetpack/internal/plugins/hotreload"
	"git.home.luguber.info/inful/assetpack/internal/plugins/html"
	"git.home.luguber.info/inful/assetpack/internal/plugins/manifest"
)

// Builtin returns factories for html, css-extract, hot-reload and manifest.
func Builtin() *plugin.Factories {
	f := plugin.NewFactories()
	for name, fn := range map[string]plugin.Factory{
		config.PluginHTML:       html.Factory,
		config.PluginCSSExtract: cssextract.Factory,
		config.PluginHotReload:  hotreload.Factory,
		config.PluginManifest:   manifest.Factory,
	} {
		// Distinct constant names; registration cannot collide.
		_ = f.RegisterFactory(name, fn)
	}
	return f
}
