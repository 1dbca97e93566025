// Package hotreload adds the live-reload client to every emitted HTML page.
package hotreload

import (
	"bytes"
	"context"
	"strings"

	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/plugin"
)

// ScriptPath is where the dev server serves the live-reload client.
const ScriptPath = "/__assetpack/livereload.js"

// DataKey is set in the build context while the plugin is active.
const DataKey = "hot-reload"

// Options configure the hot-reload plugin.
type Options struct {
	Script string `yaml:"script"`
}

// Plugin injects the client script.
type Plugin struct {
	script string
}

// New returns the plugin with defaults applied.
func New(opts Options) *Plugin {
	if opts.Script == "" {
		opts.Script = ScriptPath
	}
	return &Plugin{script: opts.Script}
}

// Factory builds the plugin from configuration options.
func Factory(options map[string]any) (plugin.Plugin, error) {
	var opts Options
	if err := plugin.DecodeOptions(options, &opts); err != nil {
		return nil, err
	}
	return New(opts), nil
}

func (p *Plugin) Name() string { return config.PluginHotReload }

func (p *Plugin) OnStart(_ context.Context, bc *plugin.BuildContext) error {
	bc.SetValue(DataKey, true)
	return nil
}

// OnEmit inserts the script tag before the closing body tag of each HTML output.
func (p *Plugin) OnEmit(_ context.Context, bc *plugin.BuildContext) error {
	tag := []byte(`<script src="` + p.script + `"></script>`)
	for _, path := range bc.Outputs.Paths() {
		if !strings.HasSuffix(strings.ToLower(path), ".html") {
			continue
		}
		b, _ := bc.Outputs.Get(path)
		if bytes.Contains(b, []byte(p.script)) {
			continue
		}
		bc.Outputs.Set(path, Inject(b, tag))
	}
	return nil
}

// Inject places tag right before the last </body>, or appends it when the
// document has none.
func Inject(page, tag []byte) []byte {
	idx := bytes.LastIndex(bytes.ToLower(page), []byte("</body>"))
	var out bytes.Buffer
	if idx == -1 {
		out.Write(page)
		out.Write(tag)
		return out.Bytes()
	}
	out.Write(page[:idx])
	out.Write(tag)
	out.Write(page[idx:])
	return out.Bytes()
}
