// Package cssextract collects stylesheets marked by css-extract-loader into
// one content-hashed CSS chunk.
package cssextract

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/evanw/esbuild/pkg/api"

	"git.home.luguber.info/inful/assetpack/internal/assets"
	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/loader"
	"git.home.luguber.info/inful/assetpack/internal/logfields"
	"git.home.luguber.info/inful/assetpack/internal/plugin"
)

// Options configure the css-extract plugin.
type Options struct {
	Filename string `yaml:"filename"`
	Chunk    string `yaml:"chunk"`
}

// Plugin gathers extracted stylesheets during the asset hook.
type Plugin struct {
	opts    Options
	modules []*loader.Module
}

// New returns the plugin with defaults applied.
func New(opts Options) *Plugin {
	if opts.Filename == "" {
		opts.Filename = config.DefaultCSSFilename
	}
	if opts.Chunk == "" {
		opts.Chunk = "main"
	}
	return &Plugin{opts: opts}
}

// Factory builds the plugin from configuration options.
func Factory(options map[string]any) (plugin.Plugin, error) {
	var opts Options
	if err := plugin.DecodeOptions(options, &opts); err != nil {
		return nil, err
	}
	return New(opts), nil
}

func (p *Plugin) Name() string { return config.PluginCSSExtract }

func (p *Plugin) OnStart(_ context.Context, _ *plugin.BuildContext) error {
	p.modules = nil
	return nil
}

func (p *Plugin) OnAsset(_ context.Context, bc *plugin.BuildContext) error {
	if bc.Current != nil && bc.Current.Extract {
		p.modules = append(p.modules, bc.Current)
	}
	return nil
}

// OnFinalize writes the stylesheet chunk: CSS the linker produced for package
// stylesheets first, then extracted modules the entry reaches, in path order,
// with local url() references pointing at emitted assets.
func (p *Plugin) OnFinalize(_ context.Context, bc *plugin.BuildContext) error {
	reached := p.modules[:0]
	for _, m := range p.modules {
		if bc.Reached(m) {
			reached = append(reached, m)
		} else {
			bc.Logger.Debug("Stylesheet not imported by the entry; skipped", logfields.Module(m.RelPath))
		}
	}
	p.modules = reached
	if len(p.modules) == 0 && len(bc.LinkedCSS) == 0 {
		return nil
	}
	sort.SliceStable(p.modules, func(i, j int) bool { return p.modules[i].RelPath < p.modules[j].RelPath })

	var buf bytes.Buffer
	if len(bc.LinkedCSS) > 0 {
		buf.Write(bc.LinkedCSS)
		if bc.LinkedCSS[len(bc.LinkedCSS)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	for _, m := range p.modules {
		css := loader.RewriteCSS(m.CSS, func(ref string) (string, bool) {
			return bc.AssetURL(m, ref)
		})
		buf.Write(css)
		if len(css) > 0 && css[len(css)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	content := buf.Bytes()

	if bc.Config.Mode == config.ModeProduction {
		result := api.Transform(string(content), api.TransformOptions{
			Loader:            api.LoaderCSS,
			MinifyWhitespace:  true,
			MinifySyntax:      true,
			MinifyIdentifiers: true,
		})
		if len(result.Errors) > 0 {
			return fmt.Errorf("minify stylesheet: %w", loader.MessagesError(result.Errors))
		}
		content = result.Code
	}

	file := assets.Filename(p.opts.Filename, p.opts.Chunk, content)
	bc.Outputs.Set(file, content)
	bc.AddChunk(plugin.Chunk{Name: p.opts.Chunk, Kind: plugin.ChunkCSS, File: file})
	bc.Logger.Debug("Extracted stylesheet", logfields.Output(file), logfields.Count(len(p.modules)))
	return nil
}
