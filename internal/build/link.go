package build

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"git.home.luguber.info/inful/assetpack/internal/assets"
	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpack/internal/loader"
	"git.home.luguber.info/inful/assetpack/internal/plugin"
)

// EntryChunk is the chunk name of the linked entry bundle.
const EntryChunk = "main"

var cssMapComment = regexp.MustCompile(`/\*# sourceMappingURL=[^*]*\*/\n?`)

// metafile is the part of esbuild's metafile the report uses.
type metafile struct {
	Inputs map[string]json.RawMessage `json:"inputs"`
}

// link bundles the entry into Output.Filename. Modules that went through a
// loader chain are served to esbuild from memory; anything else it resolves
// (node_modules, unmatched files) it loads itself.
func (b *Builder) link(ctx context.Context, bc *plugin.BuildContext, root, outDir string) (int, error) {
	entry, err := filepath.Abs(b.cfg.Entry)
	if err != nil {
		return 0, errors.WrapError(err, errors.CategoryFileSystem, "resolve entry").Build()
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	production := b.cfg.Mode == config.ModeProduction
	opts := api.BuildOptions{
		EntryPoints:       []string{entry},
		AbsWorkingDir:     root,
		Outfile:           filepath.Join(outDir, EntryChunk+".js"),
		Bundle:            true,
		Write:             false,
		Metafile:          true,
		Format:            api.FormatIIFE,
		Platform:          api.PlatformBrowser,
		Target:            api.ES2017,
		JSX:               api.JSXAutomatic,
		MinifyWhitespace:  production,
		MinifyIdentifiers: production,
		MinifySyntax:      production,
		TreeShaking:       api.TreeShakingTrue,
		Sourcemap:         sourceMapFor(b.cfg.Devtool),
		Define: map[string]string{
			"process.env.NODE_ENV": `"` + string(b.cfg.Mode) + `"`,
		},
		LogLevel: api.LogLevelSilent,
		Plugins:  []api.Plugin{modulePlugin(bc.Modules)},
	}

	res := api.Build(opts)
	for _, w := range res.Warnings {
		bc.Warn("link: " + w.Text)
	}
	if len(res.Errors) > 0 {
		return 0, errors.WrapError(loader.MessagesError(res.Errors), errors.CategoryBuild, "link entry").
			Fatal().
			WithContext("entry", b.cfg.Entry).
			Build()
	}

	jsPath := filepath.Join(outDir, EntryChunk+".js")
	cssPath := filepath.Join(outDir, EntryChunk+".css")
	var code, sourceMap, css []byte
	for _, f := range res.OutputFiles {
		switch filepath.Clean(f.Path) {
		case jsPath:
			code = f.Contents
		case jsPath + ".map":
			sourceMap = f.Contents
		case cssPath:
			css = f.Contents
		case cssPath + ".map":
			// Linked CSS joins the extracted stylesheet, which carries no map.
		default:
			return 0, errors.BuildError("unexpected output from linking the entry").
				WithContext("entry", b.cfg.Entry).
				WithContext("output", f.Path).
				Build()
		}
	}
	if code == nil {
		return 0, errors.BuildError("linking the entry produced no bundle").
			WithContext("entry", b.cfg.Entry).
			Build()
	}
	if len(bytes.TrimSpace(css)) > 0 {
		if !b.plugins.Has(config.PluginCSSExtract) {
			return 0, errors.BuildError("entry imports stylesheets but the css-extract plugin is not configured").
				UserAction().
				WithContext("entry", b.cfg.Entry).
				Build()
		}
		bc.LinkedCSS = cssMapComment.ReplaceAll(css, nil)
	}

	name := assets.Filename(b.cfg.Output.Filename, EntryChunk+".js", code)
	if sourceMap != nil {
		mapName := name + ".map"
		code = append(code, []byte("//# sourceMappingURL="+filepath.Base(mapName)+"\n")...)
		bc.Outputs.Set(mapName, sourceMap)
		bc.AddChunk(plugin.Chunk{Name: EntryChunk, Kind: plugin.ChunkMap, File: mapName})
	}
	bc.Outputs.Set(name, code)
	bc.AddChunk(plugin.Chunk{Name: EntryChunk, Kind: plugin.ChunkJS, File: name})

	var meta metafile
	if err := json.Unmarshal([]byte(res.Metafile), &meta); err != nil {
		return 0, errors.WrapError(err, errors.CategoryInternal, "decode esbuild metafile").Build()
	}
	bc.Linked = make(map[string]bool, len(meta.Inputs))
	for in := range meta.Inputs {
		// Inputs outside the file namespace carry a "namespace:" prefix.
		if strings.Contains(in, ":") && !filepath.IsAbs(in) {
			continue
		}
		p := filepath.FromSlash(in)
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		bc.Linked[filepath.Clean(p)] = true
	}
	return len(meta.Inputs), nil
}

func sourceMapFor(d config.Devtool) api.SourceMap {
	switch d {
	case config.DevtoolSourceMap:
		return api.SourceMapExternal
	case config.DevtoolInlineSourceMap:
		return api.SourceMapInline
	default:
		return api.SourceMapNone
	}
}

// modulePlugin serves the Code of processed modules to esbuild by absolute path.
func modulePlugin(modules []*loader.Module) api.Plugin {
	byPath := make(map[string]*loader.Module, len(modules))
	for _, m := range modules {
		if m.Code != "" {
			byPath[filepath.Clean(m.Path)] = m
		}
	}
	return api.Plugin{
		Name: "assetpack-modules",
		Setup: func(pb api.PluginBuild) {
			pb.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: "file"},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					m, ok := byPath[args.Path]
					if !ok {
						return api.OnLoadResult{}, nil
					}
					contents := m.Code
					return api.OnLoadResult{
						Contents:   &contents,
						Loader:     api.LoaderJS,
						ResolveDir: filepath.Dir(args.Path),
					}, nil
				})
		},
	}
}
