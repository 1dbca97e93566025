package loader

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"git.home.luguber.info/inful/assetpack/internal/cache"
	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpack/internal/logfields"
	"git.home.luguber.info/inful/assetpack/internal/metrics"
)

// TranspileCache is the subset of cache.TranspileCache the babel loader uses.
type TranspileCache interface {
	Get(ctx context.Context, key string) (cache.Entry, bool, error)
	Put(ctx context.Context, key string, code, sourceMap []byte) error
}

// BabelLoader transpiles modern JavaScript and JSX down to the configured
// target with esbuild's transform API. With the cacheDirectory option set,
// results are reused across builds through the transpile cache.
type BabelLoader struct {
	Devtool  config.Devtool
	Cache    TranspileCache
	Recorder metrics.Recorder
	Logger   *slog.Logger
}

func (b *BabelLoader) Name() string { return config.LoaderBabel }

var esTargets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

var jsxModes = map[string]api.JSX{
	"automatic": api.JSXAutomatic,
	"transform": api.JSXTransform,
	"preserve":  api.JSXPreserve,
}

// DefaultTarget is the language level emitted when no target option is set.
const DefaultTarget = "es2017"

func (b *BabelLoader) Load(ctx context.Context, m *Module, opts Options) error {
	targetName := strings.ToLower(opts.String("target", DefaultTarget))
	target, ok := esTargets[targetName]
	if !ok {
		return errors.LoaderError("unknown target").WithContext("target", targetName).Build()
	}
	jsxName := opts.String("jsx", "automatic")
	jsx, ok := jsxModes[jsxName]
	if !ok {
		return errors.LoaderError("unknown jsx mode").WithContext("jsx", jsxName).Build()
	}

	useCache := b.Cache != nil && opts.Bool("cacheDirectory")
	var key string
	if useCache {
		keyOpts := map[string]any{"file": m.RelPath, "devtool": string(b.Devtool)}
		for k, v := range opts {
			keyOpts["opt."+k] = v
		}
		key = cache.Key(b.Name(), keyOpts, m.Content)
		entry, hit, err := b.Cache.Get(ctx, key)
		b.recorder().IncCacheLookup(hit)
		if err != nil {
			b.logger().Warn("Transpile cache lookup failed", logfields.Module(m.RelPath), logfields.Error(err))
		}
		if hit {
			b.apply(m, entry.Code, entry.SourceMap)
			m.Meta["cache"] = "hit"
			return nil
		}
	}

	sourcemap := api.SourceMapInline
	if b.Devtool == config.DevtoolNone || b.Devtool == "" {
		sourcemap = api.SourceMapNone
	}
	result := api.Transform(string(m.Content), api.TransformOptions{
		Loader:          esLoaderFor(m.Ext()),
		JSX:             jsx,
		JSXImportSource: opts.String("jsxImportSource", ""),
		Target:          target,
		Sourcemap:       sourcemap,
		Sourcefile:      m.RelPath,
	})
	if len(result.Errors) > 0 {
		return errors.LoaderError("transpile failed").
			WithContext("messages", formatMessages(result.Errors, api.ErrorMessage)).
			WithCause(MessagesError(result.Errors)).
			Build()
	}
	for _, w := range formatMessages(result.Warnings, api.WarningMessage) {
		b.logger().Warn("Transpile warning", logfields.Module(m.RelPath), slog.String("message", w))
	}

	b.apply(m, result.Code, result.Map)
	if useCache {
		if err := b.Cache.Put(ctx, key, result.Code, result.Map); err != nil {
			b.logger().Warn("Transpile cache store failed", logfields.Module(m.RelPath), logfields.Error(err))
		}
		m.Meta["cache"] = "miss"
	}
	return nil
}

func (b *BabelLoader) apply(m *Module, code, sourceMap []byte) {
	m.Content = code
	m.Code = string(code)
	m.Map = sourceMap
}

func (b *BabelLoader) recorder() metrics.Recorder {
	if b.Recorder == nil {
		return metrics.NoopRecorder{}
	}
	return b.Recorder
}

func (b *BabelLoader) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.Default()
	}
	return b.Logger
}

// esLoaderFor picks the esbuild syntax for a file extension. Plain .js files
// are parsed as JSX since React sources commonly use that extension.
func esLoaderFor(ext string) api.Loader {
	switch ext {
	case ".js", ".jsx", ".mjs":
		return api.LoaderJSX
	case ".ts":
		return api.LoaderTS
	case ".tsx":
		return api.LoaderTSX
	case ".cjs":
		return api.LoaderJS
	default:
		return api.LoaderJSX
	}
}

func formatMessages(msgs []api.Message, kind api.MessageKind) []string {
	if len(msgs) == 0 {
		return nil
	}
	return api.FormatMessages(msgs, api.FormatMessagesOptions{Kind: kind})
}

type esbuildError struct{ msgs []api.Message }

func (e esbuildError) Error() string {
	parts := make([]string, 0, len(e.msgs))
	for _, msg := range e.msgs {
		text := msg.Text
		if msg.Location != nil {
			text = msg.Location.File + ":" + strconv.Itoa(msg.Location.Line) + ":" + strconv.Itoa(msg.Location.Column) + ": " + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "; ")
}

// MessagesError turns esbuild diagnostics into an error.
func MessagesError(msgs []api.Message) error { return esbuildError{msgs: msgs} }
