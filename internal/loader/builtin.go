package loader

import (
	"log/slog"

	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/metrics"
)

// BuiltinOptions carry the build-wide settings the built-in loaders need.
type BuiltinOptions struct {
	Devtool  config.Devtool
	Cache    TranspileCache
	Recorder metrics.Recorder
	Logger   *slog.Logger
}

// NewBuiltinRegistry returns a registry holding html-loader, css-loader,
// css-extract-loader, babel-loader and markdown-loader.
func NewBuiltinRegistry(opts BuiltinOptions) *Registry {
	r := NewRegistry()
	for _, l := range []Loader{
		HTMLLoader{},
		CSSLoader{},
		CSSExtractLoader{},
		&BabelLoader{Devtool: opts.Devtool, Cache: opts.Cache, Recorder: opts.Recorder, Logger: opts.Logger},
		MarkdownLoader{},
	} {
		// Names are distinct constants; Register cannot fail here.
		_ = r.Register(l)
	}
	return r
}
