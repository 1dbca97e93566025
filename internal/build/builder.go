package build

import (
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/assetpack/internal/cache"
	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpack/internal/loader"
	"git.home.luguber.info/inful/assetpack/internal/metrics"
	"git.home.luguber.info/inful/assetpack/internal/plugin"
	"git.home.luguber.info/inful/assetpack/internal/plugins"
	"git.home.luguber.info/inful/assetpack/internal/rules"
)

// Builder runs builds of one configuration. Runs are serialized.
type Builder struct {
	cfg       *config.Config
	matcher   *rules.Matcher
	loaders   *loader.Registry
	pipelines map[int]*loader.Pipeline
	plugins   *plugin.Registry

	cache     *cache.TranspileCache
	factories *plugin.Factories
	extra     []loader.Loader
	recorder  metrics.Recorder
	logger    *slog.Logger

	mu sync.Mutex
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger for build and plugin output.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) { b.recorder = r }
}

// WithCache enables the persistent transpile cache for babel-loader.
// The caller keeps ownership and closes it.
func WithCache(c *cache.TranspileCache) Option {
	return func(b *Builder) { b.cache = c }
}

// WithPluginFactories replaces the built-in plugin factories.
func WithPluginFactories(f *plugin.Factories) Option {
	return func(b *Builder) { b.factories = f }
}

// WithLoaders registers additional loaders next to the built-in ones.
func WithLoaders(l ...loader.Loader) Option {
	return func(b *Builder) { b.extra = append(b.extra, l...) }
}

// New validates cfg and wires the matcher, loader chains and plugins for it.
// The Builder works on a copy of cfg.
func New(cfg *config.Config, opts ...Option) (*Builder, error) {
	if cfg == nil {
		return nil, errors.ConfigError("config required").Build()
	}
	b := &Builder{
		cfg:       cfg.Clone(),
		recorder:  metrics.NoopRecorder{},
		logger:    slog.Default(),
		factories: plugins.Builtin(),
	}
	for _, o := range opts {
		o(b)
	}
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}

	matcher, err := rules.NewMatcher(b.cfg.Module.Rules, rules.WithPrecedence(b.cfg.Module.Precedence))
	if err != nil {
		return nil, err
	}
	b.matcher = matcher

	builtin := loader.BuiltinOptions{
		Devtool:  b.cfg.Devtool,
		Recorder: b.recorder,
		Logger:   b.logger,
	}
	// A nil *TranspileCache must not become a non-nil interface.
	if b.cache != nil {
		builtin.Cache = b.cache
	}
	b.loaders = loader.NewBuiltinRegistry(builtin)
	for _, l := range b.extra {
		if err := b.loaders.Register(l); err != nil {
			return nil, errors.WrapError(err, errors.CategoryLoader, "register loader").
				WithContext("loader", l.Name()).
				Build()
		}
	}

	b.pipelines = make(map[int]*loader.Pipeline, len(matcher.Rules()))
	for _, r := range matcher.Rules() {
		p, err := b.loaders.Pipeline(b.cfg.Module.Rules[r.Index].Use, loader.WithRecorder(b.recorder))
		if err != nil {
			if ce, ok := errors.AsClassified(err); ok {
				return nil, ce.WithContext("rule_index", r.Index)
			}
			return nil, err
		}
		b.pipelines[r.Index] = p
	}

	reg, err := b.factories.NewRegistry(b.cfg.Plugins)
	if err != nil {
		return nil, err
	}
	b.plugins = reg
	return b, nil
}

// Config returns the configuration the Builder was created with.
func (b *Builder) Config() *config.Config { return b.cfg }

// Plugins returns the plugin registry.
func (b *Builder) Plugins() *plugin.Registry { return b.plugins }

// Matcher returns the compiled rule matcher.
func (b *Builder) Matcher() *rules.Matcher { return b.matcher }
