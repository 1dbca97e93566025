package loader

import (
	"context"
	"time"

	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpack/internal/metrics"
)

type step struct {
	loader  Loader
	options Options
}

// Pipeline is a resolved loader chain.
type Pipeline struct {
	steps    []step
	recorder metrics.Recorder
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithRecorder reports per-loader durations to rec.
func WithRecorder(rec metrics.Recorder) PipelineOption {
	return func(p *Pipeline) {
		if rec != nil {
			p.recorder = rec
		}
	}
}

// Pipeline resolves refs against the registry. Unknown loader names fail here,
// before any file is processed.
func (r *Registry) Pipeline(refs []config.LoaderRef, opts ...PipelineOption) (*Pipeline, error) {
	p := &Pipeline{recorder: metrics.NoopRecorder{}}
	for _, o := range opts {
		o(p)
	}
	for _, ref := range refs {
		l, ok := r.Get(ref.Loader)
		if !ok {
			return nil, errors.LoaderError("unknown loader").
				Fatal().UserAction().
				WithContext("loader", ref.Loader).
				WithContext("available", r.Names()).
				Build()
		}
		p.steps = append(p.steps, step{loader: l, options: Options(ref.Options)})
	}
	return p, nil
}

// Names lists the chain in configured order.
func (p *Pipeline) Names() []string {
	out := make([]string, len(p.steps))
	for i, s := range p.steps {
		out[i] = s.loader.Name()
	}
	return out
}

// Len is the number of loaders in the chain.
func (p *Pipeline) Len() int { return len(p.steps) }

// Run applies the chain right to left: the last configured loader sees the
// source first and the first configured loader produces the final module.
func (p *Pipeline) Run(ctx context.Context, m *Module) error {
	for i := len(p.steps) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		s := p.steps[i]
		start := time.Now()
		err := s.loader.Load(ctx, m, s.options)
		p.recorder.ObserveLoaderDuration(s.loader.Name(), time.Since(start))
		if err != nil {
			return errors.WrapError(err, errors.CategoryLoader, "loader failed").
				WithContext("loader", s.loader.Name()).
				WithContext("module", m.RelPath).
				Build()
		}
	}
	return nil
}
