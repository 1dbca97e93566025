package build

import (
	"context"
	stderrors "errors"
	"os"
	"sort"
	"sync"

	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpack/internal/loader"
	"git.home.luguber.info/inful/assetpack/internal/rules"
)

// unit is a processed file. Passthrough units have no rule.
type unit struct {
	module *loader.Module
	rule   *rules.Rule
}

type result struct {
	unit unit
	err  error
}

// transform runs every job's loader chain on a pool of workers and returns the
// units ordered by relative path. When several jobs fail, the error of the
// first one in path order is returned.
func (b *Builder) transform(ctx context.Context, jobs []job) ([]unit, error) {
	workers := b.cfg.EffectiveParallelism()
	if workers > len(jobs) {
		workers = len(jobs)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan job)
	out := make(chan result, len(jobs))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range in {
				u, err := b.process(ctx, j)
				if err != nil {
					cancel()
				}
				out <- result{unit: u, err: err}
			}
		}()
	}

feed:
	for _, j := range jobs {
		select {
		case in <- j:
		case <-ctx.Done():
			break feed
		}
	}
	close(in)
	wg.Wait()
	close(out)

	units := make([]unit, 0, len(jobs))
	var failed []result
	for r := range out {
		if r.err != nil {
			failed = append(failed, r)
			continue
		}
		units = append(units, r.unit)
	}

	if len(failed) > 0 {
		sort.Slice(failed, func(i, j int) bool {
			return failed[i].unit.module.RelPath < failed[j].unit.module.RelPath
		})
		for _, f := range failed {
			// Prefer the root cause over the cancellations it triggered.
			if !stderrors.Is(f.err, context.Canceled) {
				return nil, f.err
			}
		}
		return nil, failed[0].err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(units, func(i, j int) bool {
		return units[i].module.RelPath < units[j].module.RelPath
	})
	return units, nil
}

func (b *Builder) process(ctx context.Context, j job) (unit, error) {
	u := unit{module: loader.NewModule(j.path, j.rel, nil), rule: j.rule}
	if err := ctx.Err(); err != nil {
		return u, err
	}

	data, err := os.ReadFile(j.path)
	if err != nil {
		return u, errors.WrapError(err, errors.CategoryFileSystem, "read source file").
			WithContext("path", j.rel).
			Build()
	}
	u.module = loader.NewModule(j.path, j.rel, data)
	if j.rule == nil {
		return u, nil
	}

	if j.rule.Type != "" {
		u.module.Type = j.rule.Type
	}
	if p := b.pipelines[j.rule.Index]; p != nil && p.Len() > 0 {
		if err := p.Run(ctx, u.module); err != nil {
			return u, err
		}
	}
	b.recorder.IncModulesProcessed(string(u.module.Type))
	return u, nil
}
