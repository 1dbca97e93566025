package build

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/assetpack/internal/assets"
	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpack/internal/logfields"
	"git.home.luguber.info/inful/assetpack/internal/metrics"
	"git.home.luguber.info/inful/assetpack/internal/observability"
	"git.home.luguber.info/inful/assetpack/internal/plugin"
)

// Stage names as they appear in the report and in metrics.
const (
	StageClean     = "clean"
	StageStart     = "start"
	StageWalk      = "walk"
	StageTransform = "transform"
	StageAssets    = "assets"
	StageLink      = "link"
	StageFinalize  = "finalize"
	StageEmit      = "emit"
	StageWrite     = "write"
	StageDone      = "done"
)

// Run executes one build and returns its report. On failure the report
// describes the build up to the failing stage.
func (b *Builder) Run(ctx context.Context) (*Report, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	startTime := time.Now()
	bc := plugin.NewBuildContext(b.cfg, b.logger)
	report := &Report{
		BuildID:   bc.BuildID,
		Mode:      b.cfg.Mode,
		Snapshot:  bc.Snapshot,
		StartTime: startTime,
	}

	ctx = observability.WithLogger(ctx, b.logger)
	ctx = observability.WithBuildID(ctx, bc.BuildID)
	ctx = observability.WithMode(ctx, string(b.cfg.Mode))
	bc.Logger = observability.ContextLogger(ctx)

	root, err := filepath.Abs(bc.SourceRoot)
	if err != nil {
		return b.finish(ctx, report, bc, errors.WrapError(err, errors.CategoryFileSystem, "resolve source root").Build())
	}
	outDir, err := filepath.Abs(bc.OutputDir)
	if err != nil {
		return b.finish(ctx, report, bc, errors.WrapError(err, errors.CategoryFileSystem, "resolve output path").Build())
	}
	if info, statErr := os.Stat(root); statErr != nil || !info.IsDir() {
		return b.finish(ctx, report, bc, errors.NewError(errors.CategoryNotFound, "source root not found").
			Fatal().UserAction().
			WithContext("path", bc.SourceRoot).
			Build())
	}
	bc.SourceRoot, bc.OutputDir = root, outDir

	observability.InfoContext(ctx, "Build started", logfields.Path(root), logfields.Output(outDir))

	// A cleaning build writes into a staging directory that replaces the
	// output only after everything was written.
	writeDir := outDir
	if b.cfg.Output.Clean {
		if err := checkCleanTarget(outDir, root); err != nil {
			return b.finish(ctx, report, bc, err)
		}
		writeDir = stagingDir(outDir, bc.BuildID)
		defer func() { _ = os.RemoveAll(writeDir) }()
	}

	if err := b.stage(ctx, report, StageStart, func(ctx context.Context) error {
		return b.hook(ctx, plugin.HookStart, bc)
	}); err != nil {
		return b.finish(ctx, report, bc, err)
	}

	var jobs []job
	if err := b.stage(ctx, report, StageWalk, func(ctx context.Context) error {
		var err error
		jobs, err = b.walk(ctx, root, outDir)
		return err
	}); err != nil {
		return b.finish(ctx, report, bc, err)
	}

	var units []unit
	if err := b.stage(ctx, report, StageTransform, func(ctx context.Context) error {
		var err error
		units, err = b.transform(ctx, jobs)
		return err
	}); err != nil {
		return b.finish(ctx, report, bc, err)
	}

	if err := b.stage(ctx, report, StageAssets, func(ctx context.Context) error {
		return b.resolveAssets(ctx, bc, report, units)
	}); err != nil {
		return b.finish(ctx, report, bc, err)
	}

	if err := b.stage(ctx, report, StageLink, func(ctx context.Context) error {
		inputs, err := b.link(ctx, bc, root, outDir)
		if err == nil {
			observability.DebugContext(ctx, "Entry linked", logfields.Count(inputs))
		}
		return err
	}); err != nil {
		return b.finish(ctx, report, bc, err)
	}

	if err := b.stage(ctx, report, StageFinalize, func(ctx context.Context) error {
		return b.hook(ctx, plugin.HookFinalize, bc)
	}); err != nil {
		return b.finish(ctx, report, bc, err)
	}

	if err := b.stage(ctx, report, StageEmit, func(ctx context.Context) error {
		return b.hook(ctx, plugin.HookEmit, bc)
	}); err != nil {
		return b.finish(ctx, report, bc, err)
	}

	if err := b.stage(ctx, report, StageWrite, func(ctx context.Context) error {
		written, err := writeOutputs(ctx, bc.Outputs, writeDir)
		report.Emitted = written
		return err
	}); err != nil {
		return b.finish(ctx, report, bc, err)
	}
	if b.cfg.Output.Clean {
		if err := b.stage(ctx, report, StageClean, func(context.Context) error {
			return swapIn(writeDir, outDir)
		}); err != nil {
			return b.finish(ctx, report, bc, err)
		}
	}
	report.EmittedBytes = bc.Outputs.TotalBytes()
	report.Hash = outputHash(bc.Outputs)
	b.recorder.SetEmittedBytes(report.EmittedBytes)

	if err := b.stage(ctx, report, StageDone, func(ctx context.Context) error {
		return b.hook(ctx, plugin.HookDone, bc)
	}); err != nil {
		return b.finish(ctx, report, bc, err)
	}

	return b.finish(ctx, report, bc, nil)
}

// resolveAssets applies asset module types, copies unmatched files through and
// runs the asset hook once per module in path order.
func (b *Builder) resolveAssets(ctx context.Context, bc *plugin.BuildContext, report *Report, units []unit) error {
	for _, u := range units {
		m := u.module
		if u.rule == nil {
			bc.Outputs.Set(m.RelPath, m.Content)
			bc.Assets[m.RelPath] = assets.PublicURL(b.cfg.Output.PublicPath, m.RelPath)
			report.Passthrough++
			continue
		}
		bc.Modules = append(bc.Modules, m)
		if !u.rule.Type.IsAsset() {
			continue
		}
		e, err := assets.Resolve(m, u.rule, b.cfg)
		if err != nil {
			return err
		}
		switch e.Kind {
		case assets.KindFile:
			bc.Outputs.Set(e.Output, e.Content)
			bc.Assets[m.RelPath] = e.URL
		case assets.KindInline:
			bc.Assets[m.RelPath] = e.URL
		}
	}
	report.Modules = len(bc.Modules)

	for _, m := range bc.Modules {
		bc.Current = m
		if err := b.hook(ctx, plugin.HookAsset, bc); err != nil {
			bc.Current = nil
			if ce, ok := errors.AsClassified(err); ok {
				return ce.WithContext("module", m.RelPath)
			}
			return err
		}
	}
	bc.Current = nil
	return nil
}

// hook runs one hook point and classifies plugin failures.
func (b *Builder) hook(ctx context.Context, point plugin.HookPoint, bc *plugin.BuildContext) error {
	err := b.plugins.RunHook(ctx, point, bc)
	if err == nil || ctx.Err() != nil {
		return err
	}
	return errors.WrapError(err, errors.CategoryPlugin, "plugin hook failed").
		WithContext("hook", string(point)).
		Build()
}

// stage runs fn as a named stage, recording its duration and result.
func (b *Builder) stage(ctx context.Context, report *Report, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		b.recorder.IncStageResult(name, metrics.ResultCanceled)
		return err
	}
	stageStart := time.Now()
	ctx = observability.WithStage(ctx, name)
	observability.DebugContext(ctx, "Stage started")

	err := fn(ctx)

	d := time.Since(stageStart)
	report.Stages = append(report.Stages, StageTiming{Name: name, Duration: d})
	b.recorder.ObserveStageDuration(name, d)
	switch {
	case err == nil:
		b.recorder.IncStageResult(name, metrics.ResultSuccess)
	case ctx.Err() != nil:
		b.recorder.IncStageResult(name, metrics.ResultCanceled)
	default:
		b.recorder.IncStageResult(name, metrics.ResultFailed)
	}
	return err
}

// finish stamps the report and records the build outcome.
func (b *Builder) finish(ctx context.Context, report *Report, bc *plugin.BuildContext, err error) (*Report, error) {
	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)
	report.Chunks = bc.Chunks
	report.Warnings = bc.Warnings
	b.recorder.ObserveBuildDuration(report.Duration)

	switch {
	case err == nil:
		report.Status = StatusSuccess
		b.recorder.IncBuildOutcome(metrics.ResultSuccess)
		observability.InfoContext(ctx, "Build completed",
			logfields.Count(report.Modules),
			slog.Int("emitted", len(report.Emitted)),
			slog.Int("warnings", len(report.Warnings)),
			logfields.DurationMS(float64(report.Duration.Microseconds())/1000))
		return report, nil
	case ctx.Err() != nil:
		report.Status = StatusCanceled
		b.recorder.IncBuildOutcome(metrics.ResultCanceled)
		observability.WarnContext(ctx, "Build canceled")
		return report, ctx.Err()
	default:
		report.Status = StatusFailed
		b.recorder.IncBuildOutcome(metrics.ResultFailed)
		observability.ErrorContext(ctx, "Build failed", logfields.Error(err))
		return report, err
	}
}
