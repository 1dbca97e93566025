package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/assetpack/internal/build"
	"git.home.luguber.info/inful/assetpack/internal/cache"
	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/logfields"
	"git.home.luguber.info/inful/assetpack/internal/metrics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Mode    string `short:"m" help:"Override the mode (development|production); NODE_ENV decides otherwise"`
	Entry   string `short:"e" help:"Override the entry module"`
	Output  string `short:"o" help:"Override the output directory"`
	NoCache bool   `name:"no-cache" help:"Do not use the persistent transpile cache"`
}

func (b *BuildCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	cfg, _, err := loadConfig(root, config.EnvFromOS(), config.Overrides{
		Mode:       b.Mode,
		Entry:      b.Entry,
		OutputPath: b.Output,
	})
	if err != nil {
		return err
	}

	opts, closeCache := builderOptions(cfg, g.Logger, b.NoCache)
	defer closeCache()
	builder, err := build.New(cfg, append(opts, build.WithRecorder(metrics.NewPrometheusRecorder(prometheus.NewRegistry())))...)
	if err != nil {
		return err
	}

	report, err := builder.Run(ctx)
	if err != nil {
		return err
	}
	printReport(g, report)
	return nil
}

// builderOptions returns the options shared by build and serve. The returned
// func closes the transpile cache when one was opened.
func builderOptions(cfg *config.Config, logger *slog.Logger, noCache bool) ([]build.Option, func()) {
	opts := []build.Option{build.WithLogger(logger)}
	if noCache || cfg.Cache.Directory == "" {
		return opts, func() {}
	}
	tc, err := cache.Open(cfg.Cache.Directory)
	if err != nil {
		logger.Warn("Transpile cache unavailable; continuing without it", logfields.Path(cfg.Cache.Directory), logfields.Error(err))
		return opts, func() {}
	}
	return append(opts, build.WithCache(tc)), func() {
		s := tc.Stats()
		logger.Debug("Transpile cache", slog.Int64("hits", s.Hits), slog.Int64("misses", s.Misses), slog.Int64("entries", s.Entries))
		if err := tc.Close(); err != nil {
			logger.Warn("Failed to close transpile cache", logfields.Error(err))
		}
	}
}

func printReport(g *Global, r *build.Report) {
	for _, w := range r.Warnings {
		g.Logger.Warn(w)
	}
	g.Logger.Info("Build complete",
		logfields.BuildID(r.BuildID),
		logfields.Mode(string(r.Mode)),
		slog.Int("modules", r.Modules),
		slog.Int("passthrough", r.Passthrough),
		slog.Int64("bytes", r.EmittedBytes),
		logfields.DurationMS(float64(r.Duration.Microseconds())/1000))
	for _, name := range r.Emitted {
		_, _ = fmt.Fprintln(g.Out, name)
	}
	_, _ = fmt.Fprintf(g.Out, "%d files written in %s (hash %s)\n", len(r.Emitted), r.Duration.Round(time.Millisecond), r.Hash)
}
