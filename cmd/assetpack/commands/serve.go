package commands

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/assetpack/internal/build"
	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/devserver"
	"git.home.luguber.info/inful/assetpack/internal/metrics"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Mode    string `short:"m" help:"Override the mode (development|production)"`
	Entry   string `short:"e" help:"Override the entry module"`
	Output  string `short:"o" help:"Override the output directory"`
	Port    int    `short:"p" help:"Override dev_server.port"`
	NoHot   bool   `name:"no-hot" help:"Serve without live reload (builds as if SERVE were unset)"`
	NoCache bool   `name:"no-cache" help:"Do not use the persistent transpile cache"`
}

// Run serves until ctx is canceled. Live reload is what SERVE turns on, so
// --no-hot builds as if SERVE were unset.
func (s *ServeCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	env := config.EnvFromOS()
	env.Serve = !s.NoHot
	cfg, _, err := loadConfig(root, env, config.Overrides{
		Mode:       s.Mode,
		Entry:      s.Entry,
		OutputPath: s.Output,
		Port:       s.Port,
		NoHot:      s.NoHot,
	})
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	opts, closeCache := builderOptions(cfg, g.Logger, s.NoCache)
	defer closeCache()
	builder, err := build.New(cfg, append(opts, build.WithRecorder(metrics.NewPrometheusRecorder(reg)))...)
	if err != nil {
		return err
	}
	return devserver.Serve(ctx, builder.Config(), builder,
		devserver.WithLogger(g.Logger),
		devserver.WithRegistry(reg))
}
