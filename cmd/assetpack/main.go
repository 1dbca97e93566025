package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/assetpack/cmd/assetpack/commands"
	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpack/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cli commands.CLI
	kctx := kong.Parse(&cli,
		kong.Name("assetpack"),
		kong.Description("Bundle a web application's modules and assets."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.Bind(&cli))

	err := kctx.Run(&commands.Global{Logger: slog.Default(), Out: os.Stdout})
	if err != nil {
		stop()
		errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
