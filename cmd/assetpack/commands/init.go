package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/assetpack/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing configuration file"`
	Output string `short:"o" name:"output" help:"Directory for the generated assetpack.yaml"`
}

func (i *InitCmd) Run(_ context.Context, g *Global, root *CLI) error {
	path := root.Config
	switch {
	case i.Output != "":
		path = filepath.Join(i.Output, config.DefaultConfigFiles[0])
	case path == "":
		path = config.DefaultConfigFiles[0]
	}
	if err := config.Init(path, config.EnvFromOS(), i.Force); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.Out, "Wrote %s\n", path)
	return nil
}
