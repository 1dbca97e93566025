package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/assetpack/internal/config"
)

// ConfigCmd implements the 'config' command.
type ConfigCmd struct {
	Format string `short:"f" help:"Output format" enum:"yaml,toml" default:"yaml"`
	Mode   string `short:"m" help:"Override the mode (development|production)"`
	Serve  bool   `help:"Show the configuration 'serve' would use"`
}

func (c *ConfigCmd) Run(_ context.Context, g *Global, root *CLI) error {
	env := config.EnvFromOS()
	if c.Serve {
		env.Serve = true
	}
	cfg, path, err := loadConfig(root, env, config.Overrides{Mode: c.Mode})
	if err != nil {
		return err
	}
	data, err := cfg.Marshal(config.Format(c.Format))
	if err != nil {
		return err
	}
	if path != "" {
		_, _ = fmt.Fprintf(g.Out, "# from %s\n", path)
	} else {
		_, _ = fmt.Fprintln(g.Out, "# built-in defaults")
	}
	_, err = g.Out.Write(data)
	return err
}
