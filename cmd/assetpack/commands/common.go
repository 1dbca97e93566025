// Package commands implements the assetpack command line.
package commands

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/mattn/go-isatty"

	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
)

// LogLevelEnv overrides the log level when -v is not given.
const LogLevelEnv = "ASSETPACK_LOG_LEVEL"

// Global is shared state passed to every subcommand.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (default: first of assetpack.yaml, assetpack.yml, assetpack.toml)" type:"path"`
	EnvFile []string         `name:"env-file" help:"Environment files loaded before the configuration" default:".env,.env.local"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build     BuildCmd  `cmd:"" help:"Bundle the entry and its assets into the output directory"`
	Serve     ServeCmd  `cmd:"" help:"Build, watch sources and serve the output with live reload"`
	ConfigCmd ConfigCmd `cmd:"" name:"config" help:"Print the effective configuration"`
	Init      InitCmd   `cmd:"" help:"Write a starter configuration file"`
	Cache     CacheCmd  `cmd:"" help:"Inspect or prune the transpile cache"`
}

// AfterApply runs after flag parsing: loads environment files and sets up logging once.
func (c *CLI) AfterApply() error {
	loaded, err := config.LoadEnvFiles(c.EnvFile...)
	slog.SetDefault(newLogger(os.Stderr, parseLogLevel(c.Verbose)))
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "failed to load environment file").Build()
	}
	for _, p := range loaded {
		slog.Debug("Environment file applied", "path", p)
	}
	return nil
}

// parseLogLevel honours -v first, then ASSETPACK_LOG_LEVEL, then info.
func parseLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv(LogLevelEnv))) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger writes text to terminals and JSON everywhere else.
func newLogger(w *os.File, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd()) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// loadConfig resolves the configuration for env and applies command-line overrides.
func loadConfig(root *CLI, env config.Env, o config.Overrides) (*config.Config, string, error) {
	cfg, path, err := config.LoadOrDefault(root.Config, env)
	if err != nil {
		return nil, path, err
	}
	if err := cfg.ApplyOverrides(o); err != nil {
		return nil, path, err
	}
	if path == "" {
		slog.Debug("No configuration file found; using defaults")
	} else {
		slog.Debug("Configuration loaded", "path", path)
	}
	return cfg, path, nil
}
