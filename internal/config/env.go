package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/assetpack/internal/logfields"
)

// Env carries the environment inputs that shape the default configuration.
type Env struct {
	NodeEnv string
	Serve   bool
}

// EnvFromOS reads NODE_ENV and SERVE. SERVE counts as set when it is non-empty.
func EnvFromOS() Env {
	return Env{
		NodeEnv: os.Getenv("NODE_ENV"),
		Serve:   os.Getenv("SERVE") != "",
	}
}

// Mode is production exactly when NODE_ENV is "production".
func (e Env) Mode() Mode {
	if e.NodeEnv == string(ModeProduction) {
		return ModeProduction
	}
	return ModeDevelopment
}

// DefaultEnvFiles are tried by LoadEnvFiles when no paths are given.
var DefaultEnvFiles = []string{".env", ".env.local"}

// LoadEnvFiles loads KEY=VALUE files into the process environment.
// Missing files are skipped and variables already set are never overwritten.
// It returns the files that were loaded.
func LoadEnvFiles(paths ...string) ([]string, error) {
	if len(paths) == 0 {
		paths = DefaultEnvFiles
	}
	var loaded []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return loaded, err
		}
		if err := godotenv.Load(p); err != nil {
			return loaded, err
		}
		slog.Debug("Loaded environment file", logfields.Path(p))
		loaded = append(loaded, p)
	}
	return loaded, nil
}
