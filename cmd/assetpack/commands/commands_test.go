package commands

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
)

// run parses args like the binary does and returns what the command printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("assetpack"),
		kong.Vars{"version": "test"},
		kong.BindTo(t.Context(), (*context.Context)(nil)),
		kong.Bind(&cli),
		kong.Exit(func(int) { t.Fatalf("unexpected exit for %v", args) }))
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	err = kctx.Run(&Global{Logger: slog.Default(), Out: &out})
	return out.String(), err
}

// project creates a minimal application in a fresh working directory.
func project(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("NODE_ENV", "")
	t.Setenv("SERVE", "")
	files := map[string]string{
		"src/index.js":   "import './app.js';\nconsole.log('index');\n",
		"src/app.js":     "export const app = () => \"app\";\n",
		"src/index.html": "<!DOCTYPE html><html><head><title>t</title></head><body></body></html>\n",
		"src/notes.txt":  "plain\n",
	}
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	}
	return dir
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		env     string
		verbose bool
		want    slog.Level
	}{
		{"", false, slog.LevelInfo},
		{"", true, slog.LevelDebug},
		{"debug", false, slog.LevelDebug},
		{" WARN ", false, slog.LevelWarn},
		{"warning", false, slog.LevelWarn},
		{"error", false, slog.LevelError},
		{"error", true, slog.LevelDebug},
		{"chatty", false, slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv(LogLevelEnv, tt.env)
			require.Equal(t, tt.want, parseLogLevel(tt.verbose))
		})
	}
}

func TestInitWritesStarterOnce(t *testing.T) {
	dir := project(t)

	out, err := run(t, "init")
	require.NoError(t, err)
	require.Contains(t, out, "assetpack.yaml")

	cfg, err := config.Load(filepath.Join(dir, "assetpack.yaml"), config.Env{})
	require.NoError(t, err)
	require.False(t, cfg.HasPlugin(config.PluginHotReload))

	_, err = run(t, "init")
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))

	_, err = run(t, "init", "--force")
	require.NoError(t, err)

	_, err = run(t, "init", "-o", "nested")
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "nested", "assetpack.yaml"))
}

func TestConfigReflectsEnvironment(t *testing.T) {
	project(t)

	out, err := run(t, "config")
	require.NoError(t, err)
	require.Contains(t, out, "# built-in defaults")
	require.Contains(t, out, "mode: development")
	require.Contains(t, out, "asset/resource")
	require.NotContains(t, out, config.PluginHotReload)

	t.Setenv("NODE_ENV", "production")
	out, err = run(t, "config", "--serve")
	require.NoError(t, err)
	require.Contains(t, out, "mode: production")
	require.Contains(t, out, "type: asset\n")
	require.Contains(t, out, config.PluginHotReload)

	out, err = run(t, "config", "--format", "toml", "--mode", "development")
	require.NoError(t, err)
	require.Regexp(t, `mode = ['"]development['"]`, out)
}

func TestConfigReadsEnvFile(t *testing.T) {
	dir := project(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prod.env"), []byte("NODE_ENV=production\n"), 0o600))
	t.Setenv("NODE_ENV", "")
	require.NoError(t, os.Unsetenv("NODE_ENV"))

	out, err := run(t, "--env-file", "prod.env", "config")
	require.NoError(t, err)
	require.Contains(t, out, "mode: production")
}

func TestConfigRejectsInvalidOverride(t *testing.T) {
	project(t)
	_, err := run(t, "config", "--mode", "staging")
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestBuildWritesOutputAndCache(t *testing.T) {
	dir := project(t)

	out, err := run(t, "build", "--output", "dist")
	require.NoError(t, err)
	require.Contains(t, out, "main.js")
	require.Contains(t, out, "index.html")
	require.Contains(t, out, "notes.txt")
	require.FileExists(t, filepath.Join(dir, "dist", "main.js"))
	require.FileExists(t, filepath.Join(dir, config.DefaultCacheDirectory, "transpile.db"))

	out, err = run(t, "cache", "stats")
	require.NoError(t, err)
	require.Contains(t, out, "2 entries")

	out, err = run(t, "cache", "prune", "--older-than=-2s")
	require.NoError(t, err)
	require.Contains(t, out, "removed 2 entries")

	out, err = run(t, "cache", "stats")
	require.NoError(t, err)
	require.Contains(t, out, "0 entries")
}

func TestBuildReportsMissingEntry(t *testing.T) {
	project(t)
	_, err := run(t, "build", "--no-cache", "--entry", "./src/missing.js")
	require.Error(t, err)
	require.True(t, errors.IsClassified(err))
	require.NotZero(t, errors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestServeNoHotHelpMentionsServe(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("assetpack"), kong.Vars{"version": "test"})
	require.NoError(t, err)

	var help string
	for _, cmd := range parser.Model.Children {
		if cmd.Name != "serve" {
			continue
		}
		for _, f := range cmd.Flags {
			if f.Name == "no-hot" {
				help = f.Help
			}
		}
	}
	require.Contains(t, help, "SERVE")
}
