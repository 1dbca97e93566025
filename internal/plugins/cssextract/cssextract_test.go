package cssextract

import (
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/loader"
	"git.home.luguber.info/inful/assetpack/internal/plugin"
)

func cssModule(rel, css string, extract bool) *loader.Module {
	m := loader.NewModule("src/"+rel, rel, []byte(css))
	m.CSS = []byte(css)
	m.Extract = extract
	return m
}

func run(t *testing.T, bc *plugin.BuildContext, p *Plugin, modules ...*loader.Module) {
	t.Helper()
	require.NoError(t, p.OnStart(t.Context(), bc))
	for _, m := range modules {
		bc.Current = m
		require.NoError(t, p.OnAsset(t.Context(), bc))
	}
	require.NoError(t, p.OnFinalize(t.Context(), bc))
}

func TestExtractConcatenatesInPathOrder(t *testing.T) {
	bc := plugin.NewBuildContext(config.Default(config.Env{}), nil)
	bc.Assets["img/bg.png"] = "/assets/bg.png"

	p := New(Options{})
	run(t, bc, p,
		cssModule("z.css", "z { color: red }", true),
		cssModule("styles/a.css", `@import "../z.css";
a { background: url(../img/bg.png) }`, true),
		cssModule("inline.css", "i { color: blue }", false),
	)

	chunks := bc.ChunksOf(plugin.ChunkCSS)
	require.Len(t, chunks, 1)
	require.Regexp(t, regexp.MustCompile(`^main\.[0-9a-f]{20}\.css$`), chunks[0].File)

	out, ok := bc.Outputs.Get(chunks[0].File)
	require.True(t, ok)
	s := string(out)
	require.Less(t, strings.Index(s, "a {"), strings.Index(s, "z {"))
	require.Contains(t, s, `url("/assets/bg.png")`)
	require.NotContains(t, s, "@import")
	require.NotContains(t, s, "i { color: blue }")
}

func TestExtractMinifiesInProduction(t *testing.T) {
	bc := plugin.NewBuildContext(config.Default(config.Env{NodeEnv: "production"}), nil)
	p := New(Options{Filename: "[name].css", Chunk: "styles"})
	run(t, bc, p, cssModule("a.css", "body {\n  color: #ff0000;\n}\n", true))

	out, ok := bc.Outputs.Get("styles.css")
	require.True(t, ok)
	require.True(t, strings.HasPrefix(string(out), "body{color:"))
	require.NotContains(t, string(out), "\n  ")
}

func TestExtractWithoutModules(t *testing.T) {
	bc := plugin.NewBuildContext(config.Default(config.Env{}), nil)
	run(t, bc, New(Options{}))
	require.Empty(t, bc.Chunks)
	require.Equal(t, 0, bc.Outputs.Len())
}

func TestStartResetsState(t *testing.T) {
	p := New(Options{})
	bc := plugin.NewBuildContext(config.Default(config.Env{}), nil)
	run(t, bc, p, cssModule("a.css", "a{}", true))

	bc2 := plugin.NewBuildContext(config.Default(config.Env{}), nil)
	run(t, bc2, p)
	require.Empty(t, bc2.Chunks)
}

func TestExtractKeepsOnlyLinkedStylesheets(t *testing.T) {
	bc := plugin.NewBuildContext(config.Default(config.Env{}), nil)
	used := cssModule("used.css", ".used { color: red }", true)
	unused := cssModule("unused.css", ".unused { color: blue }", true)
	p := New(Options{Filename: "[name].css"})
	require.NoError(t, p.OnStart(t.Context(), bc))
	for _, m := range []*loader.Module{used, unused} {
		bc.Current = m
		require.NoError(t, p.OnAsset(t.Context(), bc))
	}
	bc.Linked = map[string]bool{filepath.Clean(used.Path): true}
	bc.LinkedCSS = []byte(".lib{color:green}")
	require.NoError(t, p.OnFinalize(t.Context(), bc))

	out, ok := bc.Outputs.Get("main.css")
	require.True(t, ok)
	s := string(out)
	require.True(t, strings.HasPrefix(s, ".lib{color:green}\n"))
	require.Contains(t, s, ".used")
	require.NotContains(t, s, ".unused")
}

func TestExtractLinkedCSSOnly(t *testing.T) {
	bc := plugin.NewBuildContext(config.Default(config.Env{}), nil)
	bc.Linked = map[string]bool{}
	bc.LinkedCSS = []byte(".lib { color: green }\n")
	run(t, bc, New(Options{Filename: "[name].css"}))

	out, ok := bc.Outputs.Get("main.css")
	require.True(t, ok)
	require.Equal(t, ".lib { color: green }\n", string(out))
}
