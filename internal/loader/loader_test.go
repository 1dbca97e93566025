package loader

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetpack/internal/cache"
	"git.home.luguber.info/inful/assetpack/internal/config"
	ferrors "git.home.luguber.info/inful/assetpack/internal/foundation/errors"
)

func recordingLoader(name string, trace *[]string) Loader {
	return Func{LoaderName: name, Fn: func(_ context.Context, m *Module, opts Options) error {
		*trace = append(*trace, name+":"+opts.String("tag", "-"))
		m.Content = append(m.Content, []byte("|"+name)...)
		return nil
	}}
}

func TestPipelineRunsRightToLeft(t *testing.T) {
	var trace []string
	r := NewRegistry()
	require.NoError(t, r.Register(recordingLoader("a", &trace)))
	require.NoError(t, r.Register(recordingLoader("b", &trace)))
	require.NoError(t, r.Register(recordingLoader("c", &trace)))

	p, err := r.Pipeline([]config.LoaderRef{{Loader: "a"}, {Loader: "b", Options: map[string]any{"tag": "x"}}, {Loader: "c"}})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, p.Names())

	m := NewModule("/src/f.txt", "f.txt", []byte("src"))
	require.NoError(t, p.Run(t.Context(), m))
	require.Equal(t, []string{"c:-", "b:x", "a:-"}, trace)
	require.Equal(t, "src|c|b|a", string(m.Content))
}

func TestPipelineErrors(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	require.NoError(t, r.Register(Func{LoaderName: "fail", Fn: func(context.Context, *Module, Options) error { return boom }}))

	_, err := r.Pipeline([]config.LoaderRef{{Loader: "missing"}})
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryLoader))

	p, err := r.Pipeline([]config.LoaderRef{{Loader: "fail"}})
	require.NoError(t, err)
	err = p.Run(t.Context(), NewModule("x", "dir/x.js", nil))
	require.ErrorIs(t, err, boom)
	ce, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	loaderName, _ := ce.Context().GetString("loader")
	module, _ := ce.Context().GetString("module")
	require.Equal(t, "fail", loaderName)
	require.Equal(t, "dir/x.js", module)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	require.ErrorIs(t, p.Run(ctx, NewModule("x", "x.js", nil)), context.Canceled)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewBuiltinRegistry(BuiltinOptions{})
	require.Equal(t, []string{
		config.LoaderBabel, config.LoaderCSSExtract, config.LoaderCSS, config.LoaderHTML, config.LoaderMarkdown,
	}, r.Names())
	require.Error(t, r.Register(CSSLoader{}))
	require.Error(t, r.Register(nil))
}

func TestHTMLLoader(t *testing.T) {
	src := `<!doctype html><html><head>
<link rel="icon" href="favicon.ico"><link rel="stylesheet" href="https://cdn.example/x.css">
</head><body>
<img src="img/logo.png" srcset="img/logo@2x.png 2x, img/logo.png 1x">
<img src="data:image/png;base64,AAAA"><a href="other.html">x</a>
<script src="/vendor/lib.js"></script>
</body></html>`
	m := NewModule("src/index.html", "index.html", []byte(src))
	require.NoError(t, HTMLLoader{}.Load(t.Context(), m, nil))
	require.Equal(t, []string{"favicon.ico", "img/logo.png", "img/logo@2x.png", "/vendor/lib.js"}, m.Dependencies)
	require.True(t, strings.HasPrefix(m.Code, `export default "<!doctype html>`))
}

func TestCSSLoaders(t *testing.T) {
	src := `@import "base.css";
@import url("https://fonts.example/font.css");
body { background: url(img/bg.png) }
.x { background: url('data:image/png;base64,AA') }
.y { mask: url("icons/mask.svg#frag") }`
	m := NewModule("src/styles/main.css", "styles/main.css", []byte(src))

	r := NewBuiltinRegistry(BuiltinOptions{})
	p, err := r.Pipeline([]config.LoaderRef{{Loader: config.LoaderCSSExtract}, {Loader: config.LoaderCSS}})
	require.NoError(t, err)
	require.NoError(t, p.Run(t.Context(), m))

	require.Equal(t, []string{"base.css", "img/bg.png", "icons/mask.svg#frag"}, m.Dependencies)
	require.True(t, m.Extract)
	require.Equal(t, src, string(m.CSS))
	require.Equal(t, "export {};\n", m.Code)

	dep, ok := m.ResolveDependency("img/bg.png")
	require.True(t, ok)
	require.Equal(t, "styles/img/bg.png", dep)

	out := RewriteCSS(m.CSS, func(ref string) (string, bool) {
		if ref == "img/bg.png" {
			return "/assets/abc.png", true
		}
		return "", false
	})
	require.NotContains(t, string(out), `@import "base.css"`)
	require.Contains(t, string(out), `fonts.example`)
	require.Contains(t, string(out), `url("/assets/abc.png")`)
	require.Contains(t, string(out), `url("icons/mask.svg#frag")`)
}

func TestCSSExtractNeedsCSS(t *testing.T) {
	err := CSSExtractLoader{}.Load(t.Context(), NewModule("a", "a.css", []byte("x")), nil)
	require.Error(t, err)
}

func TestBabelLoaderTranspilesAndCaches(t *testing.T) {
	c, err := cache.NewMemory()
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	b := &BabelLoader{Devtool: config.DevtoolNone, Cache: c}
	src := "export const add = (a, b) => a + b;\nexport const view = () => <div>hi</div>;\n"
	opts := Options{"cacheDirectory": true, "jsx": "transform"}

	m := NewModule("src/app.jsx", "app.jsx", []byte(src))
	require.NoError(t, b.Load(t.Context(), m, opts))
	require.Contains(t, m.Code, "React.createElement")
	require.Equal(t, "miss", m.Meta["cache"])

	again := NewModule("src/app.jsx", "app.jsx", []byte(src))
	require.NoError(t, b.Load(t.Context(), again, opts))
	require.Equal(t, m.Code, again.Code)
	require.Equal(t, "hit", again.Meta["cache"])
	require.Equal(t, int64(1), c.Stats().Hits)
}

func TestBabelLoaderTargetAndErrors(t *testing.T) {
	b := &BabelLoader{Devtool: config.DevtoolSourceMap}

	m := NewModule("a.js", "a.js", []byte("const f = async () => { await 1 }; let x = a ?? b;"))
	require.NoError(t, b.Load(t.Context(), m, Options{"target": "es2017"}))
	require.NotContains(t, m.Code, "??")
	require.Contains(t, m.Code, "sourceMappingURL=data:")

	bad := NewModule("b.js", "b.js", []byte("const = ;"))
	err := b.Load(t.Context(), bad, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "transpile failed")

	require.Error(t, b.Load(t.Context(), NewModule("c.js", "c.js", nil), Options{"target": "es3000"}))
}

func TestMarkdownLoader(t *testing.T) {
	src := "# Title\n\n![logo](img/logo.png)\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n<b>raw</b>\n"
	m := NewModule("docs/intro.md", "docs/intro.md", []byte(src))
	require.NoError(t, MarkdownLoader{}.Load(t.Context(), m, nil))
	html := string(m.Content)
	require.Contains(t, html, `<h1 id="title">Title</h1>`)
	require.Contains(t, html, "<table>")
	require.NotContains(t, html, "<b>raw</b>")
	require.Equal(t, []string{"img/logo.png"}, m.Dependencies)
	require.True(t, strings.HasPrefix(m.Code, "export default "))

	unsafe := NewModule("docs/intro.md", "docs/intro.md", []byte(src))
	require.NoError(t, MarkdownLoader{}.Load(t.Context(), unsafe, Options{"unsafe": true}))
	require.Contains(t, string(unsafe.Content), "<b>raw</b>")
}

func TestIsLocalReference(t *testing.T) {
	for ref, want := range map[string]bool{
		"img/a.png":            true,
		"./a.css":              true,
		"/abs/a.js":            true,
		"https://x/y.png":      false,
		"//cdn/x.js":           false,
		"data:image/png,AA":    false,
		"#anchor":              false,
		"mailto:me@example":    false,
		"":                     false,
		"dir:with/colon.png":   false,
		"./dir:with/colon.png": true,
	} {
		require.Equal(t, want, IsLocalReference(ref), ref)
	}
}
