package rules

import (
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
)

func TestMatchDefaultRules(t *testing.T) {
	m, err := NewMatcher(config.Default(config.Env{}).Module.Rules)
	require.NoError(t, err)

	cases := []struct {
		path    string
		want    int
		matched bool
	}{
		{"index.html", 0, true},
		{"styles/main.css", 1, true},
		{"img/Logo.PNG", 2, true},
		{"img/photo.jpeg", 2, true},
		{"img/photo.jpg", 2, true},
		{"app.jsx", 3, true},
		{"components/Button.js", 3, true},
		{"node_modules/lib/index.js", 0, false},
		{"README.md", 4, true},
		{"data.json", 0, false},
		{"index.html.bak", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			r, ok := m.Match(tc.path)
			require.Equal(t, tc.matched, ok)
			if tc.matched {
				require.Equal(t, tc.want, r.Index)
			} else {
				require.Nil(t, r)
			}
		})
	}
}

func TestRuleTypeAndChain(t *testing.T) {
	m, err := NewMatcher(config.Default(config.Env{NodeEnv: "production"}).Module.Rules)
	require.NoError(t, err)

	css, ok := m.Match("a.css")
	require.True(t, ok)
	require.Equal(t, config.TypeJavaScript, css.Type)
	require.Equal(t, []string{config.LoaderCSSExtract, config.LoaderCSS}, css.LoaderNames())

	img, ok := m.Match("a.svg")
	require.True(t, ok)
	require.Equal(t, config.TypeAsset, img.Type)
	require.Equal(t, config.DefaultDataURLMaxSize, img.Options.DataURLMaxSize)
	require.Contains(t, img.String(), "asset")
}

func TestPrecedence(t *testing.T) {
	cfgs := []config.RuleConfig{
		{Test: `\.js$`, Use: []config.LoaderRef{{Loader: "babel-loader"}}},
		{Glob: "vendor/**/*.js", Type: config.TypeAssetResource},
	}

	first, err := NewMatcher(cfgs)
	require.NoError(t, err)
	r, ok := first.Match("vendor/x/lib.js")
	require.True(t, ok)
	require.Equal(t, 0, r.Index, "first match wins by default")

	last, err := NewMatcher(cfgs, WithPrecedence(LastMatch))
	require.NoError(t, err)
	r, ok = last.Match("vendor/x/lib.js")
	require.True(t, ok)
	require.Equal(t, 1, r.Index, "later rule shadows earlier one")

	r, ok = last.Match("src/app.js")
	require.True(t, ok)
	require.Equal(t, 0, r.Index)

	all := first.MatchAll("vendor/x/lib.js")
	require.Len(t, all, 2)
	require.Equal(t, 0, all[0].Index)
	require.Equal(t, 1, all[1].Index)

	for i := 0; i < 50; i++ {
		r, _ := first.Match("vendor/x/lib.js")
		require.Equal(t, 0, r.Index)
	}
}

func TestGlobAndTestCombine(t *testing.T) {
	m, err := NewMatcher([]config.RuleConfig{
		{Test: `\.css$`, Glob: "themes/**", Type: config.TypeAssetSource},
	})
	require.NoError(t, err)

	_, ok := m.Match("themes/dark/site.css")
	require.True(t, ok)
	_, ok = m.Match("themes/dark/site.scss")
	require.False(t, ok)
	_, ok = m.Match("site.css")
	require.False(t, ok)
}

func TestConflicts(t *testing.T) {
	m, err := NewMatcher([]config.RuleConfig{
		{Test: `\.(svg|png)$`, Type: config.TypeAssetResource},
		{Test: `\.svg$`, Type: config.TypeAssetSource},
	})
	require.NoError(t, err)

	got := m.Conflicts([]string{"a.png", "icons/a.svg"})
	require.Equal(t, []Conflict{{Path: "icons/a.svg", Rules: []int{0, 1}}}, got)

	_, err = NewMatcher([]config.RuleConfig{
		{Test: `\.(svg|png)$`, Type: config.TypeAssetResource},
		{Test: `\.svg$`, Type: config.TypeAssetSource},
	}, WithStrict())
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryRule))

	_, err = NewMatcher(config.Default(config.Env{}).Module.Rules, WithStrict())
	require.NoError(t, err, "built-in rules do not overlap")
}

func TestNewMatcherErrors(t *testing.T) {
	cases := map[string][]config.RuleConfig{
		"bad test":    {{Test: `(`, Type: config.TypeAsset}},
		"bad exclude": {{Test: `\.js$`, Exclude: `[`, Type: config.TypeAsset}},
		"bad glob":    {{Glob: "[", Type: config.TypeAsset}},
		"no pattern":  {{Type: config.TypeAsset}},
	}
	for name, cfgs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewMatcher(cfgs)
			require.Error(t, err)
			require.Equal(t, errors.CategoryRule, errors.GetCategory(err))
		})
	}

	_, err := NewMatcher(nil, WithPrecedence("middle"))
	require.Error(t, err)
}

func TestExpandOptional(t *testing.T) {
	require.Equal(t, []string{"jpg", "jpeg"}, expandOptional("jpe?g"))
	require.Equal(t, []string{"png"}, expandOptional("png"))
}
