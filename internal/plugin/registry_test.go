package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetpack/internal/config"
	ferrors "git.home.luguber.info/inful/assetpack/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpack/internal/loader"
)

// tracePlugin records every hook it sees into a shared slice.
type tracePlugin struct {
	name  string
	trace *[]string
	fail  HookPoint
}

func (p *tracePlugin) Name() string { return p.name }

func (p *tracePlugin) hit(point HookPoint) error {
	*p.trace = append(*p.trace, p.name+":"+string(point))
	if p.fail == point {
		return errors.New("broken")
	}
	return nil
}

func (p *tracePlugin) OnStart(_ context.Context, _ *BuildContext) error { return p.hit(HookStart) }
func (p *tracePlugin) OnEmit(_ context.Context, _ *BuildContext) error  { return p.hit(HookEmit) }

// startOnly implements a single hook.
type startOnly struct{ trace *[]string }

func (startOnly) Name() string { return "start-only" }
func (s startOnly) OnStart(_ context.Context, _ *BuildContext) error {
	*s.trace = append(*s.trace, "start-only:start")
	return nil
}

type panicky struct{}

func (panicky) Name() string                                    { return "panicky" }
func (panicky) OnDone(_ context.Context, _ *BuildContext) error { panic("oops") }

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	var trace []string
	require.NoError(t, r.Register(&tracePlugin{name: "a", trace: &trace}))
	require.Error(t, r.Register(&tracePlugin{name: "a", trace: &trace}), "duplicate")
	require.Error(t, r.Register(nil))
	require.Error(t, r.Register(&tracePlugin{name: "", trace: &trace}))
	require.True(t, r.Has("a"))
	require.False(t, r.Has("b"))
	require.Equal(t, 1, r.Len())

	p, ok := r.Get("a")
	require.True(t, ok)
	require.Equal(t, "a", p.Name())
}

func TestRunHookOrderAndSelection(t *testing.T) {
	var trace []string
	r := NewRegistry()
	require.NoError(t, r.Register(&tracePlugin{name: "first", trace: &trace}))
	require.NoError(t, r.Register(startOnly{trace: &trace}))
	require.NoError(t, r.Register(&tracePlugin{name: "third", trace: &trace}))
	require.Equal(t, []string{"first", "start-only", "third"}, r.Names())

	bc := NewBuildContext(config.Default(config.Env{}), nil)
	require.NoError(t, r.RunHook(t.Context(), HookStart, bc))
	require.NoError(t, r.RunHook(t.Context(), HookEmit, bc))
	require.NoError(t, r.RunHook(t.Context(), HookFinalize, bc), "no implementers is fine")

	require.Equal(t, []string{
		"first:start", "start-only:start", "third:start",
		"first:emit", "third:emit",
	}, trace)

	require.Error(t, r.RunHook(t.Context(), HookPoint("compile"), bc))
}

func TestRunHookStopsOnFirstFailure(t *testing.T) {
	var trace []string
	r := NewRegistry()
	require.NoError(t, r.Register(&tracePlugin{name: "ok", trace: &trace}))
	require.NoError(t, r.Register(&tracePlugin{name: "bad", trace: &trace, fail: HookStart}))
	require.NoError(t, r.Register(&tracePlugin{name: "never", trace: &trace}))

	err := r.RunHook(t.Context(), HookStart, NewBuildContext(nil, nil))
	require.Error(t, err)

	var pe *PluginError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "bad", pe.PluginName)
	require.Equal(t, "start", pe.Operation)
	require.Equal(t, "plugin bad failed during start: broken", err.Error())
	require.Equal(t, []string{"ok:start", "bad:start"}, trace)
}

func TestRunHookRecoversPanics(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(panicky{}))
	err := r.RunHook(t.Context(), HookDone, NewBuildContext(nil, nil))
	var pe *PluginError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "panicky", pe.PluginName)
	require.Contains(t, err.Error(), "oops")
}

func TestRunHookHonoursCancellation(t *testing.T) {
	var trace []string
	r := NewRegistry()
	require.NoError(t, r.Register(&tracePlugin{name: "a", trace: &trace}))
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	require.ErrorIs(t, r.RunHook(ctx, HookStart, NewBuildContext(nil, nil)), context.Canceled)
	require.Empty(t, trace)
}

func TestOutputsKeepInsertionOrder(t *testing.T) {
	o := NewOutputs()
	o.Set("main.js", []byte("js"))
	o.Set("index.html", []byte("<html>"))
	o.Set("main.js", []byte("js2"))
	o.Set("x.css", []byte("c"))
	o.Delete("index.html")
	o.Delete("missing")

	require.Equal(t, []string{"main.js", "x.css"}, o.Paths())
	b, ok := o.Get("main.js")
	require.True(t, ok)
	require.Equal(t, "js2", string(b))
	require.Equal(t, int64(4), o.TotalBytes())
	require.Equal(t, 2, o.Len())
}

func TestBuildContext(t *testing.T) {
	bc := NewBuildContext(config.Default(config.Env{}), nil)
	require.Len(t, bc.BuildID, 36)
	require.NotEqual(t, bc.BuildID, NewBuildContext(nil, nil).BuildID)
	require.Equal(t, "src", bc.SourceRoot)
	require.Equal(t, "build", bc.OutputDir)

	css := loader.NewModule("src/styles/a.css", "styles/a.css", nil)
	bc.Modules = []*loader.Module{
		loader.NewModule("src/index.js", "index.js", nil),
		css,
	}
	m, ok := bc.Module("styles/a.css")
	require.True(t, ok)
	require.Same(t, css, m)
	_, ok = bc.Module("nope.js")
	require.False(t, ok)

	bc.Assets["img/bg.png"] = "/assets/abc.png"
	u, ok := bc.AssetURL(css, "../img/bg.png")
	require.True(t, ok)
	require.Equal(t, "/assets/abc.png", u)
	_, ok = bc.AssetURL(css, "../../outside.png")
	require.False(t, ok)

	bc.AddChunk(Chunk{Name: "main", Kind: ChunkJS, File: "main.js"})
	bc.AddChunk(Chunk{Name: "main", Kind: ChunkCSS, File: "main.abc.css"})
	require.Equal(t, []Chunk{{Name: "main", Kind: ChunkCSS, File: "main.abc.css"}}, bc.ChunksOf(ChunkCSS))

	bc.SetValue("flag", true)
	bc.SetValue("name", "x")
	require.True(t, bc.GetBool("flag"))
	require.Equal(t, "x", bc.GetString("name"))
	require.Empty(t, bc.GetString("flag"))
}

type optionsPlugin struct {
	Filename string `yaml:"filename"`
}

func (optionsPlugin) Name() string { return "opts" }

func TestFactories(t *testing.T) {
	f := NewFactories()
	require.NoError(t, f.RegisterFactory("opts", func(o map[string]any) (Plugin, error) {
		p := optionsPlugin{Filename: "default.txt"}
		if err := DecodeOptions(o, &p); err != nil {
			return nil, err
		}
		return p, nil
	}))
	require.Error(t, f.RegisterFactory("opts", func(map[string]any) (Plugin, error) { return nil, nil }))

	plugins, err := f.Instantiate([]config.PluginConfig{{Name: "opts", Options: map[string]any{"filename": "x.txt"}}})
	require.NoError(t, err)
	require.Equal(t, "x.txt", plugins[0].(optionsPlugin).Filename)

	r, err := f.NewRegistry([]config.PluginConfig{{Name: "opts"}})
	require.NoError(t, err)
	require.Equal(t, []string{"opts"}, r.Names())

	_, err = f.Instantiate([]config.PluginConfig{{Name: "missing"}})
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))

	_, err = f.Instantiate([]config.PluginConfig{{Name: "opts", Options: map[string]any{"unknown": 1}}})
	require.Error(t, err)
	var pe *PluginError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "configure", pe.Operation)
}
