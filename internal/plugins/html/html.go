// Package html renders the page template with the build's stylesheet and
// script chunks injected and its asset references rewritten.
package html

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/assetpack/internal/assets"
	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/loader"
	"git.home.luguber.info/inful/assetpack/internal/logfields"
	"git.home.luguber.info/inful/assetpack/internal/plugin"
)

// Options configure the html plugin.
type Options struct {
	Template string `yaml:"template"`
	Filename string `yaml:"filename"`
	Title    string `yaml:"title"`
	Inject   *bool  `yaml:"inject"`
}

// Plugin emits the HTML page.
type Plugin struct {
	opts Options
}

// New returns the plugin with defaults applied.
func New(opts Options) *Plugin {
	if opts.Filename == "" {
		opts.Filename = "index.html"
	}
	if opts.Title == "" {
		opts.Title = "assetpack"
	}
	return &Plugin{opts: opts}
}

// Factory builds the plugin from configuration options.
func Factory(options map[string]any) (plugin.Plugin, error) {
	var opts Options
	if err := plugin.DecodeOptions(options, &opts); err != nil {
		return nil, err
	}
	return New(opts), nil
}

func (p *Plugin) Name() string { return config.PluginHTML }

const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title></title>
</head>
<body>
</body>
</html>
`

// OnEmit renders the page and adds it to the outputs.
func (p *Plugin) OnEmit(_ context.Context, bc *plugin.BuildContext) error {
	src, from, err := p.template(bc)
	if err != nil {
		return err
	}
	doc, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return err
	}

	rewriteReferences(doc, bc, from)

	head := findElement(doc, atom.Head)
	body := findElement(doc, atom.Body)
	if from == nil {
		if title := findElement(doc, atom.Title); title != nil && title.FirstChild == nil {
			title.AppendChild(&html.Node{Type: html.TextNode, Data: p.opts.Title})
		}
	}

	if p.opts.Inject == nil || *p.opts.Inject {
		publicPath := bc.Config.Output.PublicPath
		for _, c := range bc.ChunksOf(plugin.ChunkCSS) {
			head.AppendChild(element(atom.Link, [][2]string{
				{"href", assets.PublicURL(publicPath, c.File)},
				{"rel", "stylesheet"},
			}))
		}
		for _, c := range bc.ChunksOf(plugin.ChunkJS) {
			body.AppendChild(element(atom.Script, [][2]string{
				{"defer", ""},
				{"src", assets.PublicURL(publicPath, c.File)},
			}))
		}
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return err
	}
	bc.Outputs.Set(p.opts.Filename, buf.Bytes())
	bc.Logger.Debug("Rendered HTML page", logfields.Output(p.opts.Filename))
	return nil
}

// template returns the template bytes and, when the template lives in the
// source tree, the module its references are relative to.
func (p *Plugin) template(bc *plugin.BuildContext) ([]byte, *loader.Module, error) {
	if p.opts.Template == "" {
		return []byte(defaultTemplate), nil, nil
	}
	want, err := filepath.Abs(p.opts.Template)
	if err != nil {
		return nil, nil, err
	}
	for _, m := range bc.Modules {
		if mp, err := filepath.Abs(m.Path); err == nil && mp == want {
			return m.Source, m, nil
		}
	}

	b, err := os.ReadFile(want)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			bc.Warn("html template " + p.opts.Template + " not found, using the built-in page")
			return []byte(defaultTemplate), nil, nil
		}
		return nil, nil, err
	}
	root, _ := filepath.Abs(bc.SourceRoot)
	rel, relErr := filepath.Rel(root, want)
	if relErr != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(want)
	}
	return b, loader.NewModule(want, filepath.ToSlash(rel), b), nil
}

// rewriteReferences points local asset references at their emitted URLs.
func rewriteReferences(doc *html.Node, bc *plugin.BuildContext, from *loader.Module) {
	if from == nil {
		return
	}
	loader.WalkAssetReferences(doc, func(_ *html.Node, attr *html.Attribute, ref string) {
		if !loader.IsLocalReference(ref) {
			return
		}
		u, ok := bc.AssetURL(from, ref)
		if !ok {
			return
		}
		if attr.Key == "srcset" {
			attr.Val = replaceSrcsetURL(attr.Val, ref, u)
			return
		}
		attr.Val = u
	})
}

func replaceSrcsetURL(srcset, ref, u string) string {
	parts := strings.Split(srcset, ",")
	for i, candidate := range parts {
		fields := strings.Fields(candidate)
		if len(fields) > 0 && fields[0] == ref {
			fields[0] = u
		}
		parts[i] = strings.Join(fields, " ")
	}
	return strings.Join(parts, ", ")
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func element(a atom.Atom, attrs [][2]string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for _, kv := range attrs {
		n.Attr = append(n.Attr, html.Attribute{Key: kv[0], Val: kv[1]})
	}
	return n
}
