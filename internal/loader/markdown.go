package loader

import (
	"bytes"
	"context"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
)

// MarkdownLoader renders Markdown (GitHub flavoured) to HTML. Image
// destinations are recorded as dependencies. Raw HTML in the source is
// dropped unless the "unsafe" option is set.
type MarkdownLoader struct{}

func (MarkdownLoader) Name() string { return config.LoaderMarkdown }

func (MarkdownLoader) Load(_ context.Context, m *Module, opts Options) error {
	var rendererOpts []goldmark.Option
	if opts.Bool("unsafe") {
		rendererOpts = append(rendererOpts, goldmark.WithRendererOptions(html.WithUnsafe()))
	}
	md := goldmark.New(append([]goldmark.Option{
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	}, rendererOpts...)...)

	source := m.Content
	root := md.Parser().Parse(text.NewReader(source))
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if img, ok := n.(*gmast.Image); ok {
			if ref := string(img.Destination); IsLocalReference(ref) {
				m.AddDependency(ref)
			}
		}
		return gmast.WalkContinue, nil
	})

	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, source, root); err != nil {
		return errors.WrapError(err, errors.CategoryLoader, "failed to render markdown").Build()
	}
	m.Content = buf.Bytes()
	m.Code = exportString(buf.String())
	return nil
}
