package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
)

// AssetAttributes lists, per element, the attributes that reference files.
var AssetAttributes = map[string][]string{
	"img":    {"src", "srcset"},
	"script": {"src"},
	"link":   {"href"},
	"source": {"src", "srcset"},
	"audio":  {"src"},
	"video":  {"src", "poster"},
	"track":  {"src"},
	"input":  {"src"},
}

// HTMLLoader records the local files an HTML document references and exports
// the document as a string.
type HTMLLoader struct{}

func (HTMLLoader) Name() string { return config.LoaderHTML }

func (HTMLLoader) Load(_ context.Context, m *Module, _ Options) error {
	doc, err := html.Parse(bytes.NewReader(m.Content))
	if err != nil {
		return errors.WrapError(err, errors.CategoryLoader, "failed to parse HTML").Build()
	}
	WalkAssetReferences(doc, func(_ *html.Node, _ *html.Attribute, ref string) {
		if IsLocalReference(ref) {
			m.AddDependency(ref)
		}
	})
	m.Code = exportString(string(m.Content))
	return nil
}

// WalkAssetReferences calls fn for every reference found in AssetAttributes.
// srcset values yield one call per candidate URL.
func WalkAssetReferences(n *html.Node, fn func(node *html.Node, attr *html.Attribute, ref string)) {
	if n.Type == html.ElementNode {
		if names, ok := AssetAttributes[n.Data]; ok {
			for i := range n.Attr {
				a := &n.Attr[i]
				if !contains(names, a.Key) {
					continue
				}
				if a.Key == "srcset" {
					for _, ref := range SrcsetURLs(a.Val) {
						fn(n, a, ref)
					}
					continue
				}
				fn(n, a, strings.TrimSpace(a.Val))
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		WalkAssetReferences(c, fn)
	}
}

// SrcsetURLs returns the URLs of a srcset attribute value.
func SrcsetURLs(v string) []string {
	var out []string
	for _, candidate := range strings.Split(v, ",") {
		fields := strings.Fields(candidate)
		if len(fields) > 0 {
			out = append(out, fields[0])
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// exportString renders s as a default-exported JavaScript string.
func exportString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return "export default " + strings.TrimSuffix(buf.String(), "\n") + ";\n"
}
