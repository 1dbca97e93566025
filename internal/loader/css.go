package loader

import (
	"context"
	"regexp"

	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
)

var (
	cssURLPattern    = regexp.MustCompile(`url\(\s*(?:"([^"]*)"|'([^']*)'|([^)'"\s]+))\s*\)`)
	cssImportPattern = regexp.MustCompile(`@import\s+(?:url\(\s*)?(?:"([^"]*)"|'([^']*)'|([^)'"\s;]+))\s*\)?[^;]*;`)
)

// CSSLoader records url() and @import references and keeps the stylesheet text.
type CSSLoader struct{}

func (CSSLoader) Name() string { return config.LoaderCSS }

func (CSSLoader) Load(_ context.Context, m *Module, _ Options) error {
	css := m.Content
	for _, sm := range cssImportPattern.FindAllSubmatch(css, -1) {
		if ref := firstGroup(sm); IsLocalReference(ref) {
			m.AddDependency(ref)
		}
	}
	for _, sm := range cssURLPattern.FindAllSubmatch(css, -1) {
		if ref := firstGroup(sm); IsLocalReference(ref) {
			m.AddDependency(ref)
		}
	}
	m.CSS = css
	m.Code = exportString(string(css))
	return nil
}

// CSSExtractLoader marks stylesheet output of css-loader for the extracted chunk.
type CSSExtractLoader struct{}

func (CSSExtractLoader) Name() string { return config.LoaderCSSExtract }

func (CSSExtractLoader) Load(_ context.Context, m *Module, _ Options) error {
	if m.CSS == nil {
		return errors.LoaderError("css-extract-loader needs css-loader output; list it after css-extract-loader").Build()
	}
	m.Extract = true
	// The stylesheet leaves the JavaScript graph; importing it only keeps the side effect.
	m.Code = "export {};\n"
	return nil
}

// RewriteCSS drops @import rules for local files and replaces local url()
// references for which resolve returns a new URL.
func RewriteCSS(css []byte, resolve func(ref string) (string, bool)) []byte {
	out := cssImportPattern.ReplaceAllFunc(css, func(match []byte) []byte {
		sm := cssImportPattern.FindSubmatch(match)
		if IsLocalReference(firstGroup(sm)) {
			return nil
		}
		return match
	})
	return cssURLPattern.ReplaceAllFunc(out, func(match []byte) []byte {
		sm := cssURLPattern.FindSubmatch(match)
		ref := firstGroup(sm)
		if !IsLocalReference(ref) {
			return match
		}
		if url, ok := resolve(ref); ok {
			return []byte(`url("` + url + `")`)
		}
		return match
	})
}

func firstGroup(sm [][]byte) string {
	for _, g := range sm[1:] {
		if len(g) > 0 {
			return string(g)
		}
	}
	return ""
}
