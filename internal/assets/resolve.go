package assets

import (
	"encoding/base64"
	"encoding/json"
	"mime"
	"strings"

	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpack/internal/loader"
	"git.home.luguber.info/inful/assetpack/internal/rules"
)

// Kind is how an asset module ends up in the build.
type Kind string

const (
	KindFile   Kind = "file"
	KindInline Kind = "inline"
	KindSource Kind = "source"
)

// Emission is the result of resolving one asset module.
type Emission struct {
	Kind Kind
	// Output is the path relative to the output directory (KindFile only).
	Output string
	// URL is the public URL (KindFile) or data URI (KindInline).
	URL     string
	Content []byte
}

// Resolve applies the rule's asset module type to m and sets m.Code to what
// an importer receives.
func Resolve(m *loader.Module, r *rules.Rule, cfg *config.Config) (Emission, error) {
	var e Emission
	switch r.Type {
	case config.TypeAssetResource:
		e = emitFile(m, cfg)
	case config.TypeAssetInline:
		e = inline(m)
	case config.TypeAsset:
		if len(m.Content) <= r.Options.DataURLMaxSize {
			e = inline(m)
		} else {
			e = emitFile(m, cfg)
		}
	case config.TypeAssetSource:
		e = Emission{Kind: KindSource, Content: m.Content}
		m.Code = exportString(string(m.Content))
		m.Type = r.Type
		return e, nil
	default:
		return Emission{}, errors.RuleError("rule is not an asset rule").
			WithContext("rule_index", r.Index).
			WithContext("type", string(r.Type)).
			Build()
	}
	m.Type = r.Type
	m.Code = exportString(e.URL)
	return e, nil
}

func emitFile(m *loader.Module, cfg *config.Config) Emission {
	name := Filename(cfg.Output.AssetModuleFilename, m.RelPath, m.Content)
	return Emission{
		Kind:    KindFile,
		Output:  name,
		URL:     PublicURL(cfg.Output.PublicPath, name),
		Content: m.Content,
	}
}

func inline(m *loader.Module) Emission {
	return Emission{
		Kind:    KindInline,
		URL:     DataURI(MimeType(m.Ext()), m.Content),
		Content: m.Content,
	}
}

// DataURI encodes content as a base64 data URI.
func DataURI(mimeType string, content []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(content)
}

var knownTypes = map[string]string{
	".svg":  "image/svg+xml",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".ico":  "image/x-icon",
	".avif": "image/avif",
}

// MimeType returns the media type for an extension (with dot).
func MimeType(ext string) string {
	ext = strings.ToLower(ext)
	if t, ok := knownTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

func exportString(s string) string {
	b, _ := json.Marshal(s)
	return "export default " + string(b) + ";\n"
}
