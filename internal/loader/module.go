package loader

import (
	"path"
	"strings"

	"git.home.luguber.info/inful/assetpack/internal/config"
)

// Module is one source file flowing through a loader chain.
//
// Loaders read Content and may replace it. Code is the JavaScript form of the
// module handed to the linker when something imports it. CSS holds stylesheet
// text and Extract marks it for the stylesheet chunk.
type Module struct {
	Path    string
	RelPath string
	Source  []byte
	Content []byte
	Type    config.ModuleType

	Code    string
	CSS     []byte
	Extract bool
	Map     []byte

	// Dependencies are local references as written in the source, in first-seen order.
	Dependencies []string
	Meta         map[string]any
}

// NewModule returns a module whose Content starts out as the source bytes.
func NewModule(filePath, relPath string, source []byte) *Module {
	return &Module{
		Path:    filePath,
		RelPath: relPath,
		Source:  source,
		Content: source,
		Type:    config.TypeJavaScript,
		Meta:    map[string]any{},
	}
}

// Ext is the lower-cased extension of RelPath including the dot.
func (m *Module) Ext() string {
	return strings.ToLower(path.Ext(m.RelPath))
}

// AddDependency records ref once.
func (m *Module) AddDependency(ref string) {
	for _, d := range m.Dependencies {
		if d == ref {
			return
		}
	}
	m.Dependencies = append(m.Dependencies, ref)
}

// ResolveDependency turns a reference relative to the module into a path
// relative to the source root. ok is false for references that leave it.
func (m *Module) ResolveDependency(ref string) (string, bool) {
	ref = stripQuery(ref)
	var p string
	if strings.HasPrefix(ref, "/") {
		p = path.Clean(strings.TrimPrefix(ref, "/"))
	} else {
		p = path.Join(path.Dir(m.RelPath), ref)
	}
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", false
	}
	return p, true
}

func stripQuery(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		return ref[:i]
	}
	return ref
}

// IsLocalReference reports whether ref points at a file in the source tree.
func IsLocalReference(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "//") {
		return false
	}
	if i := strings.Index(ref, ":"); i > 0 && !strings.ContainsAny(ref[:i], "/.?#") {
		// scheme such as http:, data:, mailto:
		return false
	}
	return true
}
