// Package assets names emitted files and turns asset modules into the form
// their importers see: a URL, a data URI or the file text.
package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// HashLength is the number of hex characters used for [hash] and [contenthash].
const HashLength = 20

// ContentHash returns the truncated sha256 digest of content.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])[:HashLength]
}

var placeholder = regexp.MustCompile(`\[(name|ext|path|query|hash|contenthash)(?::(\d+))?\]`)

// Filename expands a filename template for a file at relPath (forward slashes,
// optionally with a ?query) with the given content.
//
//	[name]        base name without extension
//	[ext]         extension including the dot
//	[path]        directory of relPath with a trailing slash, empty at the root
//	[query]       the ?query suffix of relPath, if any
//	[hash]        content hash; [hash:8] truncates
//	[contenthash] same as [hash]
func Filename(template, relPath string, content []byte) string {
	file, query := relPath, ""
	if i := strings.IndexByte(relPath, '?'); i >= 0 {
		file, query = relPath[:i], relPath[i:]
	}
	ext := path.Ext(file)
	base := strings.TrimSuffix(path.Base(file), ext)
	dir := path.Dir(file)
	if dir == "." || dir == "/" {
		dir = ""
	} else {
		dir += "/"
	}

	var hash string
	return placeholder.ReplaceAllStringFunc(template, func(token string) string {
		sm := placeholder.FindStringSubmatch(token)
		switch sm[1] {
		case "name":
			return base
		case "ext":
			return ext
		case "path":
			return dir
		case "query":
			return query
		default:
			if hash == "" {
				hash = ContentHash(content)
			}
			if sm[2] != "" {
				if n, err := strconv.Atoi(sm[2]); err == nil && n > 0 && n < len(hash) {
					return hash[:n]
				}
			}
			return hash
		}
	})
}

// PublicURL joins the public path and an output-relative file name.
func PublicURL(publicPath, name string) string {
	if publicPath == "" {
		publicPath = "/"
	}
	if !strings.HasSuffix(publicPath, "/") {
		publicPath += "/"
	}
	return publicPath + strings.TrimPrefix(name, "/")
}
