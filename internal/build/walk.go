package build

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpack/internal/rules"
)

// job is one source file and the rule that claimed it. A nil rule marks an
// unmatched file that is copied through.
type job struct {
	path string
	rel  string
	rule *rules.Rule
}

// walk lists the files under root that take part in the build, in lexical order.
func (b *Builder) walk(ctx context.Context, root, outDir string) ([]job, error) {
	var jobs []job
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == root {
			return nil
		}
		if skipEntry(d.Name()) || p == outDir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if r, ok := b.matcher.Match(rel); ok {
			jobs = append(jobs, job{path: p, rel: rel, rule: r})
			return nil
		}
		switch b.cfg.Module.Unmatched {
		case config.UnmatchedIgnore:
		case config.UnmatchedReject:
			return errors.RuleError("no rule matches file").
				WithContext("path", rel).
				Build()
		default:
			jobs = append(jobs, job{path: p, rel: rel})
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.IsClassified(err) {
			return nil, err
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "walk source root").
			WithContext("path", root).
			Build()
	}
	return jobs, nil
}

func skipEntry(name string) bool {
	return strings.HasPrefix(name, ".") || name == "node_modules"
}
