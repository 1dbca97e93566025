package rules

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gobwas/glob"

	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
)

// Rule is a compiled module rule. A file matches when it satisfies every
// condition the rule sets and is not excluded.
type Rule struct {
	Index   int
	Type    config.ModuleType
	Use     []config.LoaderRef
	Options config.ParserConfig

	test    *regexp.Regexp
	glob    glob.Glob
	globSrc string
	exclude *regexp.Regexp
}

func compileRule(index int, rc config.RuleConfig) (*Rule, error) {
	r := &Rule{
		Index:   index,
		Type:    rc.Type,
		Use:     rc.Use,
		Options: rc.Parser,
		globSrc: rc.Glob,
	}
	if r.Type == "" {
		r.Type = config.TypeJavaScript
	}
	if r.Options.DataURLMaxSize == 0 {
		r.Options.DataURLMaxSize = config.DefaultDataURLMaxSize
	}
	if rc.Test == "" && rc.Glob == "" {
		return nil, errors.RuleError("rule needs a test pattern or a glob").WithContext("rule_index", index).Build()
	}

	var err error
	if rc.Test != "" {
		if r.test, err = regexp.Compile(rc.Test); err != nil {
			return nil, ruleCompileError(err, index, "test", rc.Test)
		}
	}
	if rc.Exclude != "" {
		if r.exclude, err = regexp.Compile(rc.Exclude); err != nil {
			return nil, ruleCompileError(err, index, "exclude", rc.Exclude)
		}
	}
	if rc.Glob != "" {
		if r.glob, err = glob.Compile(rc.Glob, '/'); err != nil {
			return nil, ruleCompileError(err, index, "glob", rc.Glob)
		}
	}
	return r, nil
}

func ruleCompileError(err error, index int, field, pattern string) error {
	return errors.WrapError(err, errors.CategoryRule, fmt.Sprintf("invalid %s pattern", field)).
		Fatal().UserAction().
		WithContext("rule_index", index).
		WithContext("pattern", pattern).
		Build()
}

// Matches reports whether the forward-slash relative path satisfies the rule.
func (r *Rule) Matches(path string) bool {
	path = filepath.ToSlash(path)
	if r.exclude != nil && r.exclude.MatchString(path) {
		return false
	}
	if r.test != nil && !r.test.MatchString(path) {
		return false
	}
	if r.glob != nil && !r.glob.Match(path) {
		return false
	}
	return true
}

// LoaderNames lists the chain as configured, left to right.
func (r *Rule) LoaderNames() []string {
	names := make([]string, len(r.Use))
	for i, u := range r.Use {
		names[i] = u.Loader
	}
	return names
}

func (r *Rule) String() string {
	var cond []string
	if r.test != nil {
		cond = append(cond, "test="+r.test.String())
	}
	if r.globSrc != "" {
		cond = append(cond, "glob="+r.globSrc)
	}
	if r.exclude != nil {
		cond = append(cond, "exclude="+r.exclude.String())
	}
	target := string(r.Type)
	if len(r.Use) > 0 {
		target = "[" + strings.Join(r.LoaderNames(), ", ") + "]"
	}
	return fmt.Sprintf("rule %d (%s) -> %s", r.Index, strings.Join(cond, " "), target)
}
