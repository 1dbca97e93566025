package rules

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
)

// Precedence values accepted by WithPrecedence.
const (
	FirstMatch = config.PrecedenceFirst
	LastMatch  = config.PrecedenceLast
)

// Matcher maps file paths to the rule that handles them.
type Matcher struct {
	rules      []*Rule
	precedence config.Precedence
	strict     bool
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithPrecedence selects which rule wins when several match. FirstMatch is the default.
func WithPrecedence(p config.Precedence) Option {
	return func(m *Matcher) {
		if p != "" {
			m.precedence = p
		}
	}
}

// WithStrict makes NewMatcher fail when two rules claim the same file
// extension taken from the rules' own patterns.
func WithStrict() Option {
	return func(m *Matcher) { m.strict = true }
}

// NewMatcher compiles the rules in registration order.
func NewMatcher(cfgs []config.RuleConfig, opts ...Option) (*Matcher, error) {
	m := &Matcher{precedence: FirstMatch}
	for _, opt := range opts {
		opt(m)
	}
	if m.precedence != FirstMatch && m.precedence != LastMatch {
		return nil, errors.RuleError(fmt.Sprintf("unknown rule precedence %q", m.precedence)).Build()
	}
	m.rules = make([]*Rule, 0, len(cfgs))
	for i, rc := range cfgs {
		r, err := compileRule(i, rc)
		if err != nil {
			return nil, err
		}
		m.rules = append(m.rules, r)
	}
	if m.strict {
		if conflicts := m.Conflicts(m.samplePaths()); len(conflicts) > 0 {
			c := conflicts[0]
			return nil, errors.RuleError(fmt.Sprintf("rules %v all match %s", c.Rules, c.Path)).
				WithContext("conflicts", len(conflicts)).
				Build()
		}
	}
	return m, nil
}

// Rules returns the compiled rules in registration order.
func (m *Matcher) Rules() []*Rule { return m.rules }

// Match returns the rule that handles path, or false when no rule does.
func (m *Matcher) Match(path string) (*Rule, bool) {
	path = filepath.ToSlash(path)
	if m.precedence == LastMatch {
		for i := len(m.rules) - 1; i >= 0; i-- {
			if m.rules[i].Matches(path) {
				return m.rules[i], true
			}
		}
		return nil, false
	}
	for _, r := range m.rules {
		if r.Matches(path) {
			return r, true
		}
	}
	return nil, false
}

// MatchAll returns every rule matching path in registration order.
func (m *Matcher) MatchAll(path string) []*Rule {
	var out []*Rule
	for _, r := range m.rules {
		if r.Matches(path) {
			out = append(out, r)
		}
	}
	return out
}

// Conflict is a sample path claimed by more than one rule.
type Conflict struct {
	Path  string
	Rules []int
}

// Conflicts reports the samples that more than one rule matches.
func (m *Matcher) Conflicts(samples []string) []Conflict {
	var out []Conflict
	for _, s := range samples {
		all := m.MatchAll(s)
		if len(all) < 2 {
			continue
		}
		idx := make([]int, len(all))
		for i, r := range all {
			idx[i] = r.Index
		}
		out = append(out, Conflict{Path: filepath.ToSlash(s), Rules: idx})
	}
	return out
}

var extGroup = regexp.MustCompile(`\\\.\(?([A-Za-z0-9?|]+)\)?\$`)

// samplePaths builds one file name per extension mentioned in the rules.
func (m *Matcher) samplePaths() []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(ext string) {
		ext = strings.ToLower(ext)
		if ext == "" {
			return
		}
		if _, ok := seen[ext]; ok {
			return
		}
		seen[ext] = struct{}{}
		out = append(out, "sample."+ext)
	}
	for _, r := range m.rules {
		if r.test != nil {
			for _, sm := range extGroup.FindAllStringSubmatch(r.test.String(), -1) {
				for _, alt := range strings.Split(sm[1], "|") {
					for _, ext := range expandOptional(alt) {
						add(ext)
					}
				}
			}
		}
		if r.globSrc != "" {
			if i := strings.LastIndex(r.globSrc, "."); i >= 0 && !strings.ContainsAny(r.globSrc[i+1:], "*?[{/") {
				add(r.globSrc[i+1:])
			}
		}
	}
	return out
}

// expandOptional expands single-character optionals: "jpe?g" -> jpg, jpeg.
func expandOptional(s string) []string {
	i := strings.IndexByte(s, '?')
	if i <= 0 {
		return []string{s}
	}
	without := s[:i-1] + s[i+1:]
	with := s[:i] + s[i+1:]
	var out []string
	for _, v := range []string{without, with} {
		out = append(out, expandOptional(v)...)
	}
	return out
}
