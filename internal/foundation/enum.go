// Package foundation holds small generic helpers shared across packages.
package foundation

import (
	"fmt"
	"sort"
	"strings"

	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
)

func canonical(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Enum maps user spellings of a string enum onto its values. Matching ignores
// case and surrounding space; aliases map extra spellings onto a value.
type Enum[T ~string] struct {
	name   string
	values map[string]T
	names  []string
}

// NewEnum creates an Enum named name (used in error messages) over values.
func NewEnum[T ~string](name string, values ...T) *Enum[T] {
	e := &Enum[T]{name: name, values: make(map[string]T, len(values))}
	for _, v := range values {
		e.values[canonical(string(v))] = v
		e.names = append(e.names, string(v))
	}
	sort.Strings(e.names)
	return e
}

// WithAlias lets alias stand for v.
func (e *Enum[T]) WithAlias(alias string, v T) *Enum[T] {
	e.values[canonical(alias)] = v
	return e
}

// Normalize returns the canonical value for raw. Unknown input comes back
// trimmed and lowercased with ok=false so a later validation can report it.
func (e *Enum[T]) Normalize(raw T) (T, bool) {
	c := canonical(string(raw))
	if v, ok := e.values[c]; ok {
		return v, true
	}
	return T(c), false
}

// Parse is Normalize that fails with a validation error for unknown input.
func (e *Enum[T]) Parse(raw string) (T, error) {
	v, ok := e.Normalize(T(raw))
	if !ok {
		return v, errors.ValidationError(fmt.Sprintf("unknown %s %q", e.name, raw)).
			WithContext("allowed", e.Values()).
			Build()
	}
	return v, nil
}

// Values lists the canonical values, sorted. Aliases are not included.
func (e *Enum[T]) Values() []string {
	return append([]string(nil), e.names...)
}
