// Package relocate rewrites the package name space of an embedded library
// and merges it into a host artifact.
package relocate

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
	"git.home.luguber.info/inful/modjar/internal/jar"
)

const servicesPrefix = "META-INF/services/"

// Rule relocates one package prefix in both its dotted and slashed forms.
type Rule struct {
	From string
	To   string
}

// Map is an ordered set of rules; longer prefixes are tried first.
type Map struct {
	rules []Rule
}

// NewMap validates prefixes and builds a Map. Prefixes must be dotted
// package names; a target must not itself contain its source as a token.
func NewMap(m map[string]string) (*Map, error) {
	rm := &Map{}
	for _, from := range slices.Sorted(maps.Keys(m)) {
		to := m[from]
		if !validPackage(from) || !validPackage(to) {
			return nil, errors.ConfigError(fmt.Sprintf("invalid relocation %q -> %q", from, to)).Build()
		}
		rm.rules = append(rm.rules, Rule{From: from, To: to})
	}
	slices.SortStableFunc(rm.rules, func(a, b Rule) int { return len(b.From) - len(a.From) })
	for _, r := range rm.rules {
		if rm.Contains(r.To) {
			return nil, errors.ConfigError(fmt.Sprintf("relocation target %q still contains a relocated prefix", r.To)).Build()
		}
	}
	return rm, nil
}

// Rules returns the rules in matching order.
func (m *Map) Rules() []Rule { return slices.Clone(m.rules) }

func validPackage(s string) bool {
	if s == "" {
		return false
	}
	for _, seg := range strings.Split(s, ".") {
		if seg == "" {
			return false
		}
		for _, r := range seg {
			if !isIdent(byte(r)) && r < 0x80 {
				return false
			}
		}
	}
	return true
}

func isIdent(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// descriptorLead reports characters that may precede the L of a type descriptor.
func descriptorLead(c byte) bool {
	return strings.IndexByte("()[;<:+-^", c) >= 0
}

// startsToken reports whether a token may start at i: at the start of s,
// after a character that cannot continue a name, or right after the L of a
// type descriptor such as "Lcom/foo/Bar;".
func startsToken(s string, i int) bool {
	if i == 0 {
		return true
	}
	prev := s[i-1]
	if !isIdent(prev) && prev != '.' && prev != '/' {
		return true
	}
	if prev == 'L' {
		return i == 1 || descriptorLead(s[i-2])
	}
	return false
}

func endsToken(s string, j int) bool {
	return j == len(s) || !isIdent(s[j])
}

// match returns the replacement and source length of a rule matching at i.
func (m *Map) match(s string, i int) (string, int, bool) {
	if !startsToken(s, i) {
		return "", 0, false
	}
	for _, r := range m.rules {
		for _, sep := range []string{".", "/"} {
			from, to := r.From, r.To
			if sep == "/" {
				from = strings.ReplaceAll(from, ".", "/")
				to = strings.ReplaceAll(to, ".", "/")
			}
			if strings.HasPrefix(s[i:], from) && endsToken(s, i+len(from)) {
				return to, len(from), true
			}
		}
	}
	return "", 0, false
}

// Text rewrites every boundary-delimited occurrence of a source prefix.
func (m *Map) Text(s string) string {
	if len(m.rules) == 0 {
		return s
	}
	var b strings.Builder
	changed := false
	for i := 0; i < len(s); {
		if to, n, ok := m.match(s, i); ok {
			if !changed {
				b.Grow(len(s) + 16)
				b.WriteString(s[:i])
				changed = true
			}
			b.WriteString(to)
			i += n
			continue
		}
		if changed {
			b.WriteByte(s[i])
		}
		i++
	}
	if !changed {
		return s
	}
	return b.String()
}

// Contains reports whether s still holds a source prefix as a token.
func (m *Map) Contains(s string) bool {
	for i := 0; i < len(s); i++ {
		if _, _, ok := m.match(s, i); ok {
			return true
		}
	}
	return false
}

// Path relocates an entry path. Versioned paths are relocated below their
// prefix and service descriptors have their file name rewritten.
func (m *Map) Path(p string) string {
	if baseline, rel, ok := jar.SplitVersioned(p); ok {
		return jar.VersionedPrefix + baseline + "/" + m.Path(rel)
	}
	if name, ok := strings.CutPrefix(p, servicesPrefix); ok && !strings.Contains(name, "/") {
		return servicesPrefix + m.Text(name)
	}
	return m.Text(p)
}

// PathContains reports whether p still holds a source prefix after the
// same decomposition Path uses.
func (m *Map) PathContains(p string) bool {
	if _, rel, ok := jar.SplitVersioned(p); ok {
		return m.PathContains(rel)
	}
	if name, ok := strings.CutPrefix(p, servicesPrefix); ok && !strings.Contains(name, "/") {
		return m.Contains(name)
	}
	return m.Contains(p)
}
