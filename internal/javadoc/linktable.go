package javadoc

import (
	"maps"
	"net/url"
	"slices"
	"strings"

	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
	"git.home.luguber.info/inful/modjar/internal/module"
)

// ElementListName is the file the documentation tool publishes at the root of
// a documentation tree to list its packages.
const ElementListName = "element-list"

// LinkTable maps external module names to the base URL of their published,
// non-modular documentation. It is immutable after construction.
type LinkTable struct {
	urls map[module.Name]string
}

// NewLinkTable validates m. Every base URL must end with "/"; URLs are never
// normalised, so a missing slash is a configuration error naming the module.
func NewLinkTable(m map[string]string) (*LinkTable, error) {
	t := &LinkTable{urls: make(map[module.Name]string, len(m))}
	for _, name := range slices.Sorted(maps.Keys(m)) {
		base := m[name]
		if strings.TrimSpace(name) == "" {
			return nil, errors.ConfigError("external module name must not be empty").
				WithContext(errors.ContextURL, base).
				Build()
		}
		if !strings.HasSuffix(base, "/") {
			return nil, errors.ConfigError("all base URLs must end with a trailing slash").
				WithContext(errors.ContextModule, name).
				WithContext(errors.ContextURL, base).
				Build()
		}
		u, err := url.Parse(base)
		if err != nil || u.Scheme == "" || u.Host == "" {
			b := errors.ConfigError("base URL must be absolute").
				WithContext(errors.ContextModule, name).
				WithContext(errors.ContextURL, base)
			if err != nil {
				b = b.WithCause(err)
			}
			return nil, b.Build()
		}
		t.urls[module.Name(name)] = base
	}
	return t, nil
}

// Modules returns the external module names in sorted order.
func (t *LinkTable) Modules() []module.Name {
	if t == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(t.urls))
}

// URL returns the base URL for name.
func (t *LinkTable) URL(name module.Name) (string, bool) {
	if t == nil {
		return "", false
	}
	u, ok := t.urls[name]
	return u, ok
}

// ElementListURL is where the element list of name is published.
func (t *LinkTable) ElementListURL(name module.Name) string {
	u, _ := t.URL(name)
	return u + ElementListName
}

// Len returns the number of external modules.
func (t *LinkTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.urls)
}

// Rewrites returns the literal substitutions applied to generated HTML:
// "<baseUrl><module>/" becomes "<baseUrl>". Order follows Modules.
func (t *LinkTable) Rewrites() []Rewrite {
	out := make([]Rewrite, 0, t.Len())
	for _, name := range t.Modules() {
		base := t.urls[name]
		out = append(out, Rewrite{Module: name, From: base + string(name) + "/", To: base})
	}
	return out
}

// Rewrite is one literal link substitution.
type Rewrite struct {
	Module module.Name
	From   string
	To     string
}
