// Package module derives canonical module names from project identifiers.
//
// Every component that needs a module name (argument composition, artifact
// assembly, relocation checks, documentation linking) goes through a Resolver,
// so there is exactly one derivation rule in the program.
package module

import "strings"

const (
	// DefaultRoot is the organisational prefix of every derived module name.
	DefaultRoot = "org"
	// DefaultSeparator is the character in project identifiers that becomes a dot.
	DefaultSeparator = "-"
)

// Name is a canonical dotted module name such as "org.junit.platform.commons".
type Name string

func (n Name) String() string { return string(n) }

// Resolver maps project identifiers to module names.
type Resolver struct {
	Root      string
	Separator string
}

// Default returns the resolver used when the configuration does not override it.
func Default() Resolver {
	return Resolver{Root: DefaultRoot, Separator: DefaultSeparator}
}

// Resolve replaces every separator in identifier with a dot and prefixes the
// root. It is pure and total; callers that need to reject empty identifiers
// use Derivable.
func (r Resolver) Resolve(identifier string) Name {
	sep := r.Separator
	if sep == "" {
		sep = DefaultSeparator
	}
	dotted := strings.ReplaceAll(identifier, sep, ".")
	if r.Root == "" {
		return Name(dotted)
	}
	if dotted == "" {
		return Name(r.Root)
	}
	return Name(r.Root + "." + dotted)
}

// Derivable reports whether identifier yields a well-formed module name: it
// must be non-empty and must not produce empty dotted segments.
func (r Resolver) Derivable(identifier string) bool {
	if strings.TrimSpace(identifier) == "" {
		return false
	}
	for _, seg := range strings.Split(string(r.Resolve(identifier)), ".") {
		if seg == "" {
			return false
		}
	}
	return true
}

// Identifier reverses Resolve for names that carry the resolver's root.
func (r Resolver) Identifier(name Name) (string, bool) {
	s := string(name)
	if r.Root != "" {
		prefix := r.Root + "."
		if !strings.HasPrefix(s, prefix) {
			return "", false
		}
		s = strings.TrimPrefix(s, prefix)
	}
	sep := r.Separator
	if sep == "" {
		sep = DefaultSeparator
	}
	return strings.ReplaceAll(s, ".", sep), true
}
