package javadoc

import (
	"path"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"git.home.luguber.info/inful/modjar/internal/modgraph"
	"git.home.luguber.info/inful/modjar/internal/module"
)

// GroupRule is a configured overview group: modules whose names match any
// pattern are listed under Title. Patterns use "*" as a wildcard, e.g.
// "org.junit.jupiter*".
type GroupRule struct {
	Title    string
	Patterns []string
}

// Group is a rule together with the documented modules it covers.
type Group struct {
	Title    string
	Patterns []string
	Modules  []module.Name
}

// Matches reports whether name matches one of the rule's patterns.
func (r GroupRule) Matches(name module.Name) bool {
	for _, p := range r.Patterns {
		if ok, err := path.Match(p, string(name)); err == nil && ok {
			return true
		}
	}
	return false
}

// GroupByPrefix assigns each documented module of graph to the first rule that
// matches it. Rules that match nothing are dropped.
func GroupByPrefix(graph *modgraph.Graph, rules []GroupRule) []Group {
	names := documentedModules(graph)
	groups := make([]Group, 0, len(rules))
	assigned := make(map[module.Name]bool, len(names))
	for _, r := range rules {
		g := Group{Title: r.Title, Patterns: slices.Clone(r.Patterns)}
		for _, n := range names {
			if !assigned[n] && r.Matches(n) {
				g.Modules = append(g.Modules, n)
				assigned[n] = true
			}
		}
		if len(g.Modules) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

// DefaultGroups derives one rule per leading identifier segment. Projects
// "jupiter-api" and "jupiter-engine" with root "org" produce the rule
// "Jupiter" -> "org.jupiter*". Single-segment identifiers get their own rule.
func DefaultGroups(graph *modgraph.Graph) []GroupRule {
	r := graph.Resolver()
	sep := r.Separator
	if sep == "" {
		sep = module.DefaultSeparator
	}
	var rules []GroupRule
	seen := map[string]bool{}
	for _, p := range documentedProjects(graph) {
		head, _, _ := strings.Cut(p.ID, sep)
		if head == "" || seen[head] {
			continue
		}
		seen[head] = true
		rules = append(rules, GroupRule{
			Title:    title(head),
			Patterns: []string{string(r.Resolve(head)) + "*"},
		})
	}
	slices.SortFunc(rules, func(a, b GroupRule) int { return strings.Compare(a.Title, b.Title) })
	return rules
}

func title(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
