package javadoc

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
	"git.home.luguber.info/inful/modjar/internal/module"
)

// Finding is a link in the published tree that still points at a
// module-qualified location of an external module.
type Finding struct {
	File   string
	Tag    string
	Href   string
	Module module.Name
}

// Audit parses every .html file below dir and reports anchors and link
// elements whose href still starts with "<baseUrl><module>/".
func Audit(dir string, table *LinkTable) ([]Finding, error) {
	rewrites := table.Rewrites()
	if len(rewrites) == 0 {
		return nil, nil
	}
	var findings []Finding
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(d.Name(), ".html") {
			return err
		}
		f, err := os.Open(filepath.Clean(p))
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		doc, err := html.Parse(f)
		if err != nil {
			return errors.WrapError(err, errors.CategoryDocs, "parse generated HTML").
				WithContext(errors.ContextPath, p).
				Build()
		}
		rel, _ := filepath.Rel(dir, p)
		findings = append(findings, auditNode(doc, filepath.ToSlash(rel), rewrites)...)
		return nil
	})
	if err != nil {
		if _, ok := errors.AsClassified(err); ok {
			return nil, err
		}
		return nil, fsErr(err, "audit documentation tree", dir)
	}
	return findings, nil
}

func auditNode(n *html.Node, file string, rewrites []Rewrite) []Finding {
	var out []Finding
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "a" || n.Data == "link") {
			if href := attr(n, "href"); href != "" {
				for _, r := range rewrites {
					if strings.HasPrefix(href, r.From) {
						out = append(out, Finding{File: file, Tag: n.Data, Href: href, Module: r.Module})
						break
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
