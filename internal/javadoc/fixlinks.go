package javadoc

import (
	"bufio"
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
)

// PackageListName is the pre-module name of the element list, still read by
// older documentation tools.
const PackageListName = "package-list"

// Fixer rewrites a generated documentation tree into its published form.
type Fixer struct {
	Rewrites []Rewrite
	// Favicon is a URL; when set a <link rel="icon"> is inserted after every
	// line-leading <head>.
	Favicon string
}

// NewFixer builds a fixer for the modules of table.
func NewFixer(table *LinkTable, favicon string) *Fixer {
	return &Fixer{Rewrites: table.Rewrites(), Favicon: favicon}
}

// FixReport summarises a FixLinks run.
type FixReport struct {
	Files        int
	HTMLFiles    int
	Replacements int
}

// FixLine applies the favicon insertion and every literal rewrite to one
// line and returns the number of link substitutions made.
func (f *Fixer) FixLine(line string) (string, int) {
	if f.Favicon != "" && strings.HasPrefix(line, "<head>") {
		line = strings.ReplaceAll(line, "<head>", "<head>"+faviconTag(f.Favicon))
	}
	n := 0
	for _, r := range f.Rewrites {
		if c := strings.Count(line, r.From); c > 0 {
			n += c
			line = strings.ReplaceAll(line, r.From, r.To)
		}
	}
	return line, n
}

func faviconTag(href string) string {
	return `<link rel="icon" type="image/png" href="` + href + `">`
}

// FixLinks copies src into dst, which is replaced as a whole. Files ending
// in ".html" are filtered line by line through FixLine; every other file is
// copied byte for byte. The root element list is also published as
// package-list. The tree is built in a sibling directory and renamed into
// place, so a failed run leaves the previous dst untouched.
func (f *Fixer) FixLinks(src, dst string) (*FixReport, error) {
	parent := filepath.Dir(dst)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fsErr(err, "create documentation output", parent)
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(dst)+"-*")
	if err != nil {
		return nil, fsErr(err, "create documentation staging directory", parent)
	}
	report, err := f.copyTree(src, staging)
	if err == nil {
		err = replaceDir(staging, dst)
	}
	if err != nil {
		_ = os.RemoveAll(staging)
		return nil, err
	}
	return report, nil
}

func (f *Fixer) copyTree(src, dst string) (*FixReport, error) {
	report := &FixReport{}
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		report.Files++
		if strings.HasSuffix(d.Name(), ".html") {
			var n int
			data, n = f.fixHTML(data)
			report.HTMLFiles++
			report.Replacements += n
		}
		return os.WriteFile(target, data, 0o644)
	})
	if err != nil {
		return nil, fsErr(err, "copy documentation tree", src)
	}

	elementList := filepath.Join(src, ElementListName)
	if data, err := os.ReadFile(elementList); err == nil {
		if err := os.WriteFile(filepath.Join(dst, PackageListName), data, 0o644); err != nil {
			return nil, fsErr(err, "write package list", dst)
		}
		report.Files++
	}
	return report, nil
}

// replaceDir moves staging to dst. An existing dst is first renamed aside
// and restored if the final rename fails.
func replaceDir(staging, dst string) error {
	backup := ""
	if _, err := os.Lstat(dst); err == nil {
		backup = staging + ".old"
		if err := os.Rename(dst, backup); err != nil {
			return fsErr(err, "move previous documentation output", dst)
		}
	}
	if err := os.Rename(staging, dst); err != nil {
		if backup != "" {
			_ = os.Rename(backup, dst)
		}
		return fsErr(err, "publish documentation output", dst)
	}
	if backup != "" {
		if err := os.RemoveAll(backup); err != nil {
			return fsErr(err, "remove previous documentation output", backup)
		}
	}
	return nil
}

// fixHTML keeps line endings intact, including a missing final newline.
func (f *Fixer) fixHTML(data []byte) ([]byte, int) {
	var out bytes.Buffer
	out.Grow(len(data))
	total := 0
	r := bufio.NewReader(bytes.NewReader(data))
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			body := strings.TrimSuffix(line, "\n")
			ending := line[len(body):]
			fixed, n := f.FixLine(body)
			total += n
			out.WriteString(fixed)
			out.WriteString(ending)
		}
		if err != nil {
			break
		}
	}
	return out.Bytes(), total
}

func fsErr(err error, msg, path string) error {
	return errors.WrapError(err, errors.CategoryFileSystem, msg).
		WithContext(errors.ContextPath, path).
		Build()
}
