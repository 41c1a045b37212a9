package relocate

import (
	"bytes"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"unicode/utf8"

	"git.home.luguber.info/inful/modjar/internal/classfile"
	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
	"git.home.luguber.info/inful/modjar/internal/jar"
	"git.home.luguber.info/inful/modjar/internal/logfields"
)

// DefaultAttributionDir receives the embedded library's license files.
const DefaultAttributionDir = "META-INF"

// Embedded is a third-party artifact to merge.
type Embedded struct {
	// Name identifies the library, usually the artifact file name without extension.
	Name     string
	Artifact *jar.Artifact
	// Attribution holds extra files copied into the attribution directory.
	Attribution []jar.Entry
}

// Merger relocates embedded artifacts into a host artifact.
type Merger struct {
	AttributionDir string
}

func (m *Merger) attributionDir() string {
	if m.AttributionDir == "" {
		return DefaultAttributionDir
	}
	return strings.TrimSuffix(m.AttributionDir, "/")
}

// IsAttribution reports whether p names a license or notice file at the
// artifact root or directly below META-INF.
func IsAttribution(p string) bool {
	dir, base := path.Split(p)
	if dir != "" && dir != "META-INF/" {
		return false
	}
	upper := strings.ToUpper(base)
	for _, prefix := range []string{"LICENSE", "LICENCE", "NOTICE", "COPYING"} {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}

// Merge returns a new artifact holding host and the relocated entries of
// embedded. Every entry of the result, host entries included, has its
// references rewritten by rm, so the host's descriptor and classes point at
// the relocated packages. The embedded manifest and every embedded module
// descriptor are dropped; attribution files move to the attribution
// directory. It is a composition error if the embedded module name equals
// the host module name after relocation, or if entries collide.
func (m *Merger) Merge(host *jar.Artifact, embedded Embedded, rm *Map) (*jar.Artifact, error) {
	hostName, err := ModuleName(host)
	if err != nil {
		return nil, err
	}
	embeddedName, err := ModuleName(embedded.Artifact)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryComposition, "read embedded module name").
			WithContext(errors.ContextPath, embedded.Name).
			Build()
	}
	if embeddedName != "" && hostName != "" && rm.Text(embeddedName) == hostName {
		return nil, errors.CompositionError(fmt.Sprintf("embedded module %s collides with host module after relocation", embeddedName)).
			WithContext(errors.ContextModule, hostName).
			WithContext(errors.ContextPath, embedded.Name).
			Build()
	}

	out := jar.New()
	out.Tolerate(host.Tolerances()...)
	for _, e := range host.Entries() {
		rewritten, err := rewriteEntry(e, rm)
		if err != nil {
			return nil, err
		}
		rewritten.Path = e.Path
		if e.Path != jar.ManifestPath {
			rewritten.Path = rm.Path(e.Path)
		}
		if err := out.Put(rewritten); err != nil {
			return nil, err
		}
	}
	dropped := 0
	for _, e := range embedded.Artifact.Entries() {
		if e.Path == jar.ManifestPath || path.Base(e.Path) == jar.DescriptorName {
			dropped++
			continue
		}
		rewritten, err := rewriteEntry(e, rm)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryComposition, "relocate embedded entry").
				WithContext(errors.ContextPath, e.Path).
				Build()
		}
		rewritten.Origin = embedded.Name
		if IsAttribution(e.Path) {
			rewritten.Path = m.attributionPath(out, path.Base(e.Path), embedded.Name, rewritten.Data)
		} else {
			rewritten.Path = rm.Path(e.Path)
		}
		if out.Has(rewritten.Path) && bytes.Equal(mustGet(out, rewritten.Path), rewritten.Data) {
			continue
		}
		if err := out.Put(rewritten); err != nil {
			return nil, annotateEmbedded(err, embedded.Name)
		}
	}

	for _, e := range embedded.Attribution {
		data := e.Data
		if isText(data) {
			data = []byte(rm.Text(string(data)))
		}
		p := m.attributionPath(out, path.Base(e.Path), embedded.Name, data)
		if out.Has(p) {
			continue
		}
		out.Replace(jar.Entry{Path: p, Data: data, Origin: embedded.Name})
	}

	if descs := out.Descriptors(); len(descs) > 1 {
		return nil, errors.CompositionError("more than one module descriptor after merge").
			WithContext(errors.ContextPath, strings.Join(descs, ", ")).
			Build()
	}

	slog.Debug("Merged embedded artifact",
		slog.String("embedded", embedded.Name),
		logfields.Entries(out.Len()),
		slog.Int("dropped", dropped))
	return out, nil
}

// attributionPath places name in the attribution directory, suffixing it
// with the library name when another file with different content is there.
func (m *Merger) attributionPath(out *jar.Artifact, name, library string, data []byte) string {
	p := m.attributionDir() + "/" + name
	if !out.Has(p) || bytes.Equal(mustGet(out, p), data) {
		return p
	}
	ext := path.Ext(name)
	return m.attributionDir() + "/" + strings.TrimSuffix(name, ext) + "-" + library + ext
}

func mustGet(a *jar.Artifact, p string) []byte {
	e, _ := a.Get(p)
	return e.Data
}

func rewriteEntry(e jar.Entry, rm *Map) (jar.Entry, error) {
	switch {
	case e.Path == jar.ManifestPath:
		mf, err := jar.ParseManifest(e.Data)
		if err != nil {
			return e, nil
		}
		changed := false
		for _, a := range mf.Attributes() {
			if v := rm.Text(a.Value); v != a.Value {
				mf.Set(a.Name, v)
				changed = true
			}
		}
		if changed {
			e.Data = mf.Bytes()
		}
		return e, nil
	case classfile.IsClassFile(e.Data):
		f, err := classfile.Parse(e.Data)
		if err != nil {
			return e, errors.WrapError(err, errors.CategoryComposition, "parse class file").
				WithContext(errors.ContextPath, e.Path).
				Build()
		}
		if f.MapUTF8(rm.Text) == 0 {
			return e, nil
		}
		data, err := f.Bytes()
		if err != nil {
			return e, errors.WrapError(err, errors.CategoryComposition, "encode class file").
				WithContext(errors.ContextPath, e.Path).
				Build()
		}
		e.Data = data
		return e, nil
	case isText(e.Data):
		e.Data = []byte(rm.Text(string(e.Data)))
		return e, nil
	default:
		return e, nil
	}
}

func isText(data []byte) bool {
	return utf8.Valid(data) && bytes.IndexByte(data, 0) < 0
}

func annotateEmbedded(err error, name string) error {
	if c, ok := errors.AsClassified(err); ok {
		return c.WithContext("embedded", name)
	}
	return err
}

// ModuleName returns the module an artifact declares: the name in its root
// descriptor, else in a versioned descriptor, else Automatic-Module-Name.
// An artifact that declares nothing yields "".
func ModuleName(a *jar.Artifact) (string, error) {
	descs := a.Descriptors()
	for _, want := range []func(string) bool{
		func(p string) bool { return p == jar.DescriptorName },
		func(p string) bool { return p != jar.DescriptorName },
	} {
		for _, p := range descs {
			if !want(p) {
				continue
			}
			e, _ := a.Get(p)
			f, err := classfile.Parse(e.Data)
			if err != nil {
				return "", errors.WrapError(err, errors.CategoryComposition, "parse module descriptor").
					WithContext(errors.ContextPath, p).
					Build()
			}
			name, ok, err := f.ModuleName()
			if err != nil {
				return "", errors.WrapError(err, errors.CategoryComposition, "parse module descriptor").
					WithContext(errors.ContextPath, p).
					Build()
			}
			if ok {
				return name, nil
			}
		}
	}
	m, ok, err := a.Manifest()
	if err != nil || !ok {
		return "", nil
	}
	name, _ := m.Get(jar.AttrAutomaticModuleName)
	return name, nil
}

// Verify lists entries whose path or content still holds a source prefix.
func Verify(a *jar.Artifact, rm *Map) []string {
	var bad []string
	for _, e := range a.Entries() {
		if rm.PathContains(e.Path) {
			bad = append(bad, e.Path)
			continue
		}
		switch {
		case classfile.IsClassFile(e.Data):
			f, err := classfile.Parse(e.Data)
			if err != nil {
				continue
			}
			found := false
			f.MapUTF8(func(s string) string {
				if rm.Contains(s) {
					found = true
				}
				return s
			})
			if found {
				bad = append(bad, e.Path)
			}
		case isText(e.Data):
			if rm.Contains(string(e.Data)) {
				bad = append(bad, e.Path)
			}
		}
	}
	return bad
}
