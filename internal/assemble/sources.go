package assemble

import (
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
	"git.home.luguber.info/inful/modjar/internal/jar"
	"git.home.luguber.info/inful/modjar/internal/module"
	"git.home.luguber.info/inful/modjar/internal/project"
)

// AssembleSources builds the sources artifact of p: base and higher-layer
// sources and resources, then the module descriptor source. Duplicate paths
// keep the first entry.
func (a *Assembler) AssembleSources(p *project.Project, name module.Name) (*jar.Artifact, error) {
	art := jar.New()
	roots := p.MainSourceRoots()
	roots = append(roots, p.Base.ResourceRoots...)
	for _, l := range p.SortedLayers() {
		roots = append(roots, l.ResourceRoots...)
	}

	add := func(rel string, data []byte, origin string) {
		if !art.Has(rel) {
			art.Replace(jar.Entry{Path: rel, Data: data, Origin: origin})
		}
	}

	for _, root := range roots {
		l := DirLayer("", 0, root)
		err := walkLayer(l, func(rel string, data []byte) error {
			add(rel, data, root)
			return nil
		})
		if err != nil {
			return nil, a.annotate(err, p)
		}
	}

	if p.HasDescriptor() {
		src := filepath.Join(p.Descriptor.SourceDir(string(name)), "module-info.java")
		if data, err := os.ReadFile(src); err == nil {
			add("module-info.java", data, src)
		}
	}

	for _, lf := range p.LicenseFiles {
		data, err := os.ReadFile(lf)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "read license file").
				WithContext(errors.ContextProject, p.ID).
				WithContext(errors.ContextPath, lf).
				Build()
		}
		add("META-INF/"+filepath.Base(lf), data, metadataOrigin)
	}

	art.SetManifest(jar.NewManifest(), metadataOrigin)
	return art, nil
}
