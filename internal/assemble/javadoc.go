package assemble

import (
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
	"git.home.luguber.info/inful/modjar/internal/jar"
	"git.home.luguber.info/inful/modjar/internal/project"
)

// AssembleJavadoc packs the generated documentation tree dir of p, plus its
// license files under META-INF.
func (a *Assembler) AssembleJavadoc(p *project.Project, dir string) (*jar.Artifact, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, errors.DocsError("documentation tree missing").
			WithContext(errors.ContextProject, p.ID).
			WithContext(errors.ContextPath, dir).
			Build()
	}
	art := jar.New()
	err = walkLayer(DirLayer("", 0, dir), func(rel string, data []byte) error {
		art.Replace(jar.Entry{Path: rel, Data: data, Origin: dir})
		return nil
	})
	if err != nil {
		return nil, a.annotate(err, p)
	}
	for _, lf := range p.LicenseFiles {
		data, err := os.ReadFile(lf)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "read license file").
				WithContext(errors.ContextProject, p.ID).
				WithContext(errors.ContextPath, lf).
				Build()
		}
		rel := "META-INF/" + filepath.Base(lf)
		if !art.Has(rel) {
			art.Replace(jar.Entry{Path: rel, Data: data, Origin: metadataOrigin})
		}
	}
	art.SetManifest(jar.NewManifest(), metadataOrigin)
	return art, nil
}
