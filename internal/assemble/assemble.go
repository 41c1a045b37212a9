// Package assemble merges independently compiled layers into one
// multi-release artifact.
package assemble

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"git.home.luguber.info/inful/modjar/internal/compiler"
	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
	"git.home.luguber.info/inful/modjar/internal/jar"
	"git.home.luguber.info/inful/modjar/internal/logfields"
	"git.home.luguber.info/inful/modjar/internal/module"
	"git.home.luguber.info/inful/modjar/internal/project"
)

const metadataOrigin = "metadata"

// BuildInfo is the provenance written into every manifest.
type BuildInfo struct {
	CreatedBy string
	BuiltBy   string
	Revision  string
	Version   string
	Vendor    string
}

// Assembler builds artifacts. The zero value is usable; Now defaults to time.Now.
type Assembler struct {
	Info     BuildInfo
	Resolver module.Resolver
	Now      func() time.Time
}

func (a *Assembler) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

// Assemble merges layers into an artifact for p:
//
//  1. base layer entries at their own paths
//  2. higher-baseline layers in ascending order below META-INF/versions/<n>/
//  3. the descriptor at the unversioned root
//  4. license files and the manifest
//
// An unversioned collision is a composition error unless tolerated by p.
func (a *Assembler) Assemble(ctx context.Context, p *project.Project, layers []Layer) (*jar.Artifact, error) {
	art := jar.New()
	art.Tolerate(p.DuplicateTolerant...)

	var base *Layer
	var versioned []Layer
	var descriptor *Layer
	for i := range layers {
		switch layers[i].Kind {
		case compiler.LayerBase:
			if base != nil {
				return nil, a.compositionErr(p, "more than one base layer", "")
			}
			base = &layers[i]
		case compiler.LayerVersioned:
			versioned = append(versioned, layers[i])
		case compiler.LayerDescriptor:
			if descriptor != nil {
				return nil, a.compositionErr(p, "more than one descriptor layer", "")
			}
			descriptor = &layers[i]
		}
	}
	if base == nil {
		return nil, a.compositionErr(p, "missing base layer", "")
	}

	if err := a.addBase(art, *base); err != nil {
		return nil, a.annotate(err, p)
	}

	slices.SortStableFunc(versioned, func(x, y Layer) int { return int(x.Baseline) - int(y.Baseline) })
	for _, l := range versioned {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := a.addVersioned(art, l); err != nil {
			return nil, a.annotate(err, p)
		}
	}

	if descriptor != nil {
		if err := a.addDescriptor(art, *descriptor); err != nil {
			return nil, a.annotate(err, p)
		}
	}

	if descs := art.Descriptors(); len(descs) > 1 {
		return nil, a.compositionErr(p, "more than one module descriptor", strings.Join(descs, ", "))
	}

	if err := a.addMetadata(art, p); err != nil {
		return nil, a.annotate(err, p)
	}

	slog.Debug("Assembled artifact",
		logfields.Project(p.ID),
		logfields.Entries(art.Len()),
		slog.Bool("multi_release", art.HasVersionedEntries()))
	return art, nil
}

func (a *Assembler) addBase(art *jar.Artifact, l Layer) error {
	return walkLayer(l, func(rel string, data []byte) error {
		return art.Put(jar.Entry{Path: rel, Data: data, Origin: l.Origin()})
	})
}

func (a *Assembler) addVersioned(art *jar.Artifact, l Layer) error {
	return walkLayer(l, func(rel string, data []byte) error {
		if filepath.Base(rel) == jar.DescriptorName {
			return errors.CompositionError("module descriptor in a versioned layer").
				WithContext(errors.ContextPath, jar.VersionedPath(int(l.Baseline), rel)).
				Build()
		}
		art.Replace(jar.Entry{Path: jar.VersionedPath(int(l.Baseline), rel), Data: data, Origin: l.Origin()})
		return nil
	})
}

func (a *Assembler) addDescriptor(art *jar.Artifact, l Layer) error {
	var found bool
	for _, root := range l.Roots {
		data, err := fs.ReadFile(root, jar.DescriptorName)
		if err != nil {
			continue
		}
		if found {
			return errors.CompositionError("more than one module descriptor").
				WithContext(errors.ContextPath, jar.DescriptorName).
				Build()
		}
		found = true
		if err := art.Put(jar.Entry{Path: jar.DescriptorName, Data: data, Origin: l.Origin()}); err != nil {
			return errors.CompositionError("more than one module descriptor").
				WithContext(errors.ContextPath, jar.DescriptorName).
				WithCause(err).
				Build()
		}
	}
	if !found {
		return errors.CompositionError("descriptor layer holds no compiled descriptor").
			WithContext(errors.ContextPath, jar.DescriptorName).
			Build()
	}
	return nil
}

func (a *Assembler) addMetadata(art *jar.Artifact, p *project.Project) error {
	for _, lf := range p.LicenseFiles {
		data, err := os.ReadFile(lf)
		if err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "read license file").
				WithContext(errors.ContextPath, lf).
				Build()
		}
		if err := art.Put(jar.Entry{Path: "META-INF/" + filepath.Base(lf), Data: data, Origin: metadataOrigin}); err != nil {
			return err
		}
	}

	m, ok, err := art.Manifest()
	if err != nil {
		return errors.WrapError(err, errors.CategoryComposition, "unreadable manifest in layer output").
			WithContext(errors.ContextPath, jar.ManifestPath).
			Build()
	}
	if !ok {
		m = jar.NewManifest()
	}
	a.fillManifest(m, p, art)
	art.SetManifest(m, metadataOrigin)
	return nil
}

func (a *Assembler) fillManifest(m *jar.Manifest, p *project.Project, art *jar.Artifact) {
	now := a.now()
	version := a.Info.Version
	specVersion, _, _ := strings.Cut(version, "-")

	m.Set(jar.AttrManifestVersion, "1.0")
	m.Set(jar.AttrCreatedBy, a.Info.CreatedBy)
	m.Set(jar.AttrBuiltBy, a.Info.BuiltBy)
	m.Set(jar.AttrBuildDate, now.Format("2006-01-02"))
	m.Set(jar.AttrBuildTime, now.Format("15:04:05.000-0700"))
	m.Set(jar.AttrBuildRevision, a.Info.Revision)
	m.Set(jar.AttrSpecificationTitle, p.ID)
	m.Set(jar.AttrSpecificationVersion, specVersion)
	m.Set(jar.AttrSpecificationVendor, a.Info.Vendor)
	m.Set(jar.AttrImplementationTitle, p.ID)
	m.Set(jar.AttrImplementationVersion, version)
	m.Set(jar.AttrImplementationVendor, a.Info.Vendor)
	if art.HasVersionedEntries() {
		m.Set(jar.AttrMultiRelease, "true")
	}
	if p.MainClass != "" {
		m.Set(jar.AttrMainClass, p.MainClass)
	}
	if !art.Has(jar.DescriptorName) {
		m.Set(jar.AttrAutomaticModuleName, string(a.Resolver.Resolve(p.ID)))
	}
}

func (a *Assembler) compositionErr(p *project.Project, msg, path string) error {
	b := errors.CompositionError(msg).WithContext(errors.ContextProject, p.ID)
	if path != "" {
		b = b.WithContext(errors.ContextPath, path)
	}
	return b.Build()
}

// annotate adds the project to classified errors that lack it.
func (a *Assembler) annotate(err error, p *project.Project) error {
	c, ok := errors.AsClassified(err)
	if !ok {
		return errors.WrapError(err, errors.CategoryFileSystem, "read layer output").
			WithContext(errors.ContextProject, p.ID).
			Build()
	}
	if _, has := c.Context().Get(errors.ContextProject); has {
		return err
	}
	return c.WithContext(errors.ContextProject, p.ID)
}

func walkLayer(l Layer, fn func(rel string, data []byte) error) error {
	for _, root := range l.Roots {
		err := fs.WalkDir(root, ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			data, err := fs.ReadFile(root, p)
			if err != nil {
				return err
			}
			return fn(p, data)
		})
		if err != nil {
			return fmt.Errorf("%s layer: %w", l.Origin(), err)
		}
	}
	return nil
}
