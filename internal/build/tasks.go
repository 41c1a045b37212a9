package build

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/modjar/internal/assemble"
	"git.home.luguber.info/inful/modjar/internal/compiler"
	"git.home.luguber.info/inful/modjar/internal/eventstore"
	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
	"git.home.luguber.info/inful/modjar/internal/jar"
	"git.home.luguber.info/inful/modjar/internal/logfields"
	"git.home.luguber.info/inful/modjar/internal/module"
	"git.home.luguber.info/inful/modjar/internal/observability"
	"git.home.luguber.info/inful/modjar/internal/project"
	"git.home.luguber.info/inful/modjar/internal/relocate"
	"git.home.luguber.info/inful/modjar/internal/storage"
	"git.home.luguber.info/inful/modjar/internal/workspace"
)

func (s *Service) runTask(ctx context.Context, r *run, t *Task) error {
	ctx = observability.WithTask(observability.WithProject(ctx, t.Project), t.ID)
	switch t.Kind {
	case TaskCompile:
		return s.compile(ctx, r, t)
	case TaskAssemble:
		return s.assemble(ctx, r, t.Project)
	case TaskDocs:
		return s.docs(ctx, r)
	}
	return errors.InternalError("unknown task kind").WithContext("task", t.ID).Build()
}

func (s *Service) compile(ctx context.Context, r *run, t *Task) error {
	inv := t.Invocation
	if inv.Kind == compiler.LayerDescriptor {
		var err error
		if inv, err = r.composer.DescriptorInvocation(t.Project); err != nil {
			return err
		}
	}
	observability.DebugContext(ctx, "Compiling layer",
		logfields.Layer(inv.Name()),
		logfields.Baseline(int(inv.Baseline)))
	_, err := s.Compiler.Compile(ctx, inv)
	return err
}

func (s *Service) assemble(ctx context.Context, r *run, id string) error {
	graph := r.req.Graph
	p, _ := graph.Project(id)
	name := graph.ModuleName(id)
	layout := graph.Layout()

	art, err := s.Assembler.Assemble(ctx, p, assemble.ProjectLayers(layout, p, name))
	if err != nil {
		return err
	}
	if art, err = s.mergeEmbedded(ctx, p, art); err != nil {
		return err
	}
	if err := s.publish(ctx, r, p, name, layout.ArtifactPath(id), art, ""); err != nil {
		return err
	}

	if p.SourcesArtifact {
		src, err := s.Assembler.AssembleSources(p, name)
		if err != nil {
			return err
		}
		if err := s.publish(ctx, r, p, name, layout.SourcesArtifactPath(id), src, ClassifierSources); err != nil {
			return err
		}
	}
	if p.JavadocArtifact {
		return s.javadocArtifact(ctx, r, p, name)
	}
	return nil
}

// javadocArtifact documents the module of p on its own and publishes the
// packed tree next to the module artifact.
func (s *Service) javadocArtifact(ctx context.Context, r *run, p *project.Project, name module.Name) error {
	if s.Docs == nil {
		return errors.ConfigError("javadoc artifact requires a documentation generator").
			WithContext(errors.ContextProject, p.ID).
			Build()
	}
	ws, err := workspace.New(s.Docs.WorkDir, "javadoc-jar")
	if err != nil {
		return err
	}
	defer func() {
		if err := ws.Remove(); err != nil {
			observability.WarnContext(ctx, "Failed to remove documentation scratch directory", logfields.Error(err))
		}
	}()
	out := filepath.Join(ws.Path(), "api")
	if _, err := s.Docs.GenerateProject(ctx, r.req.Graph, r.req.Links, p.ID, out); err != nil {
		return withProject(err, p.ID)
	}
	art, err := s.Assembler.AssembleJavadoc(p, out)
	if err != nil {
		return err
	}
	return s.publish(ctx, r, p, name, r.req.Graph.Layout().JavadocArtifactPath(p.ID), art, ClassifierJavadoc)
}

// mergeEmbedded relocates every embedded library of p into art, in
// configuration order.
func (s *Service) mergeEmbedded(ctx context.Context, p *project.Project, art *jar.Artifact) (*jar.Artifact, error) {
	merger := s.Merger
	if merger == nil {
		merger = &relocate.Merger{}
	}
	for _, e := range p.Embedded {
		rm, err := relocate.NewMap(e.Relocations)
		if err != nil {
			return nil, withProject(err, p.ID)
		}
		lib, err := jar.Read(e.Artifact)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "read embedded artifact").
				WithContext(errors.ContextProject, p.ID).
				WithContext(errors.ContextPath, e.Artifact).
				Build()
		}
		var attribution []jar.Entry
		for _, f := range e.Attribution {
			data, err := os.ReadFile(f)
			if err != nil {
				return nil, errors.WrapError(err, errors.CategoryFileSystem, "read attribution file").
					WithContext(errors.ContextProject, p.ID).
					WithContext(errors.ContextPath, f).
					Build()
			}
			attribution = append(attribution, jar.Entry{Path: filepath.Base(f), Data: data, Origin: f})
		}

		art, err = merger.Merge(art, relocate.Embedded{
			Name:        libraryName(e.Artifact),
			Artifact:    lib,
			Attribution: attribution,
		}, rm)
		if err != nil {
			return nil, withProject(err, p.ID)
		}
		if left := relocate.Verify(art, rm); len(left) > 0 {
			observability.WarnContext(ctx, "Entries still reference relocated packages",
				logfields.Path(e.Artifact),
				slog.String("entries", strings.Join(left, ", ")))
		}
	}
	return art, nil
}

// publish writes art to path and records its digest. classifier is empty
// for the module artifact.
func (s *Service) publish(ctx context.Context, r *run, p *project.Project, name module.Name, path string, art *jar.Artifact, classifier string) error {
	if err := art.WriteFile(path); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write artifact").
			WithContext(errors.ContextProject, p.ID).
			WithContext(errors.ContextPath, path).
			Build()
	}

	digest := jar.Digest(art)
	changed := true
	if s.Store != nil {
		ref, typ := storage.ArtifactRef(string(name)), storage.ObjectTypeArtifact
		switch classifier {
		case ClassifierSources:
			ref, typ = storage.SourcesRef(string(name)), storage.ObjectTypeSources
		case ClassifierJavadoc:
			ref, typ = storage.JavadocRef(string(name)), storage.ObjectTypeJavadoc
		}
		var err error
		changed, err = storage.Record(ctx, s.Store, ref, &storage.Object{
			Hash: digest,
			Type: typ,
			Data: []byte(strings.Join(art.Paths(), "\n") + "\n"),
			Metadata: storage.Metadata{Custom: map[string]string{
				"project": p.ID,
				"module":  string(name),
			}},
		})
		if err != nil {
			return err
		}
	}

	a := ArtifactResult{
		Project:    p.ID,
		Module:     string(name),
		Path:       path,
		Digest:     digest,
		Entries:    art.Len(),
		Changed:    changed,
		Classifier: classifier,
	}
	r.addArtifact(a)
	if classifier == "" {
		s.recorder().ObserveArtifact(p.ID, a.Entries, changed)
	}
	s.appendEvent(ctx, r.ledger.ArtifactWritten(context.WithoutCancel(ctx), eventstore.ArtifactWritten{
		Project: a.Project,
		Module:  a.Module,
		Path:    a.Path,
		Digest:  a.Digest,
		Entries: a.Entries,
		Changed: a.Changed,
	}))
	observability.InfoContext(ctx, "Artifact written",
		logfields.Module(a.Module),
		logfields.Path(a.Path),
		logfields.Digest(a.Digest[:12]),
		logfields.Entries(a.Entries),
		slog.Bool("changed", a.Changed))
	return nil
}

func (s *Service) docs(ctx context.Context, r *run) error {
	res, err := s.Docs.Aggregate(ctx, r.req.Graph, r.req.Links)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.docs = res
	r.mu.Unlock()

	modules := make([]string, 0, len(res.Modules))
	for _, m := range res.Modules {
		modules = append(modules, string(m))
	}
	ev := eventstore.DocsGenerated{
		OutputDir: res.OutputDir,
		Modules:   modules,
		Findings:  len(res.Findings),
	}
	if res.Fetch != nil {
		ev.Fetched = len(res.Fetch.Fetched)
		s.recorder().IncElementLists(len(res.Fetch.Fetched), len(res.Fetch.Cached))
	}
	if res.Fix != nil {
		ev.Replacements = res.Fix.Replacements
	}
	s.appendEvent(ctx, r.ledger.DocsGenerated(context.WithoutCancel(ctx), ev))
	return nil
}

func libraryName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
