package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
	"git.home.luguber.info/inful/modjar/internal/javadoc"
	"git.home.luguber.info/inful/modjar/internal/project"
)

// Validate checks cfg after defaults were applied. Graph-level rules
// (module name collisions, unknown dependencies, cycles) are checked when
// the graph is built.
func Validate(cfg *Config) error {
	v := &configurationValidator{config: cfg}
	for _, check := range []func() error{
		v.validateModule,
		v.validateBuild,
		v.validateProjects,
		v.validateDocs,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

type configurationValidator struct {
	config *Config
}

func (v *configurationValidator) validateModule() error {
	if strings.TrimSpace(v.config.ProjectVersion) == "" {
		return errors.ConfigError("project_version is required").Build()
	}
	if strings.ContainsAny(v.config.ModuleRoot, " /") {
		return errors.ConfigError("module_root must be a dotted name").
			WithContext("module_root", v.config.ModuleRoot).
			Build()
	}
	return nil
}

func (v *configurationValidator) validateBuild() error {
	b := v.config.Build
	if b.Concurrency < 1 {
		return errors.ConfigError("build.concurrency must be at least 1").Build()
	}
	if _, err := time.ParseDuration(b.WatchDebounce); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid build.watch_debounce").
			WithContext("value", b.WatchDebounce).
			Build()
	}
	return nil
}

func (v *configurationValidator) validateProjects() error {
	if len(v.config.Projects) == 0 {
		return errors.ConfigError("at least one project must be configured").Build()
	}
	seen := make(map[string]bool, len(v.config.Projects))
	for _, pc := range v.config.Projects {
		if strings.TrimSpace(pc.ID) == "" {
			return errors.ConfigError("project id cannot be empty").
				WithContext(errors.ContextPath, pc.Dir).
				Build()
		}
		if seen[pc.ID] {
			return errors.ConfigError("duplicate project identifier").
				WithContext(errors.ContextProject, pc.ID).
				Build()
		}
		seen[pc.ID] = true

		if _, err := project.ParseBaseline(pc.Base.Baseline); err != nil {
			return annotateProject(err, pc.ID)
		}
		for _, l := range pc.Layers {
			if _, err := project.ParseBaseline(l.Baseline); err != nil {
				return annotateProject(err, pc.ID)
			}
		}
		if pc.Descriptor != "" && pc.Modular != nil && !*pc.Modular {
			return errors.ConfigError("descriptor configured for a non-modular project").
				WithContext(errors.ContextProject, pc.ID).
				WithContext(errors.ContextPath, pc.Descriptor).
				Build()
		}
		for _, lf := range pc.LicenseFiles {
			if _, err := os.Stat(lf); err != nil {
				return errors.ConfigError("license file not found").
					WithContext(errors.ContextProject, pc.ID).
					WithContext(errors.ContextPath, lf).
					Build()
			}
		}
		for _, e := range pc.Embedded {
			if e.Artifact == "" {
				return errors.ConfigError("embedded dependency requires an artifact").
					WithContext(errors.ContextProject, pc.ID).
					Build()
			}
			if len(e.Relocate) == 0 {
				return errors.ConfigError("embedded dependency requires at least one relocation").
					WithContext(errors.ContextProject, pc.ID).
					WithContext(errors.ContextPath, e.Artifact).
					Build()
			}
		}
	}
	return nil
}

func (v *configurationValidator) validateDocs() error {
	d := v.config.Docs
	if _, err := javadoc.NewLinkTable(d.ExternalModules); err != nil {
		return err
	}
	for _, l := range d.Links {
		if !strings.HasSuffix(l, "/") {
			return errors.ConfigError("all base URLs must end with a trailing slash").
				WithContext(errors.ContextURL, l).
				Build()
		}
	}
	for i, g := range d.Groups {
		if g.Title == "" || len(g.Patterns) == 0 {
			return errors.ConfigError(fmt.Sprintf("docs group %d requires a title and patterns", i)).Build()
		}
	}
	if d.FetchConcurrency < 0 {
		return errors.ConfigError("docs.fetch_concurrency must not be negative").Build()
	}
	return nil
}

func annotateProject(err error, id string) error {
	if c, ok := errors.AsClassified(err); ok {
		return c.WithContext(errors.ContextProject, id)
	}
	return errors.WrapError(err, errors.CategoryConfig, "invalid project").
		WithContext(errors.ContextProject, id).
		Build()
}
