package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"git.home.luguber.info/inful/modjar/internal/module"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// defaultAppliers run in order: later domains resolve paths against the
// directories fixed by earlier ones.
var defaultAppliers = []DefaultApplier{
	&ModuleDefaultApplier{},
	&BuildDefaultApplier{},
	&ProjectDefaultApplier{},
	&DocsDefaultApplier{},
	&LoggingDefaultApplier{},
	&OutputsDefaultApplier{},
}

// ApplyDefaults runs every domain applier on cfg.
func ApplyDefaults(cfg *Config) error {
	for _, a := range defaultAppliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}

// ModuleDefaultApplier handles naming and provenance defaults.
type ModuleDefaultApplier struct{}

func (m *ModuleDefaultApplier) Domain() string { return "module" }

func (m *ModuleDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.ModuleRoot == "" {
		cfg.ModuleRoot = module.DefaultRoot
	}
	if cfg.NameSeparator == "" {
		cfg.NameSeparator = module.DefaultSeparator
	}
	if cfg.BuiltBy == "" {
		cfg.BuiltBy = os.Getenv("USER")
	}
	return nil
}

// BuildDefaultApplier handles build directory and scheduling defaults.
type BuildDefaultApplier struct{}

func (b *BuildDefaultApplier) Domain() string { return "build" }

func (b *BuildDefaultApplier) ApplyDefaults(cfg *Config) error {
	base := "."
	if cfg.path != "" {
		base = filepath.Dir(cfg.path)
	}
	if cfg.Build.RootDir == "" {
		cfg.Build.RootDir = base
	} else {
		cfg.Build.RootDir = resolve(base, cfg.Build.RootDir)
	}
	if abs, err := filepath.Abs(cfg.Build.RootDir); err == nil {
		cfg.Build.RootDir = abs
	}

	if cfg.Build.OutputDir == "" {
		cfg.Build.OutputDir = "build"
	}
	cfg.Build.OutputDir = resolve(cfg.Build.RootDir, cfg.Build.OutputDir)

	if cfg.Build.StateDir == "" {
		cfg.Build.StateDir = filepath.Join(cfg.Build.OutputDir, ".modjar")
	} else {
		cfg.Build.StateDir = resolve(cfg.Build.RootDir, cfg.Build.StateDir)
	}

	if cfg.Build.Concurrency <= 0 {
		cfg.Build.Concurrency = runtime.NumCPU()
	}
	if cfg.Build.WatchDebounce == "" {
		cfg.Build.WatchDebounce = "500ms"
	}
	return nil
}

// ProjectDefaultApplier fills conventional source layouts and resolves
// project paths. Source roots are relative to the project directory; every
// other path is relative to the root directory.
type ProjectDefaultApplier struct{}

func (p *ProjectDefaultApplier) Domain() string { return "projects" }

func (p *ProjectDefaultApplier) ApplyDefaults(cfg *Config) error {
	root := cfg.Build.RootDir
	defaultLicenses := existingFiles(
		filepath.Join(root, "LICENSE.md"),
		filepath.Join(root, "LICENSE-notice.md"),
	)

	for i := range cfg.Projects {
		pc := &cfg.Projects[i]
		if pc.Dir == "" {
			pc.Dir = pc.ID
		}
		pc.Dir = resolve(root, pc.Dir)

		if len(pc.Base.Sources) == 0 {
			pc.Base.Sources = []string{filepath.Join("src", "main", "java")}
		}
		if len(pc.Base.Resources) == 0 {
			pc.Base.Resources = []string{filepath.Join("src", "main", "resources")}
		}
		pc.Base.Sources = resolveAll(pc.Dir, pc.Base.Sources)
		pc.Base.Resources = resolveAll(pc.Dir, pc.Base.Resources)

		for j := range pc.Layers {
			l := &pc.Layers[j]
			if len(l.Sources) == 0 {
				l.Sources = []string{filepath.Join("src", "main", "java"+strings.TrimPrefix(l.Baseline, "1."))}
			}
			l.Sources = resolveAll(pc.Dir, l.Sources)
			l.Resources = resolveAll(pc.Dir, l.Resources)
		}

		if pc.Descriptor != "" {
			pc.Descriptor = resolve(pc.Dir, pc.Descriptor)
		}
		if pc.Modular == nil {
			modular := pc.Descriptor != ""
			pc.Modular = &modular
		}

		pc.Libraries = resolveAll(root, pc.Libraries)
		if pc.LicenseFiles == nil {
			pc.LicenseFiles = defaultLicenses
		} else {
			pc.LicenseFiles = resolveAll(root, pc.LicenseFiles)
		}
		for k := range pc.Embedded {
			e := &pc.Embedded[k]
			e.Artifact = resolve(root, e.Artifact)
			e.Attribution = resolveAll(root, e.Attribution)
		}
	}
	return nil
}

// DocsDefaultApplier handles documentation defaults.
type DocsDefaultApplier struct{}

func (d *DocsDefaultApplier) Domain() string { return "docs" }

func (d *DocsDefaultApplier) ApplyDefaults(cfg *Config) error {
	root := cfg.Build.RootDir
	if cfg.Docs.Title == "" {
		cfg.Docs.Title = strings.TrimSpace(cfg.ProjectVersion + " API")
	}
	if cfg.Docs.OutputDir == "" {
		cfg.Docs.OutputDir = filepath.Join(cfg.Build.OutputDir, "docs", "javadoc")
	} else {
		cfg.Docs.OutputDir = resolve(root, cfg.Docs.OutputDir)
	}
	if cfg.Docs.CacheDir == "" {
		cfg.Docs.CacheDir = filepath.Join(cfg.Build.StateDir, "element-lists")
	} else {
		cfg.Docs.CacheDir = resolve(root, cfg.Docs.CacheDir)
	}
	if cfg.Docs.Overview != "" {
		cfg.Docs.Overview = resolve(root, cfg.Docs.Overview)
	}
	if cfg.Docs.Stylesheet != "" {
		cfg.Docs.Stylesheet = resolve(root, cfg.Docs.Stylesheet)
	}
	if cfg.Docs.MaxMemory == "" {
		cfg.Docs.MaxMemory = "1024m"
	}
	return nil
}

// LoggingDefaultApplier canonicalizes logging enumerations.
type LoggingDefaultApplier struct{}

func (l *LoggingDefaultApplier) Domain() string { return "logging" }

func (l *LoggingDefaultApplier) ApplyDefaults(cfg *Config) error {
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	return nil
}

// OutputsDefaultApplier resolves metrics and ledger locations.
type OutputsDefaultApplier struct{}

func (o *OutputsDefaultApplier) Domain() string { return "outputs" }

func (o *OutputsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Metrics.Textfile != "" {
		cfg.Metrics.Textfile = resolve(cfg.Build.RootDir, cfg.Metrics.Textfile)
	}
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = filepath.Join(cfg.Build.StateDir, "ledger.db")
	} else {
		cfg.Ledger.Path = resolve(cfg.Build.RootDir, cfg.Ledger.Path)
	}
	return nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func resolveAll(base string, ps []string) []string {
	if ps == nil {
		return nil
	}
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = resolve(base, p)
	}
	return out
}

func existingFiles(paths ...string) []string {
	var out []string
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			out = append(out, p)
		}
	}
	return out
}
