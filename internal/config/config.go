// Package config loads the YAML build file, applies defaults per domain and
// validates the result before any external process is started.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "modjar.yaml"

// CurrentVersion is the only configuration version understood.
const CurrentVersion = "1"

// Config is the build file.
type Config struct {
	Version        string `yaml:"version"`
	ModuleRoot     string `yaml:"module_root,omitempty"`
	NameSeparator  string `yaml:"name_separator,omitempty"`
	ProjectVersion string `yaml:"project_version"`
	Vendor         string `yaml:"vendor,omitempty"`
	BuiltBy        string `yaml:"built_by,omitempty"`

	Build    BuildConfig     `yaml:"build,omitempty"`
	Projects []ProjectConfig `yaml:"projects"`
	Docs     DocsConfig      `yaml:"docs,omitempty"`
	Logging  LoggingConfig   `yaml:"logging,omitempty"`
	Metrics  MetricsConfig   `yaml:"metrics,omitempty"`
	Ledger   LedgerConfig    `yaml:"ledger,omitempty"`

	// path is the file the configuration was read from.
	path string
}

// BuildConfig controls where and how builds run.
type BuildConfig struct {
	RootDir     string `yaml:"root_dir,omitempty"`
	OutputDir   string `yaml:"output_dir,omitempty"`
	Concurrency int    `yaml:"concurrency,omitempty"`
	FailFast    bool   `yaml:"fail_fast,omitempty"`
	StateDir    string `yaml:"state_dir,omitempty"`
	// Javac is the compiler binary; defaults to javac on PATH.
	Javac string `yaml:"javac,omitempty"`
	// WatchDebounce delays rebuilds in watch mode, e.g. "500ms".
	WatchDebounce string `yaml:"watch_debounce,omitempty"`
}

// LayerConfig is one source layer. Paths are relative to the project dir.
type LayerConfig struct {
	Baseline  string   `yaml:"baseline"`
	Sources   []string `yaml:"sources,omitempty"`
	Resources []string `yaml:"resources,omitempty"`
}

// EmbeddedConfig is a third-party artifact merged under relocated packages.
type EmbeddedConfig struct {
	Artifact    string            `yaml:"artifact"`
	Relocate    map[string]string `yaml:"relocate"`
	Attribution []string          `yaml:"attribution,omitempty"`
}

// ProjectConfig declares one project of the module graph.
type ProjectConfig struct {
	ID                string           `yaml:"id"`
	Dir               string           `yaml:"dir,omitempty"`
	Modular           *bool            `yaml:"modular,omitempty"`
	Base              LayerConfig      `yaml:"base"`
	Layers            []LayerConfig    `yaml:"layers,omitempty"`
	Descriptor        string           `yaml:"descriptor,omitempty"`
	Dependencies      []string         `yaml:"dependencies,omitempty"`
	Libraries         []string         `yaml:"libraries,omitempty"`
	MainClass         string           `yaml:"main_class,omitempty"`
	LicenseFiles      []string         `yaml:"license_files,omitempty"`
	DuplicateTolerant []string         `yaml:"duplicate_tolerant,omitempty"`
	CompilerArgs      []string         `yaml:"compiler_args,omitempty"`
	Embedded          []EmbeddedConfig `yaml:"embedded,omitempty"`
	SourcesArtifact   bool             `yaml:"sources_artifact,omitempty"`
	JavadocArtifact   bool             `yaml:"javadoc_artifact,omitempty"`
	ExcludeFromDocs   bool             `yaml:"exclude_from_docs,omitempty"`
}

// GroupConfig is an overview group of the aggregated documentation.
type GroupConfig struct {
	Title    string   `yaml:"title"`
	Patterns []string `yaml:"patterns"`
}

// DocsConfig controls the aggregated documentation.
type DocsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Title      string `yaml:"title,omitempty"`
	Header     string `yaml:"header,omitempty"`
	OutputDir  string `yaml:"output_dir,omitempty"`
	CacheDir   string `yaml:"cache_dir,omitempty"`
	Overview   string `yaml:"overview,omitempty"`
	Favicon    string `yaml:"favicon,omitempty"`
	Stylesheet string `yaml:"stylesheet,omitempty"`
	MaxMemory  string `yaml:"max_memory,omitempty"`
	// Javadoc is the generator binary; defaults to javadoc on PATH.
	Javadoc string `yaml:"javadoc,omitempty"`

	Links            []string          `yaml:"links,omitempty"`
	ExternalModules  map[string]string `yaml:"external_modules,omitempty"`
	Groups           []GroupConfig     `yaml:"groups,omitempty"`
	AddModules       []string          `yaml:"add_modules,omitempty"`
	AddReads         map[string]string `yaml:"add_reads,omitempty"`
	GeneratorArgs    []string          `yaml:"generator_args,omitempty"`
	FetchConcurrency int               `yaml:"fetch_concurrency,omitempty"`
}

// MetricsConfig controls metrics export.
type MetricsConfig struct {
	// Textfile receives the metrics in text exposition format after each build.
	Textfile string `yaml:"textfile,omitempty"`
	// Listen serves /metrics in watch mode, e.g. ":9464".
	Listen string `yaml:"listen,omitempty"`
}

// LedgerConfig controls the build event ledger.
type LedgerConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// IsEnabled reports whether build events are recorded.
func (l LedgerConfig) IsEnabled() bool {
	return l.Enabled == nil || *l.Enabled
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string { return c.path }

// Load reads, defaults and validates the configuration at configPath.
// ${VAR} references are expanded from the process environment and the
// .env and .env.local files next to it.
func Load(configPath string) (*Config, error) {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "resolve configuration path").
			WithContext(errors.ContextPath, configPath).
			Build()
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewError(errors.CategoryNotFound, "configuration file not found").
				WithContext(errors.ContextPath, abs).
				UserAction().
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read configuration").
			WithContext(errors.ContextPath, abs).
			Build()
	}
	return parse(data, abs, envLookup(filepath.Dir(abs)))
}

// Parse decodes data as if it had been read from path, expanding ${VAR}
// from the process environment only.
func Parse(data []byte, path string) (*Config, error) {
	return parse(data, path, os.LookupEnv)
}

func parse(data []byte, path string, lookup lookupFunc) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(expand(data, lookup), &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid configuration YAML").
			WithContext(errors.ContextPath, path).
			Build()
	}
	cfg.path = path

	if cfg.Version != CurrentVersion {
		return nil, errors.ConfigError("unsupported configuration version").
			WithContext("version", cfg.Version).
			WithContext("expected", CurrentVersion).
			WithContext(errors.ContextPath, path).
			Build()
	}
	if err := ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
