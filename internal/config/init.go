package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
)

// Example returns the configuration written by Init.
func Example() *Config {
	modular := true
	return &Config{
		Version:        CurrentVersion,
		ModuleRoot:     "org.example",
		ProjectVersion: "1.0.0-SNAPSHOT",
		Vendor:         "Example Team",
		Build: BuildConfig{
			OutputDir: "build",
		},
		Projects: []ProjectConfig{
			{
				ID:         "commons",
				Modular:    &modular,
				Base:       LayerConfig{Baseline: "8"},
				Layers:     []LayerConfig{{Baseline: "9"}},
				Descriptor: "src/module",
			},
			{
				ID:           "api",
				Modular:      &modular,
				Base:         LayerConfig{Baseline: "8"},
				Descriptor:   "src/module",
				Dependencies: []string{"commons"},
				Libraries:    []string{"libs/opentest4j-1.2.0.jar"},
			},
			{
				ID:           "console",
				Modular:      &modular,
				Base:         LayerConfig{Baseline: "8"},
				Descriptor:   "src/module",
				Dependencies: []string{"api"},
				MainClass:    "org.example.console.Console",
				Embedded: []EmbeddedConfig{{
					Artifact: "libs/picocli-4.6.1.jar",
					Relocate: map[string]string{"picocli": "org.example.console.shadow.picocli"},
				}},
			},
		},
		Docs: DocsConfig{
			Enabled: true,
			Title:   "Example API",
			Links:   []string{"https://docs.oracle.com/en/java/javase/17/docs/api/"},
			ExternalModules: map[string]string{
				"org.opentest4j": "https://ota4j-team.github.io/opentest4j/docs/1.2.0/api/",
			},
			Groups: []GroupConfig{{Title: "Core", Patterns: []string{"org.example.commons*", "org.example.api*"}}},
		},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
	}
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext(errors.ContextPath, configPath).
			Build()
	}
	data, err := yaml.Marshal(Example())
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "marshal example configuration").Build()
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write configuration").
			WithContext(errors.ContextPath, configPath).
			Build()
	}
	return nil
}
