// Package config loads the engine configuration. Values are read once at
// load time and treated as a read-only key/value surface by the rest of the
// engine; manifest fields may override the playground-scoped ones per
// session.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// AutorunMode controls when edits reach the preview.
type AutorunMode string

const (
	AutorunOnEdit AutorunMode = "onEdit"
	AutorunOnSave AutorunMode = "onSave"
)

// Config is the root configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Playgrounds PlaygroundsConfig `yaml:"playgrounds"`
}

// ServerConfig holds preview-server settings.
type ServerConfig struct {
	Port  int    `yaml:"port"`
	Host  string `yaml:"host"`
	Debug bool   `yaml:"debug"`
}

// PlaygroundsConfig holds the playground engine settings.
type PlaygroundsConfig struct {
	IncludeMarkup     bool `yaml:"includeMarkup"`
	IncludeStylesheet bool `yaml:"includeStylesheet"`
	IncludeScript     bool `yaml:"includeScript"`

	// Default dialects for newly created playground files.
	MarkupLanguage     string `yaml:"markupLanguage"`
	StylesheetLanguage string `yaml:"stylesheetLanguage"`
	ScriptLanguage     string `yaml:"scriptLanguage"`

	// Layout is the pane arrangement preference:
	// grid | preview | splitLeft | splitRight | splitTop.
	Layout string `yaml:"layout"`

	AutoRun     AutorunMode `yaml:"autoRun"`
	AutoSave    bool        `yaml:"autoSave"`
	ShowConsole bool        `yaml:"showConsole"`

	// TemplateGalleries lists gallery sources: known aliases or URLs.
	TemplateGalleries []string `yaml:"templateGalleries"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:  8080,
			Host:  "localhost",
			Debug: false,
		},
		Playgrounds: PlaygroundsConfig{
			IncludeMarkup:      true,
			IncludeStylesheet:  true,
			IncludeScript:      true,
			MarkupLanguage:     "html",
			StylesheetLanguage: "css",
			ScriptLanguage:     "javascript",
			Layout:             "splitLeft",
			AutoRun:            AutorunOnEdit,
			AutoSave:           false,
			ShowConsole:        false,
			TemplateGalleries:  []string{"web:languages", "web:frameworks"},
		},
	}
}

// Load loads configuration from a YAML file, starting from defaults. A
// missing file is not an error.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// LoadFromDir looks for swing.yaml in the given directory, falling back to
// defaults when absent.
func LoadFromDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, "swing.yaml"))
}
