// Package config loads and validates refdex configuration.
//
// Configuration is a YAML file mapping source roots to policy metadata.
// The database path is the only required setting; it can be overridden
// with the REFDEX_DB environment variable.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	kberr "github.com/refdex/refdex/internal/errors"
)

// SourceKind selects the ingestion pipeline for a source root.
type SourceKind string

const (
	// KindDocuments ingests files as reference Documents.
	KindDocuments SourceKind = "documents"
	// KindPatterns ingests files as curated problem/solution Patterns.
	KindPatterns SourceKind = "patterns"
)

// Config represents the complete refdex configuration.
type Config struct {
	Version int `yaml:"version"`

	// DBPath is the path to the embedded database file.
	DBPath string `yaml:"db_path"`

	// Sources maps root directories to their policy metadata.
	// Policy metadata is configuration, never inferred from content.
	Sources []Source `yaml:"sources"`

	// TagVocabulary is the fixed list of marker substrings scanned
	// case-sensitively against document content.
	TagVocabulary []string `yaml:"tag_vocabulary"`

	// Extensions filters candidate files during scanning.
	Extensions []string `yaml:"extensions"`

	Logging LoggingConfig `yaml:"logging"`
}

// Source is a named migration source: a root path plus the trust and
// authority metadata that content alone cannot determine.
type Source struct {
	Name             string     `yaml:"name"`
	Root             string     `yaml:"root"`
	Kind             SourceKind `yaml:"kind"`
	Category         string     `yaml:"category"`
	Role             string     `yaml:"role"`
	EnforcementLevel string     `yaml:"enforcement_level"`
	DocumentType     string     `yaml:"document_type"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	FilePath  string `yaml:"file_path"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// DefaultVocabulary is the default tag marker list, tuned for Apple
// platform documentation corpora.
var DefaultVocabulary = []string{
	"swiftui", "tca", "ios", "macos", "visionos", "ipados",
	"stateobject", "observedobject", "shared", "reducer",
	"compilation", "error", "fix", "solution", "pattern",
	"architecture", "performance", "memory", "debugging",
	"swift", "xcode", "testing", "navigation", "state",
}

// New returns a Config with defaults applied.
func New() *Config {
	return &Config{
		Version:       1,
		DBPath:        DefaultDBPath(),
		TagVocabulary: append([]string(nil), DefaultVocabulary...),
		Extensions:    []string{".md", ".markdown"},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// DefaultDBPath returns the default database location (~/.refdex/refdex.db).
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".refdex", "refdex.db")
	}
	return filepath.Join(home, ".refdex", "refdex.db")
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".refdex", "config.yaml")
	}
	return filepath.Join(home, ".refdex", "config.yaml")
}

// Load reads and validates configuration from path.
// A missing file is an error; use LoadOrDefault for optional configs.
// Unknown keys are rejected so a typoed config cannot silently fall
// back to defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, kberr.ConfigNotFoundError(path, err)
		}
		return nil, kberr.ConfigInvalidError("read config "+path, err)
	}

	cfg := New()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, kberr.ConfigInvalidError("parse config "+path, err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, kberr.ConfigInvalidError(err.Error(), err)
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from path, falling back to defaults
// when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := New()
		cfg.applyEnvOverrides()
		return cfg, nil
	}
	return Load(path)
}

// applyDefaults fills zero-valued fields after unmarshal.
func (c *Config) applyDefaults() {
	if c.DBPath == "" {
		c.DBPath = DefaultDBPath()
	}
	if len(c.TagVocabulary) == 0 {
		c.TagVocabulary = append([]string(nil), DefaultVocabulary...)
	}
	if len(c.Extensions) == 0 {
		c.Extensions = []string{".md", ".markdown"}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 10
	}
	if c.Logging.MaxFiles == 0 {
		c.Logging.MaxFiles = 5
	}
	for i := range c.Sources {
		if c.Sources[i].Kind == "" {
			c.Sources[i].Kind = KindDocuments
		}
		if c.Sources[i].DocumentType == "" {
			c.Sources[i].DocumentType = "technical"
		}
	}
}

// applyEnvOverrides applies environment variable overrides.
// REFDEX_DB takes priority over the configured database path.
func (c *Config) applyEnvOverrides() {
	if db := os.Getenv("REFDEX_DB"); db != "" {
		c.DBPath = db
	}
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	seen := make(map[string]struct{}, len(c.Sources))
	for _, s := range c.Sources {
		if s.Name == "" {
			return fmt.Errorf("source with root %q has no name", s.Root)
		}
		if s.Root == "" {
			return fmt.Errorf("source %q has no root", s.Name)
		}
		if s.Category == "" {
			return fmt.Errorf("source %q has no category", s.Name)
		}
		if s.Kind != KindDocuments && s.Kind != KindPatterns {
			return fmt.Errorf("source %q has unknown kind %q", s.Name, s.Kind)
		}
		if s.DocumentType != "technical" && s.DocumentType != "process" {
			return fmt.Errorf("source %q has unknown document_type %q", s.Name, s.DocumentType)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("duplicate source name %q", s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
