// Package config provides reading and writing of pim configuration.
// Supports both global (~/.pim/config.yaml) and local (.pim/config.yaml).
// Reading: uses local if it exists, otherwise global.
// Writing: defaults to global, use --local for local.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNoConfigPath is returned when the config path cannot be determined.
	ErrNoConfigPath = errors.New("cannot determine config path")
	// ErrUnknownKey is returned when getting/setting an unknown config key.
	ErrUnknownKey = errors.New("unknown config key")
	// ErrInvalidValue is returned when a config value is invalid.
	ErrInvalidValue = errors.New("invalid config value")
)

// Scope represents the configuration scope (global or local).
type Scope int

const (
	// ScopeGlobal is user-wide config in ~/.pim/config.yaml (default)
	ScopeGlobal Scope = iota
	// ScopeLocal is directory-specific config in .pim/config.yaml
	ScopeLocal
)

// Author names who stamps page versions.
type Author struct {
	Name string `yaml:"name,omitempty"`
}

// Data holds storage location options.
type Data struct {
	Dir string `yaml:"dir,omitempty"`
}

// Log holds diagnostic logging options.
type Log struct {
	Level string `yaml:"level,omitempty"`
}

// Limits holds query limit options.
type Limits struct {
	BreadcrumbDepth *int `yaml:"breadcrumb_depth,omitempty"`
	SearchResults   *int `yaml:"search_results,omitempty"`
	PreviewLines    *int `yaml:"preview_lines,omitempty"`
}

// Vault holds the Argon2id key-derivation parameters.
type Vault struct {
	KDFTime   *uint32 `yaml:"kdf_time,omitempty"`
	KDFMemory *uint32 `yaml:"kdf_memory,omitempty"` // KiB
}

// Defaults applied when a value is not configured.
const (
	DefaultLogLevel        = "info"
	DefaultBreadcrumbDepth = 64
	DefaultSearchResults   = 20
	DefaultPreviewLines    = 5
	DefaultKDFTime         = 3
	DefaultKDFMemory       = 64 * 1024
)

// Validation bounds for configuration values.
const (
	MinBreadcrumbDepth = 1
	MaxBreadcrumbDepth = 10000
	MinSearchResults   = 1
	MaxSearchResults   = 1000
	MinPreviewLines    = 1
	MaxPreviewLines    = 100
	MinKDFTime         = 1
	MaxKDFTime         = 100
	MinKDFMemory       = 8 * 1024
	MaxKDFMemory       = 4 * 1024 * 1024 // 4 GiB
)

// LogLevels are the accepted log.level values.
var LogLevels = []string{"debug", "info", "warn", "error"}

// Config contains configuration for pim.
type Config struct {
	Author Author `yaml:"author,omitempty"`
	Data   Data   `yaml:"data,omitempty"`
	Log    Log    `yaml:"log,omitempty"`
	Limits Limits `yaml:"limits,omitempty"`
	Vault  Vault  `yaml:"vault,omitempty"`

	// path is the file this config was loaded from (for Save)
	path  string
	scope Scope
}

func checkRange[T int | uint32](key string, p *T, lo, hi T) error {
	if p == nil {
		return nil
	}
	if *p < lo || *p > hi {
		return fmt.Errorf("%w: %s must be between %d and %d, got %d", ErrInvalidValue, key, lo, hi, *p)
	}
	return nil
}

// Validate checks that all configured values are within acceptable bounds.
// Returns nil if all values are valid or not set (defaults will be used).
func (c *Config) Validate() error {
	if c.Log.Level != "" && !validLevel(c.Log.Level) {
		return fmt.Errorf("%w: log.level must be one of %v, got %q", ErrInvalidValue, LogLevels, c.Log.Level)
	}
	checks := []error{
		checkRange("limits.breadcrumb_depth", c.Limits.BreadcrumbDepth, MinBreadcrumbDepth, MaxBreadcrumbDepth),
		checkRange("limits.search_results", c.Limits.SearchResults, MinSearchResults, MaxSearchResults),
		checkRange("limits.preview_lines", c.Limits.PreviewLines, MinPreviewLines, MaxPreviewLines),
		checkRange("vault.kdf_time", c.Vault.KDFTime, MinKDFTime, MaxKDFTime),
		checkRange("vault.kdf_memory", c.Vault.KDFMemory, MinKDFMemory, MaxKDFMemory),
	}
	return errors.Join(checks...)
}

func validLevel(s string) bool {
	for _, l := range LogLevels {
		if l == s {
			return true
		}
	}
	return false
}

// LogLevel returns the diagnostic log level (defaults to info).
func (c *Config) LogLevel() string {
	if c.Log.Level == "" {
		return DefaultLogLevel
	}
	return c.Log.Level
}

// BreadcrumbDepth returns the hierarchy recursion cap (defaults to 64).
func (c *Config) BreadcrumbDepth() int {
	if c.Limits.BreadcrumbDepth == nil {
		return DefaultBreadcrumbDepth
	}
	return *c.Limits.BreadcrumbDepth
}

// SearchResults returns the full-text result cap (defaults to 20).
func (c *Config) SearchResults() int {
	if c.Limits.SearchResults == nil {
		return DefaultSearchResults
	}
	return *c.Limits.SearchResults
}

// PreviewLines returns the number of lines kept in card previews (defaults to 5).
func (c *Config) PreviewLines() int {
	if c.Limits.PreviewLines == nil {
		return DefaultPreviewLines
	}
	return *c.Limits.PreviewLines
}

// KDFTime returns the Argon2id iteration count.
func (c *Config) KDFTime() uint32 {
	if c.Vault.KDFTime == nil {
		return DefaultKDFTime
	}
	return *c.Vault.KDFTime
}

// KDFMemory returns the Argon2id memory cost in KiB.
func (c *Config) KDFMemory() uint32 {
	if c.Vault.KDFMemory == nil {
		return DefaultKDFMemory
	}
	return *c.Vault.KDFMemory
}

// LocalPath returns the path to the local config file.
func LocalPath() string {
	return filepath.Join(".pim", "config.yaml")
}

// GlobalPath returns the path to the global (user) config file: ~/.pim/config.yaml
func GlobalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".pim", "config.yaml")
}

// Load reads configuration: uses local if it exists, otherwise global.
func Load() (*Config, error) {
	if _, err := os.Stat(LocalPath()); err == nil {
		return LoadScope(ScopeLocal)
	}
	return LoadScope(ScopeGlobal)
}

// LoadScope reads configuration from a specific scope.
func LoadScope(scope Scope) (*Config, error) {
	path := pathForScope(scope)
	if path == "" {
		return &Config{scope: scope}, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{path: path, scope: scope}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("malformed config file %s: %w\n\nTo fix: edit the file to correct the YAML syntax, or delete it to use defaults", path, err)
	}
	cfg.path = path
	cfg.scope = scope

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cfg, nil
}

// Scope returns which scope this config was loaded from.
func (c *Config) Scope() Scope {
	return c.scope
}

// Save writes the configuration to its original location.
func (c *Config) Save() error {
	if c.path == "" {
		c.path = pathForScope(c.scope)
	}
	if c.path == "" {
		return ErrNoConfigPath
	}
	return c.saveToPath(c.path)
}

// SaveScope writes the configuration to the specified scope.
func (c *Config) SaveScope(scope Scope) error {
	path := pathForScope(scope)
	if path == "" {
		return ErrNoConfigPath
	}
	return c.saveToPath(path)
}

func (c *Config) saveToPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func pathForScope(scope Scope) string {
	switch scope {
	case ScopeLocal:
		return LocalPath()
	case ScopeGlobal:
		return GlobalPath()
	default:
		return ""
	}
}

// DataDir resolves the data directory: the flag value, then PIM_DIR, then
// data.dir, then the per-user config directory.
func (c *Config) DataDir(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv("PIM_DIR"); env != "" {
		return env, nil
	}
	if c.Data.Dir != "" {
		return c.Data.Dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving data directory: %w", err)
	}
	return filepath.Join(base, "pim"), nil
}
