package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level expect.yaml configuration.
type Config struct {
	// Keyword is the trigger keyword. Defaults to "expect".
	Keyword string `yaml:"keyword,omitempty"`

	// TempName is the base name of the bound temporaries. Defaults to "ret".
	TempName string `yaml:"temp_name,omitempty"`

	// SharedTempName binds every rewrite site to TempName itself instead of
	// handing out ret, ret_1, ... per site.
	SharedTempName bool `yaml:"shared_temp_name,omitempty"`

	// Strict rejects constructs used directly as conditions.
	Strict bool `yaml:"strict,omitempty"`

	// SearchPaths are the roots module identifiers are resolved against,
	// relative to the config file. Defaults to the config directory.
	SearchPaths []string `yaml:"search_paths,omitempty"`

	// Cache configures the persistent rewrite cache.
	Cache CacheConfig `yaml:"cache,omitempty"`

	// Python is the interpreter used by `expect run`. Defaults to python3.
	Python string `yaml:"python,omitempty"`

	// Listen is the address `expect serve` binds to.
	Listen string `yaml:"listen,omitempty"`

	// dir is the directory the config was loaded from.
	dir string
}

// CacheConfig describes the sqlite-backed rewrite cache.
type CacheConfig struct {
	// Enabled turns the cache on.
	Enabled bool `yaml:"enabled,omitempty"`

	// Path is the database file, relative to the config directory.
	Path string `yaml:"path,omitempty"`
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Default returns the configuration used when no expect.yaml is found.
func Default(dir string) *Config {
	cfg := &Config{dir: dir}
	cfg.setDefaults()
	return cfg
}

// LoadConfig reads and parses an expect.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses expect.yaml content from bytes.
// The path argument is used for error messages and to resolve relative paths.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.dir = filepath.Dir(path)
	cfg.setDefaults()
	return &cfg, nil
}

// FindConfig searches for expect.yaml starting from dir and walking up
// to parent directories.
// Returns the path to the config file and nil error if found,
// or empty string and nil error if not found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range ConfigFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return "", nil
		}
		dir = parent
	}
}

// validate checks the configuration for semantic errors.
func (c *Config) validate(path string) error {
	if c.Keyword != "" && !identRe.MatchString(c.Keyword) {
		return fmt.Errorf("%s: keyword %q is not an identifier", path, c.Keyword)
	}
	if c.TempName != "" && !identRe.MatchString(c.TempName) {
		return fmt.Errorf("%s: temp_name %q is not an identifier", path, c.TempName)
	}
	if c.Keyword != "" && c.Keyword == c.TempName {
		return fmt.Errorf("%s: keyword and temp_name must differ", path)
	}
	switch c.Keyword {
	case IfKeyword, ElseKeyword, ElifKeyword, WhileKeyword, AssertKeyword, ForKeyword, SentinelName:
		return fmt.Errorf("%s: keyword %q is reserved by the host grammar", path, c.Keyword)
	}
	for i, p := range c.SearchPaths {
		if p == "" {
			return fmt.Errorf("%s: search_paths[%d] is empty", path, i)
		}
	}
	return nil
}

// setDefaults fills in default values for omitted fields.
func (c *Config) setDefaults() {
	if c.Keyword == "" {
		c.Keyword = TriggerKeyword
	}
	if c.TempName == "" {
		c.TempName = TempName
	}
	if c.Python == "" {
		c.Python = DefaultPython
	}
	if c.Listen == "" {
		c.Listen = DefaultListenAddr
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		c.Cache.Path = DefaultCacheFile
	}
}

// Dir is the directory the configuration applies to.
func (c *Config) Dir() string {
	return c.dir
}

// ResolvedSearchPaths returns SearchPaths made absolute against the config
// directory, or the config directory itself when none are set.
func (c *Config) ResolvedSearchPaths() []string {
	if len(c.SearchPaths) == 0 {
		return []string{c.abs(".")}
	}
	paths := make([]string, 0, len(c.SearchPaths))
	for _, p := range c.SearchPaths {
		paths = append(paths, c.abs(p))
	}
	return paths
}

// CachePath returns the absolute cache database path, or "" when disabled.
func (c *Config) CachePath() string {
	if !c.Cache.Enabled {
		return ""
	}
	return c.abs(c.Cache.Path)
}

func (c *Config) abs(p string) string {
	if !filepath.IsAbs(p) {
		p = filepath.Join(c.dir, p)
	}
	if a, err := filepath.Abs(p); err == nil {
		return a
	}
	return p
}
