package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/reflecto/reflecto/internal/mirror"
)

// Config is the top-level configuration
type Config struct {
	StatusURL string          `yaml:"status_url"`
	DBPath    string          `yaml:"db_path"`
	CacheTTL  string          `yaml:"cache_ttl"`
	Selection SelectionConfig `yaml:"selection"`
	Output    OutputConfig    `yaml:"output"`
}

// SelectionConfig holds the mirror filter and ranking settings. Nil
// thresholds leave the corresponding filter disabled.
type SelectionConfig struct {
	Protocols       []string `yaml:"protocols"`
	MaxAgeHours     *float64 `yaml:"max_age_hours"`
	MinCompletion   *float64 `yaml:"min_completion"`
	MaxDelaySeconds *float64 `yaml:"max_delay_seconds"`
	MaxScore        *float64 `yaml:"max_score"`
	Countries       []string `yaml:"countries"`
	ISOs            bool     `yaml:"isos"`
	IPv4            bool     `yaml:"ipv4"`
	IPv6            bool     `yaml:"ipv6"`
	SortKey         string   `yaml:"sort_key"`
	Limit           *int     `yaml:"limit"`
}

// OutputConfig holds mirrorlist output settings
type OutputConfig struct {
	// Path is where the rendered mirrorlist is written. Empty means
	// standard output.
	Path string `yaml:"path"`
}

// ValidationError reports an invalid configuration option. It is fatal
// and detected before any filtering or sorting begins.
type ValidationError struct {
	Option string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Option, e.Reason)
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		StatusURL: mirror.DefaultStatusURL,
		DBPath:    "",
		CacheTTL:  "0s",
		Selection: SelectionConfig{
			SortKey: string(mirror.SortScore),
		},
		Output: OutputConfig{
			Path: "",
		},
	}
}

// Load reads a config file from the given path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() (string, error) {
	searchPaths := []string{
		"reflecto.yaml",
		"/etc/reflecto/reflecto.yaml",
	}

	// Add user config path
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(home, ".config", "reflecto", "reflecto.yaml"),
		)
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", searchPaths)
}

// DefaultDBPath returns the snapshot database location used when db_path
// is not configured.
func DefaultDBPath() string {
	if cacheDir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(cacheDir, "reflecto", "reflecto.db")
	}
	return filepath.Join(os.TempDir(), "reflecto.db")
}

// Validate checks every option, returning a *ValidationError for the
// first invalid one. Options are never silently coerced.
func (c *Config) Validate() error {
	if c.StatusURL == "" {
		return &ValidationError{Option: "status_url", Reason: "must not be empty"}
	}

	if _, err := c.ParseCacheTTL(); err != nil {
		return &ValidationError{Option: "cache_ttl", Reason: err.Error()}
	}

	for _, p := range c.Selection.Protocols {
		if _, err := mirror.ParseProtocol(p); err != nil {
			return &ValidationError{Option: "protocols", Reason: err.Error()}
		}
	}

	if v := c.Selection.MaxAgeHours; v != nil && *v < 0 {
		return &ValidationError{Option: "max_age_hours", Reason: fmt.Sprintf("must not be negative, got %v", *v)}
	}
	if v := c.Selection.MinCompletion; v != nil && (*v < 0 || *v > 1) {
		return &ValidationError{Option: "min_completion", Reason: fmt.Sprintf("must be within [0, 1], got %v", *v)}
	}
	if v := c.Selection.MaxDelaySeconds; v != nil && *v < 0 {
		return &ValidationError{Option: "max_delay_seconds", Reason: fmt.Sprintf("must not be negative, got %v", *v)}
	}
	if v := c.Selection.MaxScore; v != nil && *v < 0 {
		return &ValidationError{Option: "max_score", Reason: fmt.Sprintf("must not be negative, got %v", *v)}
	}

	if _, err := mirror.ParseSortKey(c.Selection.SortKey); err != nil {
		return &ValidationError{Option: "sort_key", Reason: err.Error()}
	}

	if c.Selection.Limit != nil && *c.Selection.Limit < 0 {
		return &ValidationError{Option: "limit", Reason: fmt.Sprintf("must not be negative, got %d", *c.Selection.Limit)}
	}

	return nil
}

// ParseCacheTTL parses the cache_ttl duration string. Zero disables
// snapshot reuse.
func (c *Config) ParseCacheTTL() (time.Duration, error) {
	if c.CacheTTL == "" {
		return 0, nil
	}
	ttl, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return 0, fmt.Errorf("bad duration %q: %w", c.CacheTTL, err)
	}
	if ttl < 0 {
		return 0, fmt.Errorf("must not be negative, got %s", ttl)
	}
	return ttl, nil
}

// Filters converts the selection settings into typed filter criteria.
// Validate must have been called first; unknown protocols fail here too.
func (c *Config) Filters() (mirror.Filters, error) {
	f := mirror.Filters{
		MaxAge:        c.Selection.MaxAgeHours,
		MinCompletion: c.Selection.MinCompletion,
		MaxDelay:      c.Selection.MaxDelaySeconds,
		MaxScore:      c.Selection.MaxScore,
		Countries:     c.Selection.Countries,
		RequireISOs:   c.Selection.ISOs,
		RequireIPv4:   c.Selection.IPv4,
		RequireIPv6:   c.Selection.IPv6,
	}

	for _, p := range c.Selection.Protocols {
		proto, err := mirror.ParseProtocol(p)
		if err != nil {
			return mirror.Filters{}, err
		}
		f.Protocols = append(f.Protocols, proto)
	}

	return f, nil
}

// SortKey returns the typed sort key from the selection settings.
func (c *Config) SortKey() (mirror.SortKey, error) {
	return mirror.ParseSortKey(c.Selection.SortKey)
}

// LimitValue returns the result-count limit, -1 meaning unlimited.
func (c *Config) LimitValue() int {
	if c.Selection.Limit == nil {
		return -1
	}
	return *c.Selection.Limit
}
