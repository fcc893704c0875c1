package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reflecto/reflecto/internal/mirror"
)

// TestDefaultConfig verifies that DefaultConfig returns sensible defaults
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.StatusURL != mirror.DefaultStatusURL {
		t.Errorf("StatusURL = %q, want %q", cfg.StatusURL, mirror.DefaultStatusURL)
	}
	if cfg.Selection.SortKey != string(mirror.SortScore) {
		t.Errorf("SortKey = %q, want score", cfg.Selection.SortKey)
	}
	if cfg.Selection.Limit != nil {
		t.Errorf("Limit = %v, want nil (unlimited)", *cfg.Selection.Limit)
	}
	if cfg.Output.Path != "" {
		t.Errorf("Output.Path = %q, want stdout default", cfg.Output.Path)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reflecto.yaml")

	content := `
status_url: https://example.org/mirrors/status/json
cache_ttl: 30m
selection:
  protocols: [https, http]
  max_age_hours: 24
  min_completion: 0.95
  max_delay_seconds: 3600
  max_score: 5.0
  countries: [FR, DE]
  ipv6: true
  sort_key: delay
  limit: 20
output:
  path: /etc/pacman.d/mirrorlist
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.StatusURL != "https://example.org/mirrors/status/json" {
		t.Errorf("unexpected status URL: %q", cfg.StatusURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	ttl, err := cfg.ParseCacheTTL()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ttl != 30*time.Minute {
		t.Errorf("got TTL %v, want 30m", ttl)
	}

	filters, err := cfg.Filters()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(filters.Protocols) != 2 || filters.Protocols[0] != mirror.ProtocolHTTPS {
		t.Errorf("unexpected protocols: %v", filters.Protocols)
	}
	if filters.MaxAge == nil || *filters.MaxAge != 24 {
		t.Errorf("unexpected max age: %v", filters.MaxAge)
	}
	if !filters.RequireIPv6 || filters.RequireIPv4 || filters.RequireISOs {
		t.Errorf("unexpected require flags: %+v", filters)
	}

	key, err := cfg.SortKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != mirror.SortDelay {
		t.Errorf("got sort key %q, want delay", key)
	}

	if cfg.LimitValue() != 20 {
		t.Errorf("got limit %d, want 20", cfg.LimitValue())
	}
	if cfg.Output.Path != "/etc/pacman.d/mirrorlist" {
		t.Errorf("unexpected output path: %q", cfg.Output.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	neg := -1.0
	over := 1.5
	negLimit := -5

	tests := []struct {
		name       string
		mutate     func(*Config)
		wantOption string
	}{
		{"empty status url", func(c *Config) { c.StatusURL = "" }, "status_url"},
		{"bad cache ttl", func(c *Config) { c.CacheTTL = "soonish" }, "cache_ttl"},
		{"negative cache ttl", func(c *Config) { c.CacheTTL = "-5m" }, "cache_ttl"},
		{"unknown protocol", func(c *Config) { c.Selection.Protocols = []string{"gopher"} }, "protocols"},
		{"negative max age", func(c *Config) { c.Selection.MaxAgeHours = &neg }, "max_age_hours"},
		{"completion above one", func(c *Config) { c.Selection.MinCompletion = &over }, "min_completion"},
		{"negative completion", func(c *Config) { c.Selection.MinCompletion = &neg }, "min_completion"},
		{"negative max delay", func(c *Config) { c.Selection.MaxDelaySeconds = &neg }, "max_delay_seconds"},
		{"negative max score", func(c *Config) { c.Selection.MaxScore = &neg }, "max_score"},
		{"unknown sort key", func(c *Config) { c.Selection.SortKey = "rate" }, "sort_key"},
		{"negative limit", func(c *Config) { c.Selection.Limit = &negLimit }, "limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			ve, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("got %T, want *ValidationError", err)
			}
			if ve.Option != tt.wantOption {
				t.Errorf("got option %q, want %q", ve.Option, tt.wantOption)
			}
		})
	}
}

func TestValidateZeroLimit(t *testing.T) {
	zero := 0
	cfg := DefaultConfig()
	cfg.Selection.Limit = &zero

	// A zero limit is a valid (if unhelpful) request, not an error
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if cfg.LimitValue() != 0 {
		t.Errorf("got limit %d, want 0", cfg.LimitValue())
	}
}
