package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ka2n/cmsrelay/api/retry"
	"github.com/morikuni/failure/v2"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
}

func TestDefault_Relay(t *testing.T) {
	rc := Default().Relay()
	if rc.PoolWidth != 5 || rc.MaxAttempts != 3 || rc.RetryDelay != 5*time.Second {
		t.Errorf("Relay() = %+v", rc)
	}
	if rc.RequestTimeout != 30*time.Second || rc.ExpectedType != "application/pdf" {
		t.Errorf("Relay() = %+v", rc)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cmsrelay.yaml")
	content := `
base_url: https://cms.example.org
listing:
  path: /api/reports
  populate: [attachments]
  status: ""
  page_size: 25
  child_path: [attachments]
  keys:
    url: href
    id: id
pool:
  workers: 2
  retry_delay: 250ms
  strategy: exponential
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvToken, "secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.BaseURL != "https://cms.example.org" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Token != "secret" {
		t.Errorf("Token = %q, want value from %s", cfg.Token, EnvToken)
	}

	q := cfg.Query()
	if diff := cmp.Diff([]string{"attachments"}, q.Populate); diff != "" {
		t.Errorf("Populate mismatch (-want +got):\n%s", diff)
	}
	if q.Path != "/api/reports" || q.PageSize != 25 || q.Status != "" {
		t.Errorf("Query() = %+v", q)
	}

	ex := cfg.Extractor()
	if ex.Keys.URL != "href" || ex.Keys.Name != "title" {
		t.Errorf("Extractor().Keys = %+v", ex.Keys)
	}

	p := cfg.Pool
	if p.Workers != 2 || p.RetryDelay != 250*time.Millisecond || p.Strategy != retry.Exponential {
		t.Errorf("Pool = %+v", p)
	}
	// untouched values keep their defaults
	if p.Attempts != 3 || cfg.Upload.Ref != "investors.file-data" {
		t.Errorf("defaults lost: %+v %+v", p, cfg.Upload)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(path, []byte("base_url: https://file.example.org\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvBaseURL, "https://env.example.org")
	t.Setenv(EnvCacheDir, "/tmp/cmsrelay")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BaseURL != "https://env.example.org" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.CacheDir != "/tmp/cmsrelay" {
		t.Errorf("CacheDir = %q", cfg.CacheDir)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("pool: [1, 2"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{filepath.Join(dir, "missing.yaml"), bad} {
		if _, err := Load(path); !failure.Is(err, ErrConfigRead) {
			t.Errorf("Load(%q) error = %v, want ErrConfigRead", path, err)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"No base URL", func(c *Config) { c.BaseURL = "" }},
		{"Relative base URL", func(c *Config) { c.BaseURL = "localhost" }},
		{"Zero workers", func(c *Config) { c.Pool.Workers = 0 }},
		{"Zero attempts", func(c *Config) { c.Pool.Attempts = 0 }},
		{"Unknown strategy", func(c *Config) { c.Pool.Strategy = "linear" }},
		{"Negative rate limit", func(c *Config) { c.Pool.RateLimit = -1 }},
		{"No child path", func(c *Config) { c.Listing.ChildPath = nil }},
		{"No URL key", func(c *Config) { c.Listing.Keys.URL = "" }},
		{"Listing path without slash", func(c *Config) { c.Listing.Path = "api/investors" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if !failure.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
