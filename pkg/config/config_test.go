package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/codeGROOVE-dev/sleuth/pkg/fetch"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sleuth.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Samples.Followers != 50 || cfg.Samples.TimelinePosts != 200 || cfg.Samples.BehaviorPosts != 100 {
		t.Errorf("unexpected default samples: %+v", cfg.Samples)
	}
	if diff := cmp.Diff(fetch.DefaultPolicy(), cfg.Policy()); diff != "" {
		t.Errorf("Policy() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
workers: 8
spacing: 250ms
retry:
  max_attempts: 4
  backoff: 2s
  exponential: true
samples:
  followers: 20
platforms:
  github: https://github.com/%s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 8 || cfg.Spacing != 250*time.Millisecond {
		t.Errorf("workers/spacing = %d/%s, want 8/250ms", cfg.Workers, cfg.Spacing)
	}
	want := fetch.Policy{
		RetryOn:     []fetch.Kind{fetch.KindRateLimited, fetch.KindTransient},
		MaxAttempts: 4,
		Backoff:     2 * time.Second,
		Exponential: true,
	}
	if diff := cmp.Diff(want, cfg.Policy()); diff != "" {
		t.Errorf("Policy() mismatch (-want +got):\n%s", diff)
	}
	if cfg.Samples.Followers != 20 || cfg.Samples.Followees != 50 {
		t.Errorf("samples = %+v, want followers overridden and followees kept", cfg.Samples)
	}
	if cfg.Platforms["github"] == "" || cfg.Platforms["twitter"] == "" {
		t.Errorf("platforms = %v, want defaults merged with file", cfg.Platforms)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SLEUTH_WORKERS", "3")
	t.Setenv("SLEUTH_SPACING", "1s")
	t.Setenv("SLEUTH_MAX_ATTEMPTS", "not-a-number")
	t.Setenv("SLEUTH_BACKOFF", "5s")
	t.Setenv("SLEUTH_DNS_SERVER", "1.1.1.1")

	cfg, err := Load(writeConfig(t, "workers: 9\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want env value 3", cfg.Workers)
	}
	if cfg.Spacing != time.Second || cfg.Retry.Backoff != 5*time.Second {
		t.Errorf("spacing/backoff = %s/%s", cfg.Spacing, cfg.Retry.Backoff)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want default kept on bad env value", cfg.Retry.MaxAttempts)
	}
	if cfg.DNSServer != "1.1.1.1" {
		t.Errorf("DNSServer = %q", cfg.DNSServer)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
	if _, err := Load(writeConfig(t, "workers: [1, 2")); err == nil {
		t.Error("malformed yaml should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero workers", func(c *Config) { c.Workers = 0 }, ErrWorkersOutOfRange},
		{"too many workers", func(c *Config) { c.Workers = 65 }, ErrWorkersOutOfRange},
		{"negative spacing", func(c *Config) { c.Spacing = -time.Second }, ErrNegativeSpacing},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, ErrAttemptsOutOfRange},
		{"negative backoff", func(c *Config) { c.Retry.Backoff = -1 }, ErrNegativeBackoff},
		{"negative sample", func(c *Config) { c.Samples.Links = -1 }, ErrNegativeSample},
		{"bad template", func(c *Config) { c.Platforms["x"] = "https://x.com/" }, ErrBadPlatformURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}
