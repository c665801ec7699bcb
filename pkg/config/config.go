// Package config loads run settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/codeGROOVE-dev/sleuth/pkg/collect"
	"github.com/codeGROOVE-dev/sleuth/pkg/fetch"
)

// Validation errors.
var (
	ErrWorkersOutOfRange  = errors.New("config: workers must be 1-64")
	ErrNegativeSpacing    = errors.New("config: spacing must not be negative")
	ErrAttemptsOutOfRange = errors.New("config: retry.max_attempts must be 1-10")
	ErrNegativeBackoff    = errors.New("config: retry.backoff must not be negative")
	ErrNegativeSample     = errors.New("config: sample bounds must not be negative")
	ErrBadPlatformURL     = errors.New("config: platform URL template must contain %s")
)

// Retry mirrors fetch.Policy in file form.
type Retry struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
	Exponential bool          `yaml:"exponential"`
}

// Samples bounds how much of each source is read. SecondDegree followers are
// expanded by SecondDegreeEach of their own followers; CommonFollowed followees
// are expanded by CommonEach of their followees, keeping the CommonTop tallies.
type Samples struct {
	Followers        int `yaml:"followers"`
	Followees        int `yaml:"followees"`
	SecondDegree     int `yaml:"second_degree"`
	SecondDegreeEach int `yaml:"second_degree_each"`
	CommonFollowed   int `yaml:"common_followed"`
	CommonEach       int `yaml:"common_each"`
	CommonTop        int `yaml:"common_top"`
	TimelinePosts    int `yaml:"timeline_posts"`
	BehaviorPosts    int `yaml:"behavior_posts"`
	AutomationPosts  int `yaml:"automation_posts"`
	Links            int `yaml:"links"`
	TextRunes        int `yaml:"text_runes"`
}

// Config holds every tunable of an analysis run.
//
//nolint:govet // fieldalignment: grouped for readability
type Config struct {
	Workers int           `yaml:"workers"`
	Spacing time.Duration `yaml:"spacing"`
	Retry   Retry         `yaml:"retry"`
	Samples Samples       `yaml:"samples"`

	HTTPTimeout  time.Duration `yaml:"http_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	DNSServer    string        `yaml:"dns_server"`
	DNSTimeout   time.Duration `yaml:"dns_timeout"`
	DNSTypes     []string      `yaml:"dns_types"`
	WhoisTimeout time.Duration `yaml:"whois_timeout"`

	// Platforms maps a platform name to a profile URL template; %s is replaced by the handle.
	Platforms map[string]string `yaml:"platforms"`
}

// Default returns the built-in configuration.
func Default() Config {
	p := fetch.DefaultPolicy()
	return Config{
		Workers: collect.DefaultWidth,
		Spacing: collect.DefaultSpacing,
		Retry: Retry{
			MaxAttempts: p.MaxAttempts,
			Backoff:     p.Backoff,
		},
		Samples: Samples{
			Followers:        50,
			Followees:        50,
			SecondDegree:     5,
			SecondDegreeEach: 10,
			CommonFollowed:   5,
			CommonEach:       10,
			CommonTop:        10,
			TimelinePosts:    200,
			BehaviorPosts:    100,
			AutomationPosts:  50,
			Links:            50,
			TextRunes:        1000,
		},
		HTTPTimeout:  10 * time.Second,
		MaxBodyBytes: 2 << 20,
		DNSTimeout:   5 * time.Second,
		DNSTypes:     []string{"A", "AAAA", "MX", "TXT", "NS"},
		WhoisTimeout: 15 * time.Second,
		Platforms: map[string]string{
			"twitter":  "https://twitter.com/%s",
			"linkedin": "https://linkedin.com/in/%s",
			"tiktok":   "https://tiktok.com/@%s",
			"facebook": "https://facebook.com/%s",
		},
	}
}

// Load returns Default overlaid with the YAML file at path (skipped when path is
// empty) and then with environment overrides. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.Workers = getEnvAsInt("SLEUTH_WORKERS", c.Workers)
	c.Spacing = getEnvAsDuration("SLEUTH_SPACING", c.Spacing)
	c.Retry.MaxAttempts = getEnvAsInt("SLEUTH_MAX_ATTEMPTS", c.Retry.MaxAttempts)
	c.Retry.Backoff = getEnvAsDuration("SLEUTH_BACKOFF", c.Retry.Backoff)
	c.DNSServer = getEnv("SLEUTH_DNS_SERVER", c.DNSServer)
}

// Validate checks that every setting is usable.
func (c Config) Validate() error {
	if c.Workers < 1 || c.Workers > 64 {
		return fmt.Errorf("%w: got %d", ErrWorkersOutOfRange, c.Workers)
	}
	if c.Spacing < 0 {
		return fmt.Errorf("%w: got %s", ErrNegativeSpacing, c.Spacing)
	}
	if c.Retry.MaxAttempts < 1 || c.Retry.MaxAttempts > 10 {
		return fmt.Errorf("%w: got %d", ErrAttemptsOutOfRange, c.Retry.MaxAttempts)
	}
	if c.Retry.Backoff < 0 {
		return fmt.Errorf("%w: got %s", ErrNegativeBackoff, c.Retry.Backoff)
	}
	s := c.Samples
	for _, n := range []int{
		s.Followers, s.Followees, s.SecondDegree, s.SecondDegreeEach, s.CommonFollowed, s.CommonEach,
		s.CommonTop, s.TimelinePosts, s.BehaviorPosts, s.AutomationPosts, s.Links, s.TextRunes,
	} {
		if n < 0 {
			return fmt.Errorf("%w: got %d", ErrNegativeSample, n)
		}
	}
	for name, tmpl := range c.Platforms {
		if strings.Count(tmpl, "%s") != 1 {
			return fmt.Errorf("%w: %s=%q", ErrBadPlatformURL, name, tmpl)
		}
	}
	return nil
}

// Policy returns the retry policy described by c.
func (c Config) Policy() fetch.Policy {
	p := fetch.DefaultPolicy()
	p.MaxAttempts = c.Retry.MaxAttempts
	p.Backoff = c.Retry.Backoff
	p.Exponential = c.Retry.Exponential
	return p
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return v
}
