package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"linkdoctor/internal/models"
)

// DefaultProbeTimeoutMs bounds every probe unless overridden.
const DefaultProbeTimeoutMs = 2500

// Config represents configuration data for the diagnostic service.
type Config struct {
	Addr      string            `yaml:"addr"`
	Probe     ProbeConfig       `yaml:"probe"`
	Session   SessionConfig     `yaml:"session"`
	Server    ServerConfig      `yaml:"server"`
	Logging   LoggingConfig     `yaml:"logging"`
	Endpoints []models.Endpoint `yaml:"endpoints"`
}

// ProbeConfig controls individual probes.
type ProbeConfig struct {
	TimeoutMs int `yaml:"timeout_ms"`
}

// Timeout returns the per-probe deadline.
func (p ProbeConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

// SessionConfig holds the initial session toggles and progress pacing.
type SessionConfig struct {
	ABEnabled          bool `yaml:"ab_enabled"`
	ProbingEnabled     bool `yaml:"probing_enabled"`
	ProgressSteps      int  `yaml:"progress_steps"`
	ProgressIntervalMs int  `yaml:"progress_interval_ms"`
}

// ProgressInterval returns the advisory progress tick.
func (s SessionConfig) ProgressInterval() time.Duration {
	return time.Duration(s.ProgressIntervalMs) * time.Millisecond
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	// ScanRatePerMinute caps how often scans may be triggered over the API.
	ScanRatePerMinute int `yaml:"scan_rate_per_minute"`
}

// LoggingConfig selects the zap level and encoder.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultEndpoints is the static probe table used when none is configured.
func DefaultEndpoints() []models.Endpoint {
	return []models.Endpoint{
		{
			ID:   "cf-trace-ip",
			Name: "Cloudflare trace (IP)",
			URL:  "https://1.1.1.1/cdn-cgi/trace",
			Role: models.RolePrimaryA,
			Kind: models.KindHTTP,
		},
		{
			ID:   "google-204",
			Name: "Google generate_204",
			URL:  "https://www.google.com/generate_204",
			Role: models.RolePrimaryB,
			Kind: models.KindHTTP,
		},
		{
			ID:     "cf-www",
			Name:   "Cloudflare www",
			URL:    "https://www.cloudflare.com/cdn-cgi/trace",
			Role:   models.RolePrimaryC,
			Kind:   models.KindHTTP,
			Opaque: true,
		},
		{
			ID:   "gstatic-captive",
			Name: "Connectivity check (captive)",
			URL:  "http://connectivitycheck.gstatic.com/generate_204",
			Role: models.RoleCaptive,
			Kind: models.KindHTTP,
		},
		{
			ID:   "resolve-example",
			Name: "Name resolution (example.com)",
			URL:  "example.com",
			Role: models.RoleResolution,
			Kind: models.KindDNS,
		},
	}
}

// DefaultConfig returns sensible defaults in case no configuration file is provided.
func DefaultConfig() Config {
	return Config{
		Addr:  ":8080",
		Probe: ProbeConfig{TimeoutMs: DefaultProbeTimeoutMs},
		Session: SessionConfig{
			ABEnabled:          true,
			ProbingEnabled:     true,
			ProgressSteps:      10,
			ProgressIntervalMs: 300,
		},
		Server:    ServerConfig{ScanRatePerMinute: 6},
		Logging:   LoggingConfig{Level: "info", Format: "json"},
		Endpoints: DefaultEndpoints(),
	}
}

// Load reads configuration from yaml file. Missing files fall back to defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(content)
}

// Parse decodes yaml content on top of the defaults and validates the result.
func Parse(content []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	defaults := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = defaults.Addr
	}
	if cfg.Probe.TimeoutMs <= 0 {
		cfg.Probe.TimeoutMs = DefaultProbeTimeoutMs
	}
	if cfg.Session.ProgressSteps <= 0 {
		cfg.Session.ProgressSteps = defaults.Session.ProgressSteps
	}
	if cfg.Session.ProgressIntervalMs <= 0 {
		cfg.Session.ProgressIntervalMs = defaults.Session.ProgressIntervalMs
	}
	if cfg.Server.ScanRatePerMinute < 0 {
		cfg.Server.ScanRatePerMinute = 0
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaults.Logging.Format
	}
	if len(cfg.Endpoints) == 0 {
		cfg.Endpoints = DefaultEndpoints()
	}
	if err := validateEndpoints(cfg.Endpoints); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateEndpoints(endpoints []models.Endpoint) error {
	ids := make(map[string]struct{}, len(endpoints))
	roles := make(map[models.Role]string, len(endpoints))
	for i := range endpoints {
		e := &endpoints[i]
		e.ID = strings.TrimSpace(e.ID)
		e.URL = strings.TrimSpace(e.URL)
		if e.ID == "" {
			return fmt.Errorf("endpoint %d is missing id", i)
		}
		if _, dup := ids[e.ID]; dup {
			return fmt.Errorf("endpoint id %q is duplicated", e.ID)
		}
		ids[e.ID] = struct{}{}
		if e.Name == "" {
			e.Name = e.ID
		}
		if e.URL == "" {
			return fmt.Errorf("endpoint %s url is required", e.ID)
		}
		if !e.Role.Valid() {
			return fmt.Errorf("endpoint %s has unknown role %q", e.ID, e.Role)
		}
		if other, taken := roles[e.Role]; taken {
			return fmt.Errorf("endpoints %s and %s share role %s", other, e.ID, e.Role)
		}
		roles[e.Role] = e.ID
		switch e.Kind {
		case "":
			e.Kind = models.KindHTTP
		case models.KindHTTP, models.KindDNS:
		default:
			return fmt.Errorf("endpoint %s has unknown kind %q", e.ID, e.Kind)
		}
	}
	for _, role := range []models.Role{models.RolePrimaryA, models.RolePrimaryB, models.RolePrimaryC} {
		if _, ok := roles[role]; !ok {
			return fmt.Errorf("configuration must define a %s endpoint", role)
		}
	}
	return nil
}
