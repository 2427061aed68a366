// Copyright (c) 2026 Ledgerly, Inc.
//
// This file is part of go-passkey.
//
// SPDX-License-Identifier: MIT

// Package config loads server configuration from a YAML file with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ledgerly/go-passkey/pkg/passkey"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Duration wraps time.Duration for YAML. It accepts Go duration strings
// ("90s", "5m") and bare integers, which are read as seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!int" {
		var secs int64
		if err := value.Decode(&secs); err != nil {
			return err
		}
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr"`

	// ReadTimeout bounds reading the request, including the body.
	ReadTimeout Duration `yaml:"read_timeout"`

	// WriteTimeout bounds writing the response.
	WriteTimeout Duration `yaml:"write_timeout"`

	// IdleTimeout bounds keep-alive connections between requests.
	IdleTimeout Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown on SIGINT/SIGTERM.
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// SessionConfig configures session token minting.
type SessionConfig struct {
	// Secret is the HMAC signing secret. Required in production; a random
	// ephemeral secret is generated in development when empty.
	Secret string `yaml:"secret"`

	// TTL is the session lifetime. Default: 168h (7 days).
	TTL Duration `yaml:"ttl"`

	// Issuer is the iss claim on minted tokens.
	Issuer string `yaml:"issuer"`

	// SecureCookies marks session cookies Secure, for TLS deployments.
	SecureCookies bool `yaml:"secure_cookies"`
}

// PasskeyConfig wraps passkey.Config with YAML-friendly duration fields.
type PasskeyConfig struct {
	passkey.Config `yaml:",inline"`

	// Timeout is the client-side ceremony timeout. Default: 60s.
	Timeout Duration `yaml:"timeout"`

	// ChallengeTTL bounds challenge lifetime. Default: 5m.
	ChallengeTTL Duration `yaml:"challenge_ttl"`
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	// Backend is "memory" or "file".
	Backend string `yaml:"backend"`

	// Dir is the root directory for the file backend.
	Dir string `yaml:"dir"`
}

// RateLimitConfig configures per-client rate limiting.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Debug bool `yaml:"debug"`
	JSON  bool `yaml:"json"`
}

// Config is the full server configuration.
type Config struct {
	// Environment is "development" or "production".
	Environment string `yaml:"environment"`

	Server    ServerConfig    `yaml:"server"`
	Session   SessionConfig   `yaml:"session"`
	Passkey   PasskeyConfig   `yaml:"passkey"`
	Storage   StorageConfig   `yaml:"storage"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

// Default returns a development configuration serving localhost.
func Default() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration(10 * time.Second),
			WriteTimeout:    Duration(10 * time.Second),
			IdleTimeout:     Duration(60 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Session: SessionConfig{
			TTL:    Duration(7 * 24 * time.Hour),
			Issuer: "go-passkey",
		},
		Passkey: PasskeyConfig{
			Config: passkey.Config{
				RPID:          "localhost",
				RPDisplayName: "Ledgerly",
				RPOrigins:     []string{"http://localhost:8080"},
			},
			Timeout:      Duration(60 * time.Second),
			ChallengeTTL: Duration(5 * time.Minute),
		},
		Storage: StorageConfig{
			Backend: "memory",
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 60,
		},
	}
}

// Load reads the configuration file at path, applies environment overrides,
// and validates the result. An empty path loads defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies PASSKEY_* environment variable overrides. Environment wins
// over the file, which keeps secrets out of configuration on disk.
func (c *Config) applyEnv() {
	if v := os.Getenv("PASSKEY_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("PASSKEY_LISTEN_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("PASSKEY_SESSION_SECRET"); v != "" {
		c.Session.Secret = v
	}
	if v := os.Getenv("PASSKEY_RP_ID"); v != "" {
		c.Passkey.RPID = v
	}
	if v := os.Getenv("PASSKEY_RP_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		c.Passkey.RPOrigins = origins
	}
	if v := os.Getenv("PASSKEY_STORAGE_DIR"); v != "" {
		c.Storage.Backend = "file"
		c.Storage.Dir = v
	}
}

// Validate checks the configuration for errors a running server cannot
// recover from. A production deployment without a session secret refuses to
// start rather than sign sessions with a guessable key.
func (c *Config) Validate() error {
	switch c.Environment {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	if c.Environment == EnvProduction && c.Session.Secret == "" {
		return fmt.Errorf("session secret is required in production (set PASSKEY_SESSION_SECRET)")
	}

	switch c.Storage.Backend {
	case "memory":
	case "file":
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage dir is required for the file backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s", c.Storage.Backend)
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}

	// Passkey fields are validated again by the service; checking here
	// surfaces file mistakes before any listener is opened.
	pk := c.PasskeyConfig()
	pk.SetDefaults()
	if err := pk.Validate(); err != nil {
		return fmt.Errorf("passkey config: %w", err)
	}

	return nil
}

// PasskeyConfig materializes the passkey.Config with durations applied.
func (c *Config) PasskeyConfig() *passkey.Config {
	pk := c.Passkey.Config
	pk.Timeout = c.Passkey.Timeout.Std()
	pk.ChallengeTTL = c.Passkey.ChallengeTTL.Std()
	return &pk
}

// IsProduction reports whether the configuration targets production.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}
