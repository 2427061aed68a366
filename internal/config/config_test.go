// Copyright (c) 2026 Ledgerly, Inc.
//
// This file is part of go-passkey.
//
// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 7*24*time.Hour, cfg.Session.TTL.Std())
	assert.Equal(t, "localhost", cfg.Passkey.RPID)
	assert.Equal(t, 5*time.Minute, cfg.Passkey.ChallengeTTL.Std())
}

func TestLoad_File(t *testing.T) {
	path := writeConfigFile(t, `
environment: development
server:
  addr: ":9000"
  read_timeout: 30s
passkey:
  id: ledgerly.app
  display_name: Ledgerly
  origins:
    - https://ledgerly.app
  challenge_ttl: 2m
session:
  ttl: 48h
storage:
  backend: file
  dir: /tmp/passkey-store
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout.Std())
	assert.Equal(t, "ledgerly.app", cfg.Passkey.RPID)
	assert.Equal(t, []string{"https://ledgerly.app"}, cfg.Passkey.RPOrigins)
	assert.Equal(t, 2*time.Minute, cfg.Passkey.ChallengeTTL.Std())
	assert.Equal(t, 48*time.Hour, cfg.Session.TTL.Std())
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "/tmp/passkey-store", cfg.Storage.Dir)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/no/such/config.yaml")
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PASSKEY_LISTEN_ADDR", ":7070")
	t.Setenv("PASSKEY_RP_ID", "override.app")
	t.Setenv("PASSKEY_RP_ORIGINS", "https://override.app, https://www.override.app")
	t.Setenv("PASSKEY_SESSION_SECRET", "from-env")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "override.app", cfg.Passkey.RPID)
	assert.Equal(t, []string{"https://override.app", "https://www.override.app"}, cfg.Passkey.RPOrigins)
	assert.Equal(t, "from-env", cfg.Session.Secret)
}

func TestValidate_ProductionRequiresSecret(t *testing.T) {
	cfg := Default()
	cfg.Environment = EnvProduction
	assert.Error(t, cfg.Validate())

	cfg.Session.Secret = "a-real-secret"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_StorageBackend(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = "redis"
	assert.Error(t, cfg.Validate())

	cfg.Storage.Backend = "file"
	cfg.Storage.Dir = ""
	assert.Error(t, cfg.Validate())

	cfg.Storage.Dir = "/tmp/store"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_PasskeySection(t *testing.T) {
	cfg := Default()
	cfg.Passkey.RPID = ""
	assert.Error(t, cfg.Validate())
}

func TestDuration_Unmarshal(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want time.Duration
	}{
		{"go string", `d: 90s`, 90 * time.Second},
		{"compound string", `d: 1h30m`, 90 * time.Minute},
		{"bare int is seconds", `d: 300`, 5 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out struct {
				D Duration `yaml:"d"`
			}
			require.NoError(t, yaml.Unmarshal([]byte(tt.yaml), &out))
			assert.Equal(t, tt.want, out.D.Std())
		})
	}

	var out struct {
		D Duration `yaml:"d"`
	}
	assert.Error(t, yaml.Unmarshal([]byte(`d: not-a-duration`), &out))
}

func TestPasskeyConfig_Materialize(t *testing.T) {
	cfg := Default()
	cfg.Passkey.Timeout = Duration(30 * time.Second)
	cfg.Passkey.ChallengeTTL = Duration(time.Minute)

	pk := cfg.PasskeyConfig()
	assert.Equal(t, 30*time.Second, pk.Timeout)
	assert.Equal(t, time.Minute, pk.ChallengeTTL)
	assert.Equal(t, cfg.Passkey.RPID, pk.RPID)
}
