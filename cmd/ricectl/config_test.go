// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ricedb"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, defaultConfig(), cfg)
}

func TestLoadConfigYAML(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "ricectl.yaml")
	require.NoError(os.WriteFile(path, []byte(`
host: db.internal
transport: grpc
grpc_port: 6000
timeout: 5s
username: ops
password: secret
`), 0o600))

	cfg, err := loadConfig(path)
	require.NoError(err)
	require.Equal("db.internal", cfg.Host)
	require.Equal(ricedb.TransportGRPC, cfg.Transport)
	require.Equal(6000, cfg.GRPCPort)
	require.Equal(ricedb.DefaultHTTPPort, cfg.HTTPPort)
	require.Equal(5*time.Second, cfg.Timeout)
	require.Equal("ops", cfg.Username)
	require.NoError(cfg.Validate())
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grpc_port: [1, 2"), 0o600))
	_, err := loadConfig(path)
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	require := require.New(t)

	env := map[string]string{
		"RICEDB_HOST":      "10.0.0.7",
		"RICEDB_TRANSPORT": "json",
		"RICEDB_HTTP_PORT": "8080",
		"RICEDB_TIMEOUT":   "250ms",
		"RICEDB_USER_ID":   "9007199254740993",
	}
	cfg := defaultConfig()
	require.NoError(cfg.applyEnv(func(k string) string { return env[k] }))
	require.Equal("10.0.0.7", cfg.Host)
	require.Equal("json", cfg.Transport)
	require.Equal(8080, cfg.HTTPPort)
	require.Equal(250*time.Millisecond, cfg.Timeout)
	require.Equal(int64(9007199254740993), cfg.UserID)
	require.NoError(cfg.Validate())

	env = map[string]string{"RICEDB_GRPC_PORT": "many"}
	require.ErrorContains(cfg.applyEnv(func(k string) string { return env[k] }), "RICEDB_GRPC_PORT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"binary alias", func(c *Config) { c.Transport = "binary" }, true},
		{"unknown transport", func(c *Config) { c.Transport = "carrier-pigeon" }, false},
		{"zero port", func(c *Config) { c.GRPCPort = 0 }, false},
		{"port too large", func(c *Config) { c.HTTPPort = 70000 }, false},
		{"password without user", func(c *Config) { c.Password = "x" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}
