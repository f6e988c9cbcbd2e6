// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/luxfi/ricedb"
)

// Config is the ricectl connection configuration. Values come from the YAML
// file, then RICEDB_* environment variables, then command-line flags.
type Config struct {
	Host        string        `yaml:"host"`
	Transport   string        `yaml:"transport"`
	GRPCPort    int           `yaml:"grpc_port"`
	HTTPPort    int           `yaml:"http_port"`
	HTTPPath    string        `yaml:"http_path"`
	Compressor  string        `yaml:"compressor"`
	Timeout     time.Duration `yaml:"timeout"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	UserID      int64         `yaml:"user_id"`
	MemoryWidth uint          `yaml:"memory_width"`
	Verbose     bool          `yaml:"verbose"`
}

func defaultConfig() Config {
	return Config{
		Host:      ricedb.DefaultHost,
		Transport: ricedb.TransportAuto,
		GRPCPort:  ricedb.DefaultGRPCPort,
		HTTPPort:  ricedb.DefaultHTTPPort,
		HTTPPath:  ricedb.DefaultHTTPPath,
		Timeout:   ricedb.DefaultTimeout,
		UserID:    ricedb.DefaultUserID.Int64(),
	}
}

// loadConfig reads path over the defaults. A missing file is not an error.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnv overrides cfg from RICEDB_* variables looked up with getenv.
func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("RICEDB_HOST", &c.Host)
	str("RICEDB_TRANSPORT", &c.Transport)
	str("RICEDB_HTTP_PATH", &c.HTTPPath)
	str("RICEDB_COMPRESSOR", &c.Compressor)
	str("RICEDB_USERNAME", &c.Username)
	str("RICEDB_PASSWORD", &c.Password)
	if err := num("RICEDB_GRPC_PORT", &c.GRPCPort); err != nil {
		return err
	}
	if err := num("RICEDB_HTTP_PORT", &c.HTTPPort); err != nil {
		return err
	}
	if v := getenv("RICEDB_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RICEDB_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := getenv("RICEDB_USER_ID"); v != "" {
		id, err := ricedb.ParseID(v)
		if err != nil {
			return fmt.Errorf("RICEDB_USER_ID: %w", err)
		}
		c.UserID = id.Int64()
	}
	return nil
}

// Validate checks values that Dial would otherwise reject late.
func (c Config) Validate() error {
	if _, err := ricedb.ParseTransport(c.Transport); err != nil {
		return err
	}
	if c.GRPCPort <= 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc_port %d", c.GRPCPort)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port %d", c.HTTPPort)
	}
	if c.Password != "" && c.Username == "" {
		return errors.New("password set without username")
	}
	return nil
}

func (c Config) options() []ricedb.Option {
	level := slog.LevelWarn
	if c.Verbose {
		level = slog.LevelDebug
	}
	opts := []ricedb.Option{
		ricedb.WithHost(c.Host),
		ricedb.WithTransport(c.Transport),
		ricedb.WithGRPCPort(c.GRPCPort),
		ricedb.WithHTTPPort(c.HTTPPort),
		ricedb.WithHTTPPath(c.HTTPPath),
		ricedb.WithTimeout(c.Timeout),
		ricedb.WithLogger(ricedb.NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))),
	}
	if c.Compressor != "" {
		opts = append(opts, ricedb.WithCompressor(c.Compressor))
	}
	if c.MemoryWidth > 0 {
		opts = append(opts, ricedb.WithMemoryWidth(c.MemoryWidth))
	}
	return opts
}
