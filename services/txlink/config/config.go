// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads txlink configuration from YAML and TXLINK_*
// environment variables.
//
// Precedence, lowest first: Default, the config file, environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/txlink/services/txlink/candidate"
	"github.com/AleutianAI/txlink/services/txlink/telemetry"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the complete txlink configuration.
type Config struct {
	Server    ServerConfig     `yaml:"server" json:"server"`
	Compute   ComputeConfig    `yaml:"compute" json:"compute"`
	Cache     CacheConfig      `yaml:"cache" json:"cache"`
	Telemetry telemetry.Config `yaml:"telemetry" json:"telemetry"`
	Logging   LoggingConfig    `yaml:"logging" json:"logging"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8085".
	Addr string `yaml:"addr" json:"addr" validate:"required"`

	// RequestTimeout bounds one candidate computation.
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout" validate:"gt=0"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" validate:"gt=0"`

	// RateLimit is the sustained computations per second. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit" validate:"gte=0"`

	// RateBurst is the limiter bucket size.
	RateBurst int `yaml:"rate_burst" json:"rate_burst" validate:"gte=1"`

	// MaxValues caps the number of values per request. Bell(n) grows
	// super-exponentially, so this is the main latency guard.
	MaxValues int `yaml:"max_values" json:"max_values" validate:"gte=1,lte=24"`
}

// ComputeConfig configures candidate computation.
type ComputeConfig struct {
	Strategy      string `yaml:"strategy" json:"strategy" validate:"oneof=partitions subsets"`
	Workers       int    `yaml:"workers" json:"workers" validate:"gte=1,lte=256"`
	Boundary      string `yaml:"boundary" json:"boundary" validate:"oneof=exclusive inclusive"`
	CheckInterval int    `yaml:"check_interval" json:"check_interval" validate:"gte=0"`
}

// CacheConfig configures the BadgerDB result cache.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled" json:"enabled"`
	InMemory bool          `yaml:"in_memory" json:"in_memory"`
	Path     string        `yaml:"path" json:"path" validate:"required_if=Enabled true InMemory false"`
	TTL      time.Duration `yaml:"ttl" json:"ttl" validate:"gte=0"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json" json:"json"`
	Dir   string `yaml:"dir" json:"dir"`
}

// Default returns a configuration that runs without a config file.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8085",
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       10,
			RateBurst:       20,
			MaxValues:       16,
		},
		Compute: ComputeConfig{
			Strategy: string(candidate.StrategyPartitions),
			Workers:  1,
			Boundary: candidate.BoundaryExclusive.String(),
		},
		Cache: CacheConfig{
			Enabled:  true,
			InMemory: true,
			TTL:      24 * time.Hour,
		},
		Telemetry: telemetry.DefaultConfig(),
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, the optional file at path
// and the environment, then validates it.
//
// Inputs:
//
//	path - YAML or JSON file. Empty or missing means defaults only.
//
// Outputs:
//
//	Config - The loaded configuration.
//	error - Parse failure, or ErrInvalidConfig wrapping validation errors.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	loadFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadFromEnv(cfg *Config) {
	// Server
	if v := os.Getenv("TXLINK_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("TXLINK_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.RequestTimeout = d
		}
	}
	if v := os.Getenv("TXLINK_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Server.RateLimit = f
		}
	}
	if v := os.Getenv("TXLINK_RATE_BURST"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateBurst = i
		}
	}
	if v := os.Getenv("TXLINK_MAX_VALUES"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Server.MaxValues = i
		}
	}

	// Compute
	if v := os.Getenv("TXLINK_STRATEGY"); v != "" {
		cfg.Compute.Strategy = v
	}
	if v := os.Getenv("TXLINK_WORKERS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Compute.Workers = i
		}
	}
	if v := os.Getenv("TXLINK_BOUNDARY"); v != "" {
		cfg.Compute.Boundary = v
	}

	// Cache
	if v := os.Getenv("TXLINK_CACHE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Cache.Enabled = b
		}
	}
	if v := os.Getenv("TXLINK_CACHE_PATH"); v != "" {
		cfg.Cache.Path = v
		cfg.Cache.InMemory = false
	}
	if v := os.Getenv("TXLINK_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = d
		}
	}

	// Telemetry
	if v := os.Getenv("OTEL_TRACES_EXPORTER"); v != "" {
		cfg.Telemetry.TraceExporter = v
	}
	if v := os.Getenv("OTEL_METRICS_EXPORTER"); v != "" {
		cfg.Telemetry.MetricExporter = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}

	// Logging
	if v := os.Getenv("TXLINK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TXLINK_LOG_JSON"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Logging.JSON = b
		}
	}
	if v := os.Getenv("TXLINK_LOG_DIR"); v != "" {
		cfg.Logging.Dir = v
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ComputerConfig converts the compute section for candidate.NewComputer.
func (c *Config) ComputerConfig() (*candidate.ComputerConfig, error) {
	strategy, err := candidate.ParseStrategy(c.Compute.Strategy)
	if err != nil {
		return nil, err
	}
	boundary, err := candidate.ParseBoundary(c.Compute.Boundary)
	if err != nil {
		return nil, err
	}
	return &candidate.ComputerConfig{
		Strategy:      strategy,
		Workers:       c.Compute.Workers,
		Boundary:      boundary,
		CheckInterval: c.Compute.CheckInterval,
	}, nil
}
