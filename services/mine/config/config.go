// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the miner's runtime settings from YAML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultTokenBudget caps the one-line projection of one normalized
	// snippet, markers included.
	DefaultTokenBudget = 50

	// DefaultMetricsAddr is where the metrics listener binds.
	DefaultMetricsAddr = ":2112"

	// MaxConfigFileSize bounds how much YAML Load will read.
	MaxConfigFileSize = 1 << 20
)

// Config holds every tunable of a mining run.
//
// Description:
//
//	Loaded once at startup and treated as immutable afterwards; workers
//	share the same value. Anything not set in the file falls back to
//	the defaults below, and a missing file is not an error, so a bare
//	binary runs with defaults end to end.
//
// Thread Safety: immutable after Load.
type Config struct {
	// TokenBudget is the maximum projected token count per snippet.
	TokenBudget int `yaml:"token_budget" validate:"gte=1"`

	// Workers is the number of concurrent entry processors.
	Workers int `yaml:"workers" validate:"gte=1"`

	// IdiomsPath points at the idiom table JSON. Empty runs with an
	// empty idiom database.
	IdiomsPath string `yaml:"idioms_path"`

	// CheckpointDir is the badger directory used to resume interrupted
	// runs. Empty disables checkpointing.
	CheckpointDir string `yaml:"checkpoint_dir"`

	// MetricsAddr is the bind address of the metrics listener.
	MetricsAddr string `yaml:"metrics_addr"`

	// TraceStdout turns on the stdout span exporter.
	TraceStdout bool `yaml:"trace_stdout"`
}

// Default returns the configuration a bare run uses.
func Default() *Config {
	return &Config{
		TokenBudget: DefaultTokenBudget,
		Workers:     runtime.NumCPU(),
		MetricsAddr: DefaultMetricsAddr,
	}
}

// Load reads, defaults, and validates the configuration at path.
//
// Description:
//
//	A missing file yields the defaults, logged at debug; any other read
//	problem is an error. Fields left at their zero value after parsing
//	pick up defaults before validation runs.
//
// Outputs: the effective configuration, or an error naming the bad field.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("config file not found, using defaults", slog.String("path", path))
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config.Load: reading %s: %w", path, err)
	}
	if len(data) > MaxConfigFileSize {
		return nil, fmt.Errorf("config.Load: %s exceeds maximum size (%d > %d)", path, len(data), MaxConfigFileSize)
	}

	parsed := &Config{}
	if err := yaml.Unmarshal(data, parsed); err != nil {
		return nil, fmt.Errorf("config.Load: parsing %s: %w", path, err)
	}

	if parsed.TokenBudget == 0 {
		parsed.TokenBudget = DefaultTokenBudget
	}
	if parsed.Workers == 0 {
		parsed.Workers = runtime.NumCPU()
	}
	if parsed.MetricsAddr == "" {
		parsed.MetricsAddr = DefaultMetricsAddr
	}

	if err := validator.New().Struct(parsed); err != nil {
		return nil, fmt.Errorf("config.Load: validating %s: %w", path, err)
	}

	slog.Info("config loaded",
		slog.String("path", path),
		slog.Int("token_budget", parsed.TokenBudget),
		slog.Int("workers", parsed.Workers),
		slog.String("idioms_path", parsed.IdiomsPath),
		slog.String("checkpoint_dir", parsed.CheckpointDir))
	return parsed, nil
}
