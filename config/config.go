// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates service configuration.
//
// # Description
//
// Configuration is a single YAML document with sections for the HTTP
// server, logging, telemetry, and the search/insert engines. Every field
// has a working default, so an absent or partial file is fine. A Watcher
// can re-read the file on change and apply the log level without a
// restart.
//
// # Thread Safety
//
// Config values are immutable after Load. The Watcher serializes reloads
// in a single goroutine.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/contextgraph/telemetry"
)

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	// Addr is the listen address, host:port.
	Addr string `yaml:"addr"`

	// ReadTimeout bounds the time to read a full request.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds the time to write a full response.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown on exit.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig configures logging output.
type LogConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`

	// Dir enables file logging when set.
	Dir string `yaml:"dir"`

	// JSON switches stderr output to JSON.
	JSON bool `yaml:"json"`
}

// SearchConfig configures the ancestor search engine.
type SearchConfig struct {
	// StepBudget caps frontier expansions per search. Zero means the
	// engine default.
	StepBudget int `yaml:"step_budget"`
}

// InsertConfig configures the inserter.
type InsertConfig struct {
	// BatchConcurrency caps concurrent sequence insertions in a batch.
	// Zero means the inserter default.
	BatchConcurrency int `yaml:"batch_concurrency"`
}

// Config is the root configuration document.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Log       LogConfig        `yaml:"log"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Search    SearchConfig     `yaml:"search"`
	Insert    InsertConfig     `yaml:"insert"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		Telemetry: telemetry.DefaultConfig(),
	}
}

// Load reads path, overlays it on Default(), and validates the result.
// An empty path returns Default() unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field values that Load cannot default away.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr must not be empty", ErrInvalidConfig)
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Log.Level)
	}
	if c.Search.StepBudget < 0 {
		return fmt.Errorf("%w: search.step_budget must not be negative", ErrInvalidConfig)
	}
	if c.Insert.BatchConcurrency < 0 {
		return fmt.Errorf("%w: insert.batch_concurrency must not be negative", ErrInvalidConfig)
	}
	return nil
}
