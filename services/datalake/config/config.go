// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config provides configuration loading for the data lake service.
//
// Precedence, lowest to highest: built-in defaults, the optional YAML file,
// environment variables. The service must start with no config file and no
// environment at all.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// MaxYAMLFileSize is the maximum allowed config file size (1MB).
const MaxYAMLFileSize = 1024 * 1024

// Config holds every tunable of the service.
type Config struct {
	// Port is the HTTP listen port.
	Port int `validate:"gte=1,lte=65535"`

	// CacheFile is the path of the raw-record JSON cache.
	CacheFile string `validate:"required"`

	// CacheMaxAge is how long a cache file stays fresh.
	CacheMaxAge time.Duration `validate:"gt=0"`

	// FetchWorkers bounds concurrent upstream requests.
	FetchWorkers int `validate:"gte=1,lte=64"`

	// FetchTimeout is the per-request upstream timeout.
	FetchTimeout time.Duration `validate:"gt=0"`

	// TargetYear is the default forecast horizon.
	TargetYear int `validate:"gte=2024,lte=2100"`

	// AllowedOrigin is the origin the CORS layer accepts.
	AllowedOrigin string `validate:"required"`
}

// fileConfig is the YAML shape. Durations are plain numbers (hours and
// seconds) to match the WB_CACHE_HOURS environment convention; absent
// fields keep their defaults.
type fileConfig struct {
	Port                *int     `yaml:"port"`
	CacheFile           *string  `yaml:"cache_file"`
	CacheMaxAgeHours    *float64 `yaml:"cache_max_age_hours"`
	FetchWorkers        *int     `yaml:"fetch_workers"`
	FetchTimeoutSeconds *int     `yaml:"fetch_timeout_seconds"`
	TargetYear          *int     `yaml:"target_year"`
	AllowedOrigin       *string  `yaml:"allowed_origin"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Port:          8080,
		CacheFile:     "data/world_bank_cache.json",
		CacheMaxAge:   24 * time.Hour,
		FetchWorkers:  12,
		FetchTimeout:  30 * time.Second,
		TargetYear:    2030,
		AllowedOrigin: "http://localhost:3000",
	}
}

// Load builds the effective configuration. path names an optional YAML
// file; an empty path or a missing file falls through to defaults plus
// environment overrides.
//
// Environment variables:
//
//	PORT                    - HTTP listen port
//	CLIMATELAKE_CACHE_FILE  - cache file path
//	WB_CACHE_HOURS          - cache freshness window, in hours
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat config file %s: %w", path, err)
	}
	if info.Size() > MaxYAMLFileSize {
		return fmt.Errorf("config file %s exceeds %d bytes", path, MaxYAMLFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.Port != nil {
		cfg.Port = *fc.Port
	}
	if fc.CacheFile != nil {
		cfg.CacheFile = *fc.CacheFile
	}
	if fc.CacheMaxAgeHours != nil {
		cfg.CacheMaxAge = time.Duration(*fc.CacheMaxAgeHours * float64(time.Hour))
	}
	if fc.FetchWorkers != nil {
		cfg.FetchWorkers = *fc.FetchWorkers
	}
	if fc.FetchTimeoutSeconds != nil {
		cfg.FetchTimeout = time.Duration(*fc.FetchTimeoutSeconds) * time.Second
	}
	if fc.TargetYear != nil {
		cfg.TargetYear = *fc.TargetYear
	}
	if fc.AllowedOrigin != nil {
		cfg.AllowedOrigin = *fc.AllowedOrigin
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("CLIMATELAKE_CACHE_FILE"); v != "" {
		cfg.CacheFile = v
	}
	if v := os.Getenv("WB_CACHE_HOURS"); v != "" {
		hours, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid WB_CACHE_HOURS %q: %w", v, err)
		}
		cfg.CacheMaxAge = time.Duration(hours * float64(time.Hour))
	}
	return nil
}
