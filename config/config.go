// Copyright 2023 Cloudflare, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the operator configuration for the delegation tools.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cloudflare/roughtime-keys/rotation"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvSeedFile       = "ROUGHTIME_SEED_FILE"
	EnvRotationPeriod = "ROUGHTIME_ROTATION_PERIOD"
	EnvLogLevel       = "ROUGHTIME_LOG_LEVEL"
)

// Config is the operator configuration.
type Config struct {
	// SeedFile holds the hex-encoded 32-byte long-term key seed.
	SeedFile string `yaml:"seed_file"`

	// RotationPeriod is how long an online key stays in service.
	RotationPeriod time.Duration `yaml:"rotation_period"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		SeedFile:       "roughtime.seed",
		RotationPeriod: rotation.DefaultPeriod,
		LogLevel:       "info",
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv(EnvSeedFile)); v != "" {
		cfg.SeedFile = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRotationPeriod)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvRotationPeriod, err)
		}
		cfg.RotationPeriod = d
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

// Validate checks the configuration for obvious mistakes.
func (c Config) Validate() error {
	if c.SeedFile == "" {
		return errors.New("config: seed_file is required")
	}
	if c.RotationPeriod <= 0 {
		return fmt.Errorf("config: rotation_period must be positive, got %v", c.RotationPeriod)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: log_level: %w", err)
	}
	return level, nil
}

// ReadSeed reads a hex-encoded long-term key seed.
func ReadSeed(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	seed, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("config: decoding seed in %s: %w", path, err)
	}
	return seed, nil
}

// WriteSeed writes seed hex-encoded to path, readable by the owner only.
func WriteSeed(path string, seed []byte) error {
	if err := os.WriteFile(path, []byte(hex.EncodeToString(seed)+"\n"), 0o600); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
