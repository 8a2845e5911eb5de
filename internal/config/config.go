/**
 * Copyright (c) 2019, The Artemis Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package config loads the process configuration. Values come from, in increasing precedence, the
// built-in defaults, a TOML file, a dotenv file and the process environment. The configuration is
// read once at process start and never changes afterwards.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/botobag/graphqlext/arena"
	"github.com/botobag/graphqlext/failure"
	"github.com/botobag/graphqlext/internal/logging"
	"github.com/botobag/graphqlext/kernel"
	"github.com/botobag/graphqlext/lifecycle"
)

// Environment variables that override file values.
const (
	EnvCacheEnabled   = "GRAPHQLEXT_CACHE_ENABLED"
	EnvCacheSlots     = "GRAPHQLEXT_CACHE_SLOTS"
	EnvRecursionLimit = "GRAPHQLEXT_RECURSION_LIMIT"
	EnvArenaChunkSize = "GRAPHQLEXT_ARENA_CHUNK_SIZE"
	EnvArenaLimit     = "GRAPHQLEXT_ARENA_LIMIT"
	EnvArenaMaxDepth  = "GRAPHQLEXT_ARENA_MAX_DEPTH"
	EnvWorkers        = "GRAPHQLEXT_WORKERS"
	EnvAddr           = "GRAPHQLEXT_ADDR"
)

// Config is the process configuration.
type Config struct {
	CacheEnabled   bool   `toml:"cache_enabled"`
	CacheSlots     int    `toml:"cache_slots"`
	RecursionLimit uint32 `toml:"recursion_limit"`
	ArenaChunkSize int    `toml:"arena_chunk_size"`
	ArenaLimit     int    `toml:"arena_limit"`
	ArenaMaxDepth  int    `toml:"arena_max_depth"`
	Workers        int    `toml:"workers"`
	Addr           string `toml:"addr"`
	LogLevel       string `toml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		CacheEnabled:   true,
		CacheSlots:     kernel.DefaultCacheSlots,
		RecursionLimit: kernel.DefaultRecursionLimit,
		ArenaChunkSize: arena.DefaultChunkSize,
		Workers:        runtime.GOMAXPROCS(0),
		Addr:           ":8080",
	}
}

// Load builds the configuration from the TOML file at path (skipped when path is empty), the
// dotenv files (missing files are ignored) and the environment.
func Load(path string, envFiles ...string) (Config, error) {
	const op = failure.Op("config.Load")
	cfg := Default()

	if path != "" {
		meta, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, failure.New(fmt.Sprintf("cannot decode %s", path), op, failure.ErrKindConfig, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, failure.New(fmt.Sprintf("unknown key %q in %s", undecoded[0].String(), path),
				op, failure.ErrKindConfig)
		}
	}

	if err := loadEnvFiles(envFiles); err != nil {
		return Config{}, failure.New("cannot load dotenv file", op, failure.ErrKindConfig, err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, failure.New("bad environment override", op, failure.ErrKindConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvFiles(paths []string) error {
	var existing []string
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			existing = append(existing, path)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	// godotenv.Load never overrides variables that are already set.
	return godotenv.Load(existing...)
}

func applyEnvOverrides(cfg *Config) error {
	if raw, ok := lookupEnv(EnvCacheEnabled); ok {
		v, err := ParseToggle(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCacheEnabled, err)
		}
		cfg.CacheEnabled = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{EnvCacheSlots, &cfg.CacheSlots},
		{EnvArenaChunkSize, &cfg.ArenaChunkSize},
		{EnvArenaLimit, &cfg.ArenaLimit},
		{EnvArenaMaxDepth, &cfg.ArenaMaxDepth},
		{EnvWorkers, &cfg.Workers},
	}
	for _, entry := range ints {
		raw, ok := lookupEnv(entry.name)
		if !ok {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", entry.name, err)
		}
		*entry.dst = v
	}

	if raw, ok := lookupEnv(EnvRecursionLimit); ok {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRecursionLimit, err)
		}
		cfg.RecursionLimit = uint32(v)
	}

	if raw, ok := lookupEnv(EnvAddr); ok {
		cfg.Addr = raw
	}
	return nil
}

func lookupEnv(name string) (string, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// ParseToggle parses a boolean-like value. Besides the forms accepted by strconv.ParseBool, it
// accepts "on"/"off" and "yes"/"no".
func ParseToggle(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "yes":
		return true, nil
	case "off", "no", "none":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(raw))
}

// Validate verifies config values.
func (cfg Config) Validate() error {
	const op = failure.Op("config.Validate")
	switch {
	case cfg.CacheSlots <= 0:
		return failure.New(fmt.Sprintf("cache_slots must be positive, got %d", cfg.CacheSlots),
			op, failure.ErrKindConfig)
	case cfg.RecursionLimit == 0:
		return failure.New("recursion_limit must be positive", op, failure.ErrKindConfig)
	case cfg.ArenaChunkSize < 0 || cfg.ArenaLimit < 0 || cfg.ArenaMaxDepth < 0:
		return failure.New("arena settings cannot be negative", op, failure.ErrKindConfig)
	case cfg.ArenaLimit > 0 && cfg.ArenaLimit < cfg.arenaChunkSize():
		return failure.New(fmt.Sprintf("arena_limit (%d) is smaller than arena_chunk_size (%d)",
			cfg.ArenaLimit, cfg.arenaChunkSize()), op, failure.ErrKindConfig)
	case cfg.Workers <= 0:
		return failure.New(fmt.Sprintf("workers must be positive, got %d", cfg.Workers),
			op, failure.ErrKindConfig)
	}

	if cfg.LogLevel != "" {
		if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
			return failure.New(fmt.Sprintf("unknown log_level %q", cfg.LogLevel), op, failure.ErrKindConfig)
		}
	}
	return nil
}

// arenaChunkSize returns the chunk size arenas actually use.
func (cfg Config) arenaChunkSize() int {
	if cfg.ArenaChunkSize == 0 {
		return arena.DefaultChunkSize
	}
	return cfg.ArenaChunkSize
}

// Kernel converts the configuration into the settings of a kernel.Globals.
func (cfg Config) Kernel() kernel.Config {
	return kernel.Config{
		CacheEnabled:   cfg.CacheEnabled,
		CacheSlots:     cfg.CacheSlots,
		RecursionLimit: cfg.RecursionLimit,
		Arena: arena.Config{
			ChunkSize: cfg.ArenaChunkSize,
			Limit:     cfg.ArenaLimit,
			MaxDepth:  cfg.ArenaMaxDepth,
		},
	}
}

// Lifecycle converts the configuration into the settings of a lifecycle.Manager.
func (cfg Config) Lifecycle() lifecycle.Config {
	return lifecycle.Config{
		Kernel: cfg.Kernel(),
	}
}
