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

// Package logging builds the zerolog loggers used across the module. Components never reach for a
// global logger; they receive a zerolog.Logger at construction time.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Environment variables consulted by Configure.
const (
	EnvLogLevel  = "GRAPHQLEXT_LOG_LEVEL"
	EnvLogFormat = "GRAPHQLEXT_LOG_FORMAT"
)

// Config specifies how loggers are built.
type Config struct {
	// Minimum level written. Default is zerolog.InfoLevel.
	Level zerolog.Level

	// JSON selects line-delimited JSON output instead of the human readable console writer.
	JSON bool

	// Output receives log lines. Default is os.Stderr.
	Output io.Writer
}

// DefaultConfig returns the configuration used by the CLI, with environment overrides applied.
func DefaultConfig() Config {
	config := Config{
		Level:  zerolog.InfoLevel,
		Output: os.Stderr,
	}
	if level, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		config.Level = level
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(EnvLogFormat)), "json") {
		config.JSON = true
	}
	return config
}

// New creates the root logger for an application.
func New(config Config, app string) zerolog.Logger {
	output := config.Output
	if output == nil {
		output = os.Stderr
	}
	if !config.JSON {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}
	return zerolog.New(output).
		Level(config.Level).
		With().
		Timestamp().
		Str("app", app).
		Logger()
}

// Component derives a logger tagged with the given component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

// ParseLevel converts a level name to a zerolog.Level. The second result is false for empty or
// unknown names.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}
