// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging provides structured logging for repguard components.
//
// The package is a thin layer over Go's standard slog with the conventions
// the rest of the codebase relies on:
//
//   - stderr output (Unix CLI convention; stdout stays clean for data)
//   - a "service" attribute stamped on every entry for aggregation
//   - automatic format selection: human-readable text on a terminal,
//     JSON when output is redirected or running as a daemon
//
// # Basic Usage
//
//	logger := logging.Default("guardd")
//	logger.Info("stream released", "stream_id", id, "tokens_seen", n)
//	logger.Error("observe batch failed", "error", err)
package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// =============================================================================
// Configuration
// =============================================================================

// Format selects the output encoding.
type Format int

const (
	// FormatAuto picks text on a terminal and JSON otherwise.
	FormatAuto Format = iota

	// FormatText forces human-readable key=value output.
	FormatText

	// FormatJSON forces machine-parseable JSON output.
	FormatJSON
)

// Config holds logger configuration.
//
// All fields are optional; the zero value yields an info-level,
// format-auto-detected logger with no service attribute.
type Config struct {
	// Level sets the minimum log level. Default: slog.LevelInfo.
	Level slog.Leveler

	// Service identifies the component generating logs. When set it is
	// included in every entry as the "service" attribute.
	Service string

	// Format selects the output encoding. Default: FormatAuto.
	Format Format
}

// =============================================================================
// Constructors
// =============================================================================

// New creates a slog.Logger writing to stderr per the given configuration.
//
// Example:
//
//	logger := logging.New(logging.Config{
//	    Level:   slog.LevelDebug,
//	    Service: "guardd",
//	    Format:  logging.FormatJSON,
//	})
func New(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var handler slog.Handler
	if useJSON(cfg.Format) {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	if cfg.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{
			slog.String("service", cfg.Service),
		})
	}
	return slog.New(handler)
}

// Default returns a logger for the named service at the level from
// LOG_LEVEL and installs it as the process default via slog.SetDefault.
func Default(service string) *slog.Logger {
	logger := New(Config{Service: service, Level: levelFromEnv()})
	slog.SetDefault(logger)
	return logger
}

// =============================================================================
// Helpers
// =============================================================================

// useJSON resolves the effective encoding for a format choice.
func useJSON(f Format) bool {
	switch f {
	case FormatText:
		return false
	case FormatJSON:
		return true
	default:
		return !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd())
	}
}

// levelFromEnv reads LOG_LEVEL (debug, info, warn, error; case-insensitive).
// Unknown or unset values fall back to info.
func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
