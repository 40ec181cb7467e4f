// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command guardd starts the repetition guard HTTP server.
//
// This is the main entry point for the containerized guard service.
// It reads configuration from environment variables and starts the server.
//
// # Environment Variables
//
//   - GUARD_PORT: HTTP server port (default: 12260)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: aleutian-otel-collector:4317)
//   - GIN_MODE: Gin framework mode - debug, release, test
//   - REPGUARD_BUFFER_SIZE: Ring buffer capacity, power of two (default: 1024)
//   - REPGUARD_MAX_TOKEN_REP: Consecutive-repeat threshold (default: 32)
//   - REPGUARD_MIN_GRAM_REP: Minimum cycle repetitions (default: 5)
//   - REPGUARD_MIN_NGRAM_LEN: Shortest scanned period (default: 3)
//   - REPGUARD_MAX_NGRAM_LEN: Longest scanned period (default: 12)
//
// # Usage
//
//	# Build
//	go build -o guardd ./cmd/guardd
//
//	# Run
//	./guardd
//
//	# Or via container
//	podman-compose up guardd
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/AleutianAI/repguard/pkg/logging"
	"github.com/AleutianAI/repguard/pkg/repguard"
	"github.com/AleutianAI/repguard/services/guard"
)

func main() {
	// Setup structured logging (JSON when containerized, LOG_LEVEL aware)
	logging.Default("guardd")

	// Detector tuning comes from the REPGUARD_* variables
	guardCfg, err := repguard.FromEnv()
	if err != nil {
		log.Fatalf("Invalid guard configuration: %v", err)
	}

	cfg := guard.Config{
		Port:         getEnvInt("GUARD_PORT", 12260),
		OTelEndpoint: getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "aleutian-otel-collector:4317"),
		GinMode:      os.Getenv("GIN_MODE"),
		Guard:        guardCfg,
	}

	slog.Info("Starting guard service",
		"port", cfg.Port,
		"buffer_size", cfg.Guard.BufferSize,
		"max_token_rep", cfg.Guard.MaxTokenRep,
	)

	svc, err := guard.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create guard service: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Guard service error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as an int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
		slog.Warn("Invalid integer in environment, using default",
			"key", key, "default", defaultValue)
	}
	return defaultValue
}
