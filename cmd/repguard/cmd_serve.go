// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/repguard/pkg/logging"
	"github.com/AleutianAI/repguard/services/guard"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	servePort       int    // HTTP server port
	serveConfigPath string // Optional YAML config file
	serveGinMode    string // Gin framework mode
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// serveCmd runs the guard HTTP service in the foreground.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the repetition guard HTTP service",
	Long: `Runs the guard as an HTTP sidecar for inference engines.

Engines POST each scheduling step's new token IDs to /v1/guard/observe
and abort any stream the response marks as triggered. Streams must be
released via DELETE /v1/guard/streams/:streamId when they finish.

Examples:
  repguard serve                       # defaults, port 12260
  repguard serve --port 8080
  repguard serve --config guard.yaml   # file thresholds, env overrides`,
	Run: runServeCommand,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 12260,
		"HTTP server port")
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "",
		"Path to a YAML config file with detector thresholds")
	serveCmd.Flags().StringVar(&serveGinMode, "gin-mode", "",
		"Gin framework mode (debug, release, test)")
	rootCmd.AddCommand(serveCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runServeCommand(cmd *cobra.Command, args []string) {
	logging.Default("repguard")

	guardCfg, err := resolveConfig(serveConfigPath)
	if err != nil {
		log.Fatalf("Invalid guard configuration: %v", err)
	}

	cfg := guard.Config{
		Port:         servePort,
		OTelEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		GinMode:      serveGinMode,
		Guard:        guardCfg,
	}

	svc, err := guard.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create guard service: %v", err)
	}
	if err := svc.Run(); err != nil {
		log.Fatalf("Guard service error: %v", err)
	}
}
