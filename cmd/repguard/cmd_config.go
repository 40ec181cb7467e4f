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
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	configConfigPath string // Optional YAML config file
	configJSONOutput bool   // Output as JSON instead of YAML
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// configCmd prints the configuration the current environment resolves to.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved detector configuration",
	Long: `Resolves the detector configuration with the same precedence the
serve and scan commands use (environment > config file > defaults)
and prints the result.

Examples:
  repguard config
  repguard config --config guard.yaml
  REPGUARD_BUFFER_SIZE=2048 repguard config --json`,
	Run: runConfigCommand,
}

func init() {
	configCmd.Flags().StringVarP(&configConfigPath, "config", "c", "",
		"Path to a YAML config file with detector thresholds")
	configCmd.Flags().BoolVar(&configJSONOutput, "json", false,
		"Output as JSON instead of YAML")
	rootCmd.AddCommand(configCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runConfigCommand(cmd *cobra.Command, args []string) {
	cfg, err := resolveConfig(configConfigPath)
	if err != nil {
		log.Fatalf("Invalid guard configuration: %v", err)
	}

	if configJSONOutput {
		out, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal config: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	out, err := yaml.Marshal(fileConfig{Guard: cfg})
	if err != nil {
		log.Fatalf("Failed to marshal config: %v", err)
	}
	fmt.Print(string(out))
}
