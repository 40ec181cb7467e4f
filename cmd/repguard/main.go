// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command repguard is the operator CLI for the repetition guard.
//
// # Subcommands
//
//	repguard serve    # run the guard HTTP service
//	repguard scan     # replay a token file through a guard offline
//	repguard config   # print the resolved detector configuration
package main

import (
	"log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "repguard",
	Short: "A cli to run and tune the repetition guard for token streams",
	Long: `repguard detects degenerate repetition in LLM token streams.

It can run as an HTTP sidecar service for inference engines, replay
recorded token streams offline to tune thresholds, and print the
detector configuration a given environment resolves to.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
