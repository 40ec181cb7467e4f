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
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/repguard/pkg/repguard"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	scanConfigPath string // Optional YAML config file
	scanJSONOutput bool   // Output as JSON
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// scanCmd replays a recorded token stream through a guard offline.
//
// The input file holds whitespace-separated token IDs (blank lines and
// lines starting with # are skipped). This is the threshold-tuning loop:
// capture a stream that should (or should not) have been aborted,
// replay it under candidate REPGUARD_* settings, and see where the
// guard fires.
var scanCmd = &cobra.Command{
	Use:   "scan [token-file]",
	Short: "Replay a recorded token stream through the guard offline",
	Long: `Replays a token ID file through a fresh guard and reports whether
(and where) the repetition detector would have fired.

The file holds whitespace-separated integer token IDs. Blank lines and
lines beginning with # are ignored.

Examples:
  repguard scan stream.tokens
  repguard scan stream.tokens --json
  REPGUARD_MAX_TOKEN_REP=16 repguard scan stream.tokens`,
	Args: cobra.ExactArgs(1),
	Run:  runScanCommand,
}

func init() {
	scanCmd.Flags().StringVarP(&scanConfigPath, "config", "c", "",
		"Path to a YAML config file with detector thresholds")
	scanCmd.Flags().BoolVar(&scanJSONOutput, "json", false,
		"Output as JSON for scripting")
	rootCmd.AddCommand(scanCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// scanReport is the scan verdict in both output modes.
type scanReport struct {
	File         string `json:"file"`
	TokensRead   int    `json:"tokens_read"`
	Triggered    bool   `json:"triggered"`
	TriggerLine  int    `json:"trigger_line,omitempty"`
	TriggerToken int64  `json:"trigger_token,omitempty"`
}

func runScanCommand(cmd *cobra.Command, args []string) {
	cfg, err := resolveConfig(scanConfigPath)
	if err != nil {
		log.Fatalf("Invalid guard configuration: %v", err)
	}

	guard, err := repguard.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create guard: %v", err)
	}

	file, err := os.Open(args[0])
	if err != nil {
		log.Fatalf("Failed to open token file: %v", err)
	}
	defer file.Close()

	report := scanReport{File: args[0]}

	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() && !report.Triggered {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		for _, field := range strings.Fields(text) {
			token, err := strconv.ParseInt(field, 10, 64)
			if err != nil {
				log.Fatalf("Line %d: invalid token ID %q: %v", line, field, err)
			}

			report.TokensRead++
			if guard.Observe(token) {
				report.Triggered = true
				report.TriggerLine = line
				report.TriggerToken = token
				break
			}
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("Failed to read token file: %v", err)
	}

	printScanReport(report)
	if report.Triggered {
		os.Exit(1)
	}
}

func printScanReport(report scanReport) {
	if scanJSONOutput {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal report: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	fmt.Printf("File:        %s\n", report.File)
	fmt.Printf("Tokens read: %d\n", report.TokensRead)
	if report.Triggered {
		fmt.Printf("Triggered:   yes (line %d, token %d)\n",
			report.TriggerLine, report.TriggerToken)
	} else {
		fmt.Println("Triggered:   no")
	}
}
