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
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/repguard/pkg/repguard"
	"github.com/AleutianAI/repguard/pkg/validation"
)

// =============================================================================
// Configuration Resolution
// =============================================================================

// fileConfig is the on-disk layout of a repguard config file.
//
// Only the detector block is defined today; the struct leaves room for
// service-level settings without breaking existing files.
type fileConfig struct {
	Guard repguard.Config `yaml:"guard"`
}

// resolveConfig builds the detector configuration with the precedence
// env > config file > defaults.
//
// path may be empty, in which case only defaults and the environment
// apply. A missing file at an explicitly given path is an error; a
// malformed file always is.
func resolveConfig(path string) (repguard.Config, error) {
	cfg := repguard.DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return repguard.Config{}, fmt.Errorf("reading config file: %w", err)
		}
		fc := fileConfig{Guard: cfg}
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return repguard.Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg = fc.Guard
	}

	// Environment variables override the file, field by field.
	var err error
	if cfg.BufferSize, err = validation.EnvInt(repguard.EnvBufferSize, cfg.BufferSize); err != nil {
		return repguard.Config{}, err
	}
	if cfg.MaxTokenRep, err = validation.EnvInt(repguard.EnvMaxTokenRep, cfg.MaxTokenRep); err != nil {
		return repguard.Config{}, err
	}
	if cfg.MinGramRep, err = validation.EnvInt(repguard.EnvMinGramRep, cfg.MinGramRep); err != nil {
		return repguard.Config{}, err
	}
	if cfg.MinNgramLen, err = validation.EnvInt(repguard.EnvMinNgramLen, cfg.MinNgramLen); err != nil {
		return repguard.Config{}, err
	}
	if cfg.MaxNgramLen, err = validation.EnvInt(repguard.EnvMaxNgramLen, cfg.MaxNgramLen); err != nil {
		return repguard.Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return repguard.Config{}, err
	}
	return cfg, nil
}
