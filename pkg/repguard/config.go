// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package repguard

import (
	"fmt"

	"github.com/AleutianAI/repguard/pkg/validation"
)

// =============================================================================
// Environment Variables
// =============================================================================

// Environment variable names recognized by FromEnv. One set of values is
// resolved per process and shared by every guard instance; changing them
// requires recreating all guards.
const (
	// EnvBufferSize sets the ring buffer capacity. Must be a power of 2.
	EnvBufferSize = "REPGUARD_BUFFER_SIZE"

	// EnvMaxTokenRep sets the consecutive-run trigger threshold.
	EnvMaxTokenRep = "REPGUARD_MAX_TOKEN_REP"

	// EnvMinGramRep sets the floor on required n-gram repeat counts.
	EnvMinGramRep = "REPGUARD_MIN_GRAM_REP"

	// EnvMinNgramLen sets the shortest n-gram period checked.
	EnvMinNgramLen = "REPGUARD_MIN_NGRAM_LEN"

	// EnvMaxNgramLen sets the longest n-gram period checked.
	EnvMaxNgramLen = "REPGUARD_MAX_NGRAM_LEN"
)

// =============================================================================
// Configuration
// =============================================================================

// Config holds the repetition detection thresholds.
//
// # Description
//
// Config is resolved once at process start (typically via FromEnv) and
// passed by value into every Guard constructor. It is immutable after
// load: guards copy what they need at construction and never read the
// Config again.
//
// # Fields
//
//   - BufferSize: ring buffer capacity; positive power of two
//   - MaxTokenRep: consecutive identical tokens before triggering; also the
//     numerator in the derived n-gram repeat count
//   - MinGramRep: floor on the required n-gram repeat count
//   - MinNgramLen, MaxNgramLen: inclusive range of periods checked
//
// # Examples
//
//	// Reference defaults
//	cfg := repguard.DefaultConfig()
//
//	// Stricter single-token threshold
//	cfg := repguard.DefaultConfig()
//	cfg.MaxTokenRep = 16
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Limitations
//
//   - Patterns longer than MaxNgramLen tokens are invisible to the guard.
//   - Thresholds are purely positional; there is no semantic notion of
//     "legitimate" repetition (a long bullet list with period <= MaxNgramLen
//     and enough repeats will trigger).
type Config struct {
	// BufferSize is the ring buffer capacity. Must be a positive power
	// of two. Default: 1024.
	BufferSize int `yaml:"buffer_size" json:"buffer_size"`

	// MaxTokenRep triggers when the same token appears this many times
	// consecutively. Default: 32.
	MaxTokenRep int `yaml:"max_token_rep" json:"max_token_rep"`

	// MinGramRep is the minimum repeat count an n-gram must reach,
	// regardless of its length. Default: 5.
	MinGramRep int `yaml:"min_gram_rep" json:"min_gram_rep"`

	// MinNgramLen is the shortest period checked, inclusive. Default: 3.
	MinNgramLen int `yaml:"min_ngram_len" json:"min_ngram_len"`

	// MaxNgramLen is the longest period checked, inclusive. Default: 12.
	MaxNgramLen int `yaml:"max_ngram_len" json:"max_ngram_len"`
}

// DefaultConfig returns the reference thresholds.
//
// These match the defaults the guard has always shipped with: a 1 KiB
// token window, 32 consecutive tokens for the run check, and periods of
// 3 through 12 tokens for the n-gram check.
func DefaultConfig() Config {
	return Config{
		BufferSize:  1024,
		MaxTokenRep: 32,
		MinGramRep:  5,
		MinNgramLen: 3,
		MaxNgramLen: 12,
	}
}

// Validate checks that the configuration can safely drive a guard.
//
// # Description
//
// Validation runs at configuration-load time, before any guard exists.
// It is the only failure mode in this package: a process that passes
// Validate will never see an error from a Guard.
//
// # Outputs
//
//   - error: One of the package sentinel errors (wrapped), or nil.
//
// # Examples
//
//	if err := cfg.Validate(); err != nil {
//	    if errors.Is(err, repguard.ErrBufferSize) {
//	        // operator set a non-power-of-two capacity
//	    }
//	    return err
//	}
func (c Config) Validate() error {
	if err := validation.PowerOfTwo(c.BufferSize); err != nil {
		return fmt.Errorf("%w: %v", ErrBufferSize, err)
	}
	if err := validation.PositiveInt("max token repetitions", c.MaxTokenRep); err != nil {
		return fmt.Errorf("%w: %v", ErrMaxTokenRep, err)
	}
	if err := validation.PositiveInt("min n-gram repetitions", c.MinGramRep); err != nil {
		return fmt.Errorf("%w: %v", ErrMinGramRep, err)
	}
	if c.MinNgramLen < 1 {
		return fmt.Errorf("%w: min length %d is below 1", ErrNgramRange, c.MinNgramLen)
	}
	if c.MinNgramLen > c.MaxNgramLen {
		return fmt.Errorf("%w: min length %d exceeds max length %d",
			ErrNgramRange, c.MinNgramLen, c.MaxNgramLen)
	}
	return nil
}

// FromEnv builds a validated Config from REPGUARD_* environment variables.
//
// # Description
//
// Unset variables fall back to DefaultConfig values. Set-but-malformed
// variables are an error (never silently defaulted), as is any combination
// that fails Validate. Call this once at process start and share the
// result with every guard.
//
// # Outputs
//
//   - Config: The resolved, validated configuration.
//   - error: Non-nil if a variable is malformed or the result is invalid.
//
// # Examples
//
//	cfg, err := repguard.FromEnv()
//	if err != nil {
//	    log.Fatalf("repetition guard config: %v", err)
//	}
func FromEnv() (Config, error) {
	def := DefaultConfig()
	cfg := Config{}
	var err error

	if cfg.BufferSize, err = validation.EnvInt(EnvBufferSize, def.BufferSize); err != nil {
		return Config{}, err
	}
	if cfg.MaxTokenRep, err = validation.EnvInt(EnvMaxTokenRep, def.MaxTokenRep); err != nil {
		return Config{}, err
	}
	if cfg.MinGramRep, err = validation.EnvInt(EnvMinGramRep, def.MinGramRep); err != nil {
		return Config{}, err
	}
	if cfg.MinNgramLen, err = validation.EnvInt(EnvMinNgramLen, def.MinNgramLen); err != nil {
		return Config{}, err
	}
	if cfg.MaxNgramLen, err = validation.EnvInt(EnvMaxNgramLen, def.MaxNgramLen); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
