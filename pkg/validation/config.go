// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for configuration
// values resolved from the process environment.
//
// This package contains validators for operator-provided settings that are
// load-bearing for algorithm correctness (e.g. ring buffer capacities that
// must be powers of two). Using these validators keeps misconfiguration a
// startup failure instead of a silent runtime corruption.
package validation

import (
	"fmt"
	"os"
	"strconv"
)

// PowerOfTwo validates that n is a positive power of two.
//
// The check uses the standard n & (n-1) trick: a power of two has exactly
// one bit set, so clearing the lowest set bit yields zero.
//
// Returns an error naming the offending value if the check fails.
//
// Example:
//
//	if err := validation.PowerOfTwo(cfg.BufferSize); err != nil {
//	    return fmt.Errorf("buffer size: %w", err)
//	}
func PowerOfTwo(n int) error {
	if n <= 0 || n&(n-1) != 0 {
		return fmt.Errorf("%d is not a positive power of 2", n)
	}
	return nil
}

// PositiveInt validates that n is greater than zero.
// The name is included in the error for operator-facing messages.
func PositiveInt(name string, n int) error {
	if n <= 0 {
		return fmt.Errorf("%s must be greater than 0, got %d", name, n)
	}
	return nil
}

// EnvInt reads an integer from the environment variable key.
//
// Unset or blank variables return the default. A variable that is set but
// does not parse as an integer is a configuration error, not a silent
// fallback: the operator asked for something and we could not honor it.
//
// Example:
//
//	size, err := validation.EnvInt("REPGUARD_BUFFER_SIZE", 1024)
//	if err != nil {
//	    return err
//	}
func EnvInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	return n, nil
}
