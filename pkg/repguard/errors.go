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

import "errors"

// =============================================================================
// Sentinel Errors
// =============================================================================

// Configuration errors returned by Config.Validate and FromEnv.
//
// These are the only errors this package produces. There is no runtime
// error path: Observe never fails, it only reports whether repetition
// crossed the configured thresholds.
var (
	// ErrBufferSize indicates BufferSize is not a positive power of two.
	// A non-power-of-two capacity would break the bitmask wraparound
	// arithmetic the ring buffer relies on for O(1) indexing.
	ErrBufferSize = errors.New("repguard: buffer size must be a power of 2 and greater than 0")

	// ErrMaxTokenRep indicates MaxTokenRep is not positive.
	ErrMaxTokenRep = errors.New("repguard: max token repetitions must be greater than 0")

	// ErrMinGramRep indicates MinGramRep is not positive.
	ErrMinGramRep = errors.New("repguard: min n-gram repetitions must be greater than 0")

	// ErrNgramRange indicates the n-gram length range is invalid
	// (MinNgramLen < 1 or MinNgramLen > MaxNgramLen).
	ErrNgramRange = errors.New("repguard: n-gram length range is invalid")
)
