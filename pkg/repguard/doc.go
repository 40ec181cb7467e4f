// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package repguard detects degenerate repetition in LLM token streams.
//
// During generation, models occasionally collapse into a loop: the same
// token emitted over and over, or a short n-gram cycling indefinitely.
// This package provides a per-stream Guard that watches the raw token IDs
// as they are produced and reports, in constant time per token, when the
// stream has crossed the configured repetition thresholds and should be
// stopped.
//
// # Design
//
// Each Guard owns a fixed-capacity ring buffer of the most recent token
// IDs plus a handful of scalar counters. Capacity must be a power of two
// so wraparound is a bitmask rather than a modulo. All memory is allocated
// once at construction; the Observe hot path never allocates, never locks,
// and never blocks.
//
// Two checks run on every token:
//
//  1. Consecutive run: the same token repeated MaxTokenRep times in a row.
//  2. Periodic n-gram: the most recent window of p tokens (for each p in
//     [MinNgramLen, MaxNgramLen], shortest first) repeated contiguously at
//     least max(MaxTokenRep/p, MinGramRep) times.
//
// The guard has no notion of requests, sockets, or finish reasons. It
// consumes token IDs and produces a boolean. Wiring a trigger into an
// actual stream abort is the caller's job; see services/guard for the
// batch processor and HTTP sidecar built on top of this package.
//
// # Usage
//
//	cfg, err := repguard.FromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	guard, err := repguard.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, tok := range newTokenIDs {
//	    if guard.Observe(tok) {
//	        // stop generating on this stream
//	        break
//	    }
//	}
//
// # Thread Safety
//
// A Guard is owned by exactly one stream and contains no synchronization.
// Callers must never invoke Observe concurrently for the same Guard.
// Independent guards may be driven from independent goroutines freely.
package repguard
