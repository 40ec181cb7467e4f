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

// Token is an opaque token identifier produced by a generation engine.
// The guard only ever compares tokens for equality; it never decodes or
// interprets them, and any int64 value is acceptable.
type Token = int64

// =============================================================================
// Guard
// =============================================================================

// Guard detects repetition loops in a single token stream.
//
// # Description
//
// Guard keeps the most recent BufferSize token IDs in a ring buffer and a
// running count of the current consecutive-identical-token run. Each
// Observe call updates that state and runs two checks: a consecutive-run
// check and a periodic n-gram check. The first check to cross its
// threshold makes Observe return true.
//
// A triggered guard stays armed. Callers are expected to drop the stream
// (and the guard) on the first trigger; if they keep calling Observe the
// result is advisory and simply re-evaluates the same thresholds.
//
// # Thread Safety
//
// NOT safe for concurrent use. One guard per stream, one caller per guard.
// The expected deployment updates each stream's guard exactly once per
// produced token, in generation order.
//
// # Example
//
//	guard, err := repguard.New(repguard.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	for _, tok := range newTokenIDs {
//	    if guard.Observe(tok) {
//	        abortStream()
//	        break
//	    }
//	}
//
// # Limitations
//
//   - Only the most recent BufferSize tokens influence the result.
//   - Repetition with a period longer than MaxNgramLen is not detected.
//
// # Assumptions
//
//   - The Config passed to New was validated (New re-validates).
//   - Tokens arrive in strict temporal order for the stream.
type Guard struct {
	// history holds the last BufferSize tokens. Slots beyond seen hold
	// the zero sentinel and are never compared against: the n-gram check
	// is gated on seen, and the run check requires seen > 1.
	history []Token

	// mask is BufferSize-1; index arithmetic is (i & mask).
	mask int

	// index is the next slot to write.
	index int

	// seen counts tokens observed so far, saturating at BufferSize.
	seen int

	// run is the length of the consecutive-identical run ending at the
	// most recently written token. Always >= 1.
	run int

	// Thresholds copied from Config at construction.
	maxTokenRep int
	minGramRep  int
	minNgramLen int
	maxNgramLen int
}

// New creates a Guard for one stream.
//
// # Description
//
// Validates cfg, allocates the ring buffer (zero-filled), and initializes
// the scalar state. This is the only allocation the guard ever performs;
// Observe runs allocation-free.
//
// # Inputs
//
//   - cfg: Process-wide thresholds, typically from FromEnv.
//
// # Outputs
//
//   - *Guard: Ready to observe tokens.
//   - error: Non-nil if cfg fails validation.
func New(cfg Config) (*Guard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Guard{
		history:     make([]Token, cfg.BufferSize),
		mask:        cfg.BufferSize - 1,
		run:         1,
		maxTokenRep: cfg.MaxTokenRep,
		minGramRep:  cfg.MinGramRep,
		minNgramLen: cfg.MinNgramLen,
		maxNgramLen: cfg.MaxNgramLen,
	}, nil
}

// Observe feeds one newly produced token into the guard.
//
// # Description
//
// Runs the per-token detection pipeline:
//
//  1. Write the token into the ring buffer and advance the write index.
//  2. Consecutive-run check: if the previous token equals this one, grow
//     the run; trigger when the run reaches MaxTokenRep. Otherwise reset
//     the run to 1.
//  3. If fewer than MaxTokenRep tokens have ever been observed, stop: the
//     n-gram check has insufficient history.
//  4. Periodic n-gram check: for each period p from MinNgramLen up to
//     MaxNgramLen, require max(MaxTokenRep/p, MinGramRep) contiguous
//     repeats of the most recent p-token window; trigger on the first
//     period that fully matches. Shorter periods are checked first, so a
//     short cycle wins over a longer one that would also match.
//
// # Inputs
//
//   - token: The token ID just emitted for this stream.
//
// # Outputs
//
//   - bool: true if generation should stop on this stream now.
//
// # Limitations
//
//   - Must be called once per token, in generation order, from a single
//     goroutine.
func (g *Guard) Observe(token Token) bool {
	hist := g.history
	mask := g.mask

	idx := g.index
	hist[idx] = token
	idx = (idx + 1) & mask
	g.index = idx

	if g.seen < len(hist) {
		g.seen++
	}

	// Single-token run: compare against the token written immediately
	// before this one (two behind the post-increment index).
	if g.seen > 1 && hist[(idx-2)&mask] == token {
		g.run++
		if g.run >= g.maxTokenRep {
			return true
		}
	} else {
		g.run = 1
	}

	// The n-gram scan needs a config-driven amount of real history. The
	// gate is MaxTokenRep regardless of the period under test; see the
	// Open Questions section of DESIGN.md before changing it, since
	// downstream trigger timing depends on this exact bound.
	if g.seen < g.maxTokenRep {
		return false
	}

	for p := g.minNgramLen; p <= g.maxNgramLen; p++ {
		reps := g.maxTokenRep / p
		if reps < g.minGramRep {
			reps = g.minGramRep
		}
		ok := true
		for k := 1; k <= p; k++ {
			x := hist[(idx-k)&mask]
			for j := 1; j < reps; j++ {
				if x != hist[(idx-k-j*p)&mask] {
					ok = false
					break
				}
			}
			if !ok {
				break
			}
		}
		if ok {
			return true
		}
	}

	return false
}

// ObserveOptional feeds a possibly-absent token into the guard.
//
// A nil token is a defined no-op that returns false and mutates nothing.
// Callers use it to pass through event streams where some entries carry
// no generated token (heartbeats, pooling outputs, tool-call frames).
func (g *Guard) ObserveOptional(token *Token) bool {
	if token == nil {
		return false
	}
	return g.Observe(*token)
}

// Seen returns the number of tokens observed so far, saturated at the
// ring buffer capacity.
func (g *Guard) Seen() int {
	return g.seen
}

// RunLength returns the length of the current consecutive-identical run.
func (g *Guard) RunLength() int {
	return g.run
}
