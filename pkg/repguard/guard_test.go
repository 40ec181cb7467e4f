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
	"testing"
)

// mustGuard creates a guard or fails the test.
func mustGuard(t *testing.T, cfg Config) *Guard {
	t.Helper()
	g, err := New(cfg)
	if err != nil {
		t.Fatalf("New(%+v) failed: %v", cfg, err)
	}
	return g
}

// feed observes a sequence and returns the 0-based index of the first
// trigger, or -1 if the sequence never triggers.
func feed(g *Guard, tokens []Token) int {
	for i, tok := range tokens {
		if g.Observe(tok) {
			return i
		}
	}
	return -1
}

// repeatCycle builds a sequence of the cycle repeated n times.
func repeatCycle(cycle []Token, n int) []Token {
	out := make([]Token, 0, len(cycle)*n)
	for i := 0; i < n; i++ {
		out = append(out, cycle...)
	}
	return out
}

// =============================================================================
// Constructor Tests
// =============================================================================

// TestNew_RejectsInvalidConfig verifies construction fails fast on bad config.
func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferSize = 1000 // not a power of two

	if _, err := New(cfg); err == nil {
		t.Error("New() should reject non-power-of-two buffer size")
	}
}

// TestNew_InitialState verifies the documented initial scalar state.
func TestNew_InitialState(t *testing.T) {
	g := mustGuard(t, DefaultConfig())

	if g.Seen() != 0 {
		t.Errorf("Seen() = %d, want 0", g.Seen())
	}
	if g.RunLength() != 1 {
		t.Errorf("RunLength() = %d, want 1", g.RunLength())
	}
}

// =============================================================================
// Consecutive-Run Tests
// =============================================================================

// TestObserve_RunTriggersAtThreshold verifies the run check fires on exactly
// the MaxTokenRep-th occurrence and never earlier.
func TestObserve_RunTriggersAtThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferSize = 64
	cfg.MaxTokenRep = 8

	g := mustGuard(t, cfg)

	// One prior, different token.
	if g.Observe(99) {
		t.Fatal("first token should not trigger")
	}

	for i := 1; i <= 7; i++ {
		if g.Observe(5) {
			t.Fatalf("occurrence %d triggered early (threshold is 8)", i)
		}
	}
	if !g.Observe(5) {
		t.Error("occurrence 8 should trigger the run check")
	}
}

// TestObserve_RunBelowThresholdNeverTriggers verifies MaxTokenRep-1
// occurrences are not enough.
func TestObserve_RunBelowThresholdNeverTriggers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferSize = 64
	cfg.MaxTokenRep = 8

	g := mustGuard(t, cfg)

	tokens := append([]Token{99}, repeatCycle([]Token{5}, 7)...)
	if pos := feed(g, tokens); pos != -1 {
		t.Errorf("triggered at index %d, want no trigger", pos)
	}
}

// TestObserve_RunResetsOnDifferentToken verifies a broken run starts over
// and the full threshold count is required again.
func TestObserve_RunResetsOnDifferentToken(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferSize = 64
	cfg.MaxTokenRep = 8

	g := mustGuard(t, cfg)

	// Distinct prefix, then a run one short of the threshold.
	feed(g, []Token{10, 11, 12, 13, 14, 15, 16, 17, 18, 19})
	feed(g, repeatCycle([]Token{5}, 7))
	if g.RunLength() != 7 {
		t.Fatalf("RunLength() = %d, want 7", g.RunLength())
	}

	// Break the run.
	if g.Observe(6) {
		t.Fatal("run breaker should not trigger")
	}
	if g.RunLength() != 1 {
		t.Errorf("RunLength() after break = %d, want 1", g.RunLength())
	}

	// The full count is needed again: 7 more must stay silent, the 8th fires.
	for i := 1; i <= 7; i++ {
		if g.Observe(5) {
			t.Fatalf("occurrence %d after reset triggered early", i)
		}
	}
	if !g.Observe(5) {
		t.Error("occurrence 8 after reset should trigger")
	}
}

// =============================================================================
// N-Gram Tests
// =============================================================================

// TestObserve_PeriodicPatternTriggers reproduces the reference scenario:
// a 3-token cycle repeated 11 times must trigger the n-gram check, while
// 6 repeats must not.
func TestObserve_PeriodicPatternTriggers(t *testing.T) {
	cfg := Config{
		BufferSize:  1024,
		MaxTokenRep: 32,
		MinGramRep:  5,
		MinNgramLen: 3,
		MaxNgramLen: 12,
	}
	cycle := []Token{7, 9, 11}

	t.Run("11 repeats trigger", func(t *testing.T) {
		g := mustGuard(t, cfg)
		if pos := feed(g, repeatCycle(cycle, 11)); pos == -1 {
			t.Error("33 tokens of a period-3 cycle should trigger")
		}
	})

	t.Run("6 repeats stay silent", func(t *testing.T) {
		g := mustGuard(t, cfg)
		if pos := feed(g, repeatCycle(cycle, 6)); pos != -1 {
			t.Errorf("18 tokens triggered at index %d, want no trigger", pos)
		}
	})
}

// TestObserve_NgramGateRequiresHistory verifies the n-gram check never fires
// before MaxTokenRep tokens have been observed, regardless of pattern.
func TestObserve_NgramGateRequiresHistory(t *testing.T) {
	cfg := Config{
		BufferSize:  1024,
		MaxTokenRep: 32,
		MinGramRep:  5,
		MinNgramLen: 3,
		MaxNgramLen: 12,
	}
	g := mustGuard(t, cfg)

	// 30 tokens of a perfectly periodic cycle: below the 32-token gate,
	// so only the run check could fire, and it cannot (no consecutive
	// identical tokens in the cycle).
	if pos := feed(g, repeatCycle([]Token{7, 9, 11}, 10)); pos != -1 {
		t.Errorf("triggered at index %d with only 30 tokens observed", pos)
	}
	if g.Seen() != 30 {
		t.Errorf("Seen() = %d, want 30", g.Seen())
	}
}

// TestObserve_ShortestPeriodWins verifies periods are scanned in ascending
// order and a matching short period reports without scanning longer ones.
// The return value carries no period today, so this asserts trigger timing:
// the trigger lands exactly when the shortest period's window is satisfied.
func TestObserve_ShortestPeriodWins(t *testing.T) {
	cfg := Config{
		BufferSize:  64,
		MaxTokenRep: 8,
		MinGramRep:  3,
		MinNgramLen: 1,
		MaxNgramLen: 4,
	}
	g := mustGuard(t, cfg)

	// Distinct prefix reaches the gate without triggering.
	prefix := []Token{20, 21, 22, 23, 24, 25, 26, 27, 28, 29}
	if pos := feed(g, prefix); pos != -1 {
		t.Fatalf("prefix triggered at %d", pos)
	}

	// [7 9] cycling: period 2 needs max(8/2, 3) = 4 repeats = 8 tokens.
	// (Period 1 never matches: adjacent tokens differ, and the run check
	// resets on every alternation.)
	cyc := repeatCycle([]Token{7, 9}, 4)
	pos := feed(g, cyc)
	if pos != len(cyc)-1 {
		t.Errorf("trigger at cycle index %d, want %d (8th cycle token)", pos, len(cyc)-1)
	}
}

// TestObserve_NonRepeatingSequenceNeverTriggers verifies a full buffer of
// distinct tokens stays silent.
func TestObserve_NonRepeatingSequenceNeverTriggers(t *testing.T) {
	cfg := Config{
		BufferSize:  256,
		MaxTokenRep: 16,
		MinGramRep:  4,
		MinNgramLen: 1,
		MaxNgramLen: 12,
	}
	g := mustGuard(t, cfg)

	tokens := make([]Token, cfg.BufferSize)
	for i := range tokens {
		tokens[i] = Token(i + 1000)
	}
	if pos := feed(g, tokens); pos != -1 {
		t.Errorf("distinct sequence triggered at index %d", pos)
	}
}

// TestObserve_WraparoundDetection verifies detection still works after the
// ring buffer has wrapped several times, using only the freshest window.
func TestObserve_WraparoundDetection(t *testing.T) {
	cfg := Config{
		BufferSize:  16,
		MaxTokenRep: 8,
		MinGramRep:  3,
		MinNgramLen: 2,
		MaxNgramLen: 4,
	}
	g := mustGuard(t, cfg)

	// 100 distinct tokens wrap the 16-slot buffer six times.
	for i := 0; i < 100; i++ {
		if g.Observe(Token(i + 1)) {
			t.Fatalf("distinct token %d triggered", i)
		}
	}

	// Period 2 needs max(8/2, 3) = 4 repeats = 8 tokens of [301 302].
	cyc := repeatCycle([]Token{301, 302}, 4)
	pos := feed(g, cyc)
	if pos != len(cyc)-1 {
		t.Errorf("trigger at cycle index %d, want %d", pos, len(cyc)-1)
	}
}

// TestObserve_OverwrittenTokensDoNotInfluence verifies tokens pushed out of
// the ring buffer cannot contribute to a match.
func TestObserve_OverwrittenTokensDoNotInfluence(t *testing.T) {
	cfg := Config{
		BufferSize:  16,
		MaxTokenRep: 8,
		MinGramRep:  3,
		MinNgramLen: 2,
		MaxNgramLen: 4,
	}

	// Sequence A: a near-complete period-2 pattern, then 16 distinct
	// tokens (a full buffer) that overwrite it, then the final cycle
	// tokens that would have completed the pattern.
	g := mustGuard(t, cfg)
	feed(g, repeatCycle([]Token{301, 302}, 3)) // 6 of the 8 needed
	for i := 0; i < 16; i++ {
		if g.Observe(Token(i + 50)) {
			t.Fatalf("flush token %d triggered", i)
		}
	}
	if pos := feed(g, repeatCycle([]Token{301, 302}, 1)); pos != -1 {
		t.Errorf("stale pattern completed a trigger at %d", pos)
	}
}

// =============================================================================
// Contract Tests
// =============================================================================

// TestObserveOptional_NilIsNoOp verifies an absent token mutates nothing
// and returns false.
func TestObserveOptional_NilIsNoOp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferSize = 64
	cfg.MaxTokenRep = 8

	g := mustGuard(t, cfg)
	feed(g, []Token{99, 5, 5, 5})

	seenBefore := g.Seen()
	runBefore := g.RunLength()

	if g.ObserveOptional(nil) {
		t.Error("ObserveOptional(nil) returned true")
	}
	if g.Seen() != seenBefore {
		t.Errorf("Seen() changed: %d -> %d", seenBefore, g.Seen())
	}
	if g.RunLength() != runBefore {
		t.Errorf("RunLength() changed: %d -> %d", runBefore, g.RunLength())
	}

	// The run must continue exactly where it left off: 4 more 5s reach
	// the threshold of 8 (3 observed so far).
	tok := Token(5)
	for i := 0; i < 4; i++ {
		if got := g.ObserveOptional(&tok); got != (i == 3) {
			t.Errorf("run occurrence %d: got %v", i+4, got)
		}
	}
}

// TestObserve_Deterministic verifies identical sequences produce identical
// trigger positions across fresh guards.
func TestObserve_Deterministic(t *testing.T) {
	cfg := Config{
		BufferSize:  128,
		MaxTokenRep: 16,
		MinGramRep:  4,
		MinNgramLen: 2,
		MaxNgramLen: 8,
	}

	// A fixed mixed sequence: noise, a partial run, noise, then a loop.
	seq := []Token{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5, 8, 9, 7, 9, 3}
	seq = append(seq, repeatCycle([]Token{42}, 10)...)
	seq = append(seq, 17, 23)
	seq = append(seq, repeatCycle([]Token{61, 62, 63}, 9)...)

	first := feed(mustGuard(t, cfg), seq)
	for i := 0; i < 3; i++ {
		if got := feed(mustGuard(t, cfg), seq); got != first {
			t.Errorf("run %d: trigger at %d, want %d", i, got, first)
		}
	}
	if first == -1 {
		t.Error("sequence with an embedded loop should trigger")
	}
}

// TestObserve_TriggeredGuardStaysArmed verifies calls after a trigger keep
// re-evaluating (advisory results) instead of latching or panicking.
func TestObserve_TriggeredGuardStaysArmed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferSize = 64
	cfg.MaxTokenRep = 4

	g := mustGuard(t, cfg)
	feed(g, []Token{99})
	if pos := feed(g, repeatCycle([]Token{5}, 4)); pos != 3 {
		t.Fatalf("trigger at %d, want 3", pos)
	}

	// Still in the loop: keeps reporting.
	if !g.Observe(5) {
		t.Error("continued run should keep triggering")
	}
	// Out of the loop: goes quiet again.
	if g.Observe(77) {
		t.Error("run breaker after trigger should not trigger")
	}
}

// =============================================================================
// Benchmarks
// =============================================================================

// BenchmarkObserve_Distinct measures the hot path on non-repeating input
// (worst case for the n-gram scan once the gate is open).
func BenchmarkObserve_Distinct(b *testing.B) {
	g, err := New(DefaultConfig())
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.Observe(Token(i))
	}
}

// BenchmarkObserve_Cycle measures the hot path on looping input.
func BenchmarkObserve_Cycle(b *testing.B) {
	g, err := New(DefaultConfig())
	if err != nil {
		b.Fatal(err)
	}
	cycle := []Token{7, 9, 11}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.Observe(cycle[i%3])
	}
}
