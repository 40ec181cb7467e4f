// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package registry tracks one repetition guard per active token stream.
//
// Guards themselves are single-owner and lock-free; all cross-stream
// synchronization lives here. A guard is created lazily the first time a
// stream observes tokens and destroyed when the owning collaborator
// releases the stream (normal completion or abort).
package registry

import (
	"sync"

	"github.com/AleutianAI/repguard/pkg/repguard"
	"github.com/AleutianAI/repguard/services/guard/observability"
)

// =============================================================================
// Types
// =============================================================================

// Result reports the outcome of observing a batch of tokens for a stream.
type Result struct {
	// Triggered is true if the stream is in a repetition loop and should
	// be stopped. Once a stream has triggered, every subsequent Result
	// for it reports Triggered until the stream is released.
	Triggered bool

	// TriggerIndex is the 0-based index within this batch at which the
	// trigger fired, or -1 if the trigger did not fire in this batch
	// (including the already-triggered case).
	TriggerIndex int

	// TokensSeen is the stream's total observed token count after this
	// batch, saturated at the ring buffer capacity.
	TokensSeen int
}

// entry pairs a guard with its per-stream lock and latched trigger state.
//
// The per-entry mutex serializes batches for one stream without blocking
// other streams: the contract is one batch per stream at a time, and the
// HTTP surface cannot enforce that on callers, so the lock does.
type entry struct {
	mu        sync.Mutex
	guard     *repguard.Guard
	triggered bool
}

// Registry owns the stream-to-guard table.
//
// # Description
//
// Registry lazily creates a Guard on the first observed token for each
// stream ID, feeds batches through it in order, and remembers triggered
// streams until they are released. It mirrors the lifecycle contract of
// the guard: creation on first token, explicit release on stream end,
// no self-contained cleanup.
//
// # Thread Safety
//
// Safe for concurrent use. The table is guarded by an RWMutex; each
// stream's guard is additionally serialized by a per-entry mutex, so
// concurrent batches for distinct streams never contend.
//
// # Example
//
//	reg, err := registry.New(cfg, metrics)
//	if err != nil {
//	    return err
//	}
//	res := reg.Observe("req-42", newTokenIDs)
//	if res.Triggered {
//	    abort("req-42")
//	    reg.Release("req-42")
//	}
type Registry struct {
	cfg     repguard.Config
	metrics *observability.Metrics

	mu      sync.RWMutex
	streams map[string]*entry
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a Registry sharing cfg across all guards it builds.
//
// cfg is validated once here so lazy guard construction on the hot path
// cannot fail. metrics may be nil (e.g. in library embedding or tests);
// all metric updates are skipped in that case.
func New(cfg repguard.Config, metrics *observability.Metrics) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Registry{
		cfg:     cfg,
		metrics: metrics,
		streams: make(map[string]*entry),
	}, nil
}

// =============================================================================
// Observation
// =============================================================================

// Observe feeds a batch of token IDs through streamID's guard, creating
// the guard if this is the stream's first batch.
//
// Tokens are observed in slice order and observation stops at the first
// trigger: the stream is about to be aborted, so the rest of the batch is
// irrelevant. The trigger latches: a stream that has triggered reports
// Triggered on every batch until released, without feeding the guard.
func (r *Registry) Observe(streamID string, tokens []repguard.Token) Result {
	e := r.stream(streamID)

	e.mu.Lock()
	defer e.mu.Unlock()

	res := Result{TriggerIndex: -1}
	if e.triggered {
		res.Triggered = true
		res.TokensSeen = e.guard.Seen()
		return res
	}

	observed := 0
	for i, tok := range tokens {
		observed++
		if e.guard.Observe(tok) {
			e.triggered = true
			res.TriggerIndex = i
			r.countTrigger()
			break
		}
	}
	r.countTokens(observed)

	res.Triggered = e.triggered
	res.TokensSeen = e.guard.Seen()
	return res
}

// ObserveOptional is Observe for batches that may contain absent tokens.
//
// Nil entries are defined no-ops: they mutate nothing, count nothing, and
// can never trigger. Callers use them to pass through mixed event batches
// (heartbeats, pooling outputs, tool-call frames) without filtering.
func (r *Registry) ObserveOptional(streamID string, tokens []*repguard.Token) Result {
	e := r.stream(streamID)

	e.mu.Lock()
	defer e.mu.Unlock()

	res := Result{TriggerIndex: -1}
	if e.triggered {
		res.Triggered = true
		res.TokensSeen = e.guard.Seen()
		return res
	}

	observed := 0
	for i, tok := range tokens {
		if tok == nil {
			continue
		}
		observed++
		if e.guard.ObserveOptional(tok) {
			e.triggered = true
			res.TriggerIndex = i
			r.countTrigger()
			break
		}
	}
	r.countTokens(observed)

	res.Triggered = e.triggered
	res.TokensSeen = e.guard.Seen()
	return res
}

// =============================================================================
// Lifecycle
// =============================================================================

// Release drops streamID's guard. Returns false if the stream was unknown.
//
// Releasing is idempotent from the caller's point of view: releasing an
// unknown stream is not an error, just a false return.
func (r *Registry) Release(streamID string) bool {
	r.mu.Lock()
	_, ok := r.streams[streamID]
	if ok {
		delete(r.streams, streamID)
	}
	r.mu.Unlock()

	if ok && r.metrics != nil {
		r.metrics.ActiveGuards.Dec()
	}
	return ok
}

// Len returns the number of active guards.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.streams)
}

// =============================================================================
// Internals
// =============================================================================

// stream returns streamID's entry, creating it (and its guard) on first use.
func (r *Registry) stream(streamID string) *entry {
	r.mu.RLock()
	e, ok := r.streams[streamID]
	r.mu.RUnlock()
	if ok {
		return e
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok = r.streams[streamID]; ok {
		return e
	}

	// cfg was validated in New, so this cannot fail.
	guard, _ := repguard.New(r.cfg)
	e = &entry{guard: guard}
	r.streams[streamID] = e

	if r.metrics != nil {
		r.metrics.ActiveGuards.Inc()
	}
	return e
}

func (r *Registry) countTokens(n int) {
	if r.metrics != nil && n > 0 {
		r.metrics.TokensObservedTotal.Add(float64(n))
	}
}

func (r *Registry) countTrigger() {
	if r.metrics != nil {
		r.metrics.TriggersTotal.Inc()
	}
}
