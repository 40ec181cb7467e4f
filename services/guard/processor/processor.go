// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package processor intercepts engine scheduling-step outputs and marks
// repeating requests for abort.
//
// This is the in-process integration point for engines embedding the
// guard directly rather than calling the HTTP surface: after each
// scheduling step the engine hands the step's outputs to Process, which
// feeds new tokens through the per-stream guards and rewrites triggered
// outputs so the engine's normal finish path tears the request down.
package processor

import (
	"log/slog"

	"github.com/AleutianAI/repguard/services/guard/observability"
	"github.com/AleutianAI/repguard/services/guard/registry"
)

// =============================================================================
// Types
// =============================================================================

// Finish reasons mirrored from the engine's request lifecycle.
const (
	// FinishReasonAbort marks a request the engine should tear down
	// before it reaches its natural stop.
	FinishReasonAbort = "abort"

	// StopReasonRepetitionGuard identifies this component as the abort
	// source in the engine's finish bookkeeping, the same slot stop
	// strings use.
	StopReasonRepetitionGuard = "repetition_guard"
)

// EngineOutput is one request's slice of a scheduling step's output.
//
// NewTokenIDs may be empty for steps that produced no tokens for this
// request (e.g. a prefill-only step). PoolingOnly outputs carry
// embeddings rather than generated tokens and are never guarded.
type EngineOutput struct {
	RequestID    string
	NewTokenIDs  []int64
	PoolingOnly  bool
	Finished     bool
	FinishReason string
	StopReason   string
}

// Processor wraps a registry with the engine-facing output hook.
type Processor struct {
	reg     *registry.Registry
	metrics *observability.Metrics
	logger  *slog.Logger
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a Processor over reg. metrics and logger may be nil; a nil
// logger falls back to slog.Default.
func New(reg *registry.Registry, metrics *observability.Metrics, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{reg: reg, metrics: metrics, logger: logger}
}

// =============================================================================
// Output Hook
// =============================================================================

// Process feeds one scheduling step's outputs through the guards and
// returns the request IDs the engine must abort, deduplicated and in
// first-trigger order.
//
// Triggered outputs are rewritten in place: Finished is set,
// FinishReason becomes FinishReasonAbort and StopReason becomes
// StopReasonRepetitionGuard, so downstream consumers see a normal
// finish event. Outputs that finish for any other reason have their
// guard released here; pooling-only outputs are ignored entirely.
func (p *Processor) Process(outputs []*EngineOutput) []string {
	var aborts []string
	seen := make(map[string]struct{})

	for _, out := range outputs {
		if out == nil || out.PoolingOnly {
			continue
		}

		if len(out.NewTokenIDs) > 0 {
			res := p.reg.Observe(out.RequestID, out.NewTokenIDs)
			if res.Triggered {
				out.Finished = true
				out.FinishReason = FinishReasonAbort
				out.StopReason = StopReasonRepetitionGuard

				if _, dup := seen[out.RequestID]; !dup {
					seen[out.RequestID] = struct{}{}
					aborts = append(aborts, out.RequestID)
				}

				p.logger.Warn("repetition detected, aborting request",
					"request_id", out.RequestID,
					"tokens_seen", res.TokensSeen,
					"trigger_index", res.TriggerIndex,
				)
				if p.metrics != nil {
					p.metrics.AbortsTotal.Inc()
				}
			}
		}

		// Requests finishing on their own (or just aborted here) no
		// longer need a guard. Aborted ones are released too: the
		// engine will not produce further tokens for them.
		if out.Finished {
			p.reg.Release(out.RequestID)
		}
	}

	return aborts
}
