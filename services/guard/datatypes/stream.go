// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides request and response types for the guard
// service HTTP surface.
package datatypes

import (
	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Limits
// =============================================================================

const (
	// MaxTokensPerRequest bounds a single observe batch. Engines batch
	// per scheduling step, so real batches are small; the bound exists
	// to keep request memory predictable against abusive callers.
	MaxTokensPerRequest = 8192

	// MaxStreamIDLength bounds caller-supplied stream identifiers.
	MaxStreamIDLength = 128
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// guardValidate is the validator instance for guard datatypes.
var guardValidate *validator.Validate

func init() {
	guardValidate = validator.New()
}

// =============================================================================
// Request Types
// =============================================================================

// ObserveRequest carries one batch of newly produced token IDs for a stream.
//
// TokenIDs entries may be null: a null entry is a defined no-op used to
// pass through event positions that carry no generated token (heartbeats,
// pooling outputs, tool-call frames). Token order must match generation
// order.
type ObserveRequest struct {
	// StreamID identifies the stream. Optional on the first batch; when
	// empty the service mints one and returns it in the response. All
	// later batches for the stream must carry the same ID.
	StreamID string `json:"stream_id" validate:"omitempty,max=128"`

	// TokenIDs is the batch of token IDs in generation order.
	TokenIDs []*int64 `json:"token_ids" validate:"required,min=1,max=8192"`
}

// Validate checks the request against its constraints.
func (r *ObserveRequest) Validate() error {
	return guardValidate.Struct(r)
}

// =============================================================================
// Response Types
// =============================================================================

// ObserveResponse reports the guard's verdict for one batch.
type ObserveResponse struct {
	// StreamID echoes (or supplies) the stream identifier.
	StreamID string `json:"stream_id"`

	// Triggered is true if the stream should stop generating now.
	Triggered bool `json:"triggered"`

	// TriggerIndex is the 0-based batch index where the trigger fired,
	// or -1 if it did not fire within this batch.
	TriggerIndex int `json:"trigger_index"`

	// TokensSeen is the stream's observed token count, saturated at the
	// ring buffer capacity.
	TokensSeen int `json:"tokens_seen"`

	// StopReason is "repetition_guard" when Triggered, empty otherwise.
	// Engines copy it into their finish bookkeeping, the same way stop
	// strings are surfaced.
	StopReason string `json:"stop_reason,omitempty"`
}

// ReleaseResponse acknowledges a stream release.
type ReleaseResponse struct {
	StreamID string `json:"stream_id"`
	Released bool   `json:"released"`
}

// StatsResponse reports registry-wide counters.
type StatsResponse struct {
	// ActiveStreams is the number of streams currently tracked.
	ActiveStreams int `json:"active_streams"`
}

// ErrorResponse is the uniform error body for the guard endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}
