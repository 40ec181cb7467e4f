// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP endpoints of the guard service.
package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/repguard/pkg/repguard"
	"github.com/AleutianAI/repguard/services/guard/datatypes"
	"github.com/AleutianAI/repguard/services/guard/observability"
	"github.com/AleutianAI/repguard/services/guard/processor"
	"github.com/AleutianAI/repguard/services/guard/registry"
)

// HandleObserve feeds a batch of token IDs through the caller's stream
// guard and reports the verdict.
//
// When the request omits stream_id the handler mints a UUID and returns
// it; the caller must echo it on every later batch for the same stream.
func HandleObserve(reg *registry.Registry, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req datatypes.ObserveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			slog.Warn("failed to bind observe request", "error", err)
			countRequest(metrics, "observe", http.StatusBadRequest)
			c.JSON(http.StatusBadRequest,
				datatypes.ErrorResponse{Error: "invalid request body: " + err.Error()})
			return
		}
		if err := req.Validate(); err != nil {
			slog.Warn("observe request failed validation", "error", err)
			countRequest(metrics, "observe", http.StatusBadRequest)
			c.JSON(http.StatusBadRequest,
				datatypes.ErrorResponse{Error: "invalid request: " + err.Error()})
			return
		}

		streamID := req.StreamID
		if streamID == "" {
			streamID = uuid.NewString()
		}

		tokens := make([]*repguard.Token, len(req.TokenIDs))
		for i, id := range req.TokenIDs {
			tokens[i] = id
		}
		res := reg.ObserveOptional(streamID, tokens)

		resp := datatypes.ObserveResponse{
			StreamID:     streamID,
			Triggered:    res.Triggered,
			TriggerIndex: res.TriggerIndex,
			TokensSeen:   res.TokensSeen,
		}
		if res.Triggered {
			resp.StopReason = processor.StopReasonRepetitionGuard
			slog.Info("repetition trigger reported",
				"stream_id", streamID,
				"tokens_seen", res.TokensSeen,
				"trigger_index", res.TriggerIndex,
			)
		}

		observeDuration(metrics, "observe", start)
		countRequest(metrics, "observe", http.StatusOK)
		c.JSON(http.StatusOK, resp)
	}
}

// HandleRelease drops the guard for a finished or aborted stream.
func HandleRelease(reg *registry.Registry, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		streamID := c.Param("streamId")

		if !reg.Release(streamID) {
			countRequest(metrics, "release", http.StatusNotFound)
			c.JSON(http.StatusNotFound,
				datatypes.ErrorResponse{Error: "unknown stream: " + streamID})
			return
		}

		slog.Info("released stream", "stream_id", streamID)
		countRequest(metrics, "release", http.StatusOK)
		c.JSON(http.StatusOK, datatypes.ReleaseResponse{
			StreamID: streamID,
			Released: true,
		})
	}
}

// HandleStats reports registry-wide counters.
func HandleStats(reg *registry.Registry, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		countRequest(metrics, "stats", http.StatusOK)
		c.JSON(http.StatusOK, datatypes.StatsResponse{
			ActiveStreams: reg.Len(),
		})
	}
}

// HandleHealth reports process liveness.
func HandleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func countRequest(metrics *observability.Metrics, endpoint string, status int) {
	if metrics != nil {
		metrics.RequestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	}
}

func observeDuration(metrics *observability.Metrics, endpoint string, start time.Time) {
	if metrics != nil {
		metrics.ObserveDurationSeconds.WithLabelValues(endpoint).
			Observe(time.Since(start).Seconds())
	}
}
