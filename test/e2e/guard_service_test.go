// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package e2e exercises the assembled guard service end to end: full
// router, middleware, registry, and detector, driven through the same
// HTTP surface an inference engine uses.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/repguard/services/guard"
	"github.com/AleutianAI/repguard/services/guard/datatypes"
)

var router *gin.Engine

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	svc, err := guard.New(guard.Config{GinMode: gin.TestMode})
	if err != nil {
		fmt.Printf("Failed to create guard service: %v\n", err)
		os.Exit(1)
	}
	router = svc.Router()

	os.Exit(m.Run())
}

func observe(t *testing.T, streamID string, tokens []int64) datatypes.ObserveResponse {
	t.Helper()

	ids := make([]*int64, len(tokens))
	for i := range tokens {
		ids[i] = &tokens[i]
	}
	payload, err := json.Marshal(datatypes.ObserveRequest{
		StreamID: streamID,
		TokenIDs: ids,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/guard/observe",
		bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	var resp datatypes.ObserveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func release(t *testing.T, streamID string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodDelete,
		"/v1/guard/streams/"+streamID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

// TestStreamLifecycle walks the full engine integration: observe batches
// across scheduling steps, hit a repetition trigger, release the stream.
func TestStreamLifecycle(t *testing.T) {
	first := observe(t, "", []int64{101, 102, 103})
	require.NotEmpty(t, first.StreamID)
	assert.False(t, first.Triggered)

	// With the default thresholds a uniform run stays quiet through 29
	// repeats (history gate plus prefix mismatch) and fires on the 30th,
	// where the run satisfies the shortest scanned period.
	run := make([]int64, 29)
	for i := range run {
		run[i] = 77
	}
	resp := observe(t, first.StreamID, run)
	assert.False(t, resp.Triggered)

	// One more tips it over.
	resp = observe(t, first.StreamID, []int64{77})
	assert.True(t, resp.Triggered)
	assert.Equal(t, 0, resp.TriggerIndex)
	assert.Equal(t, "repetition_guard", resp.StopReason)

	// The trigger latches until the engine releases the stream.
	resp = observe(t, first.StreamID, []int64{1, 2, 3})
	assert.True(t, resp.Triggered)

	assert.Equal(t, http.StatusOK, release(t, first.StreamID))
	assert.Equal(t, http.StatusNotFound, release(t, first.StreamID))
}

// TestPeriodicPatternAborts covers the n-gram detector through the HTTP
// surface with the default thresholds: a 3-token cycle fires once enough
// history has accumulated.
func TestPeriodicPatternAborts(t *testing.T) {
	var tokens []int64
	for i := 0; i < 16; i++ {
		tokens = append(tokens, 7, 9, 11)
	}
	resp := observe(t, "periodic-stream", tokens)
	assert.True(t, resp.Triggered)
	assert.Equal(t, "repetition_guard", resp.StopReason)

	release(t, "periodic-stream")
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	for _, path := range []string{"/health", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "path %s", path)
	}
}
