// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/repguard/services/guard/handlers"
	"github.com/AleutianAI/repguard/services/guard/observability"
	"github.com/AleutianAI/repguard/services/guard/registry"
)

func SetupRoutes(router *gin.Engine, reg *registry.Registry,
	metrics *observability.Metrics) {

	router.GET("/health", handlers.HandleHealth())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		guard := v1.Group("/guard")
		{
			guard.POST("/observe", handlers.HandleObserve(reg, metrics))
			guard.GET("/stats", handlers.HandleStats(reg, metrics))
			guard.DELETE("/streams/:streamId", handlers.HandleRelease(reg, metrics))
		}
	}
}
