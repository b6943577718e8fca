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

	"github.com/AleutianAI/MenuGuard/services/guardrails"
	"github.com/AleutianAI/MenuGuard/services/orchestrator/handlers"
	"github.com/AleutianAI/MenuGuard/services/orchestrator/middleware"
)

// SetupRoutes installs all HTTP routes. Health and metrics stay open;
// the /v1 API is gated by the API key when one is configured.
func SetupRoutes(router *gin.Engine, hub *guardrails.ChatHub, enableMetrics bool, apiKey string) {
	router.GET("/health", handlers.HealthCheck)
	if enableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	mgr := hub.Manager()

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(middleware.APIKeyAuth(apiKey))
	{
		v1.POST("/chat", handlers.HandleChat(hub))
		v1.GET("/chat/ws", handlers.HandleChatWebSocket(hub))
		v1.POST("/guardrails/input", handlers.HandleInputCheck(mgr))
		v1.POST("/guardrails/output", handlers.HandleOutputCheck(mgr))
		v1.GET("/stats", handlers.HandleStats(mgr))
		// Session administration routes
		sessions := v1.Group("/sessions")
		{
			sessions.DELETE("/:sessionId", handlers.DeleteSession(hub))
		}
	}
}
