// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/MenuGuard/services/guardrails"
	"github.com/AleutianAI/MenuGuard/services/orchestrator/datatypes"
)

// HandleStats reports process-wide topic gate counters.
//
// GET /v1/stats.
func HandleStats(mgr *guardrails.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := mgr.Summary()
		c.JSON(http.StatusOK, datatypes.StatsResponse{
			TotalQueries: stats.TotalQueries,
			OnTopic:      stats.OnTopic,
			OffTopic:     stats.OffTopic,
			Clarify:      stats.Clarify,
			OnTopicRate:  stats.OnTopicRate(),
			OffTopicRate: stats.OffTopicRate(),
			ClarifyRate:  stats.ClarifyRate(),
		})
	}
}
