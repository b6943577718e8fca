// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/MenuGuard/services/guardrails"
	"github.com/AleutianAI/MenuGuard/services/orchestrator/datatypes"
)

// DeleteSession discards a session's conversation and guardrail state.
//
// DELETE /v1/sessions/:sessionId. Deleting forgets the session's dietary
// constraints, so clients should only do this when the user explicitly
// starts over. Sessions created via the standalone guardrail endpoints
// (no Chat in the hub) are also cleared.
func DeleteSession(hub *guardrails.ChatHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := c.Param("sessionId")
		slog.Info("Received a request to delete a session", "sessionId", session)

		if !hub.Remove(session) {
			// No Chat for this ID; still clear any guardrail-only state.
			hub.Manager().ResetSession(session)
		}
		c.JSON(http.StatusOK, datatypes.ResetSessionResponse{
			Status:           "success",
			DeletedSessionID: session,
		})
	}
}
