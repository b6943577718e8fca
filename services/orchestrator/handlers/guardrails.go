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
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/MenuGuard/services/guardrails"
	"github.com/AleutianAI/MenuGuard/services/guardrails/validate"
	"github.com/AleutianAI/MenuGuard/services/orchestrator/datatypes"
	"github.com/AleutianAI/MenuGuard/services/orchestrator/observability"
)

// HandleInputCheck runs the input gate without involving the LLM.
//
// POST /v1/guardrails/input. Lets an external caller (or a different
// chat frontend) reuse the topic gate and constraint extraction.
func HandleInputCheck(mgr *guardrails.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleInputCheck")
		defer span.End()
		start := time.Now()

		var req datatypes.InputCheckRequest
		if err := c.BindJSON(&req); err != nil {
			slog.Error("Failed to parse the input check request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.EnsureDefaults()

		res, err := mgr.CheckInput(ctx, req.Query, req.SessionID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Input check failed", "session_id", req.SessionID, "error", err)
			recordRequest(observability.EndpointInputCheck, false, start)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if m := observability.DefaultMetrics; m != nil {
			m.RecordInputCheck(string(res.TopicStatus))
			if res.Blocked {
				m.RecordBlock(observability.BlockReasonOffTopic)
			}
		}
		recordRequest(observability.EndpointInputCheck, true, start)

		c.JSON(http.StatusOK, datatypes.InputCheckResponse{
			SessionID:       req.SessionID,
			Blocked:         res.Blocked,
			TopicStatus:     string(res.TopicStatus),
			SimilarityScore: roundScore(res.SimilarityScore),
			Constraints:     mgr.SessionConstraints(req.SessionID),
		})
	}
}

// HandleOutputCheck validates a candidate response without involving
// the LLM.
//
// POST /v1/guardrails/output. Validates against the constraints
// accumulated for the session; an unknown session gets factual checks
// only.
func HandleOutputCheck(mgr *guardrails.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleOutputCheck")
		defer span.End()
		start := time.Now()

		var req datatypes.OutputCheckRequest
		if err := c.BindJSON(&req); err != nil {
			slog.Error("Failed to parse the output check request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.EnsureDefaults()

		result := mgr.CheckOutput(ctx, req.Response, req.SessionID)
		if m := observability.DefaultMetrics; m != nil {
			for _, e := range result.Errors {
				m.RecordValidationError(e.Type, string(e.Severity))
			}
		}
		recordRequest(observability.EndpointOutputCheck, true, start)

		errs := result.Errors
		if errs == nil {
			errs = []validate.Error{}
		}
		c.JSON(http.StatusOK, datatypes.OutputCheckResponse{
			SessionID: req.SessionID,
			Valid:     result.Valid,
			Errors:    errs,
		})
	}
}
