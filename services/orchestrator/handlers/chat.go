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
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/MenuGuard/services/guardrails"
	"github.com/AleutianAI/MenuGuard/services/orchestrator/datatypes"
	"github.com/AleutianAI/MenuGuard/services/orchestrator/observability"
)

var chatTracer = otel.Tracer("menuguard.orchestrator.handlers")

// HandleChat runs one guarded conversation turn.
//
// POST /v1/chat. An omitted session_id starts a new conversation; the
// assigned ID is echoed in the response.
func HandleChat(hub *guardrails.ChatHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleChat")
		defer span.End()
		start := time.Now()

		var req datatypes.ChatRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the chat request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			slog.Warn("Chat request failed validation", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.EnsureDefaults()

		chat, err := hub.Get(req.SessionID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		res, err := chat.ProcessQuery(ctx, req.Query, req.SkipGuardrails)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Chat turn failed", "session_id", chat.SessionID(), "error", err)
			recordRequest(observability.EndpointChat, false, start)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		recordTurn(observability.EndpointChat, res)
		recordRequest(observability.EndpointChat, true, start)

		c.JSON(http.StatusOK, datatypes.ChatResponse{
			SessionID:        chat.SessionID(),
			Response:         res.Response,
			TopicStatus:      string(res.TopicStatus),
			SimilarityScore:  roundScore(res.SimilarityScore),
			Blocked:          res.Blocked,
			Corrected:        res.Corrected,
			Errors:           res.Errors,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		})
	}
}

// roundScore rounds a similarity score to four decimals, matching the
// precision promised in the response docs and used in audit records.
func roundScore(score float64) float64 {
	return math.Round(score*10000) / 10000
}

// recordTurn feeds guardrail decisions into the metrics singleton.
func recordTurn(endpoint observability.Endpoint, res guardrails.TurnResult) {
	m := observability.DefaultMetrics
	if m == nil {
		return
	}
	if res.TopicStatus != "" {
		m.RecordInputCheck(string(res.TopicStatus))
	}
	for _, e := range res.Errors {
		m.RecordValidationError(e.Type, string(e.Severity))
	}
	switch {
	case res.Blocked && res.TopicStatus == "off_topic":
		m.RecordBlock(observability.BlockReasonOffTopic)
	case res.Blocked && len(res.Errors) > 0:
		if hasCritical(res) {
			m.RecordBlock(observability.BlockReasonCriticalError)
		} else {
			m.RecordBlock(observability.BlockReasonLowConfidence)
		}
	case res.Corrected:
		m.RecordCorrection()
	}
}

func hasCritical(res guardrails.TurnResult) bool {
	for _, e := range res.Errors {
		if e.Severity == "critical" {
			return true
		}
	}
	return false
}

func recordRequest(endpoint observability.Endpoint, success bool, start time.Time) {
	m := observability.DefaultMetrics
	if m == nil {
		return
	}
	m.RecordRequest(endpoint, success)
	m.RecordRequestDuration(endpoint, time.Since(start).Seconds())
}
