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
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/MenuGuard/services/guardrails"
	"github.com/AleutianAI/MenuGuard/services/guardrails/validate"
	"github.com/AleutianAI/MenuGuard/services/orchestrator/observability"
)

// WSRequest is one client frame on the chat socket.
type WSRequest struct {
	Query          string `json:"query"`
	Action         string `json:"action,omitempty"` // e.g. "reset"
	SkipGuardrails bool   `json:"skip_guardrails,omitempty"`
}

// WSResponse is one guarded chat reply frame.
type WSResponse struct {
	Answer          string           `json:"answer"`
	TopicStatus     string           `json:"topic_status,omitempty"`
	SimilarityScore float64          `json:"similarity_score,omitempty"`
	Blocked         bool             `json:"blocked"`
	Corrected       bool             `json:"corrected"`
	Errors          []validate.Error `json:"errors,omitempty"`
	Error           string           `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  32 * 1024,
	WriteBufferSize: 32 * 1024,
}

func sendJSON(ws *websocket.Conn, v interface{}) error {
	err := ws.WriteJSON(v)
	if err != nil {
		slog.Warn("Failed to write WebSocket JSON", "error", err)
	}
	return err
}

// HandleChatWebSocket runs a guarded conversation over a WebSocket.
//
// GET /v1/chat/ws. The server assigns the session ID and announces it in
// a "session_created" frame before the first turn. A frame with action
// "reset" starts a fresh session on the same connection.
func HandleChatWebSocket(hub *guardrails.ChatHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()
		slog.Info("Websocket client connected")

		chat, err := hub.Get("")
		if err != nil {
			slog.Error("Failed to create websocket chat", "error", err)
			return
		}
		slog.Info("New websocket session started", "sessionID", chat.SessionID())

		// --- Send Session ID to client immediately on connect ---
		if err := sendJSON(ws, map[string]interface{}{
			"action":    "session_created",
			"sessionId": chat.SessionID(),
		}); err != nil {
			return // Close if we can't even send the first message
		}

		for {
			var req WSRequest
			if err := ws.ReadJSON(&req); err != nil {
				slog.Info("Websocket client disconnected", "error", err.Error())
				break
			}

			ctx := c.Request.Context()

			if req.Action == "reset" {
				oldID := chat.SessionID()
				hub.Remove(oldID)
				chat, err = hub.Get("")
				if err != nil {
					slog.Error("Failed to create websocket chat after reset", "error", err)
					return
				}
				slog.Info("Websocket session reset", "old", oldID, "new", chat.SessionID())
				if err := sendJSON(ws, map[string]interface{}{
					"action":    "session_created",
					"sessionId": chat.SessionID(),
				}); err != nil {
					return
				}
				continue
			}

			start := time.Now()
			var resp WSResponse
			res, err := chat.ProcessQuery(ctx, req.Query, req.SkipGuardrails)
			if err != nil {
				resp.Error = err.Error()
			} else {
				resp.Answer = res.Response
				resp.TopicStatus = string(res.TopicStatus)
				resp.SimilarityScore = roundScore(res.SimilarityScore)
				resp.Blocked = res.Blocked
				resp.Corrected = res.Corrected
				resp.Errors = res.Errors
				recordTurn(observability.EndpointChatWS, res)
			}
			recordRequest(observability.EndpointChatWS, err == nil, start)

			if err := sendJSON(ws, resp); err != nil {
				return
			}
		}
	}
}
