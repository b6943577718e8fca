// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestSocket(t *testing.T, router *gin.Engine) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/chat/ws"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func TestHandleChatWebSocket_SessionCreatedFirst(t *testing.T) {
	hub := newTestHub(t, &fakeLLM{}, nil)
	router := gin.New()
	router.GET("/v1/chat/ws", HandleChatWebSocket(hub))
	ws := dialTestSocket(t, router)

	var hello map[string]interface{}
	require.NoError(t, ws.ReadJSON(&hello))
	assert.Equal(t, "session_created", hello["action"])
	assert.NotEmpty(t, hello["sessionId"])
}

func TestHandleChatWebSocket_GuardedTurn(t *testing.T) {
	hub := newTestHub(t,
		&fakeLLM{responses: []string{"The Coffee costs $5.00."}},
		map[string]float64{"how much is coffee?": 0.9})
	router := gin.New()
	router.GET("/v1/chat/ws", HandleChatWebSocket(hub))
	ws := dialTestSocket(t, router)

	var hello map[string]interface{}
	require.NoError(t, ws.ReadJSON(&hello))

	require.NoError(t, ws.WriteJSON(WSRequest{Query: "how much is coffee?"}))

	var resp WSResponse
	require.NoError(t, ws.ReadJSON(&resp))
	assert.Empty(t, resp.Error)
	assert.True(t, resp.Corrected)
	assert.Equal(t, "The Coffee costs $2.49.", resp.Answer)
}

func TestHandleChatWebSocket_ResetAction(t *testing.T) {
	hub := newTestHub(t, &fakeLLM{}, nil)
	router := gin.New()
	router.GET("/v1/chat/ws", HandleChatWebSocket(hub))
	ws := dialTestSocket(t, router)

	var hello map[string]interface{}
	require.NoError(t, ws.ReadJSON(&hello))
	firstID := hello["sessionId"]

	require.NoError(t, ws.WriteJSON(WSRequest{Action: "reset"}))

	var fresh map[string]interface{}
	require.NoError(t, ws.ReadJSON(&fresh))
	assert.Equal(t, "session_created", fresh["action"])
	assert.NotEqual(t, firstID, fresh["sessionId"])
}
