// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package guardrails

import (
	"fmt"
	"sync"
	"time"

	"github.com/AleutianAI/MenuGuard/services/guardrails/menu"
	"github.com/AleutianAI/MenuGuard/services/llm"
)

// ChatHub hands out one Chat per session ID.
//
// The HTTP and WebSocket handlers share a hub so a client can move
// between transports without losing its conversation. The hub records
// when each session was last fetched so an expiry sweeper can reclaim
// abandoned conversations.
type ChatHub struct {
	client llm.LLMClient
	mgr    *Manager
	menu   *menu.Menu

	mu         sync.Mutex
	chats      map[string]*Chat
	lastActive map[string]time.Time
}

// NewChatHub creates an empty hub.
func NewChatHub(client llm.LLMClient, mgr *Manager, m *menu.Menu) *ChatHub {
	return &ChatHub{
		client:     client,
		mgr:        mgr,
		menu:       m,
		chats:      make(map[string]*Chat),
		lastActive: make(map[string]time.Time),
	}
}

// Get returns the Chat for sessionID, creating it on first use. An empty
// sessionID always creates a fresh conversation.
func (h *ChatHub) Get(sessionID string) (*Chat, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sessionID != "" {
		if chat, ok := h.chats[sessionID]; ok {
			h.lastActive[sessionID] = time.Now()
			return chat, nil
		}
	}
	chat, err := NewChat(h.client, h.mgr, h.menu, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	h.chats[chat.SessionID()] = chat
	h.lastActive[chat.SessionID()] = time.Now()
	return chat, nil
}

// Remove drops the Chat for sessionID and clears its guardrail state.
// Returns false when the session is unknown.
func (h *ChatHub) Remove(sessionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.chats[sessionID]; !ok {
		return false
	}
	delete(h.chats, sessionID)
	delete(h.lastActive, sessionID)
	h.mgr.ResetSession(sessionID)
	return true
}

// Len returns the number of live sessions.
func (h *ChatHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.chats)
}

// IdleSessions returns the IDs of sessions not fetched since cutoff.
func (h *ChatHub) IdleSessions(cutoff time.Time) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var idle []string
	for id, last := range h.lastActive {
		if last.Before(cutoff) {
			idle = append(idle, id)
		}
	}
	return idle
}

// Manager exposes the shared guardrail manager.
func (h *ChatHub) Manager() *Manager { return h.mgr }
