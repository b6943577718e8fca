// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package guardrails

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/AleutianAI/MenuGuard/services/guardrails/menu"
	"github.com/AleutianAI/MenuGuard/services/guardrails/topic"
	"github.com/AleutianAI/MenuGuard/services/guardrails/validate"
	"github.com/AleutianAI/MenuGuard/services/llm"
	"github.com/AleutianAI/MenuGuard/services/orchestrator/datatypes"
)

// =============================================================================
// Canned Replies
// =============================================================================

const (
	offTopicReply = "I'm sorry, but I can only help you with menu ordering " +
		"and food-related questions. How can I help you with the menu today?"

	clarifyReply = "Could you please be more specific about what you'd like " +
		"to order or know about the menu?"

	lowConfidenceReply = "I apologize, but I'm not confident in the accuracy " +
		"of my response regarding prices or details. Please let me double-check the menu."

	safetyApology = "I apologize for the error. Please let me know your dietary " +
		"restrictions again so I can recommend something safe for you."
)

// =============================================================================
// Chat
// =============================================================================

// TurnResult is the outcome of one guarded conversation turn.
type TurnResult struct {
	Response        string
	TopicStatus     topic.Verdict
	SimilarityScore float64
	Blocked         bool
	Corrected       bool
	Errors          []validate.Error
}

// Chat drives one guarded conversation with the LLM.
//
// Each Chat owns its history and session ID. The guardrail Manager is
// shared across chats; it keys constraints by session ID. Methods are
// safe for concurrent use, though a conversation is naturally serial.
type Chat struct {
	client llm.LLMClient
	mgr    *Manager
	menu   *menu.Menu

	mu        sync.Mutex
	sessionID string
	history   []datatypes.Message
}

// NewChat creates a conversation seeded with the menu system prompt.
// An empty sessionID gets a fresh UUID.
func NewChat(client llm.LLMClient, mgr *Manager, m *menu.Menu, sessionID string) (*Chat, error) {
	if client == nil {
		return nil, fmt.Errorf("llm client must not be nil")
	}
	if mgr == nil {
		return nil, fmt.Errorf("guardrail manager must not be nil")
	}
	if m == nil {
		return nil, fmt.Errorf("menu must not be nil")
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &Chat{
		client:    client,
		mgr:       mgr,
		menu:      m,
		sessionID: sessionID,
		history: []datatypes.Message{
			{Role: "system", Content: m.SystemPrompt()},
		},
	}, nil
}

// SessionID returns the conversation's session ID.
func (c *Chat) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Reset discards the conversation and its guardrail state, and starts a
// new session. Returns the new session ID.
func (c *Chat) Reset() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mgr.ResetSession(c.sessionID)
	c.sessionID = uuid.NewString()
	c.history = []datatypes.Message{
		{Role: "system", Content: c.menu.SystemPrompt()},
	}
	slog.Info("Chat session reset", "new_session_id", c.sessionID)
	return c.sessionID
}

// ProcessQuery runs one conversation turn through the guardrail pipeline.
//
// skipGuardrails sends the query straight to the LLM, for side-by-side
// comparison in demos. The returned error is reserved for infrastructure
// failures (embedding backend, LLM backend); guardrail blocks are
// reported in the TurnResult, not as errors.
func (c *Chat) ProcessQuery(ctx context.Context, query string, skipGuardrails bool) (TurnResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if skipGuardrails {
		response, err := c.generate(ctx, query)
		if err != nil {
			return TurnResult{}, err
		}
		c.remember(query, response)
		return TurnResult{Response: response}, nil
	}

	in, err := c.mgr.CheckInput(ctx, query, c.sessionID)
	if err != nil {
		return TurnResult{}, err
	}
	if in.Blocked {
		return TurnResult{
			Response:        offTopicReply,
			TopicStatus:     in.TopicStatus,
			SimilarityScore: in.SimilarityScore,
			Blocked:         true,
		}, nil
	}
	if in.TopicStatus == topic.VerdictClarify {
		return TurnResult{
			Response:        clarifyReply,
			TopicStatus:     in.TopicStatus,
			SimilarityScore: in.SimilarityScore,
		}, nil
	}

	response, err := c.generate(ctx, query)
	if err != nil {
		return TurnResult{}, err
	}

	result := c.mgr.CheckOutput(ctx, response, c.sessionID)
	out := TurnResult{
		Response:        response,
		TopicStatus:     in.TopicStatus,
		SimilarityScore: in.SimilarityScore,
		Errors:          result.Errors,
	}

	if critical := result.CriticalErrors(); len(critical) > 0 {
		out.Response = safetyReply(critical)
		out.Blocked = true
	} else if !result.Valid {
		if corrected, ok := applyCorrections(response, result.Errors); ok {
			out.Response = corrected
			out.Corrected = true
		} else {
			out.Response = lowConfidenceReply
			out.Blocked = true
		}
	}

	c.remember(query, out.Response)
	return out, nil
}

// generate calls the LLM with the conversation history plus the query.
// The history is not mutated; remember appends the turn once the final
// response text is known.
func (c *Chat) generate(ctx context.Context, query string) (string, error) {
	messages := make([]datatypes.Message, len(c.history), len(c.history)+1)
	copy(messages, c.history)
	messages = append(messages, datatypes.Message{Role: "user", Content: query})

	response, err := c.client.Chat(ctx, messages, llm.GenerationParams{})
	if err != nil {
		return "", fmt.Errorf("LLM chat call failed: %w", err)
	}
	return response, nil
}

func (c *Chat) remember(query, response string) {
	c.history = append(c.history,
		datatypes.Message{Role: "user", Content: query},
		datatypes.Message{Role: "assistant", Content: response},
	)
}

// safetyReply builds the replacement text for a critically flawed
// response, naming every safety finding.
func safetyReply(critical []validate.Error) string {
	var sb strings.Builder
	for _, e := range critical {
		sb.WriteString("SAFETY WARNING: ")
		sb.WriteString(e.Message)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(safetyApology)
	return sb.String()
}

// applyCorrections substitutes every finding's original text with its
// corrected text, skipping findings that carry no correction pair.
// Returns false only when no finding supplies a substitution, leaving
// the caller to block with the low-confidence reply.
func applyCorrections(response string, errs []validate.Error) (string, bool) {
	corrected := response
	applied := false
	for _, e := range errs {
		if !e.Correctable() {
			continue
		}
		corrected = strings.ReplaceAll(corrected, e.OriginalText, e.CorrectedText)
		applied = true
	}
	if !applied {
		return "", false
	}
	return corrected, true
}
