// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides request and response structures for the
// orchestrator service.
//
// This file contains the types for the guarded chat endpoint. Guardrail
// check types live in guardrails.go.
package datatypes

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/AleutianAI/MenuGuard/services/guardrails/validate"
)

// =============================================================================
// Constants for Security Compliance
// =============================================================================

const (
	// MaxMessageContentBytes is the maximum size of a single message or
	// query. Checks byte length, not rune count, to bound memory use.
	MaxMessageContentBytes = 32 * 1024 // 32KB

	// MaxMessagesPerRequest is the maximum number of messages accepted in
	// a conversation history.
	MaxMessagesPerRequest = 100
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// chatValidate is the validator instance for chat datatypes.
// Initialized in init() with custom validators.
var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()
	_ = chatValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes validates that a string field does not exceed
// MaxMessageContentBytes.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxMessageContentBytes
}

// generateUUID returns a new UUID v4 string.
func generateUUID() string {
	return uuid.NewString()
}

// =============================================================================
// Conversation Message
// =============================================================================

// Message is one turn of an LLM conversation.
//
// Role is one of "system", "user", or "assistant". Content is limited to
// 32KB to bound request memory.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required,maxbytes"`
}

// =============================================================================
// Chat Request Types
// =============================================================================

// ChatRequest is the body for POST /v1/chat.
//
// # Fields
//
//   - SessionID: Optional. UUID v4 identifying the conversation. A new
//     session is created when omitted; the assigned ID is echoed in the
//     response so the client can continue the conversation.
//   - Query: Required. The user's message, limited to 32KB.
//   - SkipGuardrails: Optional. Bypasses the guardrail pipeline for this
//     turn. Intended for side-by-side comparison in demos; never expose
//     this to untrusted clients.
type ChatRequest struct {
	SessionID      string `json:"session_id,omitempty" validate:"omitempty,uuid4"`
	Query          string `json:"query" validate:"required,maxbytes"`
	SkipGuardrails bool   `json:"skip_guardrails,omitempty"`
}

// Validate validates the ChatRequest fields. Call after binding the JSON
// request body.
func (r *ChatRequest) Validate() error {
	return chatValidate.Struct(r)
}

// EnsureDefaults assigns a session ID when the client did not provide one.
func (r *ChatRequest) EnsureDefaults() {
	if r.SessionID == "" {
		r.SessionID = generateUUID()
	}
}

// =============================================================================
// Chat Response Types
// =============================================================================

// ChatResponse is the reply for POST /v1/chat.
//
// # Fields
//
//   - SessionID: The conversation this turn belongs to.
//   - Response: The final assistant text shown to the user, after any
//     guardrail substitution or correction.
//   - TopicStatus: Topic gate verdict for the input ("on_topic",
//     "clarify", "off_topic"). Empty when guardrails were skipped.
//   - SimilarityScore: Best cosine similarity against the topic
//     prototypes, rounded to four decimals.
//   - Blocked: True when the guardrails replaced the LLM response (or
//     prevented the LLM call entirely).
//   - Corrected: True when correctable findings were patched into the
//     response text.
//   - Errors: Validation findings for the original LLM response. Present
//     even when corrections were applied, so clients can display what
//     changed.
//   - ProcessingTimeMs: End-to-end turn latency in milliseconds.
type ChatResponse struct {
	SessionID        string           `json:"session_id"`
	Response         string           `json:"response"`
	TopicStatus      string           `json:"topic_status,omitempty"`
	SimilarityScore  float64          `json:"similarity_score,omitempty"`
	Blocked          bool             `json:"blocked"`
	Corrected        bool             `json:"corrected"`
	Errors           []validate.Error `json:"errors,omitempty"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
}
