// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains request and response types for the standalone
// guardrail check endpoints, which run the input gate or the output
// validators without involving the LLM.
package datatypes

import "github.com/AleutianAI/MenuGuard/services/guardrails/validate"

// =============================================================================
// Input Check Types
// =============================================================================

// InputCheckRequest is the body for POST /v1/guardrails/input.
type InputCheckRequest struct {
	SessionID string `json:"session_id,omitempty" validate:"omitempty,uuid4"`
	Query     string `json:"query" validate:"required,maxbytes"`
}

// Validate validates the InputCheckRequest fields.
func (r *InputCheckRequest) Validate() error {
	return chatValidate.Struct(r)
}

// EnsureDefaults assigns a session ID when the client did not provide one.
func (r *InputCheckRequest) EnsureDefaults() {
	if r.SessionID == "" {
		r.SessionID = generateUUID()
	}
}

// InputCheckResponse reports the topic gate verdict and the session's
// accumulated dietary constraints after this query.
type InputCheckResponse struct {
	SessionID       string   `json:"session_id"`
	Blocked         bool     `json:"blocked"`
	TopicStatus     string   `json:"topic_status"`
	SimilarityScore float64  `json:"similarity_score"`
	Constraints     []string `json:"constraints"`
}

// =============================================================================
// Output Check Types
// =============================================================================

// OutputCheckRequest is the body for POST /v1/guardrails/output.
//
// The response text is validated against the menu using the constraints
// accumulated for SessionID. An unknown session simply has no
// constraints, so only factual checks (prices, false allergen claims)
// apply.
type OutputCheckRequest struct {
	SessionID string `json:"session_id,omitempty" validate:"omitempty,uuid4"`
	Response  string `json:"response" validate:"required,maxbytes"`
}

// Validate validates the OutputCheckRequest fields.
func (r *OutputCheckRequest) Validate() error {
	return chatValidate.Struct(r)
}

// EnsureDefaults assigns a session ID when the client did not provide one.
func (r *OutputCheckRequest) EnsureDefaults() {
	if r.SessionID == "" {
		r.SessionID = generateUUID()
	}
}

// OutputCheckResponse reports validation findings for a response text.
type OutputCheckResponse struct {
	SessionID string           `json:"session_id"`
	Valid     bool             `json:"is_valid"`
	Errors    []validate.Error `json:"errors"`
}

// =============================================================================
// Stats and Session Types
// =============================================================================

// StatsResponse reports process-wide topic gate counters.
type StatsResponse struct {
	TotalQueries int64   `json:"total_queries"`
	OnTopic      int64   `json:"on_topic"`
	OffTopic     int64   `json:"off_topic"`
	Clarify      int64   `json:"clarify"`
	OnTopicRate  float64 `json:"on_topic_rate"`
	OffTopicRate float64 `json:"off_topic_rate"`
	ClarifyRate  float64 `json:"clarify_rate"`
}

// ResetSessionResponse confirms deletion of a session's state.
type ResetSessionResponse struct {
	Status           string `json:"status"`
	DeletedSessionID string `json:"deleted_session_id"`
}
