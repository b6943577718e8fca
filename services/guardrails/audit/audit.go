// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package audit records guardrail decisions for offline review.
//
// Every block and validation finding is written as one JSON object per
// line. Sink failures must never take the pipeline down: callers log the
// failure and continue, so a full disk cannot disable the guardrails.
package audit

import (
	"context"
	"math"
	"time"
	"unicode/utf8"
)

// previewLimit caps free-text fields (queries, response previews) so log
// lines stay small and raw conversations are not retained wholesale.
const previewLimit = 100

// EventType categorizes guardrail events.
type EventType string

const (
	// EventInputBlocked records an input rejected by the topic gate.
	EventInputBlocked EventType = "INPUT_BLOCKED"

	// EventOutputError records a non-critical validation finding.
	EventOutputError EventType = "OUTPUT_ERROR"

	// EventCriticalBlock records a safety-critical block.
	EventCriticalBlock EventType = "CRITICAL_BLOCK"
)

// Event is one guardrail audit record. Fields not relevant to the event
// type are left empty and omitted from the JSON encoding.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp string    `json:"timestamp"`
	SessionID string    `json:"session_id"`

	// Input block fields.
	TopicStatus     string  `json:"topic_status,omitempty"`
	SimilarityScore float64 `json:"similarity_score,omitempty"`
	Query           string  `json:"query,omitempty"`

	// Output error fields.
	ErrorType       string         `json:"error_type,omitempty"`
	Severity        string         `json:"severity,omitempty"`
	Message         string         `json:"message,omitempty"`
	Details         map[string]any `json:"details,omitempty"`
	ResponsePreview string         `json:"response_preview,omitempty"`
}

// Sink receives guardrail audit events.
//
// Implementations must be safe for concurrent use. Record should return
// quickly; buffering implementations flush on Flush and Close.
type Sink interface {
	// Record persists one event. Errors are reported to the caller, who
	// logs and continues; a failing sink never blocks the pipeline.
	Record(ctx context.Context, event Event) error

	// Flush persists buffered events. Called during graceful shutdown.
	Flush(ctx context.Context) error

	// Close releases sink resources after a final flush.
	Close() error
}

// NewInputBlocked builds an INPUT_BLOCKED event.
//
// The query is truncated to 100 characters and the similarity score is
// rounded to four decimals before the record leaves the process.
func NewInputBlocked(sessionID, topicStatus string, score float64, query string) Event {
	return Event{
		Type:            EventInputBlocked,
		Timestamp:       now(),
		SessionID:       sessionID,
		TopicStatus:     topicStatus,
		SimilarityScore: roundScore(score),
		Query:           Truncate(query),
	}
}

// NewOutputError builds an OUTPUT_ERROR event for a non-critical finding.
func NewOutputError(sessionID, errorType, severity, message string,
	details map[string]any, responsePreview string) Event {

	return Event{
		Type:            EventOutputError,
		Timestamp:       now(),
		SessionID:       sessionID,
		ErrorType:       errorType,
		Severity:        severity,
		Message:         message,
		Details:         details,
		ResponsePreview: Truncate(responsePreview),
	}
}

// NewCriticalBlock builds a CRITICAL_BLOCK event for a safety finding.
func NewCriticalBlock(sessionID, errorType, message string, details map[string]any) Event {
	return Event{
		Type:      EventCriticalBlock,
		Timestamp: now(),
		SessionID: sessionID,
		ErrorType: errorType,
		Severity:  "CRITICAL",
		Message:   message,
		Details:   details,
	}
}

// Truncate caps free text at the preview limit. The cut counts runes,
// not bytes, so a multi-byte character is never split mid-sequence.
func Truncate(s string) string {
	if utf8.RuneCountInString(s) <= previewLimit {
		return s
	}
	return string([]rune(s)[:previewLimit])
}

func roundScore(score float64) float64 {
	return math.Round(score*10000) / 10000
}

func now() string {
	return time.Now().Format(time.RFC3339Nano)
}
