// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package guardrails orchestrates the input gate and output validators
// around an LLM-backed menu assistant.
//
// The Manager owns per-session dietary constraints and the audit trail.
// Input flows through the topic classifier and the constraint extractor;
// output flows through the price and allergen validators. A critical
// finding always blocks the response.
package guardrails

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/MenuGuard/services/guardrails/audit"
	"github.com/AleutianAI/MenuGuard/services/guardrails/constraints"
	"github.com/AleutianAI/MenuGuard/services/guardrails/lexicon"
	"github.com/AleutianAI/MenuGuard/services/guardrails/menu"
	"github.com/AleutianAI/MenuGuard/services/guardrails/topic"
	"github.com/AleutianAI/MenuGuard/services/guardrails/validate"
)

var tracer = otel.Tracer("menuguard.guardrails.manager")

// =============================================================================
// Session State
// =============================================================================

// session holds per-conversation guardrail state. Constraints only grow;
// a forgotten allergy is a safety hazard, so nothing short of a session
// reset removes one.
type session struct {
	mu          sync.Mutex
	constraints constraints.Set
}

func (s *session) snapshot() constraints.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.constraints.Clone()
}

// =============================================================================
// Stats
// =============================================================================

// Stats reports process-wide topic gate counters.
type Stats struct {
	TotalQueries int64
	OnTopic      int64
	OffTopic     int64
	Clarify      int64
}

// OnTopicRate returns the fraction of queries judged on-topic.
func (s Stats) OnTopicRate() float64 { return rate(s.OnTopic, s.TotalQueries) }

// OffTopicRate returns the fraction of queries blocked as off-topic.
func (s Stats) OffTopicRate() float64 { return rate(s.OffTopic, s.TotalQueries) }

// ClarifyRate returns the fraction of queries needing clarification.
func (s Stats) ClarifyRate() float64 { return rate(s.Clarify, s.TotalQueries) }

func rate(n, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// =============================================================================
// Manager
// =============================================================================

// InputResult is the outcome of the input gate for one query.
type InputResult struct {
	Blocked         bool
	TopicStatus     topic.Verdict
	SimilarityScore float64
}

// Manager runs the guardrail pipeline and tracks session state.
//
// All methods are safe for concurrent use.
type Manager struct {
	index      *menu.Index
	extractor  *constraints.Extractor
	classifier *topic.Classifier
	validators []validate.Validator
	sink       audit.Sink

	mu       sync.Mutex
	sessions map[string]*session
	stats    Stats
}

// NewManager builds a Manager over the given menu index.
//
// Validators run in a fixed order: prices first, then allergens. The
// sink receives every block and finding; pass audit.NopSink to disable
// the trail.
func NewManager(ix *menu.Index, lex *lexicon.Lexicon, classifier *topic.Classifier,
	sink audit.Sink) (*Manager, error) {

	if ix == nil {
		return nil, fmt.Errorf("menu index must not be nil")
	}
	if lex == nil {
		return nil, fmt.Errorf("lexicon must not be nil")
	}
	if classifier == nil {
		return nil, fmt.Errorf("topic classifier must not be nil")
	}
	if sink == nil {
		sink = &audit.NopSink{}
	}
	return &Manager{
		index:      ix,
		extractor:  constraints.NewExtractor(lex),
		classifier: classifier,
		validators: []validate.Validator{
			validate.NewPriceValidator(),
			validate.NewAllergenValidator(lex),
		},
		sink:     sink,
		sessions: make(map[string]*session),
	}, nil
}

// CheckInput gates one user query for a session.
//
// Off-topic queries are blocked before they can touch session state, so
// a rejected query never contributes dietary constraints. Clarify and
// on-topic queries both update the session's constraints. The error
// return is reserved for embedding backend failures; the caller decides
// whether to fail open or closed.
func (g *Manager) CheckInput(ctx context.Context, query, sessionID string) (InputResult, error) {
	ctx, span := tracer.Start(ctx, "Manager.CheckInput")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	verdict, score, err := g.classifier.Classify(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return InputResult{}, fmt.Errorf("topic classification failed: %w", err)
	}
	span.SetAttributes(
		attribute.String("guardrails.topic_status", string(verdict)),
		attribute.Float64("guardrails.similarity_score", score),
	)

	g.recordVerdict(verdict)

	if verdict == topic.VerdictOffTopic {
		slog.Info("Query blocked as off-topic", "session_id", sessionID, "score", score)
		g.record(ctx, audit.NewInputBlocked(sessionID, string(verdict), score, query))
		return InputResult{Blocked: true, TopicStatus: verdict, SimilarityScore: score}, nil
	}

	sess := g.getSession(sessionID)
	sess.mu.Lock()
	before := len(sess.constraints)
	sess.constraints = g.extractor.Extract(query, sess.constraints)
	after := len(sess.constraints)
	sess.mu.Unlock()
	if after > before {
		slog.Info("Dietary constraints updated", "session_id", sessionID,
			"constraint_count", after)
	}

	return InputResult{TopicStatus: verdict, SimilarityScore: score}, nil
}

// CheckOutput validates one candidate LLM response for a session.
//
// The session's constraints are snapshotted once; a concurrent
// CheckInput for the same session does not change the constraints this
// validation sees. Every finding is written to the audit sink; sink
// failures are logged and never fail the check.
func (g *Manager) CheckOutput(ctx context.Context, response, sessionID string) validate.Result {
	ctx, span := tracer.Start(ctx, "Manager.CheckOutput")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	var userConstraints constraints.Set
	if sess := g.lookupSession(sessionID); sess != nil {
		userConstraints = sess.snapshot()
	}

	var errs []validate.Error
	for _, v := range g.validators {
		errs = append(errs, v.Validate(response, g.index, userConstraints)...)
	}
	span.SetAttributes(attribute.Int("guardrails.error_count", len(errs)))

	for _, e := range errs {
		if e.Severity == validate.SeverityCritical {
			slog.Warn("Critical validation finding", "session_id", sessionID,
				"error_type", e.Type, "message", e.Message)
			g.record(ctx, audit.NewCriticalBlock(sessionID, e.Type, e.Message, e.Details))
		} else {
			slog.Info("Validation finding", "session_id", sessionID,
				"error_type", e.Type, "severity", e.Severity)
			g.record(ctx, audit.NewOutputError(sessionID, e.Type, string(e.Severity),
				e.Message, e.Details, response))
		}
	}

	return validate.Result{Valid: len(errs) == 0, Errors: errs}
}

// SessionConstraints returns the session's accumulated dietary
// constraints, sorted. Unknown sessions return an empty slice.
func (g *Manager) SessionConstraints(sessionID string) []string {
	sess := g.lookupSession(sessionID)
	if sess == nil {
		return []string{}
	}
	return sess.snapshot().Sorted()
}

// ResetSession discards all state for a session. Resetting an unknown
// session is a no-op.
func (g *Manager) ResetSession(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.sessions, sessionID)
	slog.Info("Session reset", "session_id", sessionID)
}

// Summary returns a copy of the process-wide topic gate counters.
func (g *Manager) Summary() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats
}

// Thresholds exposes the classifier's bands for diagnostics.
func (g *Manager) Thresholds() (offTopic, clarify float64) {
	return g.classifier.Thresholds()
}

func (g *Manager) getSession(sessionID string) *session {
	g.mu.Lock()
	defer g.mu.Unlock()
	sess, ok := g.sessions[sessionID]
	if !ok {
		sess = &session{constraints: constraints.NewSet()}
		g.sessions[sessionID] = sess
	}
	return sess
}

func (g *Manager) lookupSession(sessionID string) *session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessions[sessionID]
}

func (g *Manager) recordVerdict(verdict topic.Verdict) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stats.TotalQueries++
	switch verdict {
	case topic.VerdictOnTopic:
		g.stats.OnTopic++
	case topic.VerdictOffTopic:
		g.stats.OffTopic++
	case topic.VerdictClarify:
		g.stats.Clarify++
	}
}

func (g *Manager) record(ctx context.Context, event audit.Event) {
	if err := g.sink.Record(ctx, event); err != nil {
		slog.Warn("Failed to record audit event", "type", event.Type, "error", err)
	}
}
