// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package topic classifies user input as on-topic, clarify, or off-topic
// using embedding similarity against prototype on-topic utterances.
package topic

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("menuguard.guardrails.topic")

// Default similarity thresholds. Scores below OffTopic block the input;
// scores in [OffTopic, Clarify) ask the user to rephrase.
const (
	DefaultOffTopicThreshold = 0.40
	DefaultClarifyThreshold  = 0.48
)

// Verdict is the tri-state classification of a user input.
type Verdict string

const (
	VerdictOffTopic Verdict = "off_topic"
	VerdictClarify  Verdict = "clarify"
	VerdictOnTopic  Verdict = "on_topic"
)

// DefaultPrototypes are the on-topic utterances the classifier compares
// user input against. They cover menu inquiry, recommendations, prices,
// allergies, dietary preferences, comparisons, and order management.
var DefaultPrototypes = []string{
	// Menu inquiry
	"What dishes are on the menu?",
	"Show me the menu.",
	"What kind of food is available here?",
	"What do you have?",

	// Recommendation
	"Can you recommend something to eat?",
	"What's the most popular item?",
	"Help me choose what to order.",
	"What would you recommend?",
	"I need help ordering.",

	// Price
	"How much is the pasta?",
	"Which dishes are under ten dollars?",
	"What's the cheapest dish?",
	"How much does that cost?",

	// Allergy
	"I'm allergic to peanuts.",
	"Which dishes are nut-free?",
	"Is this gluten-free?",
	"Does this contain dairy?",

	// Dietary preferences
	"I'm vegetarian.",
	"Show me something spicy.",
	"Give me something not too spicy.",
	"Do you have vegan options?",

	// Comparison
	"Which is better, the beef burger or the chicken burger?",
	"Compare the spicy tofu and the mild one.",

	// Order management and confirmation
	"I want the pizza.",
	"I'll take that.",
	"That sounds great.",
	"I'd like to order.",
	"Can I get the burger?",
}

// Embedder produces vector embeddings in a shared semantic space.
//
// Both LLM backends implement this; tests supply fakes.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
}

// Config configures a Classifier. Zero values use defaults.
type Config struct {
	// OffTopicThreshold is the score below which input is off-topic.
	OffTopicThreshold float64

	// ClarifyThreshold is the score below which input needs clarification.
	// Must be strictly greater than OffTopicThreshold.
	ClarifyThreshold float64

	// Prototypes overrides DefaultPrototypes when non-empty.
	Prototypes []string
}

// Classifier scores user input against cached prototype embeddings.
//
// Prototype embeddings are computed once at construction and never change
// afterwards, so Classify is safe for concurrent use.
type Classifier struct {
	embedder   Embedder
	prototypes []string
	vectors    [][]float32
	offTopic   float64
	clarify    float64
}

// NewClassifier embeds the prototypes and returns a ready Classifier.
//
// Construction fails if the thresholds are not strictly ordered
// (off-topic < clarify) or if the embedding backend is unavailable.
// Callers should treat a construction error as fatal: without the
// classifier there is no input guardrail.
func NewClassifier(ctx context.Context, embedder Embedder, cfg Config) (*Classifier, error) {
	if embedder == nil {
		return nil, fmt.Errorf("topic classifier requires an embedder")
	}
	if cfg.OffTopicThreshold == 0 {
		cfg.OffTopicThreshold = DefaultOffTopicThreshold
	}
	if cfg.ClarifyThreshold == 0 {
		cfg.ClarifyThreshold = DefaultClarifyThreshold
	}
	if cfg.OffTopicThreshold >= cfg.ClarifyThreshold {
		return nil, fmt.Errorf("off-topic threshold %.3f must be below clarify threshold %.3f",
			cfg.OffTopicThreshold, cfg.ClarifyThreshold)
	}
	prototypes := cfg.Prototypes
	if len(prototypes) == 0 {
		prototypes = DefaultPrototypes
	}

	slog.Info("Embedding topic prototypes", "count", len(prototypes))
	vectors, err := embedder.BatchEmbed(ctx, prototypes)
	if err != nil {
		return nil, fmt.Errorf("failed to embed topic prototypes: %w", err)
	}
	if len(vectors) != len(prototypes) {
		return nil, fmt.Errorf("embedding backend returned %d vectors for %d prototypes",
			len(vectors), len(prototypes))
	}

	return &Classifier{
		embedder:   embedder,
		prototypes: prototypes,
		vectors:    vectors,
		offTopic:   cfg.OffTopicThreshold,
		clarify:    cfg.ClarifyThreshold,
	}, nil
}

// Classify embeds text and returns the verdict with the best similarity
// score against the prototype set.
//
// The score is the maximum cosine similarity across all prototypes. An
// error means the embedding backend failed; there is no verdict in that
// case and the caller must not treat the input as safe.
func (c *Classifier) Classify(ctx context.Context, text string) (Verdict, float64, error) {
	ctx, span := tracer.Start(ctx, "Classifier.Classify")
	defer span.End()

	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", 0, fmt.Errorf("failed to embed input: %w", err)
	}

	maxScore := math.Inf(-1)
	for _, proto := range c.vectors {
		if score := CosineSimilarity(vec, proto); score > maxScore {
			maxScore = score
		}
	}

	verdict := VerdictOnTopic
	switch {
	case maxScore < c.offTopic:
		verdict = VerdictOffTopic
	case maxScore < c.clarify:
		verdict = VerdictClarify
	}

	span.SetAttributes(
		attribute.String("topic.verdict", string(verdict)),
		attribute.Float64("topic.score", maxScore),
	)
	return verdict, maxScore, nil
}

// Thresholds returns the configured (offTopic, clarify) thresholds.
func (c *Classifier) Thresholds() (float64, float64) {
	return c.offTopic, c.clarify
}

// CosineSimilarity computes the cosine of the angle between two vectors,
// in [-1, 1]. Mismatched lengths or zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
