// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package topic

import (
	"context"
	"errors"
	"math"
	"testing"
)

// stubEmbedder returns fixed vectors keyed by text, or a fixed error.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (s *stubEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func TestNewClassifier_ThresholdInvariant(t *testing.T) {
	emb := &stubEmbedder{}
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{Prototypes: []string{"a"}}, false},
		{"custom ordered", Config{OffTopicThreshold: 0.3, ClarifyThreshold: 0.5, Prototypes: []string{"a"}}, false},
		{"equal thresholds", Config{OffTopicThreshold: 0.5, ClarifyThreshold: 0.5, Prototypes: []string{"a"}}, true},
		{"inverted thresholds", Config{OffTopicThreshold: 0.6, ClarifyThreshold: 0.4, Prototypes: []string{"a"}}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewClassifier(context.Background(), emb, tc.cfg)
			if (err != nil) != tc.wantErr {
				t.Errorf("NewClassifier() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestNewClassifier_EmbedderUnavailable(t *testing.T) {
	emb := &stubEmbedder{err: errors.New("connection refused")}
	if _, err := NewClassifier(context.Background(), emb, Config{}); err == nil {
		t.Error("expected construction to fail when embedding backend is down")
	}
}

func TestNewClassifier_NilEmbedder(t *testing.T) {
	if _, err := NewClassifier(context.Background(), nil, Config{}); err == nil {
		t.Error("expected construction to fail with nil embedder")
	}
}

func TestClassify_Banding(t *testing.T) {
	// One prototype along the x axis. Input vectors are rotated away from
	// it to produce exact cosine scores.
	vecForScore := func(score float64) []float32 {
		angle := math.Acos(score)
		return []float32{float32(math.Cos(angle)), float32(math.Sin(angle)), 0}
	}

	emb := &stubEmbedder{vectors: map[string][]float32{
		"proto":     {1, 0, 0},
		"identical": {1, 0, 0},
		"close":     vecForScore(0.60),
		"fuzzy":     vecForScore(0.44),
		"unrelated": vecForScore(0.10),
		"at-off":    vecForScore(0.40),
		"at-clar":   vecForScore(0.48),
	}}

	c, err := NewClassifier(context.Background(), emb, Config{Prototypes: []string{"proto"}})
	if err != nil {
		t.Fatalf("NewClassifier() returned error: %v", err)
	}

	tests := []struct {
		text string
		want Verdict
	}{
		{"identical", VerdictOnTopic},
		{"close", VerdictOnTopic},
		{"fuzzy", VerdictClarify},
		{"unrelated", VerdictOffTopic},
		// Boundary scores land in the upper band (strict less-than).
		{"at-off", VerdictClarify},
		{"at-clar", VerdictOnTopic},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			verdict, score, err := c.Classify(context.Background(), tc.text)
			if err != nil {
				t.Fatalf("Classify() returned error: %v", err)
			}
			if verdict != tc.want {
				t.Errorf("Classify(%q) = %q (score %.4f), want %q", tc.text, verdict, score, tc.want)
			}
		})
	}
}

func TestClassify_MaxAcrossPrototypes(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{
		"p1":    {1, 0, 0},
		"p2":    {0, 1, 0},
		"input": {0, 1, 0}, // orthogonal to p1, identical to p2
	}}
	c, err := NewClassifier(context.Background(), emb, Config{Prototypes: []string{"p1", "p2"}})
	if err != nil {
		t.Fatalf("NewClassifier() returned error: %v", err)
	}

	verdict, score, err := c.Classify(context.Background(), "input")
	if err != nil {
		t.Fatalf("Classify() returned error: %v", err)
	}
	if verdict != VerdictOnTopic || score < 0.999 {
		t.Errorf("Classify() = (%q, %.4f), want on_topic with score ~1", verdict, score)
	}
}

func TestClassify_EmbedFailure(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{"proto": {1, 0, 0}}}
	c, err := NewClassifier(context.Background(), emb, Config{Prototypes: []string{"proto"}})
	if err != nil {
		t.Fatalf("NewClassifier() returned error: %v", err)
	}

	emb.err = errors.New("backend down")
	if _, _, err := c.Classify(context.Background(), "anything"); err == nil {
		t.Error("expected Classify to propagate embedding failure")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"mismatched length", []float32{1, 0}, []float32{1}, 0.0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0.0},
		{"empty", nil, nil, 0.0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CosineSimilarity(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tc.want)
			}
		})
	}
}
