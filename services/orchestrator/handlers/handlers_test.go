// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/MenuGuard/services/guardrails"
	"github.com/AleutianAI/MenuGuard/services/guardrails/audit"
	"github.com/AleutianAI/MenuGuard/services/guardrails/lexicon"
	"github.com/AleutianAI/MenuGuard/services/guardrails/menu"
	"github.com/AleutianAI/MenuGuard/services/guardrails/topic"
	"github.com/AleutianAI/MenuGuard/services/llm"
	"github.com/AleutianAI/MenuGuard/services/orchestrator/datatypes"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// =============================================================================
// Test Fixtures
// =============================================================================

// stubEmbedder maps texts to unit vectors whose cosine against the
// prototype axis equals the configured score. Unknown texts score 0.
type stubEmbedder struct {
	scores map[string]float64
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	score := s.scores[text]
	return []float32{float32(score), float32(math.Sqrt(1 - score*score)), 0}, nil
}

func (s *stubEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

// fakeLLM replays canned responses in order.
type fakeLLM struct {
	responses []string
}

func (f *fakeLLM) Chat(ctx context.Context, messages []datatypes.Message,
	params llm.GenerationParams) (string, error) {

	if len(f.responses) == 0 {
		return "Happy to help with the menu!", nil
	}
	response := f.responses[0]
	f.responses = f.responses[1:]
	return response, nil
}

func getRequest(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", path, nil)
	router.ServeHTTP(w, req)
	return w
}

func deleteRequest(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", path, nil)
	router.ServeHTTP(w, req)
	return w
}

func newTestHub(t *testing.T, client llm.LLMClient, scores map[string]float64) *guardrails.ChatHub {
	t.Helper()
	lex, err := lexicon.NewLexicon()
	if err != nil {
		t.Fatalf("lexicon.NewLexicon() returned error: %v", err)
	}
	m, err := menu.Load()
	if err != nil {
		t.Fatalf("menu.Load() returned error: %v", err)
	}
	ix, err := menu.NewIndex(m, lex)
	if err != nil {
		t.Fatalf("menu.NewIndex() returned error: %v", err)
	}
	classifier, err := topic.NewClassifier(context.Background(),
		&stubEmbedder{scores: scores}, topic.Config{})
	if err != nil {
		t.Fatalf("topic.NewClassifier() returned error: %v", err)
	}
	mgr, err := guardrails.NewManager(ix, lex, classifier, audit.NewBufferedSink())
	if err != nil {
		t.Fatalf("guardrails.NewManager() returned error: %v", err)
	}
	return guardrails.NewChatHub(client, mgr, m)
}
