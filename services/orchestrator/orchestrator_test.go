// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/MenuGuard/services/guardrails/audit"
	"github.com/AleutianAI/MenuGuard/services/guardrails/topic"
	"github.com/AleutianAI/MenuGuard/services/llm"
	"github.com/AleutianAI/MenuGuard/services/orchestrator/datatypes"
)

// =============================================================================
// Test Setup
// =============================================================================

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

// =============================================================================
// Config Tests
// =============================================================================

// TestApplyConfigDefaults_AllDefaults verifies default values are applied.
func TestApplyConfigDefaults_AllDefaults(t *testing.T) {
	// Arrange
	cfg := Config{}

	// Act
	result := applyConfigDefaults(cfg)

	// Assert
	assert.Equal(t, 12220, result.Port, "default port should be 12220")
	assert.Equal(t, "ollama", result.LLMBackend, "default LLM backend should be ollama")
	assert.Equal(t, "menuguard-otel-collector:4317", result.OTelEndpoint,
		"default OTel endpoint should be menuguard-otel-collector:4317")
	assert.True(t, result.EnableMetrics, "metrics should be enabled by default")
	assert.Equal(t, "./logs/guardrails.log", result.AuditLogPath,
		"default audit log path should be under ./logs")
	assert.Equal(t, topic.DefaultOffTopicThreshold, result.OffTopicThreshold)
	assert.Equal(t, topic.DefaultClarifyThreshold, result.ClarifyThreshold)
}

// TestApplyConfigDefaults_PreservesCustomValues verifies custom values are not overwritten.
func TestApplyConfigDefaults_PreservesCustomValues(t *testing.T) {
	// Arrange
	cfg := Config{
		Port:              8080,
		LLMBackend:        "openai",
		OTelEndpoint:      "custom-collector:4317",
		AuditLogPath:      "/tmp/audit.log",
		OffTopicThreshold: 0.35,
		ClarifyThreshold:  0.55,
	}

	// Act
	result := applyConfigDefaults(cfg)

	// Assert
	assert.Equal(t, 8080, result.Port, "custom port should be preserved")
	assert.Equal(t, "openai", result.LLMBackend, "custom LLM backend should be preserved")
	assert.Equal(t, "custom-collector:4317", result.OTelEndpoint,
		"custom OTel endpoint should be preserved")
	assert.Equal(t, "/tmp/audit.log", result.AuditLogPath,
		"custom audit log path should be preserved")
	assert.Equal(t, 0.35, result.OffTopicThreshold)
	assert.Equal(t, 0.55, result.ClarifyThreshold)
}

// TestApplyConfigDefaults_TableDriven tests multiple config scenarios.
func TestApplyConfigDefaults_TableDriven(t *testing.T) {
	tests := []struct {
		name     string
		input    Config
		expected Config
	}{
		{
			name:  "empty config gets all defaults",
			input: Config{},
			expected: Config{
				Port:          12220,
				LLMBackend:    "ollama",
				OTelEndpoint:  "menuguard-otel-collector:4317",
				EnableMetrics: true,
			},
		},
		{
			name: "custom port preserved",
			input: Config{
				Port: 8080,
			},
			expected: Config{
				Port:          8080,
				LLMBackend:    "ollama",
				OTelEndpoint:  "menuguard-otel-collector:4317",
				EnableMetrics: true,
			},
		},
		{
			name: "custom backend preserved",
			input: Config{
				LLMBackend: "openai",
			},
			expected: Config{
				Port:          12220,
				LLMBackend:    "openai",
				OTelEndpoint:  "menuguard-otel-collector:4317",
				EnableMetrics: true,
			},
		},
		{
			name: "menu path preserved (no default)",
			input: Config{
				MenuPath: "./menus/dinner.yaml",
			},
			expected: Config{
				Port:          12220,
				LLMBackend:    "ollama",
				MenuPath:      "./menus/dinner.yaml",
				OTelEndpoint:  "menuguard-otel-collector:4317",
				EnableMetrics: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := applyConfigDefaults(tt.input)

			assert.Equal(t, tt.expected.Port, result.Port)
			assert.Equal(t, tt.expected.LLMBackend, result.LLMBackend)
			assert.Equal(t, tt.expected.MenuPath, result.MenuPath)
			assert.Equal(t, tt.expected.OTelEndpoint, result.OTelEndpoint)
			assert.Equal(t, tt.expected.EnableMetrics, result.EnableMetrics)
		})
	}
}

// =============================================================================
// Test Fixtures
// =============================================================================

// stubEmbedder scores any query against a single prototype axis.
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

// cannedLLM always answers with the same response.
type cannedLLM struct {
	response string
}

func (c *cannedLLM) Chat(ctx context.Context, messages []datatypes.Message,
	params llm.GenerationParams) (string, error) {

	return c.response, nil
}

func newTestService(t *testing.T, client llm.LLMClient, scores map[string]float64) Service {
	t.Helper()
	svc, err := New(Config{GinMode: gin.TestMode}, &Options{
		AuditSink: audit.NewBufferedSink(),
		LLMClient: client,
		Embedder:  &stubEmbedder{scores: scores},
	})
	require.NoError(t, err)
	return svc
}

// =============================================================================
// Constructor Tests
// =============================================================================

// TestNew_BuildsRouter verifies New wires the full route table.
func TestNew_BuildsRouter(t *testing.T) {
	svc := newTestService(t, &cannedLLM{response: "Hello!"}, nil)

	router := svc.Router()
	require.NotNil(t, router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

// TestNew_MetricsEndpointExposed verifies the Prometheus endpoint is routed.
func TestNew_MetricsEndpointExposed(t *testing.T) {
	svc := newTestService(t, &cannedLLM{response: "Hello!"}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	svc.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "menuguard_guardrails")
}

// TestNew_ChatEndToEnd drives a guarded chat turn through the real stack.
func TestNew_ChatEndToEnd(t *testing.T) {
	svc := newTestService(t,
		&cannedLLM{response: "The Pad Thai costs $13.99."},
		map[string]float64{"how much is the pad thai?": 0.9})

	body, _ := json.Marshal(datatypes.ChatRequest{Query: "how much is the pad thai?"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	svc.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Blocked)
	assert.Equal(t, "on_topic", resp.TopicStatus)
	assert.Equal(t, "The Pad Thai costs $13.99.", resp.Response)
	assert.NotEmpty(t, resp.SessionID)
}

// TestNew_APIKeyGatesV1 verifies the bearer key protects the API group.
func TestNew_APIKeyGatesV1(t *testing.T) {
	svc, err := New(Config{GinMode: gin.TestMode, APIKey: "top-secret"}, &Options{
		AuditSink: audit.NewBufferedSink(),
		LLMClient: &cannedLLM{response: "Hello!"},
		Embedder:  &stubEmbedder{},
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/stats", nil)
	svc.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "missing key should be rejected")

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/v1/stats", nil)
	req.Header.Set("Authorization", "Bearer top-secret")
	svc.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "valid key should pass")

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/health", nil)
	svc.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "health stays open")
}

// TestNew_UnknownBackendFails verifies an invalid backend is rejected.
func TestNew_UnknownBackendFails(t *testing.T) {
	_, err := New(Config{LLMBackend: "mystery", GinMode: gin.TestMode}, &Options{
		AuditSink: audit.NewBufferedSink(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown LLM backend")
}

// =============================================================================
// Interface Compliance Tests
// =============================================================================

// TestServiceImplementsInterface verifies interface compliance.
func TestServiceImplementsInterface(t *testing.T) {
	// The actual check is: var _ Service = (*service)(nil)
	var svc Service
	_ = svc
}
