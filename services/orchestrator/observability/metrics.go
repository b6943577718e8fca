// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and instrumentation for the orchestrator.
//
// # Description
//
// This package implements Prometheus metrics for monitoring the guardrail
// pipeline. Metrics include:
//   - Input gate verdict counters (on_topic, clarify, off_topic)
//   - Block counters by reason
//   - Validation finding counters by error type and severity
//   - Request counters and latency histograms per endpoint
//
// # Integration
//
// Metrics are exposed via /metrics endpoint. Use with Prometheus + Grafana
// for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "menuguard"

// Subsystem for guardrail metrics
const guardrailSubsystem = "guardrails"

// GuardrailMetrics holds all Prometheus metrics for the guardrail pipeline.
//
// # Description
//
// Provides counters and histograms for monitoring guardrail decisions and
// endpoint performance. Initialize once at startup via InitMetrics().
//
// # Thread Safety
//
// All operations are thread-safe.
type GuardrailMetrics struct {
	// InputChecksTotal counts input gate decisions.
	// Labels: verdict (on_topic, clarify, off_topic)
	InputChecksTotal *prometheus.CounterVec

	// BlocksTotal counts responses withheld from the user.
	// Labels: reason (off_topic, critical_error, low_confidence)
	BlocksTotal *prometheus.CounterVec

	// ValidationErrorsTotal counts output validation findings.
	// Labels: error_type (incorrect_price, unsafe_recommendation,
	// allergen_misinformation), severity (critical, high, medium)
	ValidationErrorsTotal *prometheus.CounterVec

	// CorrectionsTotal counts responses patched in place.
	CorrectionsTotal prometheus.Counter

	// RequestsTotal counts HTTP requests by endpoint and status.
	// Labels: endpoint (chat, input_check, output_check), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// RequestDurationSeconds measures end-to-end request latency.
	// Labels: endpoint
	RequestDurationSeconds *prometheus.HistogramVec
}

// DefaultMetrics is the singleton instance of GuardrailMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *GuardrailMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Should be called once
// at application startup, after Prometheus registry is available.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
func InitMetrics() *GuardrailMetrics {
	DefaultMetrics = &GuardrailMetrics{
		InputChecksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: guardrailSubsystem,
				Name:      "input_checks_total",
				Help:      "Total input gate decisions by verdict",
			},
			[]string{"verdict"},
		),

		BlocksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: guardrailSubsystem,
				Name:      "blocks_total",
				Help:      "Total responses withheld from the user by reason",
			},
			[]string{"reason"},
		),

		ValidationErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: guardrailSubsystem,
				Name:      "validation_errors_total",
				Help:      "Total output validation findings by type and severity",
			},
			[]string{"error_type", "severity"},
		),

		CorrectionsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: guardrailSubsystem,
				Name:      "corrections_total",
				Help:      "Total responses corrected in place",
			},
		),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: guardrailSubsystem,
				Name:      "requests_total",
				Help:      "Total HTTP requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		RequestDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: guardrailSubsystem,
				Name:      "request_duration_seconds",
				Help:      "End-to-end request latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"endpoint"},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Block Reasons
// =============================================================================

// BlockReason categorizes why a response was withheld.
type BlockReason string

const (
	// BlockReasonOffTopic indicates the input gate rejected the query.
	BlockReasonOffTopic BlockReason = "off_topic"

	// BlockReasonCriticalError indicates a safety-critical finding.
	BlockReasonCriticalError BlockReason = "critical_error"

	// BlockReasonLowConfidence indicates uncorrectable factual findings.
	BlockReasonLowConfidence BlockReason = "low_confidence"
)

// =============================================================================
// Endpoint Names
// =============================================================================

// Endpoint identifies an API endpoint for metrics labeling.
type Endpoint string

const (
	// EndpointChat is the guarded chat endpoint.
	EndpointChat Endpoint = "chat"

	// EndpointChatWS is the WebSocket chat endpoint.
	EndpointChatWS Endpoint = "chat_ws"

	// EndpointInputCheck is the standalone input gate endpoint.
	EndpointInputCheck Endpoint = "input_check"

	// EndpointOutputCheck is the standalone output validation endpoint.
	EndpointOutputCheck Endpoint = "output_check"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordInputCheck records one input gate decision.
func (m *GuardrailMetrics) RecordInputCheck(verdict string) {
	m.InputChecksTotal.WithLabelValues(verdict).Inc()
}

// RecordBlock records a withheld response.
func (m *GuardrailMetrics) RecordBlock(reason BlockReason) {
	m.BlocksTotal.WithLabelValues(string(reason)).Inc()
}

// RecordValidationError records one output validation finding.
func (m *GuardrailMetrics) RecordValidationError(errorType, severity string) {
	m.ValidationErrorsTotal.WithLabelValues(errorType, severity).Inc()
}

// RecordCorrection records an in-place response correction.
func (m *GuardrailMetrics) RecordCorrection() {
	m.CorrectionsTotal.Inc()
}

// RecordRequest records a completed HTTP request.
func (m *GuardrailMetrics) RecordRequest(endpoint Endpoint, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(string(endpoint), status).Inc()
}

// RecordRequestDuration records end-to-end request latency.
func (m *GuardrailMetrics) RecordRequestDuration(endpoint Endpoint, seconds float64) {
	m.RequestDurationSeconds.WithLabelValues(string(endpoint)).Observe(seconds)
}
