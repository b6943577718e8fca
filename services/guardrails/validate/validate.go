// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validate checks assistant output against the menu before it
// reaches the user.
//
// Validators are deterministic and return findings, never errors: the
// absence of a match is simply the absence of a finding. Severity decides
// downstream policy - critical findings block, high findings may be
// auto-corrected when the validator supplies a correction.
package validate

import (
	"github.com/AleutianAI/MenuGuard/services/guardrails/constraints"
	"github.com/AleutianAI/MenuGuard/services/guardrails/menu"
)

// Severity classifies how dangerous a finding is.
type Severity string

const (
	// SeverityCritical findings are safety hazards and always block.
	SeverityCritical Severity = "critical"

	// SeverityHigh findings are factually wrong but not life-threatening.
	SeverityHigh Severity = "high"

	// SeverityMedium findings are cosmetic inaccuracies.
	SeverityMedium Severity = "medium"
)

// Finding types emitted by the built-in validators.
const (
	ErrTypeIncorrectPrice         = "incorrect_price"
	ErrTypeUnsafeRecommendation   = "unsafe_recommendation"
	ErrTypeAllergenMisinformation = "allergen_misinformation"
)

// Error is a single validation finding.
//
// OriginalText and CorrectedText are either both set (the finding is
// auto-correctable by literal substitution) or both empty. Safety-critical
// findings never carry a correction.
type Error struct {
	Type          string         `json:"error_type"`
	Severity      Severity       `json:"severity"`
	Message       string         `json:"message"`
	Details       map[string]any `json:"details,omitempty"`
	OriginalText  string         `json:"original_text,omitempty"`
	CorrectedText string         `json:"corrected_text,omitempty"`
}

// Correctable reports whether the finding carries a substitution pair.
func (e *Error) Correctable() bool {
	return e.OriginalText != "" && e.CorrectedText != ""
}

// Result aggregates the findings of all validators for one response.
type Result struct {
	Valid  bool    `json:"is_valid"`
	Errors []Error `json:"errors,omitempty"`
}

// CriticalErrors returns the findings with critical severity.
func (r *Result) CriticalErrors() []Error {
	var out []Error
	for _, e := range r.Errors {
		if e.Severity == SeverityCritical {
			out = append(out, e)
		}
	}
	return out
}

// Validator is the contract for all output validators.
//
// Implementations must be stateless with respect to sessions: everything
// session-specific arrives through userConstraints. Validators that do not
// care about constraints ignore the argument.
type Validator interface {
	Validate(text string, ix *menu.Index, userConstraints constraints.Set) []Error
}
