// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validate

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/MenuGuard/services/guardrails/constraints"
	"github.com/AleutianAI/MenuGuard/services/guardrails/lexicon"
	"github.com/AleutianAI/MenuGuard/services/guardrails/menu"
)

// AllergenValidator blocks responses that endanger a user with declared
// allergen constraints or that misstate a dish's allergen content.
//
// It raises two kinds of critical findings:
//
//  1. unsafe_recommendation: the response mentions a dish containing an
//     allergen the user declared. Any mention counts, even a warning.
//  2. allergen_misinformation: the response claims absence of an allergen
//     the mentioned dish actually contains, regardless of user constraints.
//
// Findings are always critical and never carry a correction; safety
// failures are blocked, not repaired.
type AllergenValidator struct {
	lex *lexicon.Lexicon
}

// NewAllergenValidator creates an AllergenValidator over the given
// vocabulary.
func NewAllergenValidator(lex *lexicon.Lexicon) *AllergenValidator {
	return &AllergenValidator{lex: lex}
}

// Validate checks every dish mentioned in text for constraint violations
// and false absence claims.
func (v *AllergenValidator) Validate(text string, ix *menu.Index, userConstraints constraints.Set) []Error {
	var errs []Error
	textLower := strings.ToLower(text)

	for _, entry := range ix.Entries() {
		if !strings.Contains(textLower, entry.NameLower) {
			continue
		}

		// Constraint violation: mentioning the dish at all is unsafe.
		var violating []string
		for _, tag := range userConstraints.Sorted() {
			if entry.HasAllergen(tag) {
				violating = append(violating, tag)
			}
		}
		if len(violating) > 0 {
			errs = append(errs, Error{
				Type:     ErrTypeUnsafeRecommendation,
				Severity: SeverityCritical,
				Message: fmt.Sprintf("SAFETY BLOCK: user is allergic to %s, but response mentioned '%s' which contains them",
					strings.Join(violating, ", "), entry.Dish.Name),
				Details: map[string]any{
					"dish":                entry.Dish.Name,
					"violating_allergens": violating,
					"user_constraints":    userConstraints.Sorted(),
				},
			})
			// Already blocked for this dish; skip the false-claim check.
			continue
		}

		// False absence claims, checked for every allergen the dish
		// actually contains. Session constraints are irrelevant here.
		for _, allergen := range v.lex.Allergens() {
			if !entry.HasAllergen(allergen.Tag) {
				continue
			}
			for _, re := range v.lex.AbsencePatterns(allergen.Tag) {
				if re.MatchString(textLower) {
					errs = append(errs, Error{
						Type:     ErrTypeAllergenMisinformation,
						Severity: SeverityCritical,
						Message: fmt.Sprintf("SAFETY ALERT: '%s' contains %s, but response suggests it might be %s-free",
							entry.Dish.Name, allergen.Tag, allergen.Tag),
						Details: map[string]any{
							"dish":                entry.Dish.Name,
							"allergen_found":      allergen.Tag,
							"conflicting_segment": strings.TrimSpace(text),
						},
					})
					// One false claim per allergen is enough.
					break
				}
			}
		}
	}

	return errs
}

var _ Validator = (*AllergenValidator)(nil)
