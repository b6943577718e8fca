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
	"math"
	"strconv"
	"strings"

	"github.com/AleutianAI/MenuGuard/services/guardrails/constraints"
	"github.com/AleutianAI/MenuGuard/services/guardrails/menu"
)

// priceTolerance absorbs float representation noise when comparing a
// stated price against the menu price.
const priceTolerance = 0.001

// PriceValidator verifies that any price stated near a dish name matches
// the official menu price.
//
// Findings are high severity and carry a correction: the matched segment
// with the stated price digits replaced by the actual price, so the caller
// can repair the response by literal substitution.
type PriceValidator struct{}

// NewPriceValidator creates a PriceValidator.
func NewPriceValidator() *PriceValidator {
	return &PriceValidator{}
}

// Validate scans text for dish-price statements and flags mismatches.
// User constraints are ignored; price accuracy is universal.
func (v *PriceValidator) Validate(text string, ix *menu.Index, _ constraints.Set) []Error {
	var errs []Error
	textLower := strings.ToLower(text)

	for _, entry := range ix.Entries() {
		if !strings.Contains(textLower, entry.NameLower) {
			continue
		}

		// The per-dish pattern is compiled at index build time. Matching
		// runs over the original text so corrections preserve casing.
		for _, match := range entry.PricePattern().FindAllStringSubmatch(text, -1) {
			fullMatch := match[0]
			statedStr := match[1]

			stated, err := strconv.ParseFloat(statedStr, 64)
			if err != nil {
				continue
			}
			actual := entry.Dish.Price
			if math.Abs(stated-actual) <= priceTolerance {
				continue
			}

			corrected := strings.ReplaceAll(fullMatch, statedStr,
				fmt.Sprintf("%.2f", actual))

			errs = append(errs, Error{
				Type:     ErrTypeIncorrectPrice,
				Severity: SeverityHigh,
				Message: fmt.Sprintf("Incorrect price for '%s': stated $%.2f, actual $%.2f",
					entry.Dish.Name, stated, actual),
				Details: map[string]any{
					"dish":         entry.Dish.Name,
					"stated_price": stated,
					"actual_price": actual,
				},
				OriginalText:  fullMatch,
				CorrectedText: corrected,
			})
		}
	}

	return errs
}

var _ Validator = (*PriceValidator)(nil)
