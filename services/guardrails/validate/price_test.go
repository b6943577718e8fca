// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validate

import (
	"testing"

	"github.com/AleutianAI/MenuGuard/services/guardrails/lexicon"
	"github.com/AleutianAI/MenuGuard/services/guardrails/menu"
)

func testIndex(t *testing.T) *menu.Index {
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
	return ix
}

func TestPriceValidator_CorrectPrice(t *testing.T) {
	v := NewPriceValidator()
	ix := testIndex(t)

	tests := []string{
		"The Pad Thai costs $13.99 and is quite spicy.",
		"Margherita Pizza is $12.99.",
		"pad thai is 13.99",
		"We have Pad Thai on the menu.",           // no price stated
		"Our menu includes many great dishes.",    // no dish mentioned
		"The Pad Thai is great.\nIt costs $9.99.", // newline breaks proximity
	}
	for _, text := range tests {
		if errs := v.Validate(text, ix, nil); len(errs) != 0 {
			t.Errorf("Validate(%q) = %v, want no findings", text, errs)
		}
	}
}

func TestPriceValidator_IncorrectPrice(t *testing.T) {
	v := NewPriceValidator()
	ix := testIndex(t)

	errs := v.Validate("The Pad Thai costs $10.50 today.", ix, nil)
	if len(errs) != 1 {
		t.Fatalf("expected 1 finding, got %d: %v", len(errs), errs)
	}

	e := errs[0]
	if e.Type != ErrTypeIncorrectPrice {
		t.Errorf("finding type = %q, want %q", e.Type, ErrTypeIncorrectPrice)
	}
	if e.Severity != SeverityHigh {
		t.Errorf("finding severity = %q, want %q", e.Severity, SeverityHigh)
	}
	if !e.Correctable() {
		t.Fatal("price finding must carry a correction")
	}
	if e.OriginalText != "Pad Thai costs $10.50" {
		t.Errorf("original text = %q, want %q", e.OriginalText, "Pad Thai costs $10.50")
	}
	if e.CorrectedText != "Pad Thai costs $13.99" {
		t.Errorf("corrected text = %q, want %q", e.CorrectedText, "Pad Thai costs $13.99")
	}
	if e.Details["stated_price"] != 10.50 || e.Details["actual_price"] != 13.99 {
		t.Errorf("details = %v, want stated 10.50 actual 13.99", e.Details)
	}
}

func TestPriceValidator_DollarSignOptional(t *testing.T) {
	v := NewPriceValidator()
	ix := testIndex(t)

	errs := v.Validate("Garlic Bread is 3.49, a steal!", ix, nil)
	if len(errs) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(errs))
	}
	if errs[0].CorrectedText != "Garlic Bread is 4.99" {
		t.Errorf("corrected text = %q, want %q", errs[0].CorrectedText, "Garlic Bread is 4.99")
	}
}

func TestPriceValidator_Tolerance(t *testing.T) {
	v := NewPriceValidator()
	ix := testIndex(t)

	// Exactly at the menu price: inside tolerance, no finding.
	if errs := v.Validate("Ice Cream is $4.99", ix, nil); len(errs) != 0 {
		t.Errorf("expected no findings at exact price, got %v", errs)
	}
	// One cent off: outside tolerance.
	if errs := v.Validate("Ice Cream is $4.98", ix, nil); len(errs) != 1 {
		t.Errorf("expected 1 finding one cent off, got %v", errs)
	}
}

func TestPriceValidator_FillerWindow(t *testing.T) {
	v := NewPriceValidator()
	ix := testIndex(t)

	// Filler within 50 chars still associates dish and price.
	errs := v.Validate("Pad Thai, our most popular spicy noodle dish, is $10.00", ix, nil)
	if len(errs) != 1 {
		t.Fatalf("expected 1 finding within filler window, got %d", len(errs))
	}

	// Beyond 50 filler characters the price is not attributed to the dish.
	long := "Pad Thai is wonderful and everyone at the restaurant really loves eating it all the time; anyway something costs $10.00"
	if errs := v.Validate(long, ix, nil); len(errs) != 0 {
		t.Errorf("expected no findings past filler window, got %v", errs)
	}
}

func TestPriceValidator_MultipleDishes(t *testing.T) {
	v := NewPriceValidator()
	ix := testIndex(t)

	errs := v.Validate("Spring Rolls are $5.00 and Coffee is $2.49.", ix, nil)
	if len(errs) != 1 {
		t.Fatalf("expected 1 finding, got %d: %v", len(errs), errs)
	}
	if errs[0].Details["dish"] != "Spring Rolls" {
		t.Errorf("finding dish = %v, want Spring Rolls", errs[0].Details["dish"])
	}
}

func TestPriceValidator_RepeatedMention(t *testing.T) {
	v := NewPriceValidator()
	ix := testIndex(t)

	errs := v.Validate("Coffee is $1.99. Later: Coffee is $3.00.", ix, nil)
	if len(errs) != 2 {
		t.Fatalf("expected 2 findings for two wrong statements, got %d", len(errs))
	}
}
