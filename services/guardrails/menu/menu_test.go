// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package menu

import (
	"strings"
	"testing"

	"github.com/AleutianAI/MenuGuard/services/guardrails/lexicon"
)

func mustLexicon(t *testing.T) *lexicon.Lexicon {
	t.Helper()
	lex, err := lexicon.NewLexicon()
	if err != nil {
		t.Fatalf("lexicon.NewLexicon() returned error: %v", err)
	}
	return lex
}

func TestLoad_EmbeddedSample(t *testing.T) {
	m, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if len(m.Categories) != 4 {
		t.Errorf("expected 4 categories, got %d", len(m.Categories))
	}

	ix, err := NewIndex(m, mustLexicon(t))
	if err != nil {
		t.Fatalf("NewIndex() returned error: %v", err)
	}
	if ix.Len() != 16 {
		t.Errorf("expected 16 indexed dishes, got %d", ix.Len())
	}
}

func TestIndex_Lookup(t *testing.T) {
	m, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	ix, err := NewIndex(m, mustLexicon(t))
	if err != nil {
		t.Fatalf("NewIndex() returned error: %v", err)
	}

	entry, ok := ix.Lookup("Pad Thai")
	if !ok {
		t.Fatal("expected Pad Thai in index")
	}
	if entry.Dish.Price != 13.99 {
		t.Errorf("Pad Thai price = %v, want 13.99", entry.Dish.Price)
	}
	if !entry.HasAllergen("peanuts") || !entry.HasAllergen("shellfish") || !entry.HasAllergen("gluten") {
		t.Errorf("Pad Thai allergens incomplete: %v", entry.Dish.Allergens)
	}
	if entry.HasAllergen("dairy") {
		t.Error("Pad Thai should not carry dairy")
	}

	// Lookup is case-insensitive.
	if _, ok := ix.Lookup("pad thai"); !ok {
		t.Error("expected case-insensitive lookup for pad thai")
	}
	if _, ok := ix.Lookup("PAD THAI"); !ok {
		t.Error("expected case-insensitive lookup for PAD THAI")
	}

	if _, ok := ix.Lookup("Sushi Platter"); ok {
		t.Error("did not expect Sushi Platter in index")
	}
}

func TestNewIndex_DuplicateDish(t *testing.T) {
	doc := `
categories:
  - name: mains
    dishes:
      - {name: Beef Burger, price: 14.99}
  - name: specials
    dishes:
      - {name: beef burger, price: 9.99}
`
	m, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() returned error: %v", err)
	}
	if _, err := NewIndex(m, mustLexicon(t)); err == nil {
		t.Error("expected duplicate dish name error, got nil")
	}
}

func TestNewIndex_UnknownAllergen(t *testing.T) {
	doc := `
categories:
  - name: mains
    dishes:
      - {name: Mystery Stew, price: 9.99, allergens: [plutonium]}
`
	m, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() returned error: %v", err)
	}
	if _, err := NewIndex(m, mustLexicon(t)); err == nil {
		t.Error("expected unknown allergen tag error, got nil")
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed yaml", "categories: [unclosed"},
		{"no categories", "categories: []"},
		{"empty category", "categories:\n  - name: mains\n    dishes: []"},
		{"missing name", "categories:\n  - name: mains\n    dishes:\n      - {price: 9.99}"},
		{"zero price", "categories:\n  - name: mains\n    dishes:\n      - {name: Soup, price: 0}"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.doc)); err == nil {
				t.Errorf("Parse(%s) expected error, got nil", tc.name)
			}
		})
	}
}

func TestSystemPrompt(t *testing.T) {
	m, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	prompt := m.SystemPrompt()

	for _, want := range []string{
		"MAINS:",
		"Pad Thai: $13.99",
		"allergens: peanuts, shellfish, gluten",
		"ONLY provide information from the menu above",
		"Keep responses SHORT",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

func TestPricePattern(t *testing.T) {
	m, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	ix, err := NewIndex(m, mustLexicon(t))
	if err != nil {
		t.Fatalf("NewIndex() returned error: %v", err)
	}
	entry, _ := ix.Lookup("Pad Thai")

	tests := []struct {
		text      string
		wantPrice string
	}{
		{"Pad Thai costs $13.99 today", "13.99"},
		{"pad thai is only 10.50", "10.50"},
		{"The Pad Thai, a spicy noodle favorite, is $13.99", "13.99"},
		{"Pad Thai\n$13.99", ""},
		{"Pad Thai is spicy", ""},
	}
	for _, tc := range tests {
		m := entry.PricePattern().FindStringSubmatch(tc.text)
		got := ""
		if m != nil {
			got = m[1]
		}
		if got != tc.wantPrice {
			t.Errorf("price capture in %q = %q, want %q", tc.text, got, tc.wantPrice)
		}
	}
}
