// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package menu provides the restaurant menu model and the lookup index the
// output validators run against.
//
// The menu is loaded once at startup from YAML (embedded sample or external
// file), validated, and compiled into an Index. The Index is read-only for
// the lifetime of the process.
package menu

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/AleutianAI/MenuGuard/services/guardrails/lexicon"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// priceCapturePattern is appended to the escaped dish name when compiling
// per-dish price patterns. It allows up to 50 filler characters between the
// dish name and the price (no digits, '$', or newlines), an optional '$',
// and captures the decimal price digits.
const priceCapturePattern = `(?:[^$0-9\n]{0,50})\$?(\d+\.\d{2})`

// =============================================================================
// Menu Model
// =============================================================================

// Dish is a single menu item. Price is the authoritative value enforced by
// the price validator; Allergens must be canonical lexicon tags.
type Dish struct {
	Name       string   `yaml:"name" json:"name" validate:"required"`
	Price      float64  `yaml:"price" json:"price" validate:"gt=0"`
	Vegetarian bool     `yaml:"vegetarian" json:"vegetarian"`
	Allergens  []string `yaml:"allergens" json:"allergens"`
	Spicy      bool     `yaml:"spicy" json:"spicy"`
}

// Category groups dishes under a menu section such as "mains".
type Category struct {
	Name   string `yaml:"name" validate:"required"`
	Dishes []Dish `yaml:"dishes" validate:"required,min=1,dive"`
}

// Menu is the full restaurant menu.
type Menu struct {
	Categories []Category `yaml:"categories" validate:"required,min=1,dive"`
}

// menuValidate is the validator instance for menu documents.
var menuValidate = validator.New()

// Load parses and validates the embedded sample menu.
func Load() (*Menu, error) {
	return Parse(EmbeddedSampleMenu)
}

// LoadFile parses and validates a menu from an external YAML file.
func LoadFile(path string) (*Menu, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read menu file %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid menu file %s: %w", path, err)
	}
	return m, nil
}

// Parse builds a Menu from raw YAML bytes and validates its structure.
func Parse(data []byte) (*Menu, error) {
	var m Menu
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the menu: %w", err)
	}
	if err := menuValidate.Struct(&m); err != nil {
		return nil, fmt.Errorf("menu failed validation: %w", err)
	}
	return &m, nil
}

// SystemPrompt renders the assistant system prompt with the full menu.
//
// The instructions prioritize accuracy and short, screen-reader friendly
// answers; the guardrail pipeline still re-checks every response.
func (m *Menu) SystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a helpful restaurant ordering assistant designed for visually impaired users.\n")
	b.WriteString("You help users browse the menu, understand dishes, check prices, handle dietary restrictions, and place orders.\n\n")
	b.WriteString("MENU:\n")

	for _, cat := range m.Categories {
		fmt.Fprintf(&b, "\n%s:\n", strings.ToUpper(cat.Name))
		for _, d := range cat.Dishes {
			fmt.Fprintf(&b, "  - %s: $%.2f", d.Name, d.Price)
			var notes []string
			if d.Vegetarian {
				notes = append(notes, "vegetarian")
			}
			if d.Spicy {
				notes = append(notes, "spicy")
			}
			if len(d.Allergens) > 0 {
				notes = append(notes, "allergens: "+strings.Join(d.Allergens, ", "))
			}
			if len(notes) > 0 {
				fmt.Fprintf(&b, " (%s)", strings.Join(notes, "; "))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(`
IMPORTANT INSTRUCTIONS:
1. ONLY provide information from the menu above. Never make up dishes, prices, or allergen information.
2. If asked about a dish not on the menu, clearly state it's not available.
3. Be precise about prices - use the exact prices from the menu.
4. Take allergies and dietary restrictions VERY seriously - always provide accurate allergen information.
5. Be conversational and friendly, but prioritize accuracy over creativity.

ACCESSIBILITY REQUIREMENTS (CRITICAL - users will hear responses):
6. Keep responses SHORT - 1-3 sentences preferred.
7. Put the MOST IMPORTANT information FIRST (price, allergens, availability).
8. Use SIMPLE, DIRECT language - avoid elaborate descriptions.
9. For yes/no questions, answer directly first, then explain briefly if needed.

Your goal is to help users confidently order food that meets their needs QUICKLY and CLEARLY.
`)
	return b.String()
}

// =============================================================================
// Index
// =============================================================================

// Entry is one indexed dish with its precompiled matching state.
type Entry struct {
	Dish      *Dish
	NameLower string

	pricePattern *regexp.Regexp
	allergens    map[string]struct{}
}

// PricePattern returns the compiled per-dish price pattern.
func (e *Entry) PricePattern() *regexp.Regexp {
	return e.pricePattern
}

// HasAllergen reports whether the dish carries the given canonical tag.
func (e *Entry) HasAllergen(tag string) bool {
	_, ok := e.allergens[tag]
	return ok
}

// Index maps lower-cased dish names to dishes for O(1) lookups.
//
// Entries preserve menu declaration order so validators and logs are
// deterministic. The Index is built once and read-only afterwards.
type Index struct {
	entries []*Entry
	byName  map[string]*Entry
}

// NewIndex flattens a menu into an Index.
//
// It fails fast on duplicate dish names (the menu source must guarantee
// uniqueness across categories) and on allergen tags unknown to the
// lexicon, and compiles the per-dish price pattern for each entry.
func NewIndex(m *Menu, lex *lexicon.Lexicon) (*Index, error) {
	ix := &Index{byName: make(map[string]*Entry)}

	for ci := range m.Categories {
		cat := &m.Categories[ci]
		for di := range cat.Dishes {
			dish := &cat.Dishes[di]
			nameLower := strings.ToLower(dish.Name)
			if _, dup := ix.byName[nameLower]; dup {
				return nil, fmt.Errorf("duplicate dish name %q in menu", dish.Name)
			}

			allergens := make(map[string]struct{}, len(dish.Allergens))
			for _, tag := range dish.Allergens {
				tag = strings.ToLower(tag)
				if !lex.IsTag(tag) {
					return nil, fmt.Errorf("dish %q declares unknown allergen tag %q",
						dish.Name, tag)
				}
				allergens[tag] = struct{}{}
			}

			pattern, err := regexp.Compile("(?i)" + regexp.QuoteMeta(nameLower) + priceCapturePattern)
			if err != nil {
				return nil, fmt.Errorf("failed to compile price pattern for %q: %w",
					dish.Name, err)
			}

			entry := &Entry{
				Dish:         dish,
				NameLower:    nameLower,
				pricePattern: pattern,
				allergens:    allergens,
			}
			ix.entries = append(ix.entries, entry)
			ix.byName[nameLower] = entry
		}
	}

	return ix, nil
}

// Lookup finds a dish by name. The name is lower-cased before lookup.
func (ix *Index) Lookup(name string) (*Entry, bool) {
	e, ok := ix.byName[strings.ToLower(name)]
	return e, ok
}

// Entries returns the indexed dishes in menu declaration order.
func (ix *Index) Entries() []*Entry {
	return ix.entries
}

// Len returns the number of indexed dishes.
func (ix *Index) Len() int {
	return len(ix.entries)
}
