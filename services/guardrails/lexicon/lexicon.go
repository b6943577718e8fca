// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lexicon defines the canonical allergen vocabulary shared by the
// constraint extractor and the allergen validator.
//
// The vocabulary is loaded from an embedded YAML file and compiled once at
// startup. All regex patterns are validated at load time so a malformed
// lexicon fails fast instead of silently passing unsafe text.
package lexicon

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Allergen is one canonical allergen tag plus the regex patterns that
// indicate a claim of ABSENCE of that allergen in assistant output.
type Allergen struct {
	Tag             string   `yaml:"tag"`
	AbsencePatterns []string `yaml:"absence_patterns"`

	compiled []*regexp.Regexp
}

// lexiconFile mirrors the embedded YAML document.
type lexiconFile struct {
	Allergens []Allergen        `yaml:"allergens"`
	Synonyms  map[string]string `yaml:"synonyms"`
}

// Lexicon is the compiled allergen vocabulary.
//
// A Lexicon is immutable after construction and safe for concurrent use.
type Lexicon struct {
	allergens []Allergen
	tags      map[string]struct{}
	synonyms  map[string]string
}

// NewLexicon loads and compiles the embedded allergen vocabulary.
//
// It performs the following operations:
//  1. Unmarshals the embedded YAML data.
//  2. Compiles all absence-claim regex patterns (case-insensitive).
//  3. Verifies tags are unique and synonyms resolve to known tags.
//
// Returns an error if the embedded YAML is malformed, contains invalid
// regex, or references unknown tags.
func NewLexicon() (*Lexicon, error) {
	return Parse(EmbeddedLexicon)
}

// Parse builds a Lexicon from raw YAML bytes.
//
// Exposed separately from NewLexicon so tests can exercise malformed
// documents without touching the embedded copy.
func Parse(data []byte) (*Lexicon, error) {
	var file lexiconFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the allergen lexicon: %w", err)
	}
	if len(file.Allergens) == 0 {
		return nil, fmt.Errorf("allergen lexicon declares no allergens")
	}

	lex := &Lexicon{
		allergens: file.Allergens,
		tags:      make(map[string]struct{}, len(file.Allergens)),
		synonyms:  file.Synonyms,
	}
	if lex.synonyms == nil {
		lex.synonyms = map[string]string{}
	}

	for i := range lex.allergens {
		a := &lex.allergens[i]
		if a.Tag == "" {
			return nil, fmt.Errorf("allergen lexicon entry %d has an empty tag", i)
		}
		if _, dup := lex.tags[a.Tag]; dup {
			return nil, fmt.Errorf("duplicate allergen tag %q in lexicon", a.Tag)
		}
		lex.tags[a.Tag] = struct{}{}

		for _, pattern := range a.AbsencePatterns {
			re, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				return nil, fmt.Errorf("failed to compile absence pattern %q for %q: %w",
					pattern, a.Tag, err)
			}
			a.compiled = append(a.compiled, re)
		}
	}

	for word, tag := range lex.synonyms {
		if _, ok := lex.tags[tag]; !ok {
			return nil, fmt.Errorf("synonym %q maps to unknown allergen tag %q", word, tag)
		}
	}

	return lex, nil
}

// IsTag reports whether word is a canonical allergen tag.
func (l *Lexicon) IsTag(word string) bool {
	_, ok := l.tags[word]
	return ok
}

// Canonical resolves a word to its canonical allergen tag.
//
// Canonical tags resolve to themselves; synonyms resolve via the synonym
// map. The second return value is false when the word is not part of the
// vocabulary.
func (l *Lexicon) Canonical(word string) (string, bool) {
	if _, ok := l.tags[word]; ok {
		return word, true
	}
	if tag, ok := l.synonyms[word]; ok {
		return tag, true
	}
	return "", false
}

// AbsencePatterns returns the compiled absence-claim patterns for a tag.
//
// Returns nil for tags without patterns or unknown tags.
func (l *Lexicon) AbsencePatterns(tag string) []*regexp.Regexp {
	for i := range l.allergens {
		if l.allergens[i].Tag == tag {
			return l.allergens[i].compiled
		}
	}
	return nil
}

// Allergens returns the allergen entries in declaration order.
func (l *Lexicon) Allergens() []Allergen {
	return l.allergens
}

// Tags returns the canonical tags in declaration order.
func (l *Lexicon) Tags() []string {
	tags := make([]string, 0, len(l.allergens))
	for i := range l.allergens {
		tags = append(tags, l.allergens[i].Tag)
	}
	return tags
}
