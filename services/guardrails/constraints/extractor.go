// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package constraints extracts allergen constraints from user messages.
//
// The extractor is rule-based keyword matching over the lexicon vocabulary.
// Constraints are cumulative: once a session declares an allergen it is
// never removed by extraction, only by an explicit session reset. There is
// no negation handling ("I'm not allergic to soy" still adds soy).
package constraints

import (
	"sort"
	"strings"

	"github.com/AleutianAI/MenuGuard/services/guardrails/lexicon"
)

// Set is a set of canonical allergen tags.
type Set map[string]struct{}

// NewSet builds a Set from canonical tags.
func NewSet(tags ...string) Set {
	s := make(Set, len(tags))
	for _, tag := range tags {
		s[tag] = struct{}{}
	}
	return s
}

// Has reports whether the set contains the tag.
func (s Set) Has(tag string) bool {
	_, ok := s[tag]
	return ok
}

// Clone returns an independent copy of the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for tag := range s {
		out[tag] = struct{}{}
	}
	return out
}

// Equal reports whether two sets contain the same tags.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for tag := range s {
		if !other.Has(tag) {
			return false
		}
	}
	return true
}

// Sorted returns the tags in sorted order for deterministic output.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for tag := range s {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Extractor derives allergen constraints from free text.
//
// Extractor is stateless and safe for concurrent use; session state lives
// with the caller.
type Extractor struct {
	lex *lexicon.Lexicon
}

// NewExtractor creates an Extractor over the given vocabulary.
func NewExtractor(lex *lexicon.Lexicon) *Extractor {
	return &Extractor{lex: lex}
}

// Extract returns the union of current constraints and any allergen
// keywords found in text. The input set is never mutated.
//
// Matching is intentionally simple: the text is lower-cased, '.' and ','
// are replaced with spaces, and each whitespace token is checked against
// the canonical tags and synonyms. Substrings inside larger words do not
// match ("nutso" does not add nuts).
func (e *Extractor) Extract(text string, current Set) Set {
	updated := current.Clone()

	cleaned := strings.NewReplacer(".", " ", ",", " ").Replace(strings.ToLower(text))
	for _, word := range strings.Fields(cleaned) {
		if tag, ok := e.lex.Canonical(word); ok {
			updated[tag] = struct{}{}
		}
	}
	return updated
}
