// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/MenuGuard/services/guardrails/lexicon"
	"github.com/AleutianAI/MenuGuard/services/guardrails/menu"
)

func loadMenu() (*menu.Menu, error) {
	if menuPath != "" {
		return menu.LoadFile(menuPath)
	}
	return menu.Load()
}

// runMenuShow prints the menu the way the assistant sees it.
func runMenuShow(cmd *cobra.Command, args []string) {
	m, err := loadMenu()
	if err != nil {
		log.Fatalf("Failed to load menu: %v", err)
	}

	for _, cat := range m.Categories {
		fmt.Printf("%s:\n", strings.ToUpper(cat.Name))
		for _, d := range cat.Dishes {
			fmt.Printf("  %-24s $%6.2f", d.Name, d.Price)
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
				fmt.Printf("  (%s)", strings.Join(notes, "; "))
			}
			fmt.Println()
		}
		fmt.Println()
	}
}

// runMenuVerify builds the validator index and reports what it enforces.
//
// This is the same construction path the server uses, so a menu that
// passes here will load at startup.
func runMenuVerify(cmd *cobra.Command, args []string) {
	lex, err := lexicon.NewLexicon()
	if err != nil {
		log.Fatalf("Failed to load allergen lexicon: %v", err)
	}

	m, err := loadMenu()
	if err != nil {
		log.Fatalf("Menu failed validation: %v", err)
	}

	ix, err := menu.NewIndex(m, lex)
	if err != nil {
		log.Fatalf("Menu failed indexing: %v", err)
	}

	withAllergens := 0
	for _, e := range ix.Entries() {
		if len(e.Dish.Allergens) > 0 {
			withAllergens++
		}
	}

	fmt.Println("Menu OK.")
	fmt.Printf("  Dishes indexed:        %d\n", ix.Len())
	fmt.Printf("  Price checks active:   %d\n", ix.Len())
	fmt.Printf("  Dishes with allergens: %d\n", withAllergens)
	fmt.Printf("  Known allergen tags:   %s\n", strings.Join(lex.Tags(), ", "))
}
