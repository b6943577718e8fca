// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
This file bridges the build system and the runtime lexicon. It uses the Go
embed package to bake allergen_lexicon.yaml directly into the compiled binary,
so the safety vocabulary is immutable at runtime and travels with the
executable.
*/

package lexicon

import (
	_ "embed"
)

// EmbeddedLexicon holds the raw byte content of 'allergen_lexicon.yaml'.
//
// Populated at compile time via the Go 'embed' directive. Baking the YAML
// into the binary ensures the allergen vocabulary cannot be tampered with
// on the host filesystem without recompiling the application.
//
//go:embed allergen_lexicon.yaml
var EmbeddedLexicon []byte
