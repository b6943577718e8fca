// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package menu

import (
	_ "embed"
)

// EmbeddedSampleMenu holds the raw byte content of 'sample_menu.yaml'.
//
// Used when no external menu file is configured, so the service and the
// demo CLI work out of the box.
//
//go:embed sample_menu.yaml
var EmbeddedSampleMenu []byte
