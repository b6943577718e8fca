// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command orchestrator starts the MenuGuard orchestrator HTTP server.
//
// This is the entry point for the containerized service. It reads
// configuration from environment variables and starts the server.
// The cobra CLI (cmd/menuguard) is the richer front door for local use.
//
// # Environment Variables
//
//   - ORCHESTRATOR_PORT: HTTP server port (default: 12220)
//   - LLM_BACKEND_TYPE: LLM provider - ollama, openai (default: ollama)
//   - OLLAMA_BASE_URL: Ollama endpoint, required for the ollama backend
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP collector (default: menuguard-otel-collector:4317)
//   - MENU_PATH: External menu YAML file (default: embedded sample menu)
//   - GUARDRAIL_AUDIT_LOG: Audit log path (default: ./logs/guardrails.log)
//   - MENUGUARD_API_KEY: Bearer key gating /v1 (default: no authentication)
//   - GIN_MODE: Gin framework mode (debug, release, test)
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/AleutianAI/MenuGuard/services/orchestrator"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := orchestrator.Config{
		LLMBackend:   os.Getenv("LLM_BACKEND_TYPE"),
		OTelEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		GinMode:      os.Getenv("GIN_MODE"),
		MenuPath:     os.Getenv("MENU_PATH"),
		AuditLogPath: os.Getenv("GUARDRAIL_AUDIT_LOG"),
		APIKey:       os.Getenv("MENUGUARD_API_KEY"),
	}
	if port := os.Getenv("ORCHESTRATOR_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			log.Fatalf("invalid ORCHESTRATOR_PORT %q: %v", port, err)
		}
		cfg.Port = p
	}

	svc, err := orchestrator.New(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to initialize the orchestrator: %v", err)
	}
	if err := svc.Run(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
