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
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/MenuGuard/services/orchestrator"
)

// runServe builds the orchestrator service from flags and environment
// and blocks serving HTTP.
//
// Flags win over environment variables; both fall back to the
// orchestrator defaults.
func runServe(cmd *cobra.Command, args []string) {
	cfg := orchestrator.Config{
		Port:         serverPort,
		LLMBackend:   backendType,
		OTelEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		GinMode:      ginMode,
		MenuPath:     menuPath,
		AuditLogPath: auditLogPath,
		APIKey:       os.Getenv("MENUGUARD_API_KEY"),
	}
	if cfg.LLMBackend == "" {
		cfg.LLMBackend = os.Getenv("LLM_BACKEND_TYPE")
	}
	if cfg.MenuPath == "" {
		cfg.MenuPath = os.Getenv("MENU_PATH")
	}
	if cfg.AuditLogPath == "" {
		cfg.AuditLogPath = os.Getenv("GUARDRAIL_AUDIT_LOG")
	}

	svc, err := orchestrator.New(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to initialize the orchestrator: %v", err)
	}
	if err := svc.Run(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
