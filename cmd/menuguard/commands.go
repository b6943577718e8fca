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
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/MenuGuard/pkg/logging"
)

// --- Global Command Variables ---
var (
	backendType    string
	menuPath       string
	auditLogPath   string
	logDir         string
	serverPort     int
	ginMode        string
	skipGuardrails bool

	logger *logging.Logger

	rootCmd = &cobra.Command{
		Use:   "menuguard",
		Short: "A guarded restaurant-ordering assistant",
		Long: `MenuGuard wraps an LLM ordering assistant in a guardrail pipeline:
				a topic gate keeps conversations on the menu, a price validator
				corrects hallucinated prices, and an allergen validator blocks
				unsafe recommendations.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.New(logging.Config{
				Level:   logging.LevelInfo,
				LogDir:  logDir,
				Service: "cli",
			})
			slog.SetDefault(logger.Slog())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				logger.Close()
			}
		},
	}

	// --- Server ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the MenuGuard orchestrator HTTP server",
		Run:   runServe, // Defined in cmd_serve.go
	}

	// --- Chat ---
	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Starts an interactive guarded chat session",
		Run:   runChatCommand, // Defined in cmd_chat.go
	}

	// --- Menu ---
	menuCmd = &cobra.Command{
		Use:   "menu",
		Short: "Inspect the menu the guardrails are grounded on",
	}
	menuShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the menu with prices and allergens",
		Run:   runMenuShow, // Defined in cmd_menu.go
	}
	menuVerifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "Load the menu and report what the validators will enforce",
		Run:   runMenuVerify, // Defined in cmd_menu.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "",
		"Directory for JSON log files (disabled when empty)")
	rootCmd.PersistentFlags().StringVar(&menuPath, "menu", "",
		"Path to a menu YAML file (uses the embedded sample menu when empty)")

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "HTTP port (default 12220)")
	serveCmd.Flags().StringVar(&backendType, "backend", "",
		"LLM backend (ollama, openai). Default: ollama")
	serveCmd.Flags().StringVar(&auditLogPath, "audit-log", "",
		"Guardrail audit log path (default ./logs/guardrails.log)")
	serveCmd.Flags().StringVar(&ginMode, "gin-mode", "", "Gin mode (debug, release, test)")

	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&backendType, "backend", "",
		"LLM backend (ollama, openai). Default: ollama")
	chatCmd.Flags().StringVar(&auditLogPath, "audit-log", "",
		"Guardrail audit log path (default ./logs/guardrails.log)")
	chatCmd.Flags().BoolVar(&skipGuardrails, "no-guardrails", false,
		"Start with guardrails disabled (toggle with 'guardrails' in the session)")

	rootCmd.AddCommand(menuCmd)
	menuCmd.AddCommand(menuShowCmd)
	menuCmd.AddCommand(menuVerifyCmd)
}
