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
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/MenuGuard/services/guardrails"
	"github.com/AleutianAI/MenuGuard/services/guardrails/audit"
	"github.com/AleutianAI/MenuGuard/services/guardrails/lexicon"
	"github.com/AleutianAI/MenuGuard/services/guardrails/menu"
	"github.com/AleutianAI/MenuGuard/services/guardrails/topic"
	"github.com/AleutianAI/MenuGuard/services/llm"
)

// buildLLMClient resolves the chat backend from the flag or environment.
func buildLLMClient() (llm.LLMClient, llm.Embedder, error) {
	backend := backendType
	if backend == "" {
		backend = os.Getenv("LLM_BACKEND_TYPE")
	}

	switch backend {
	case "openai":
		client, err := llm.NewOpenAIClient()
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil
	case "", "ollama":
		client, err := llm.NewOllamaClient()
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil
	default:
		return nil, nil, fmt.Errorf("unknown LLM backend: %s", backend)
	}
}

// buildChatStack assembles a local guardrail pipeline for the CLI,
// without going through the HTTP server.
func buildChatStack(ctx context.Context) (*guardrails.Chat, *guardrails.Manager, func(), error) {
	client, embedder, err := buildLLMClient()
	if err != nil {
		return nil, nil, nil, err
	}

	lex, err := lexicon.NewLexicon()
	if err != nil {
		return nil, nil, nil, err
	}

	var m *menu.Menu
	if menuPath != "" {
		m, err = menu.LoadFile(menuPath)
	} else {
		m, err = menu.Load()
	}
	if err != nil {
		return nil, nil, nil, err
	}

	ix, err := menu.NewIndex(m, lex)
	if err != nil {
		return nil, nil, nil, err
	}

	classifier, err := topic.NewClassifier(ctx, embedder, topic.Config{})
	if err != nil {
		return nil, nil, nil, err
	}

	logPath := auditLogPath
	if logPath == "" {
		logPath = "./logs/guardrails.log"
	}
	sink, err := audit.NewFileSink(logPath)
	if err != nil {
		return nil, nil, nil, err
	}

	mgr, err := guardrails.NewManager(ix, lex, classifier, sink)
	if err != nil {
		sink.Close()
		return nil, nil, nil, err
	}

	chat, err := guardrails.NewChat(client, mgr, m, "")
	if err != nil {
		sink.Close()
		return nil, nil, nil, err
	}

	cleanup := func() { sink.Close() }
	return chat, mgr, cleanup, nil
}

// runChatCommand drives the interactive guarded chat loop.
//
// Special inputs: "quit"/"exit" leave the session, "stats" prints the
// topic gate counters, "reset" starts a new session, "guardrails"
// toggles the pipeline on and off for comparison.
func runChatCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	chat, mgr, cleanup, err := buildChatStack(ctx)
	if err != nil {
		log.Fatalf("Failed to build the guardrail pipeline: %v", err)
	}
	defer cleanup()

	guardrailsOn := !skipGuardrails

	fmt.Println("MenuGuard interactive chat.")
	fmt.Printf("Session: %s\n", chat.SessionID())
	fmt.Println("Commands: quit, stats, reset, guardrails (toggle)")
	fmt.Println("---")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}

		switch strings.ToLower(query) {
		case "quit", "exit":
			fmt.Println("Goodbye!")
			return
		case "stats":
			printStats(mgr, chat.SessionID())
			continue
		case "reset":
			newID := chat.Reset()
			fmt.Printf("Session reset. New session: %s\n", newID)
			continue
		case "guardrails":
			guardrailsOn = !guardrailsOn
			if guardrailsOn {
				fmt.Println("Guardrails ON")
			} else {
				fmt.Println("Guardrails OFF (responses are unchecked)")
			}
			continue
		}

		result, err := chat.ProcessQuery(ctx, query, !guardrailsOn)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			fmt.Printf("Error: %v\n", err)
			continue
		}

		switch {
		case result.Blocked:
			fmt.Printf("Assistant [BLOCKED]: %s\n", result.Response)
		case result.Corrected:
			fmt.Printf("Assistant [corrected]: %s\n", result.Response)
		default:
			fmt.Printf("Assistant: %s\n", result.Response)
		}
	}
}

func printStats(mgr *guardrails.Manager, sessionID string) {
	stats := mgr.Summary()
	fmt.Println("--- Guardrail stats ---")
	fmt.Printf("Total queries: %d\n", stats.TotalQueries)
	fmt.Printf("On-topic:      %d (%.1f%%)\n", stats.OnTopic, stats.OnTopicRate()*100)
	fmt.Printf("Clarify:       %d (%.1f%%)\n", stats.Clarify, stats.ClarifyRate()*100)
	fmt.Printf("Off-topic:     %d (%.1f%%)\n", stats.OffTopic, stats.OffTopicRate()*100)
	if constraints := mgr.SessionConstraints(sessionID); len(constraints) > 0 {
		fmt.Printf("Session constraints: %s\n", strings.Join(constraints, ", "))
	}
}
