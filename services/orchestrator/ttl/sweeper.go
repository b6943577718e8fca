// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ttl reclaims abandoned chat sessions.
//
// Sessions accumulate guardrail constraints and conversation history in
// memory for as long as they live. The sweeper periodically removes
// sessions that have been idle past a configured timeout, bounding
// memory growth on long-running servers.
package ttl

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// =============================================================================
// Store Contract
// =============================================================================

// SessionStore is the slice of the chat hub the sweeper needs.
type SessionStore interface {
	// IdleSessions returns IDs of sessions not used since cutoff.
	IdleSessions(cutoff time.Time) []string

	// Remove drops a session and its guardrail state. Returns false
	// when the session is unknown (already removed).
	Remove(sessionID string) bool

	// Len returns the number of live sessions.
	Len() int
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds sweeper configuration.
type Config struct {
	// Interval between sweep cycles. Default: 5 minutes
	Interval time.Duration

	// IdleTimeout is how long a session may go unused before it is
	// reclaimed. Default: 30 minutes
	IdleTimeout time.Duration
}

// applyDefaults fills in zero values.
func (c Config) applyDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Minute
	}
	return c
}

// =============================================================================
// Sweeper
// =============================================================================

// SweepResult summarizes one sweep cycle.
type SweepResult struct {
	// Expired is the number of sessions removed this cycle.
	Expired int

	// Remaining is the number of live sessions after the sweep.
	Remaining int
}

// Sweeper periodically expires idle sessions from a SessionStore.
//
// The sweeper uses the ticker + done channel pattern for graceful
// shutdown. Only one sweeper should run per store. All methods are
// safe for concurrent use.
type Sweeper struct {
	store  SessionStore
	config Config

	mu      sync.Mutex
	done    chan struct{}
	running bool
}

// NewSweeper creates a sweeper for the given store. Zero config fields
// use defaults.
func NewSweeper(store SessionStore, cfg Config) *Sweeper {
	return &Sweeper{
		store:  store,
		config: cfg.applyDefaults(),
		done:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
//
// Returns an error if the sweeper is already running. The loop stops
// when Stop() is called or the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("sweeper is already running")
	}
	s.running = true
	s.done = make(chan struct{}) // Reset done channel for potential restart
	s.mu.Unlock()

	slog.Info("Session sweeper starting",
		"interval", s.config.Interval.String(),
		"idle_timeout", s.config.IdleTimeout.String(),
	)

	go s.runLoop(ctx)
	return nil
}

// Stop signals the sweep loop to exit. Safe to call multiple times.
// Does not interrupt an in-progress sweep.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	slog.Info("Session sweeper stopping")
	close(s.done)
	s.running = false
}

// RunNow performs one sweep cycle immediately.
func (s *Sweeper) RunNow(ctx context.Context) SweepResult {
	cutoff := time.Now().Add(-s.config.IdleTimeout)
	idle := s.store.IdleSessions(cutoff)

	result := SweepResult{}
	for _, id := range idle {
		if ctx.Err() != nil {
			break
		}
		if s.store.Remove(id) {
			result.Expired++
			slog.Debug("ttl.sweeper: expired idle session", "session_id", id)
		}
	}
	result.Remaining = s.store.Len()

	if result.Expired > 0 {
		slog.Info("ttl.sweeper: sweep complete",
			"expired", result.Expired,
			"remaining", result.Remaining,
		)
	}
	return result
}

// runLoop is the sweeper goroutine.
func (s *Sweeper) runLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunNow(ctx)
		case <-s.done:
			return
		case <-ctx.Done():
			s.Stop()
			return
		}
	}
}
