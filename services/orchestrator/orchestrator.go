// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orchestrator provides the core orchestrator service for MenuGuard.
//
// This package contains the main service type that coordinates all
// components: HTTP routing, LLM and embedding clients, the guardrail
// pipeline, the audit sink, and observability infrastructure.
//
// # Usage
//
//	cfg := orchestrator.Config{Port: 12220, LLMBackend: "ollama"}
//	svc, err := orchestrator.New(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/MenuGuard/services/guardrails"
	"github.com/AleutianAI/MenuGuard/services/guardrails/audit"
	"github.com/AleutianAI/MenuGuard/services/guardrails/lexicon"
	"github.com/AleutianAI/MenuGuard/services/guardrails/menu"
	"github.com/AleutianAI/MenuGuard/services/guardrails/topic"
	"github.com/AleutianAI/MenuGuard/services/llm"
	"github.com/AleutianAI/MenuGuard/services/orchestrator/observability"
	"github.com/AleutianAI/MenuGuard/services/orchestrator/routes"
	"github.com/AleutianAI/MenuGuard/services/orchestrator/ttl"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the orchestrator service.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and should
// only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	// Callers must not modify routes after construction.
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds orchestrator configuration options.
//
// All fields are optional; New() applies defaults for zero values.
type Config struct {
	// Port is the HTTP server port. Default: 12220
	Port int

	// LLMBackend specifies the LLM provider.
	// Valid values: "ollama", "openai"
	// Default: "ollama"
	LLMBackend string

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "menuguard-otel-collector:4317"
	OTelEndpoint string

	// EnableMetrics enables the Prometheus metrics endpoint.
	// Default: true
	EnableMetrics bool

	// GinMode sets the Gin framework mode.
	// Valid values: "debug", "release", "test"
	// Default: uses GIN_MODE env var or "debug"
	GinMode string

	// MenuPath is the path to a menu YAML file. When empty, the
	// embedded sample menu is used.
	MenuPath string

	// AuditLogPath is the path to the guardrail audit log file.
	// Default: "./logs/guardrails.log"
	AuditLogPath string

	// OffTopicThreshold overrides the topic gate's off-topic band.
	// Default: topic.DefaultOffTopicThreshold
	OffTopicThreshold float64

	// ClarifyThreshold overrides the topic gate's clarify band.
	// Default: topic.DefaultClarifyThreshold
	ClarifyThreshold float64

	// APIKey gates the /v1 API when non-empty. Clients send it as
	// "Authorization: Bearer <key>". Default: "" (no authentication)
	APIKey string

	// SessionIdleTimeout is how long a chat session may go unused
	// before the sweeper reclaims it. Default: 30 minutes
	SessionIdleTimeout time.Duration

	// SessionSweepInterval is how often the sweeper runs.
	// Default: 5 minutes
	SessionSweepInterval time.Duration
}

// Options injects alternative implementations, primarily for testing.
type Options struct {
	// AuditSink replaces the file-backed audit sink.
	AuditSink audit.Sink

	// LLMClient replaces the backend-selected chat client.
	LLMClient llm.LLMClient

	// Embedder replaces the backend-selected embedding client.
	Embedder llm.Embedder
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// Thread-safe after construction; all fields are read-only after New()
// returns.
type service struct {
	config        Config
	router        *gin.Engine
	llmClient     llm.LLMClient
	embedder      llm.Embedder
	hub           *guardrails.ChatHub
	sink          audit.Sink
	sweeper       *ttl.Sweeper
	tracerCleanup func(context.Context)
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a new orchestrator Service with the given configuration.
//
// # Description
//
// New initializes all components:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing
//  3. Initializes Prometheus metrics
//  4. Creates the LLM and embedding clients for the chosen backend
//  5. Loads the menu, lexicon, and menu index
//  6. Builds the topic classifier (embeds the prototype set once)
//  7. Opens the audit sink and builds the guardrail manager
//  8. Sets up HTTP routes
//
// A dead embedding backend is fatal: the topic gate cannot run without
// prototype embeddings, and starting without the gate would let every
// query through unchecked.
//
// # Inputs
//
//   - cfg: Service configuration. Zero values use defaults.
//   - opts: Alternative implementations for testing. May be nil.
//
// # Outputs
//
//   - Service: Ready-to-run orchestrator service
//   - error: Non-nil if initialization fails
func New(cfg Config, opts *Options) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}
	if opts == nil {
		opts = &Options{}
	}

	// Initialize OpenTelemetry tracer
	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	// Initialize Prometheus metrics
	if s.config.EnableMetrics && observability.DefaultMetrics == nil {
		observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics for guardrails")
	}

	// Initialize LLM and embedding clients
	if err := s.initLLMClient(opts); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	// Initialize the guardrail pipeline
	if err := s.initGuardrails(opts); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize guardrails: %w", err)
	}

	// Setup HTTP router
	s.initRouter()

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.cleanup()

	if err := s.sweeper.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start session sweeper: %w", err)
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting orchestrator server", "port", s.config.Port)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12220
	}
	if cfg.LLMBackend == "" {
		cfg.LLMBackend = "ollama"
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "menuguard-otel-collector:4317"
	}
	// EnableMetrics defaults to true (zero value is false, so we need explicit check)
	cfg.EnableMetrics = true

	if cfg.AuditLogPath == "" {
		cfg.AuditLogPath = "./logs/guardrails.log"
	}
	if cfg.OffTopicThreshold == 0 {
		cfg.OffTopicThreshold = topic.DefaultOffTopicThreshold
	}
	if cfg.ClarifyThreshold == 0 {
		cfg.ClarifyThreshold = topic.DefaultClarifyThreshold
	}

	return cfg
}

// initTracer initializes OpenTelemetry distributed tracing.
//
// Uses an insecure gRPC connection, appropriate for internal networks.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("menuguard-service")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initLLMClient initializes the LLM and embedding clients.
//
// Both backends implement chat and embeddings, so one client serves
// both roles unless opts overrides them separately.
func (s *service) initLLMClient(opts *Options) error {
	s.llmClient = opts.LLMClient
	s.embedder = opts.Embedder
	if s.llmClient != nil && s.embedder != nil {
		return nil
	}

	switch s.config.LLMBackend {
	case "openai":
		client, err := llm.NewOpenAIClient()
		if err != nil {
			return err
		}
		if s.llmClient == nil {
			s.llmClient = client
		}
		if s.embedder == nil {
			s.embedder = client
		}
		slog.Info("Using OpenAI LLM backend")
	case "ollama":
		client, err := llm.NewOllamaClient()
		if err != nil {
			return err
		}
		if s.llmClient == nil {
			s.llmClient = client
		}
		if s.embedder == nil {
			s.embedder = client
		}
		slog.Info("Using Ollama LLM backend")
	default:
		return fmt.Errorf("unknown LLM backend: %s", s.config.LLMBackend)
	}

	return nil
}

// initGuardrails loads the menu, builds the topic classifier, opens the
// audit sink, and assembles the guardrail manager and chat hub.
func (s *service) initGuardrails(opts *Options) error {
	lex, err := lexicon.NewLexicon()
	if err != nil {
		return fmt.Errorf("failed to load allergen lexicon: %w", err)
	}

	var m *menu.Menu
	if s.config.MenuPath != "" {
		m, err = menu.LoadFile(s.config.MenuPath)
		slog.Info("Loaded menu from file", "path", s.config.MenuPath)
	} else {
		m, err = menu.Load()
		slog.Info("Loaded embedded sample menu")
	}
	if err != nil {
		return fmt.Errorf("failed to load menu: %w", err)
	}

	ix, err := menu.NewIndex(m, lex)
	if err != nil {
		return fmt.Errorf("failed to build menu index: %w", err)
	}

	classifier, err := topic.NewClassifier(context.Background(), s.embedder, topic.Config{
		OffTopicThreshold: s.config.OffTopicThreshold,
		ClarifyThreshold:  s.config.ClarifyThreshold,
	})
	if err != nil {
		return fmt.Errorf("failed to build topic classifier: %w", err)
	}

	s.sink = opts.AuditSink
	if s.sink == nil {
		fileSink, err := audit.NewFileSink(s.config.AuditLogPath)
		if err != nil {
			return fmt.Errorf("failed to open audit log: %w", err)
		}
		s.sink = fileSink
		slog.Info("Guardrail audit log opened", "path", s.config.AuditLogPath)
	}

	mgr, err := guardrails.NewManager(ix, lex, classifier, s.sink)
	if err != nil {
		return fmt.Errorf("failed to build guardrail manager: %w", err)
	}
	s.hub = guardrails.NewChatHub(s.llmClient, mgr, m)
	s.sweeper = ttl.NewSweeper(s.hub, ttl.Config{
		Interval:    s.config.SessionSweepInterval,
		IdleTimeout: s.config.SessionIdleTimeout,
	})

	offTopic, clarify := mgr.Thresholds()
	slog.Info("Guardrail pipeline ready", "dishes", ix.Len(),
		"off_topic_threshold", offTopic, "clarify_threshold", clarify)

	return nil
}

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("menuguard-service"))

	routes.SetupRoutes(s.router, s.hub, s.config.EnableMetrics, s.config.APIKey)
}

// cleanup releases all resources held by the service.
func (s *service) cleanup() {
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	if s.sink != nil {
		if err := s.sink.Close(); err != nil {
			slog.Warn("Audit sink close error", "error", err)
		}
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
