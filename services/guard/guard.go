// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package guard provides the repetition guard service.
//
// This package contains the main service type that coordinates the
// per-stream guard registry, HTTP routing, and observability
// infrastructure. Inference engines call the service once per
// scheduling step with the new token IDs of each active stream; a
// triggered response means the stream should be aborted.
//
// # Usage
//
//	cfg := guard.Config{Port: 12260}
//	svc, err := guard.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package guard

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

	"github.com/AleutianAI/repguard/pkg/repguard"
	"github.com/AleutianAI/repguard/services/guard/middleware"
	"github.com/AleutianAI/repguard/services/guard/observability"
	"github.com/AleutianAI/repguard/services/guard/registry"
	"github.com/AleutianAI/repguard/services/guard/routes"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the guard service.
//
// # Description
//
// Service abstracts the guard service lifecycle, enabling testing and
// alternative implementations. The interface follows the minimal surface
// area principle - only essential lifecycle methods are exposed.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and should
// only be called once per instance.
//
// # Limitations
//
//   - No graceful shutdown method yet (planned for future)
//   - Run() blocks until server error
//
// # Assumptions
//
//   - Service is fully initialized before Run() is called
//   - Run() is called at most once per Service instance
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine

	// Registry returns the stream registry for in-process embedding.
	Registry() *registry.Registry
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds guard service configuration options.
//
// # Description
//
// Config centralizes all configuration for the guard service. Values can
// be populated from environment variables, config files, or
// programmatically for testing.
//
// # Required Fields
//
// None - all fields have sensible defaults.
//
// # Examples
//
//	// Minimal config (uses all defaults)
//	cfg := Config{}
//
//	// Custom port and detector tuning
//	cfg := Config{
//	    Port:  8080,
//	    Guard: repguard.Config{BufferSize: 2048, MaxTokenRep: 48},
//	}
type Config struct {
	// Port is the HTTP server port. Default: 12260
	Port int

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "aleutian-otel-collector:4317"
	OTelEndpoint string

	// EnableMetrics enables the Prometheus metrics endpoint.
	// Default: true
	EnableMetrics bool

	// GinMode sets the Gin framework mode.
	// Valid values: "debug", "release", "test"
	// Default: uses GIN_MODE env var or "debug"
	GinMode string

	// RateLimitRPS caps per-client requests per second.
	// Default: 200
	RateLimitRPS float64

	// RateLimitBurst is the per-client burst allowance.
	// Default: 400
	RateLimitBurst int

	// Guard is the detector configuration shared by all streams.
	// Zero value uses repguard.DefaultConfig().
	Guard repguard.Config
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// # Thread Safety
//
// Thread-safe after construction. All fields are read-only after New()
// returns; per-stream state lives in the registry.
type service struct {
	config        Config
	router        *gin.Engine
	registry      *registry.Registry
	metrics       *observability.Metrics
	tracerCleanup func(context.Context)
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a new guard Service with the given configuration.
//
// # Description
//
// New initializes all service components:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing
//  3. Initializes Prometheus metrics
//  4. Creates the stream registry
//  5. Sets up HTTP routes
//
// # Inputs
//
//   - cfg: Service configuration. Zero values use defaults.
//
// # Outputs
//
//   - Service: Ready-to-run guard service
//   - error: Non-nil if initialization fails
//
// # Examples
//
//	svc, err := guard.New(guard.Config{Port: 12260})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
//
// # Assumptions
//
//   - OTel collector is reachable at the configured endpoint
func New(cfg Config) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	// Initialize OpenTelemetry tracer
	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	// Initialize Prometheus metrics
	if s.config.EnableMetrics {
		observability.InitMetrics()
		s.metrics = observability.DefaultMetrics
		slog.Info("Initialized Prometheus metrics for guard service")
	}

	// Initialize the stream registry
	s.registry, err = registry.New(s.config.Guard, s.metrics)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize registry: %w", err)
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

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting guard server",
		"port", s.config.Port,
		"buffer_size", s.config.Guard.BufferSize,
		"max_token_rep", s.config.Guard.MaxTokenRep,
	)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// Registry returns the stream registry for in-process embedding.
func (s *service) Registry() *registry.Registry {
	return s.registry
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12260
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "aleutian-otel-collector:4317"
	}
	cfg.EnableMetrics = true
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 200
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 400
	}
	if cfg.Guard == (repguard.Config{}) {
		cfg.Guard = repguard.DefaultConfig()
	}
	return cfg
}

// initTracer initializes OpenTelemetry distributed tracing.
//
// # Description
//
// Sets up OTLP trace exporter to send spans to the configured collector.
//
// # Outputs
//
//   - func(context.Context): Cleanup function to call on shutdown
//   - error: Non-nil if tracer setup fails
//
// # Limitations
//
//   - Uses insecure gRPC connection (appropriate for internal networks)
//
// # Assumptions
//
//   - OTel collector is reachable at configured endpoint
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
		resource.WithAttributes(semconv.ServiceNameKey.String("guard-service")))
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

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}

	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("guard-service"))
	s.router.Use(middleware.NewRateLimiter(
		s.config.RateLimitRPS, s.config.RateLimitBurst).Middleware())

	routes.SetupRoutes(s.router, s.registry, s.metrics)
}

// cleanup releases resources acquired during construction.
func (s *service) cleanup() {
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}
