package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/iarunsaragadam/isobox/api"
	"github.com/iarunsaragadam/isobox/auth"
	"github.com/iarunsaragadam/isobox/config"
	"github.com/iarunsaragadam/isobox/events"
	"github.com/iarunsaragadam/isobox/executor"
	"github.com/iarunsaragadam/isobox/middleware"
	"github.com/iarunsaragadam/isobox/pkg/metrics"
	"github.com/rs/cors"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// The container runtime is a hard requirement
	version, err := executor.ProbeRuntime(cfg.DockerBinary)
	if err != nil {
		log.Fatalf("Container runtime check failed: %v", err)
	}
	log.Printf("Container runtime available: %s", version)

	// Build the execution engine
	registry := executor.NewRegistry()
	workspaces := executor.NewWorkspaceManager(cfg.ScratchRoot)
	runner := executor.NewRunner()
	runner.Binary = cfg.DockerBinary
	engine := executor.New(registry, workspaces, runner, cfg.MaxConcurrentExecutions)
	log.Printf("Execution engine ready with %d languages", registry.Len())

	// Authentication and caches
	authService, err := auth.NewService(cfg)
	if err != nil {
		log.Fatalf("Failed to create auth service: %v", err)
	}
	log.Printf("Authentication strategy: %s", authService.StrategyName())

	dedup := auth.NewDedupCache(cfg.DedupEnabled, cfg.DedupTTL, cfg.DedupMaxEntries)

	// Optional event publishing
	publisher := events.NewPublisher(cfg.EventsEnabled, cfg.KafkaBrokers, cfg.KafkaEventsTopic)
	defer publisher.Close()
	if publisher.Enabled() {
		log.Printf("Publishing execution events to %s", cfg.KafkaEventsTopic)
	}

	// Create router and register routes
	handler := api.NewHandler(engine, authService, dedup, publisher)
	router := mux.NewRouter()
	handler.RegisterRoutes(router)
	metrics.SetupMetricsEndpoint(router)

	// Add middleware
	router.Use(middleware.Logging)
	router.Use(metrics.Middleware)
	router.Use(middleware.Auth(authService))

	// Add CORS middleware
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      corsMiddleware.Handler(router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server
	go func() {
		log.Printf("Starting isobox server on port %d", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Wait for termination signal
	sig := <-sigCh
	log.Printf("Received signal %v, shutting down...", sig)

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
}
