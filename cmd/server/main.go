package main

import (
	"context"
	"convoflow-backend/internal/api"
	"convoflow-backend/internal/chat"
	"convoflow-backend/internal/config"
	"convoflow-backend/internal/handlers"
	"convoflow-backend/internal/llm"
	"convoflow-backend/internal/services"
	"convoflow-backend/internal/store/postgres"
	"convoflow-backend/internal/tools"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	log.Println("Starting ConvoFlow Backend...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Initialize Database Connection Pool
	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second) // Timeout for initial connection
	defer dbCancel()

	dbpool, err := pgxpool.New(dbCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Unable to create database connection pool: %v\n", err)
	}
	defer dbpool.Close() // Ensure pool is closed on exit

	// Ping DB to verify connection
	if err := dbpool.Ping(dbCtx); err != nil {
		log.Fatalf("FATAL: Unable to ping database: %v\n", err)
	}
	log.Println("Database connection pool established and pinged successfully.")

	// 3. Initialize Dependencies (Store, Provider, Services, Handlers)
	pgStore := postgres.NewPostgresStore(dbpool)
	log.Println("Postgres store initialized.")

	provider, err := llm.NewAnthropicProvider(llm.AnthropicConfig{
		APIKey:       cfg.AnthropicAPIKey,
		DefaultModel: cfg.ChatModel,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to create model provider: %v", err)
	}
	log.Printf("Model provider initialized: %s", provider.Name())

	toolRegistry := tools.DefaultRegistry()
	log.Println("Tool registry initialized.")

	titles := chat.NewSynthesizer(provider, cfg.TitleModel)
	orchestrator := chat.NewOrchestrator(pgStore, provider, toolRegistry, titles, chat.OrchestratorConfig{
		ChatModel:      cfg.ChatModel,
		ReasoningModel: cfg.ReasoningModel,
		ArtifactModel:  cfg.ArtifactModel,
		MaxToolSteps:   cfg.MaxToolSteps,
	})
	log.Println("Turn orchestrator initialized.")

	// --- Initialize Services ---
	authService := services.NewAuthService(pgStore, cfg)
	log.Println("AuthService initialized.")
	snippetService := services.NewSnippetService(pgStore, titles)
	log.Println("SnippetService initialized.")

	// --- Initialize Handlers ---
	authHandler := handlers.NewAuthHandler(authService)
	log.Println("AuthHandler initialized.")
	chatHandler := handlers.NewChatHandler(orchestrator, pgStore, cfg.TurnTimeout)
	log.Println("ChatHandler initialized.")
	snippetHandler := handlers.NewSnippetHandler(snippetService)
	log.Println("SnippetHandler initialized.")

	// 4. Setup Router & Inject Dependencies
	routerDeps := api.RouterDependencies{
		AuthHandler:    authHandler,
		ChatHandler:    chatHandler,
		SnippetHandler: snippetHandler,
		Config:         cfg,
	}
	router := api.NewRouter(routerDeps)
	log.Println("HTTP router configured.")

	// 5. Configure and Start HTTP Server
	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
		// WriteTimeout must outlast the longest streaming turn, which holds
		// the response open for up to the turn timeout.
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.TurnTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Channel to listen for OS signals for graceful shutdown
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	// Run server in a goroutine so it doesn't block
	go func() {
		log.Printf("Server starting and listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: Could not listen on %s: %v\n", cfg.HTTPPort, err)
		}
		log.Println("Server listener routine stopped.")
	}()

	// Wait for interrupt signal
	<-stopChan
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	// Create a deadline context for shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Server graceful shutdown failed: %v", err)
		log.Fatal("Forcing shutdown due to error.")
	}

	log.Println("Server shutdown complete.")
}
