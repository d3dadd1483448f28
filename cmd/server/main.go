package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"tutor-backend/cmd"
	"tutor-backend/internal/api"
	"tutor-backend/internal/chat"
	"tutor-backend/internal/database"
	"tutor-backend/internal/index"
	"tutor-backend/internal/ingest"
	"tutor-backend/internal/llm"
)

type Config struct {
	Root           string        `env:"ROOT" envDefault:"./data"`
	Port           int           `env:"PORT" envDefault:"8000"`
	DatabaseURL    string        `env:"DATABASE_URL" envDefault:""`
	LLMBaseURL     string        `env:"LLM_BASE_URL" envDefault:"http://localhost:8080"`
	LLMModel       string        `env:"LLM_MODEL" envDefault:"LLaMA_CPP"`
	LLMTimeout     time.Duration `env:"LLM_TIMEOUT" envDefault:"5m"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000"`
	ChunkSize      int           `env:"CHUNK_SIZE" envDefault:"256"`
	ChunkOverlap   int           `env:"CHUNK_OVERLAP" envDefault:"5"`
}

func main() {
	log.Println("Starting API Server...")

	cmd.LoadEnvFile()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	databaseURL := cfg.DatabaseURL
	if databaseURL == "" {
		databaseURL = filepath.Join(cfg.Root, "db", "tutor.db")
	}

	db, err := database.Connect(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	llmService := llm.NewOpenAIService(cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMTimeout)
	embedder := index.NewLlamafileEmbedder(cfg.LLMBaseURL, cfg.LLMTimeout)
	indexes := index.NewService(cfg.Root, embedder, llmService, cfg.ChunkSize, cfg.ChunkOverlap)

	store := chat.NewStore(db)
	completionRouter := chat.NewRouter(store, llmService, indexes)
	mindmapper := chat.NewMindmapper(store, llmService)
	ingestor := ingest.NewIngestor(ingest.NewDefaultParser(), indexes)

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// No request timeout middleware: completion and ingestion calls block on
	// the model server, which can legitimately take minutes.

	apiHandler := api.NewChatService(store, completionRouter, mindmapper, ingestor)
	apiHandler.AddRoutes(r)

	server := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Port),
		Handler: r,
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("API server listening on port %d", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %d: %v\n", cfg.Port, err)
	}

	log.Println("Server stopped.")
}
