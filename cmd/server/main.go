package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"chat-backend/cmd"
	"chat-backend/internal/api"
	"chat-backend/internal/auth"
	"chat-backend/internal/chat"
	"chat-backend/internal/database"
	"chat-backend/internal/faq"
	"chat-backend/internal/llm"
)

type ServerConfig struct {
	APIPort       string        `env:"API_PORT" envDefault:"8000"`
	DatabaseURL   string        `env:"DATABASE_URL" envDefault:"chat-backend.db"`
	OllamaAPIURL  string        `env:"OLLAMA_API_URL" envDefault:"http://localhost:11434"`
	OllamaModel   string        `env:"OLLAMA_MODEL" envDefault:"tinyllama"`
	LLMProvider   string        `env:"LLM_PROVIDER" envDefault:"ollama"`
	OpenAIModel   string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIApiKey  string        `env:"OPENAI_API_KEY" envDefault:""`
	JWTSecret     string        `env:"JWT_SECRET" envDefault:"change-this-secret"`
	TokenValidity time.Duration `env:"TOKEN_VALIDITY" envDefault:"24h"`
	CORSOrigins   string        `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000"`
}

func createGenerator(cfg ServerConfig) llm.Generator {
	if cfg.LLMProvider == "openai" {
		generator, err := llm.NewOpenAIClient(cfg.OpenAIModel, cfg.OpenAIApiKey)
		if err != nil {
			log.Fatalf("Failed to create OpenAI client: %v", err)
		}
		return generator
	}
	return llm.NewOllamaClient(cfg.OllamaAPIURL, cfg.OllamaModel)
}

func main() {
	log.Println("Starting chat backend...")

	cmd.LoadEnvFile()

	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	var (
		store     chat.Store
		authStore auth.CredentialStore
		retriever faq.Retriever
	)
	if cfg.DatabaseURL == "" {
		log.Println("No DATABASE_URL configured, running with in-memory state and no FAQ retrieval")
		store = chat.NewMemoryStore()
		authStore = auth.NewMemoryCredentialStore()
	} else {
		db, err := database.NewDatabase(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := database.GetMigrator(db).Migrate(); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		store = chat.NewSQLStore(db)
		authStore = auth.NewSQLCredentialStore(db)
		retriever = faq.NewSQLRetriever(db)
	}

	authService := auth.NewService(authStore, cfg.JWTSecret, cfg.TokenValidity)
	pipeline := chat.NewPipeline(store, retriever, createGenerator(cfg))

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", api.RestHandler(func(r *http.Request) (any, error) { return nil, nil }))

	authHandler := api.NewAuthService(authService)
	chatHandler := api.NewChatService(store, pipeline, authService)

	r.Route("/api", func(r chi.Router) {
		authHandler.AddRoutes(r)
		chatHandler.AddRoutes(r)
	})

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
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

	log.Printf("API server listening on port %s", cfg.APIPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v", cfg.APIPort, err)
	}

	log.Println("Server stopped.")
}
