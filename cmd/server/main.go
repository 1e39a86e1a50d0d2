// Skill Accelerator - AI-generated curricula with quiz-verified progress.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/skill-accelerator/internal/ai"
	"github.com/ashureev/skill-accelerator/internal/api"
	"github.com/ashureev/skill-accelerator/internal/config"
	"github.com/ashureev/skill-accelerator/internal/domain"
	"github.com/ashureev/skill-accelerator/internal/identity"
	"github.com/ashureev/skill-accelerator/internal/learning"
	"github.com/ashureev/skill-accelerator/internal/metrics"
	"github.com/ashureev/skill-accelerator/internal/middleware"
	"github.com/ashureev/skill-accelerator/internal/notify"
	"github.com/ashureev/skill-accelerator/internal/progress"
	"github.com/ashureev/skill-accelerator/internal/quiz"
	"github.com/ashureev/skill-accelerator/internal/store"
	"github.com/ashureev/skill-accelerator/internal/video"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	var level slog.LevelVar
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: &level,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	level.Set(cfg.LogLevel)

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "store", cfg.Store.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	repo, err := store.Open(ctx, store.Options{
		Driver: cfg.Store.Driver,
		DBPath: cfg.Store.DBPath,
		Redis: store.RedisOptions{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		},
	})
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		slog.Error("Store health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Store connected")

	levels := progress.MustLevelTable(progress.DefaultLevels)
	policy := cfg.Policy
	if cfg.GamificationFile != "" {
		levels, policy, err = progress.LoadFile(cfg.GamificationFile, cfg.Policy)
		if err != nil {
			slog.Error("Failed to load gamification file", "path", cfg.GamificationFile, "error", err)
			os.Exit(1)
		}
		slog.Info("Gamification rules loaded", "path", cfg.GamificationFile, "levels", levels.MaxLevel())
	}

	// Initialize services.
	m := metrics.New()
	hub := notify.NewHub()
	registry := quiz.NewRegistry()

	svc := learning.New(learning.Deps{
		Repo:      repo,
		Engine:    progress.NewEngine(levels, policy),
		Registry:  registry,
		Generator: ai.NewGemini(cfg.GeminiModel, ai.WithTimeout(cfg.AITimeout), ai.WithLogger(logger)),
		Searcher:  video.NewYouTube(),
		Publisher: hub,
		Metrics:   m,
		Fallback: domain.Credentials{
			GeminiAPIKey:  cfg.GeminiAPIKey,
			YouTubeAPIKey: cfg.YouTubeAPIKey,
		},
		HydrateConcurrency: cfg.HydrateConcurrency,
		QuizQuestions:      cfg.QuizQuestions,
	})
	if cfg.GeminiAPIKey == "" {
		slog.Info("No server Gemini key configured; learners must provide their own")
	}

	limiter := middleware.NewRateLimiter(cfg.GenerateRatePerMinute)
	limiter.StartSweeper(ctx)
	quiz.StartSweeper(ctx, registry, cfg.QuizSessionTTL)
	hub.StartPruner(ctx, 10*time.Minute, 24*time.Hour)

	// Initialize handlers.
	origins := cfg.AllowedOrigins()
	baseHandler := api.NewHandler(repo, svc)
	healthHandler := api.NewHealthHandler(repo)
	learningHandler := api.NewLearningHandler(baseHandler, limiter.Middleware)
	eventsHandler := notify.NewHandler(hub, origins[0], cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(m.Middleware)
	r.Use(middleware.CORS(origins))

	// Public routes.
	r.Handle("/metrics", m.Handler())
	healthHandler.RegisterHealth(r)

	// Learner routes carry an anonymous identity.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo, cfg.IsDevelopment()))
		learningHandler.RegisterRoutes(r)
		r.Get("/ws/events", eventsHandler.ServeHTTP)
	})

	// Create server.
	// Note: the events websocket is long-lived, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	if cfg.GRPCHealthPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCHealthPort)
		if err != nil {
			slog.Error("Failed to listen for gRPC health", "port", cfg.GRPCHealthPort, "error", err)
			os.Exit(1)
		}
		grpcHealth := api.NewGRPCHealth(repo)
		go func() {
			if err := grpcHealth.Serve(ctx, lis); err != nil {
				slog.Error("gRPC health server failed", "error", err)
			}
		}()
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
