// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/skill-accelerator/internal/progress"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	LogLevel    slog.Level

	Store StoreConfig

	// Server-wide collaborator keys, used when a learner has not set their own.
	GeminiAPIKey  string
	YouTubeAPIKey string
	GeminiModel   string
	AITimeout     time.Duration

	HydrateConcurrency    int
	QuizQuestions         int
	QuizSessionTTL        time.Duration
	GenerateRatePerMinute int
	GRPCHealthPort        string

	Policy           progress.Policy
	GamificationFile string
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver        string
	DBPath        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	defaults := progress.DefaultPolicy()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		LogLevel:    getEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
		Store: StoreConfig{
			Driver:        strings.ToLower(getEnv("STORE_DRIVER", "sqlite")),
			DBPath:        getEnv("DB_PATH", "./data/skill-accelerator.db"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
		},
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", getEnv("API_KEY", "")),
		YouTubeAPIKey:         getEnv("YOUTUBE_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AITimeout:             getEnvDuration("AI_TIMEOUT", 90*time.Second),
		HydrateConcurrency:    getEnvInt("HYDRATE_CONCURRENCY", 8),
		QuizQuestions:         getEnvInt("QUIZ_QUESTIONS", 3),
		QuizSessionTTL:        getEnvDuration("QUIZ_SESSION_TTL", 30*time.Minute),
		GenerateRatePerMinute: getEnvInt("GENERATE_RATE_PER_MINUTE", 6),
		GRPCHealthPort:        getEnv("GRPC_HEALTH_PORT", ""),
		Policy: progress.Policy{
			PassThreshold:         getEnvFloat("PASS_THRESHOLD", defaults.PassThreshold),
			XPPerCorrectAnswer:    getEnvInt("XP_PER_CORRECT_ANSWER", defaults.XPPerCorrectAnswer),
			ModuleCompletionBonus: getEnvInt("MODULE_COMPLETION_BONUS", defaults.ModuleCompletionBonus),
			VideoCompletionBonus:  getEnvInt("VIDEO_COMPLETION_BONUS", defaults.VideoCompletionBonus),
			RepeatCompletionBonus: getEnvBool("REPEAT_COMPLETION_BONUS", defaults.RepeatCompletionBonus),
		},
		GamificationFile: getEnv("GAMIFICATION_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty")
		}
	case "redis":
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR cannot be empty")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be sqlite or redis, got %q", c.Store.Driver)
	}
	if c.HydrateConcurrency <= 0 {
		return fmt.Errorf("HYDRATE_CONCURRENCY must be > 0")
	}
	if c.QuizQuestions <= 0 {
		return fmt.Errorf("QUIZ_QUESTIONS must be > 0")
	}
	if c.QuizSessionTTL <= 0 {
		return fmt.Errorf("QUIZ_SESSION_TTL must be > 0")
	}
	if c.GenerateRatePerMinute < 0 {
		return fmt.Errorf("GENERATE_RATE_PER_MINUTE must be >= 0")
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("gamification policy: %w", err)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env == "development"
	}
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the CORS origins for the configured frontend.
func (c *Config) AllowedOrigins() []string {
	if c.FrontendURL == "" {
		return []string{"*"}
	}
	return []string{strings.TrimRight(c.FrontendURL, "/")}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvLogLevel(key string, fallback slog.Level) slog.Level {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return fallback
	}
	return level
}
