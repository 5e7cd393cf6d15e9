package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the configuration for the application.
type Config struct {
	AppEnv string

	// Model service
	GeminiAPIKey         string
	GeminiModels         []string
	GroqAPIKey           string
	GroqModel            string
	GroqAPIURL           string
	AggregateMaxAttempts int
	AggregateBaseDelay   time.Duration

	// Menu pages
	SiteBaseURL      string
	FetchConcurrency int
	FetchInterval    time.Duration
	FetchTimeout     time.Duration

	DatabasePath string
	Port         string
	APIJWTSecret string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64
}

// NewFromEnv creates a new Config object from environment variables.
// A .env file in the working directory is loaded first when present.
func NewFromEnv() (*Config, error) {
	_ = godotenv.Load()

	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	if geminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		GeminiAPIKey:       geminiAPIKey,
		GeminiModels:       splitList(getEnv("GEMINI_MODELS", "gemini-2.0-flash,gemini-2.0-flash-lite")),
		GroqAPIKey:         os.Getenv("GROQ_API_KEY"),
		GroqModel:          getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GroqAPIURL:         getEnv("GROQ_API_URL", "https://api.groq.com/openai/v1/chat/completions"),
		SiteBaseURL:        getEnv("SITE_BASE_URL", "https://www.lettuceclub.net"),
		DatabasePath:       getEnv("DATABASE_PATH", "data/kondate.db"),
		Port:               getEnv("PORT", "8080"),
		APIJWTSecret:       os.Getenv("API_JWT_SECRET"),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL: os.Getenv("TELEGRAM_WEBHOOK_URL"),
	}

	if len(cfg.GeminiModels) == 0 {
		return nil, fmt.Errorf("GEMINI_MODELS must name at least one model")
	}

	var err error
	if cfg.AggregateMaxAttempts, err = getInt("AGGREGATE_MAX_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.AggregateBaseDelay, err = getDuration("AGGREGATE_BASE_DELAY", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.FetchConcurrency, err = getInt("FETCH_CONCURRENCY", 5); err != nil {
		return nil, err
	}
	if cfg.FetchInterval, err = getDuration("FETCH_INTERVAL", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = getDuration("FETCH_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}

	for _, s := range splitList(os.Getenv("TELEGRAM_ALLOWED_USER_IDS")) {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS: %w", err)
		}
		cfg.TelegramAllowedUserIDs = append(cfg.TelegramAllowedUserIDs, id)
	}
	if s := os.Getenv("TELEGRAM_ADMIN_ID"); s != "" {
		if cfg.AdminTelegramID, err = strconv.ParseInt(s, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ADMIN_ID: %w", err)
		}
	}

	return cfg, nil
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
