package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration values loaded from environment variables.
type Config struct {
	DatabaseURL     string
	JWTSecret       string
	HTTPPort        string
	TokenExpiration time.Duration

	AnthropicAPIKey string
	ChatModel       string
	ReasoningModel  string
	TitleModel      string
	ArtifactModel   string

	TurnTimeout  time.Duration
	MaxToolSteps int
}

// LoadConfig loads configuration from environment variables.
// It looks for a .env file first, then checks actual environment variables.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file (useful for development)
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Could not load .env file. Using environment variables only.", err)
		// Don't fail if .env is not present, might be in production
	}

	port := getEnv("HTTP_PORT", "8080")
	jwtSecret := getEnv("JWT_SECRET", "default-super-secret-key") // CHANGE THIS IN PRODUCTION!
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		log.Fatal("FATAL: DATABASE_URL environment variable is not set.")
	}

	apiKey := getEnv("ANTHROPIC_API_KEY", "")
	if apiKey == "" {
		log.Fatal("FATAL: ANTHROPIC_API_KEY environment variable is not set.")
	}

	tokenExpHours := getEnvInt("JWT_EXPIRATION_HOURS", 24)
	turnTimeoutSecs := getEnvInt("TURN_TIMEOUT_SECONDS", 60)
	maxToolSteps := getEnvInt("MAX_TOOL_STEPS", 5)

	cfg := &Config{
		HTTPPort:        port,
		JWTSecret:       jwtSecret,
		DatabaseURL:     dbURL,
		TokenExpiration: time.Hour * time.Duration(tokenExpHours),
		AnthropicAPIKey: apiKey,
		ChatModel:       getEnv("CHAT_MODEL", "claude-sonnet-4-20250514"),
		ReasoningModel:  getEnv("REASONING_MODEL", "claude-sonnet-4-20250514"),
		TitleModel:      getEnv("TITLE_MODEL", "claude-3-5-haiku-20241022"),
		ArtifactModel:   getEnv("ARTIFACT_MODEL", "claude-sonnet-4-20250514"),
		TurnTimeout:     time.Second * time.Duration(turnTimeoutSecs),
		MaxToolSteps:    maxToolSteps,
	}

	log.Printf("Loaded config: Port=%s, DB_URL=***, TokenExp=%s, ChatModel=%s, TurnTimeout=%s",
		cfg.HTTPPort, cfg.TokenExpiration, cfg.ChatModel, cfg.TurnTimeout)

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Env variable %s not set, using default: %s", key, fallback)
	return fallback
}

// getEnvInt retrieves an integer environment variable or returns a default.
func getEnvInt(key string, fallback int) int {
	raw := getEnv(key, strconv.Itoa(fallback))
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s', using default %d. Error: %v", key, raw, fallback, err)
		return fallback
	}
	return value
}
