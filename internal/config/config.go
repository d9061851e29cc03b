// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime knob for the service.
type Config struct {
	// HTTP server
	Port           int
	AllowedOrigins []string
	MaxUploadBytes int64

	// LLM provider. An empty APIKey disables model-backed analysis and
	// the pipeline falls back to heuristic scoring.
	OpenAIAPIKey string
	OpenAIModel  string

	// Analysis retry policy
	MaxRetries          int
	RetryDelay          time.Duration
	AnalysisCallTimeout time.Duration

	// Job processing
	MaxConcurrentJobs int64
	RetentionTTL      time.Duration
	SweepInterval     time.Duration
}

// Load reads settings from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Port:                getEnvAsInt("PORT", 8080),
		AllowedOrigins:      splitList(getEnv("ALLOWED_ORIGINS", "*")),
		MaxUploadBytes:      int64(getEnvAsInt("MAX_UPLOAD_BYTES", 10*1024*1024)),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		MaxRetries:          getEnvAsInt("ANALYSIS_MAX_RETRIES", 3),
		RetryDelay:          getEnvAsDuration("ANALYSIS_RETRY_DELAY", time.Second),
		AnalysisCallTimeout: getEnvAsDuration("ANALYSIS_CALL_TIMEOUT", 60*time.Second),
		MaxConcurrentJobs:   int64(getEnvAsInt("MAX_CONCURRENT_JOBS", 10)),
		RetentionTTL:        getEnvAsDuration("JOB_RETENTION_TTL", 24*time.Hour),
		SweepInterval:       getEnvAsDuration("JOB_SWEEP_INTERVAL", 10*time.Minute),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d", cfg.Port)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("ANALYSIS_MAX_RETRIES must be >= 0")
	}
	if cfg.MaxConcurrentJobs <= 0 {
		return nil, fmt.Errorf("MAX_CONCURRENT_JOBS must be > 0")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
