package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the outbound call service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AgentName        string
	TranscriptsDir   string
	PredictionsDir   string
	SessionRetention time.Duration
	PlayoutCap       time.Duration
	AnalysisTimeout  time.Duration

	DefaultTrunkID string
	PlatformURL    string
	PlatformAPIKey string

	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	OpenAITemperature float64

	DatabaseURL string
	AMQPURL     string
}

// Load reads .env.local/.env if present, then environment variables, and
// applies safe defaults.
func Load() (Config, error) {
	// Local overrides win over the checked-in .env; both are optional.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "duecall"),
		AgentName:        envOrDefault("APP_AGENT_NAME", "duecall-agent"),
		TranscriptsDir:   envOrDefault("TRANSCRIPTS_DIR", "transcripts"),
		PredictionsDir:   envOrDefault("PREDICTIONS_DIR", "predictions"),
		DefaultTrunkID:   stringsTrimSpace("SIP_OUTBOUND_TRUNK_ID"),
		PlatformURL:      envOrDefault("PLATFORM_URL", "http://localhost:7880"),
		PlatformAPIKey:   stringsTrimSpace("PLATFORM_API_KEY"),
		OpenAIAPIKey:     stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIBaseURL:    stringsTrimSpace("OPENAI_BASE_URL"),
		OpenAIModel:      envOrDefault("OPENAI_MODEL", "gpt-4o"),
		DatabaseURL:      stringsTrimSpace("DATABASE_URL"),
		AMQPURL:          stringsTrimSpace("AMQP_URL"),

		ShutdownTimeout:   15 * time.Second,
		SessionRetention:  10 * time.Minute,
		PlayoutCap:        30 * time.Second,
		AnalysisTimeout:   60 * time.Second,
		OpenAITemperature: 0.8,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionRetention, err = durationFromEnv("APP_SESSION_RETENTION", cfg.SessionRetention)
	if err != nil {
		return Config{}, err
	}
	cfg.PlayoutCap, err = durationFromEnv("APP_PLAYOUT_CAP", cfg.PlayoutCap)
	if err != nil {
		return Config{}, err
	}
	cfg.AnalysisTimeout, err = durationFromEnv("APP_ANALYSIS_TIMEOUT", cfg.AnalysisTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.OpenAITemperature, err = floatFromEnv("OPENAI_TEMPERATURE", cfg.OpenAITemperature)
	if err != nil {
		return Config{}, err
	}

	if cfg.ShutdownTimeout < time.Second {
		return Config{}, fmt.Errorf("APP_SHUTDOWN_TIMEOUT must be at least 1s")
	}
	if cfg.PlayoutCap < time.Second {
		return Config{}, fmt.Errorf("APP_PLAYOUT_CAP must be at least 1s")
	}
	if cfg.AnalysisTimeout < time.Second {
		return Config{}, fmt.Errorf("APP_ANALYSIS_TIMEOUT must be at least 1s")
	}
	if strings.TrimSpace(cfg.TranscriptsDir) == "" {
		return Config{}, fmt.Errorf("TRANSCRIPTS_DIR must not be empty")
	}
	if strings.TrimSpace(cfg.PredictionsDir) == "" {
		return Config{}, fmt.Errorf("PREDICTIONS_DIR must not be empty")
	}
	if cfg.OpenAITemperature < 0 || cfg.OpenAITemperature > 2 {
		return Config{}, fmt.Errorf("OPENAI_TEMPERATURE must be in [0, 2]")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}
