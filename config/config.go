package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	Env           string
	Port          string
	GoogleAPIKey  string
	GeminiBaseURL string
	JWTSecret     string
	SessionTTL    time.Duration
	AnalysisModel string
	ImageModel    string
	SentryDSN     string
	LogLevel      string
}

// Load reads .env files when present and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load(".env", ".env.local")

	ttl, err := GetDurationEnv("SESSION_TTL", 2*time.Hour)
	if err != nil {
		return Config{}, err
	}
	c := Config{
		Env:           GetEnv("ENV", "local"),
		Port:          GetEnv("PORT", "8083"),
		GoogleAPIKey:  GetEnv("GOOGLE_API_KEY", ""),
		GeminiBaseURL: GetEnv("GEMINI_BASE_URL", ""),
		JWTSecret:     GetEnv("JWT_SECRET", ""),
		SessionTTL:    ttl,
		AnalysisModel: GetEnv("ANALYSIS_MODEL", "gemini-2.5-flash"),
		ImageModel:    GetEnv("IMAGE_MODEL", "gemini-2.5-flash-image"),
		SentryDSN:     GetEnv("SENTRY_DSN", ""),
		LogLevel:      GetEnv("LOG_LEVEL", ""),
	}
	if c.GoogleAPIKey == "" {
		return Config{}, fmt.Errorf("GOOGLE_API_KEY is not set")
	}
	if c.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is not set")
	}
	return c, nil
}

func (c Config) IsLocal() bool {
	return c.Env == "local" || c.Env == "development"
}

func GetEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if len(value) == 0 {
		return fallback
	}
	return value
}

func GetDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value := GetEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: expected a positive duration like 90m", key, value)
	}
	return d, nil
}

// NewLogger returns a console logger locally and JSON lines everywhere else.
func NewLogger(c Config) zerolog.Logger {
	level := zerolog.InfoLevel
	if c.IsLocal() {
		level = zerolog.DebugLevel
	}
	if c.LogLevel != "" {
		if parsed, err := zerolog.ParseLevel(c.LogLevel); err == nil {
			level = parsed
		}
	}

	logger := zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Logger()

	if c.IsLocal() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return logger
}
