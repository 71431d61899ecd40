package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var defaultPipedMirrors = []string{
	"https://pipedapi.kavin.rocks",
	"https://api.piped.io",
	"https://pipedapi.drg.li",
	"https://pipedapi.adminforge.de",
	"https://piped-api.garudalinux.org",
}

type Config struct {
	// Server
	Port   string
	Env    string
	Locale string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// Gemini AI. An empty key disables AI features instead of failing boot.
	GeminiAPIKey          string
	GeminiModel           string
	GeminiSuggestionModel string
	GeminiConcurrentReqs  int

	// Upstreams
	PipedMirrors []string
	PipedTimeout time.Duration
	QuranAPIURL  string

	// Sessions
	ExamSessionTTL time.Duration
	ChatSessionTTL time.Duration

	// SMTP
	SMTPHost           string
	SMTPPort           string
	SMTPUser           string
	SMTPPass           string
	SMTPFrom           string
	InquiryNotifyEmail string

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                  getEnvOrDefault("PORT", "8080"),
		Env:                   getEnvOrDefault("ENV", "development"),
		Locale:                getEnvOrDefault("LOCALE", "bn-BD"),
		DatabaseURL:           mustGetEnv("DATABASE_URL"),
		RedisURL:              mustGetEnv("REDIS_URL"),
		JWTSecret:             mustGetEnv("JWT_SECRET"),
		GeminiAPIKey:          getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiModel:           getEnvOrDefault("GEMINI_MODEL", "gemini-3-flash-preview"),
		GeminiSuggestionModel: getEnvOrDefault("GEMINI_SUGGESTION_MODEL", "gemini-2.5-flash"),
		GeminiConcurrentReqs:  getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		PipedMirrors:          getEnvAsListOrDefault("PIPED_MIRRORS", defaultPipedMirrors),
		PipedTimeout:          time.Duration(getEnvAsIntOrDefault("PIPED_TIMEOUT_SECONDS", 6)) * time.Second,
		QuranAPIURL:           getEnvOrDefault("QURAN_API_URL", "https://api.alquran.cloud/v1"),
		ExamSessionTTL:        time.Duration(getEnvAsIntOrDefault("EXAM_SESSION_TTL_MINUTES", 120)) * time.Minute,
		ChatSessionTTL:        time.Duration(getEnvAsIntOrDefault("CHAT_SESSION_TTL_MINUTES", 240)) * time.Minute,
		SMTPHost:              getEnvOrDefault("SMTP_HOST", ""),
		SMTPPort:              getEnvOrDefault("SMTP_PORT", "587"),
		SMTPUser:              getEnvOrDefault("SMTP_USER", ""),
		SMTPPass:              getEnvOrDefault("SMTP_PASS", ""),
		SMTPFrom:              getEnvOrDefault("SMTP_FROM", "noreply@sciencebindu.app"),
		InquiryNotifyEmail:    getEnvOrDefault("INQUIRY_NOTIFY_EMAIL", ""),
		FrontendURL:           getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, strings.TrimRight(item, "/"))
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
