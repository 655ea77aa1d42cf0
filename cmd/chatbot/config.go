package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Default values applied when the corresponding environment variable is unset.
const (
	defaultGeminiModel      = "gemini-2.0-flash-exp"
	defaultSearchUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	defaultSearchTimeout    = 10
	defaultSearchMaxResults = 10
	defaultVerifyToken      = "puch_verify_token"
	defaultGraphAPIVersion  = "v17.0"
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultLogFile          = "chatbot_gateway.log"
)

// AppConfig holds all configuration for the gateway, loaded from the
// environment and an optional .env file.
type AppConfig struct {
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string
	DefaultUnits       string

	GeminiAPIKey string
	GeminiModel  string

	SearchUserAgent  string
	SearchTimeout    int
	SearchMaxResults int
	SelectorsFile    string

	WhatsAppToken   string
	WhatsAppPhoneID string
	VerifyToken     string
	GraphAPIVersion string
	Port            string

	LogLevel string
	LogFile  string
}

// LoadConfig loads configuration from a .env file and environment variables.
// It fails when a required API key is absent; the caller decides the exit code.
func LoadConfig() (*AppConfig, error) {
	// In containers (GIN_MODE=release) configuration arrives as real
	// environment variables, so only look for a .env file in local dev.
	if os.Getenv("GIN_MODE") != "release" {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintln(os.Stderr, "WARNING: No .env file found for local development.")
		}
	}

	openWeatherKey := cleanEnvValue(os.Getenv("OPENWEATHER_API_KEY"), "")
	geminiKey := cleanEnvValue(os.Getenv("GEMINI_API_KEY"), "")

	var missing []string
	if openWeatherKey == "" {
		missing = append(missing, "OPENWEATHER_API_KEY")
	}
	if geminiKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if len(missing) > 0 {
		return nil, &MissingKeysError{Keys: missing}
	}

	cfg := &AppConfig{
		OpenWeatherAPIKey:  openWeatherKey,
		OpenWeatherBaseURL: cleanEnvValue(os.Getenv("OPENWEATHER_BASE_URL"), ""),
		DefaultUnits:       cleanEnvValue(os.Getenv("OPENWEATHER_UNITS"), "metric"),
		GeminiAPIKey:       geminiKey,
		GeminiModel:        cleanEnvValue(os.Getenv("GEMINI_MODEL"), defaultGeminiModel),
		SearchUserAgent:    cleanEnvValue(os.Getenv("SEARCH_USER_AGENT"), defaultSearchUserAgent),
		SearchTimeout:      envInt("SEARCH_TIMEOUT", defaultSearchTimeout),
		SearchMaxResults:   envInt("SEARCH_MAX_RESULTS", defaultSearchMaxResults),
		SelectorsFile:      cleanEnvValue(os.Getenv("SEARCH_SELECTORS_FILE"), ""),
		WhatsAppToken:      cleanEnvValue(os.Getenv("WHATSAPP_TOKEN"), ""),
		WhatsAppPhoneID:    cleanEnvValue(os.Getenv("WHATSAPP_PHONE_ID"), ""),
		VerifyToken:        cleanEnvValue(os.Getenv("WHATSAPP_VERIFY_TOKEN"), defaultVerifyToken),
		GraphAPIVersion:    cleanEnvValue(os.Getenv("GRAPH_API_VERSION"), defaultGraphAPIVersion),
		Port:               cleanEnvValue(os.Getenv("PORT"), defaultPort),
		LogLevel:           cleanEnvValue(os.Getenv("LOG_LEVEL"), defaultLogLevel),
		LogFile:            cleanEnvValue(os.Getenv("LOG_FILE"), defaultLogFile),
	}
	return cfg, nil
}

// MissingKeysError reports required API keys absent from the environment.
type MissingKeysError struct {
	Keys []string
}

func (e *MissingKeysError) Error() string {
	return "missing required environment variables: " + strings.Join(e.Keys, ", ")
}

// cleanEnvValue strips a single layer of surrounding quotes; .env files
// written by hand often wrap values in them.
func cleanEnvValue(value, fallback string) string {
	if value == "" {
		return fallback
	}
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			value = value[1 : len(value)-1]
		}
	}
	if value == "" {
		return fallback
	}
	return value
}

func envInt(name string, fallback int) int {
	raw := cleanEnvValue(os.Getenv(name), "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// maskKey hides all but the last 4 characters of a secret for display.
func maskKey(key string) string {
	if key == "" {
		return "<missing>"
	}
	masked := len(key) - 4
	if masked < 0 {
		masked = 0
	}
	return strings.Repeat("*", masked) + key[masked:]
}

// printConfig writes the resolved configuration with secrets masked.
func printConfig(cfg *AppConfig) {
	fmt.Println("\n=== Current Configuration ===")
	fmt.Printf("OpenWeather API Key: %s\n", maskKey(cfg.OpenWeatherAPIKey))
	fmt.Printf("Gemini API Key: %s\n", maskKey(cfg.GeminiAPIKey))
	fmt.Printf("Gemini Model: %s\n", cfg.GeminiModel)
	fmt.Printf("Default Units: %s\n", cfg.DefaultUnits)
	fmt.Printf("Log Level: %s\n", cfg.LogLevel)
	fmt.Printf("Log File: %s\n", cfg.LogFile)
	fmt.Printf("Search Timeout: %ds\n", cfg.SearchTimeout)
	fmt.Printf("Search Max Results: %d\n", cfg.SearchMaxResults)
	fmt.Printf("Webhook Port: %s\n", cfg.Port)
}
