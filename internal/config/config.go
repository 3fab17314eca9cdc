// ABOUTME: Centralized configuration for the bot
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingToken is returned when DISCORD_KEY is not set
var ErrMissingToken = errors.New("DISCORD_KEY is not set")

// Config holds all configuration for the bot
type Config struct {
	// Credentials
	DiscordToken string
	GeminiKey    string
	TenorKey     string
	GuildName    string

	// Gemini settings
	GeminiBaseURL   string
	GenerateBaseURL string
	ChatModel       string
	ImageModel      string

	// Tenor settings
	TenorBaseURL   string
	TenorClientKey string
	TenorLimit     int

	// Retry settings
	HTTPTimeout          time.Duration
	RetryPermanentErrors bool
	SendMaxAttempts      int
	SendCooldown         time.Duration
	ReconnectMaxAttempts int
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration

	// Health check settings
	HealthCheckURL      string
	HealthCheckInterval time.Duration
	HealthCheckTimeout  time.Duration

	// Runtime
	ConsoleChannelID string
	MetricsAddr      string
	LogLevel         string
	PersonaFile      string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DiscordToken:         os.Getenv("DISCORD_KEY"),
		GeminiKey:            os.Getenv("GEMINI_KEY"),
		TenorKey:             os.Getenv("TENOR_KEY"),
		GuildName:            os.Getenv("DISCORD_GUILD"),
		GeminiBaseURL:        getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
		GenerateBaseURL:      getEnv("GEMINI_GENERATE_BASE_URL", "https://generativelanguage.googleapis.com/"),
		ChatModel:            getEnv("GEMINI_CHAT_MODEL", "gemini-2.0-flash"),
		ImageModel:           getEnv("GEMINI_IMAGE_MODEL", "gemini-2.0-flash-exp-image-generation"),
		TenorBaseURL:         getEnv("TENOR_BASE_URL", "https://tenor.googleapis.com/v2"),
		TenorClientKey:       getEnv("TENOR_CLIENT_KEY", "marcus_bot_app"),
		TenorLimit:           getEnvInt("TENOR_LIMIT", 8),
		HTTPTimeout:          getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
		RetryPermanentErrors: getEnvBool("RETRY_PERMANENT_ERRORS", true),
		SendMaxAttempts:      getEnvInt("SEND_MAX_ATTEMPTS", 5),
		SendCooldown:         getEnvDuration("SEND_COOLDOWN", 15*time.Minute),
		ReconnectMaxAttempts: getEnvInt("RECONNECT_MAX_ATTEMPTS", 10),
		ReconnectBaseDelay:   getEnvDuration("RECONNECT_BASE_DELAY", 30*time.Second),
		ReconnectMaxDelay:    getEnvDuration("RECONNECT_MAX_DELAY", 5*time.Minute),
		HealthCheckURL:       getEnv("HEALTH_CHECK_URL", "https://httpbin.org/status/200"),
		HealthCheckInterval:  getEnvDuration("HEALTH_CHECK_INTERVAL", 5*time.Minute),
		HealthCheckTimeout:   getEnvDuration("HEALTH_CHECK_TIMEOUT", 10*time.Second),
		ConsoleChannelID:     os.Getenv("CONSOLE_CHANNEL_ID"),
		MetricsAddr:          os.Getenv("METRICS_ADDR"),
		LogLevel:             strings.ToLower(getEnv("LOG_LEVEL", "info")),
		PersonaFile:          os.Getenv("BOT_PERSONA_FILE"),
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return ErrMissingToken
	}
	if c.SendMaxAttempts < 1 || c.SendMaxAttempts > 20 {
		return fmt.Errorf("SEND_MAX_ATTEMPTS must be 1-20, got %d", c.SendMaxAttempts)
	}
	if c.ReconnectMaxAttempts < 1 {
		return fmt.Errorf("RECONNECT_MAX_ATTEMPTS must be at least 1, got %d", c.ReconnectMaxAttempts)
	}
	if c.ReconnectBaseDelay <= 0 || c.ReconnectMaxDelay < c.ReconnectBaseDelay {
		return fmt.Errorf("RECONNECT_BASE_DELAY (%v) must be positive and not exceed RECONNECT_MAX_DELAY (%v)",
			c.ReconnectBaseDelay, c.ReconnectMaxDelay)
	}
	if c.TenorLimit < 1 || c.TenorLimit > 50 {
		return fmt.Errorf("TENOR_LIMIT must be 1-50, got %d", c.TenorLimit)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %v", c.HTTPTimeout)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
