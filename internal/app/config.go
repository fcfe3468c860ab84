package app

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingKey is returned when a required key is absent or too short.
var ErrMissingKey = errors.New("app: TOKEN_SIGNING_KEY and TOKEN_ENCRYPTION_KEY must be set and at least 32 bytes")

type Config struct {
	Issuer        string // Issuer claim for tokens (default: tokenforge)
	SigningKey    []byte // Required: HS256 signing key, at least 32 bytes
	EncryptionKey []byte // Required: A256GCM content encryption key, at least 32 bytes

	AccessTokenTTL time.Duration // Access token lifetime (default: 1h)
	AllowedClients []string      // client_credentials allow-list (comma separated env)

	RateLimitPerSecond float64 // Sustained token endpoint rate per client (default: 5)
	RateLimitBurst     int     // Burst allowance per client (default: 10)

	DatabaseFile         string        // Path to SQLite database file (default: ./tokenforge.db)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

// LoadConfig reads configuration from the environment. Key material is
// validated here so a misconfigured deployment fails at startup, not on the
// first token request.
func LoadConfig() (Config, error) {
	cfg := Config{
		Issuer:               getEnvOrDefault("TOKEN_ISSUER", "tokenforge"),
		SigningKey:           []byte(os.Getenv("TOKEN_SIGNING_KEY")),
		EncryptionKey:        []byte(os.Getenv("TOKEN_ENCRYPTION_KEY")),
		AccessTokenTTL:       getEnvDurationOrDefault("ACCESS_TOKEN_TTL", time.Hour),
		AllowedClients:       splitList(getEnvOrDefault("ALLOWED_CLIENTS", "oauth2-client,api-client")),
		RateLimitPerSecond:   getEnvFloatOrDefault("RATELIMIT_PER_SECOND", 5),
		RateLimitBurst:       getEnvIntOrDefault("RATELIMIT_BURST", 10),
		DatabaseFile:         getEnvOrDefault("DATABASE_FILE", "tokenforge.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	if len(cfg.SigningKey) < 32 || len(cfg.EncryptionKey) < 32 {
		return Config{}, ErrMissingKey
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
		return floatValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
