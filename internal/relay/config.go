package relay

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingCredentials is returned when the relay has no way to obtain
// tokens from the authorization server.
var ErrMissingCredentials = errors.New("relay: RELAY_USERNAME and RELAY_PASSWORD must be set")

type Config struct {
	AuthServerURL string   // Base URL of the token service (default: http://localhost:8080)
	Username      string   // Required: resource owner login used for the password grant
	Password      string   // Required: resource owner password
	ClientID      string   // Client identifier sent with grants (default: oauth2-client)
	Scopes        []string // Scopes requested on grant (default: read write)

	Port                int           // HTTP port the relay listens on (default: 8081)
	Env                 string        // Environment (default: dev)
	LogLevel            string        // Log level (default: info)
	LogFormat           string        // Log format (default: json)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() (Config, error) {
	cfg := Config{
		AuthServerURL:       getEnvOrDefault("AUTH_SERVER_URL", "http://localhost:8080"),
		Username:            os.Getenv("RELAY_USERNAME"),
		Password:            os.Getenv("RELAY_PASSWORD"),
		ClientID:            getEnvOrDefault("RELAY_CLIENT_ID", "oauth2-client"),
		Scopes:              splitList(getEnvOrDefault("RELAY_SCOPES", "read write")),
		Port:                getEnvIntOrDefault("RELAY_PORT", 8081),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	if cfg.Username == "" || cfg.Password == "" {
		return Config{}, ErrMissingCredentials
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' }) {
		if part != "" {
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
