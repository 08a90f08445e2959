package api

import (
	"os"
	"strconv"
)

// Config holds all configuration for the backend client and the session
// refresh schedule.
type Config struct {
	BaseURL         string
	TimeoutMs       int
	RefreshEveryMin int
	LogCalls        bool
}

// DefaultConfig returns a Config with sensible defaults: a local backend,
// a 10 second request timeout and a 30 minute token refresh interval.
func DefaultConfig() Config {
	return Config{
		BaseURL:         "http://localhost:8080",
		TimeoutMs:       10000,
		RefreshEveryMin: 30,
		LogCalls:        false,
	}
}

// LoadConfig reads client configuration from environment variables, falling
// back to defaults for any unset values.
func LoadConfig() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("SPRINTDESK_API_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("SPRINTDESK_HTTP_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutMs = n
		}
	}
	if v := os.Getenv("SPRINTDESK_REFRESH_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RefreshEveryMin = n
		}
	}
	if v := os.Getenv("SPRINTDESK_LOG_CALLS"); v != "" {
		cfg.LogCalls, _ = strconv.ParseBool(v)
	}
	return cfg
}
