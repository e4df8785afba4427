package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL string
	RedisAddr   string

	JWTSecret string

	ManyChatAPIURL     string
	ManyChatAPIToken   string
	ManyChatFieldID    int
	ManyChatFieldValue string
	FetchInterval      time.Duration

	// LeadStatuses is the ordered status vocabulary; the first entry is the
	// status assigned to newly reconciled leads.
	LeadStatuses []string

	// TZOffsetHours fixes the zone used for "today" boundaries in stats,
	// independent of the server's wall-clock zone.
	TZOffsetHours int

	LoginRateLimit   int
	LoginRateWindow  time.Duration
	StatusRateOper   int
	StatusRateAdmin  int
	StatusRateWindow time.Duration
	FetchRateLimit   int
	FetchRateWindow  time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisAddr:   getEnv("REDIS_ADDR", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),

		ManyChatAPIURL:     getEnv("MANYCHAT_API_URL", "https://api.manychat.com/fb"),
		ManyChatAPIToken:   getEnv("MANYCHAT_API_TOKEN", ""),
		ManyChatFieldID:    getEnvAsInt("MANYCHAT_FIELD_ID", 13286635),
		ManyChatFieldValue: getEnv("MANYCHAT_FIELD_VALUE", "Dream of Ölüdeniz"),
		FetchInterval:      getEnvAsDuration("FETCH_INTERVAL", 4*time.Minute),

		LeadStatuses: getEnvAsList("LEAD_STATUSES", []string{
			"pending", "called", "not_interested", "interested", "booked",
		}),

		TZOffsetHours: getEnvAsInt("TZ_OFFSET_HOURS", 3),

		LoginRateLimit:   getEnvAsInt("LOGIN_RATE_LIMIT", 5),
		LoginRateWindow:  getEnvAsDuration("LOGIN_RATE_WINDOW", 15*time.Minute),
		StatusRateOper:   getEnvAsInt("STATUS_RATE_OPERATOR", 3),
		StatusRateAdmin:  getEnvAsInt("STATUS_RATE_ADMIN", 50),
		StatusRateWindow: getEnvAsDuration("STATUS_RATE_WINDOW", time.Minute),
		FetchRateLimit:   getEnvAsInt("FETCH_RATE_LIMIT", 10),
		FetchRateWindow:  getEnvAsDuration("FETCH_RATE_WINDOW", 5*time.Minute),
	}
}

// Location returns the fixed zone used for day-boundary calculations.
func (c *Config) Location() *time.Location {
	return time.FixedZone("local-offset", c.TZOffsetHours*3600)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
