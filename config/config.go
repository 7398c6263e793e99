package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the configuration for the isobox service
type Config struct {
	// Server configuration
	ServerPort int

	// Engine configuration
	ScratchRoot             string
	DockerBinary            string
	MaxConcurrentExecutions int

	// Authentication configuration
	AuthType      string // none | apikey | jwt
	APIKeys       []string
	APIKeyHeader  string
	JWTSecret     string
	JWTIssuer     string
	JWTAudience   string
	AuthCacheTTL  time.Duration
	AuthCacheSize int

	// Deduplication configuration
	DedupEnabled    bool
	DedupTTL        time.Duration
	DedupMaxEntries int

	// Event publishing configuration
	EventsEnabled    bool
	KafkaBrokers     []string
	KafkaEventsTopic string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort: getEnvAsInt("SERVER_PORT", 8000),

		ScratchRoot:             getEnv("SCRATCH_ROOT", ""),
		DockerBinary:            getEnv("DOCKER_BINARY", "docker"),
		MaxConcurrentExecutions: getEnvAsInt("MAX_CONCURRENT_EXECUTIONS", 10),

		AuthType:      getEnv("AUTH_TYPE", "none"),
		APIKeys:       getEnvAsList("API_KEYS"),
		APIKeyHeader:  getEnv("API_KEY_HEADER", "X-API-Key"),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		JWTIssuer:     getEnv("JWT_ISSUER", ""),
		JWTAudience:   getEnv("JWT_AUDIENCE", ""),
		AuthCacheTTL:  getEnvAsDuration("AUTH_CACHE_TTL", 5*time.Minute),
		AuthCacheSize: getEnvAsInt("AUTH_CACHE_SIZE", 1000),

		DedupEnabled:    getEnvAsBool("DEDUP_ENABLED", false),
		DedupTTL:        getEnvAsDuration("DEDUP_TTL", 5*time.Minute),
		DedupMaxEntries: getEnvAsInt("DEDUP_MAX_ENTRIES", 10000),

		EventsEnabled:    getEnvAsBool("EVENTS_ENABLED", false),
		KafkaBrokers:     getEnvAsListWithDefault("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaEventsTopic: getEnv("KAFKA_EVENTS_TOPIC", "isobox-executions"),
	}

	return cfg, nil
}

// Helper functions to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	return getEnvAsListWithDefault(key, nil)
}

func getEnvAsListWithDefault(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
