package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port    string
		Env     string
		Timeout time.Duration
		BaseURL string
	}

	// Database configuration
	Database struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
		Timeout  time.Duration
	}

	// Review workflow configuration
	Review struct {
		// PriorityRules maps a response_type to its default priority,
		// applied when the caller omits priority or sends one outside 1..3.
		// Configured as "type=priority" pairs, e.g. "combat=3,matrix=2".
		PriorityRules map[string]int
		// RequireReviewDefault controls whether llm-with-review holds
		// responses for moderation when the request doesn't say.
		RequireReviewDefault bool
	}

	// LLM gateway configuration
	LLM struct {
		DefaultModel string
		Timeout      time.Duration
		MaxTokens    int
	}

	// Security configuration
	Security struct {
		RateLimit      float64
		RateLimitBurst int
		TrustedProxies []string
		MaxBodySize    int64
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Cache settings (in-memory role cache)
	Cache struct {
		Enabled     bool
		TTL         time.Duration
		MaxSize     int
		PurgeWindow time.Duration
	}

	// Redis settings (decided-status poll cache)
	Redis struct {
		Enabled   bool
		Addr      string
		Password  string
		DB        int
		StatusTTL time.Duration
	}

	// OpenAPI schema path for request validation (empty disables it)
	OpenAPISchemaPath string
}

var (
	instance *Config
	once     sync.Once
)

// New creates a new Config instance with values from environment variables.
// Uses singleton pattern to ensure only one instance exists.
func New() *Config {
	once.Do(func() {
		// Load .env file if exists
		godotenv.Load()

		instance = &Config{}

		// Server config
		instance.Server.Port = getEnvString("PORT", "8081")
		instance.Server.Env = getEnvString("APP_ENV", "development")
		instance.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)
		instance.Server.BaseURL = getEnvString("BASE_URL", "http://localhost:"+instance.Server.Port)

		// Database config
		instance.Database.Host = getEnvString("DB_HOST", "localhost")
		instance.Database.Port = getEnvString("DB_PORT", "5432")
		instance.Database.User = getEnvString("DB_USER", "postgres")
		instance.Database.Password = getEnvString("DB_PASSWORD", "postgres")
		instance.Database.Name = getEnvString("DB_NAME", "shadowrun-gm")
		instance.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
		instance.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
		instance.Database.Timeout = getEnvDuration("DB_TIMEOUT", 5*time.Second)

		// Review config
		instance.Review.PriorityRules = parsePriorityRules(
			getEnvString("REVIEW_PRIORITY_RULES", "combat=3,critical_story=3,matrix=2,npc_action=2"))
		instance.Review.RequireReviewDefault = getEnvBool("REVIEW_REQUIRED_DEFAULT", true)

		// LLM config
		instance.LLM.DefaultModel = getEnvString("LLM_DEFAULT_MODEL", "openai")
		instance.LLM.Timeout = getEnvDuration("LLM_TIMEOUT", 60*time.Second)
		instance.LLM.MaxTokens = getEnvInt("LLM_MAX_TOKENS", 1024)

		// Security config
		instance.Security.RateLimit = float64(getEnvInt("RATE_LIMIT", 5))
		instance.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)
		instance.Security.TrustedProxies = getEnvStringSlice("TRUSTED_PROXIES", []string{"127.0.0.1"})
		instance.Security.MaxBodySize = getEnvInt64("MAX_BODY_SIZE", 1<<20) // 1MB

		// Logging config
		instance.Logging.Level = getEnvString("LOG_LEVEL", "info")
		instance.Logging.Format = getEnvString("LOG_FORMAT", "json")

		// Cache settings
		instance.Cache.Enabled = getEnvBool("CACHE_ENABLED", true)
		instance.Cache.TTL = getEnvDuration("CACHE_TTL", 30*time.Second)
		instance.Cache.MaxSize = getEnvInt("CACHE_MAX_SIZE", 1000)
		instance.Cache.PurgeWindow = getEnvDuration("CACHE_PURGE_WINDOW", 5*time.Minute)

		// Redis settings
		instance.Redis.Enabled = getEnvBool("REDIS_ENABLED", false)
		instance.Redis.Addr = getEnvString("REDIS_URL", "localhost:6379")
		instance.Redis.Password = getEnvString("REDIS_PASSWORD", "")
		instance.Redis.DB = getEnvInt("REDIS_DB", 0)
		instance.Redis.StatusTTL = getEnvDuration("REDIS_STATUS_TTL", 10*time.Minute)

		instance.OpenAPISchemaPath = getEnvString("OPENAPI_SCHEMA_PATH", "")
	})

	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// parsePriorityRules parses "type=priority" pairs separated by commas.
// Malformed pairs and priorities outside 1..3 are skipped.
func parsePriorityRules(raw string) map[string]int {
	rules := make(map[string]int)
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			continue
		}
		priority, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || priority < 1 || priority > 3 {
			continue
		}
		responseType := strings.TrimSpace(parts[0])
		if responseType == "" {
			continue
		}
		rules[responseType] = priority
	}
	return rules
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
