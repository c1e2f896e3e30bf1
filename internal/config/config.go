package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultCompletionThreshold = 90

type Config struct {
	// Database
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	DatabaseURL string

	// Redis
	EnableRedis bool
	RedisURL    string

	// JWT
	JWTSecret string

	// Server
	Port        string
	Environment string

	// Logging
	LogLevel  string
	LogFormat string

	// CORS
	CORSOrigins []string

	// Rate Limiting
	RateLimitRequests         int
	RateLimitWindow           int
	RateLimitBurst            int
	ProgressRateLimitRequests int
	ProgressRateLimitWindow   int

	// Features
	EnableCache   bool
	EnableMetrics bool

	// Catalog
	CatalogCacheTTL time.Duration
	CatalogSeedFile string

	// Progress
	CompletionThreshold float64
	ReconcileInterval   time.Duration

	// Guests
	GuestCookieName string
	GuestCookieTTL  time.Duration
}

func New() *Config {
	c := &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "academy"),
		DBPassword: getEnv("DB_PASSWORD", "academy"),
		DBName:     getEnv("DB_NAME", "academy"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Redis
		EnableRedis: getEnvAsBool("ENABLE_REDIS", true),
		RedisURL:    getEnv("REDIS_URL", "localhost:6379"),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "your-super-secret-jwt-key-change-this-in-production"),

		// Server
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		// CORS
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080")),

		// Rate Limiting
		RateLimitRequests:         getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:           getEnvAsInt("RATE_LIMIT_WINDOW", 60),
		RateLimitBurst:            getEnvAsInt("RATE_LIMIT_BURST", 0),
		ProgressRateLimitRequests: getEnvAsInt("PROGRESS_RATE_LIMIT_REQUESTS", 120),
		ProgressRateLimitWindow:   getEnvAsInt("PROGRESS_RATE_LIMIT_WINDOW", 60),

		// Features
		EnableCache:   getEnvAsBool("ENABLE_CACHE", true),
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),

		// Catalog
		CatalogCacheTTL: time.Duration(getEnvAsInt("CATALOG_CACHE_TTL_SECONDS", 600)) * time.Second,
		CatalogSeedFile: getEnv("CATALOG_SEED_FILE", ""),

		// Progress
		CompletionThreshold: completionThreshold(getEnvAsFloat("COMPLETION_THRESHOLD", defaultCompletionThreshold)),
		ReconcileInterval:   time.Duration(getEnvAsInt("RECONCILE_INTERVAL_MINUTES", 60)) * time.Minute,

		// Guests
		GuestCookieName: getEnv("GUEST_COOKIE_NAME", "academy_guest"),
		GuestCookieTTL:  time.Duration(getEnvAsInt("GUEST_COOKIE_TTL_HOURS", 24*30)) * time.Hour,
	}

	if url := getEnv("DATABASE_URL", ""); url != "" {
		c.DatabaseURL = url
	} else {
		c.DatabaseURL = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=%s",
			c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
		)
	}

	// Redis is the only cache backend.
	if !c.EnableRedis {
		c.EnableCache = false
	}

	return c
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(strings.TrimSpace(valueStr))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(valueStr), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return valueStr == "true" || valueStr == "1"
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func completionThreshold(value float64) float64 {
	if value < 1 || value > 100 {
		return defaultCompletionThreshold
	}
	return value
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
