package config

import (
	"os"
	"strconv"
	"time"

	// Loads .env into the process environment before Load reads it.
	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Upper bound for a single entitlement snapshot read
	StoreTimeout time.Duration

	// JWT issued by the external auth provider
	JWTSecret string

	// Plan catalog
	FreePlanSlug string
	CatalogPath  string

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string

	// Admin
	AdminEmails  string
	AdminUserIDs string
	AdminToken   string

	// Logging
	LogRetentionDays int

	// Server
	Port        string
	CORSOrigins string
	AppEnv      string
	SentryDSN   string
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "designpulse"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		StoreTimeout: parseDuration(getEnv("STORE_TIMEOUT", "2s"), 2*time.Second),

		JWTSecret: getEnv("JWT_SECRET", ""),

		FreePlanSlug: getEnv("FREE_PLAN_SLUG", "free"),
		CatalogPath:  getEnv("CATALOG_PATH", "plans.json"),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		AdminEmails:  getEnv("ADMIN_EMAILS", ""),
		AdminUserIDs: getEnv("ADMIN_USER_IDS", ""),
		AdminToken:   getEnv("ADMIN_TOKEN", ""),

		LogRetentionDays: parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		AppEnv:      getEnv("APP_ENV", "development"),
		SentryDSN:   getEnv("SENTRY_DSN", ""),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
