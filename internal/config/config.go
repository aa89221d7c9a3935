package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	DefaultLocale      string
	OwnerLocale        string
	CORSAllowedOrigins []string

	RateLimitWindow        time.Duration
	RateLimitMaxRequests   int
	RateLimitIdleTTL       time.Duration
	RateLimitSweepInterval time.Duration

	// Telegram owner notifications
	TelegramBotToken   string
	TelegramChatID     string
	TelegramAPIBaseURL string
	TelegramDryRun     bool
	ChatTimeout        time.Duration

	// Email fulfillment
	EmailProvider    string
	SendGridAPIKey   string
	EmailFromAddress string
	EmailFromName    string
	EmailTimeout     time.Duration

	// Lead magnet PDFs
	AssetsDir      string
	AssetsS3Bucket string
	AssetsS3Prefix string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// PostHog analytics
	PostHogAPIKey      string
	PostHogHost        string
	AnalyticsTimeout   time.Duration
	AnalyticsQueueSize int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DefaultLocale:      getEnv("DEFAULT_LOCALE", "ru"),
		OwnerLocale:        getEnv("OWNER_LOCALE", "ru"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		RateLimitWindow:        getEnvAsDuration("RATE_LIMIT_WINDOW", 60*time.Second),
		RateLimitMaxRequests:   getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 5),
		RateLimitIdleTTL:       getEnvAsDuration("RATE_LIMIT_IDLE_TTL", 30*time.Minute),
		RateLimitSweepInterval: getEnvAsDuration("RATE_LIMIT_SWEEP_INTERVAL", 10*time.Minute),

		TelegramBotToken:   getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:     getEnv("TELEGRAM_CHAT_ID", ""),
		TelegramAPIBaseURL: getEnv("TELEGRAM_API_BASE_URL", "https://api.telegram.org"),
		TelegramDryRun:     getEnvAsBool("TELEGRAM_DRY_RUN", false),
		ChatTimeout:        getEnvAsDuration("CHAT_TIMEOUT", 10*time.Second),

		EmailProvider:    strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", "no-reply@astroliana.com"),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Лиана Астро"),
		EmailTimeout:     getEnvAsDuration("EMAIL_TIMEOUT", 15*time.Second),

		AssetsDir:      getEnv("ASSETS_DIR", "public/assets"),
		AssetsS3Bucket: getEnv("ASSETS_S3_BUCKET", ""),
		AssetsS3Prefix: getEnv("ASSETS_S3_PREFIX", ""),

		AWSRegion:           getEnv("AWS_REGION", "eu-central-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		PostHogAPIKey:      getEnv("POSTHOG_API_KEY", ""),
		PostHogHost:        getEnv("POSTHOG_HOST", "https://eu.i.posthog.com"),
		AnalyticsTimeout:   getEnvAsDuration("ANALYTICS_TIMEOUT", 5*time.Second),
		AnalyticsQueueSize: getEnvAsInt("ANALYTICS_QUEUE_SIZE", 256),
	}
}

// UsesSES reports whether email should go through AWS SES.
func (c *Config) UsesSES() bool {
	switch c.EmailProvider {
	case "ses":
		return true
	case "auto":
		return c.SendGridAPIKey == "" && c.AWSAccessKeyID != ""
	default:
		return false
	}
}

// NeedsAWS reports whether any component needs an AWS config.
func (c *Config) NeedsAWS() bool {
	return c.UsesSES() || c.AssetsS3Bucket != ""
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

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
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

// getEnvAsList splits a comma-separated variable, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
