package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer        string // Issuer claim for session tokens (default: reeutil-auth)
	SessionSecret string // Required in prod: HMAC secret for session tokens
	SessionTTL    time.Duration

	DatabaseFile string // Path to SQLite database file (default: ./auth.db)

	CaptchaTTL      time.Duration // Captcha challenge lifetime (default: 2m)
	CodeTTL         time.Duration // Emailed verification code lifetime (default: 10m)
	PendingLoginTTL time.Duration // Pending second-factor lifetime (default: 10m)

	// SMTP settings. When Host is empty, codes are logged instead of mailed,
	// which is only useful in dev.
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SMTPFromAddr   string
	SMTPFromName   string
	SMTPEncryption string // NONE, STARTTLS, SSL/TLS (default: STARTTLS)

	Env                  string // Environment (dev, staging, prod) (default: dev)
	LogLevel             string // Log level (debug, info, warn, error) (default: info)
	LogFormat            string // Log format (json, text) (default: json)
	Port                 int    // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration
	HousekeepingInterval time.Duration
}

func LoadConfig() Config {
	return Config{
		Issuer:        getEnvOrDefault("AUTH_ISSUER", "reeutil-auth"),
		SessionSecret: os.Getenv("AUTH_SESSION_SECRET"),
		SessionTTL:    getEnvDurationOrDefault("AUTH_SESSION_TTL", 24*time.Hour),

		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),

		CaptchaTTL:      getEnvDurationOrDefault("AUTH_CAPTCHA_TTL", 2*time.Minute),
		CodeTTL:         getEnvDurationOrDefault("AUTH_CODE_TTL", 10*time.Minute),
		PendingLoginTTL: getEnvDurationOrDefault("AUTH_PENDING_LOGIN_TTL", 10*time.Minute),

		SMTPHost:       os.Getenv("SMTP_HOST"),
		SMTPPort:       getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUsername:   os.Getenv("SMTP_USERNAME"),
		SMTPPassword:   os.Getenv("SMTP_PASSWORD"),
		SMTPFromAddr:   getEnvOrDefault("SMTP_FROM_ADDR", "no-reply@reeutil.example"),
		SMTPFromName:   getEnvOrDefault("SMTP_FROM_NAME", "ReeUtil"),
		SMTPEncryption: getEnvOrDefault("SMTP_ENCRYPTION", "STARTTLS"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 5*time.Minute),
	}
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

	// Plain integers are taken as minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
