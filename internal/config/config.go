package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ListenAddr string
	LogLevel   string

	CarrierBaseURL      string
	CarrierClientID     string
	CarrierClientSecret string
	CarrierTimeout      time.Duration
	CarrierMaxRetries   int

	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     string
	PostgresDatabase string
	PostgresSSLMode  string

	JWTSecret       string
	JWTExpiry       time.Duration
	AdminAPIKey     string
	RateLimit       int
	RateLimitWindow time.Duration

	EnableScheduler     bool
	SyncSIMsInterval    time.Duration
	SyncUsageInterval   time.Duration
	CheckQuotasInterval time.Duration
	CleanupHourUTC      int
	MisfireGrace        time.Duration
	UsageRetentionDays  int
	EventRetentionDays  int

	ArchiveEnabled bool
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
}

func Load() *Config {
	cfg := &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		CarrierBaseURL:      getEnv("CARRIER_BASE_URL", "https://api.1nce.com"),
		CarrierClientID:     mustGetEnv("CARRIER_CLIENT_ID"),
		CarrierClientSecret: mustGetEnv("CARRIER_CLIENT_SECRET"),
		CarrierTimeout:      getEnvDuration("CARRIER_TIMEOUT", 30*time.Second),
		CarrierMaxRetries:   getEnvInt("CARRIER_MAX_RETRIES", 3),

		PostgresUser:     getEnv("POSTGRES_USER", "simfleet"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "password"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresDatabase: getEnv("POSTGRES_DATABASE", "sim_fleet"),
		PostgresSSLMode:  getEnv("POSTGRES_SSL_MODE", "disable"),

		JWTSecret:       mustGetEnv("JWT_SECRET"),
		JWTExpiry:       getEnvDuration("JWT_EXPIRY", 30*time.Minute),
		AdminAPIKey:     getEnv("ADMIN_API_KEY", ""),
		RateLimit:       getEnvInt("RATE_LIMIT", 60),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),

		EnableScheduler:     getEnvBool("ENABLE_SCHEDULER", true),
		SyncSIMsInterval:    time.Duration(getEnvInt("SYNC_SIMS_INTERVAL_MINUTES", 15)) * time.Minute,
		SyncUsageInterval:   time.Duration(getEnvInt("SYNC_USAGE_INTERVAL_MINUTES", 60)) * time.Minute,
		CheckQuotasInterval: time.Duration(getEnvInt("CHECK_QUOTAS_INTERVAL_MINUTES", 30)) * time.Minute,
		CleanupHourUTC:      getEnvInt("CLEANUP_HOUR_UTC", 2),
		MisfireGrace:        getEnvDuration("MISFIRE_GRACE", 5*time.Minute),
		UsageRetentionDays:  getEnvInt("USAGE_RETENTION_DAYS", 90),
		EventRetentionDays:  getEnvInt("EVENT_RETENTION_DAYS", 30),

		ArchiveEnabled: getEnvBool("ARCHIVE_ENABLED", false),
		S3Bucket:       getEnv("S3_BUCKET", "sim-fleet-archive"),
		S3Region:       getEnv("AWS_REGION", "us-east-1"),
		S3Endpoint:     getEnv("S3_ENDPOINT", ""),
		S3AccessKey:    getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey:    getEnv("AWS_SECRET_ACCESS_KEY", ""),
	}

	if cfg.ArchiveEnabled && (cfg.S3AccessKey == "" || cfg.S3SecretKey == "") {
		panic("AWS credentials must be provided when ARCHIVE_ENABLED is set")
	}

	return cfg
}

func mustGetEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic("Missing required environment variable: " + key)
	}
	return value
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
