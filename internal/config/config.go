package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Market data provider
	ProviderBaseURL string
	ProviderAPIKey  string
	ProviderTimeout time.Duration

	// Snapshot pipeline
	SnapshotRetention int // number of most recent snapshots to keep per asset class

	// Cron schedules for the job runner
	PriceSyncSchedule string
	FXSyncSchedule    string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "finpro"),
		DBPassword: getEnv("DB_PASSWORD", "finpro"),
		DBName:     getEnv("DB_NAME", "finpro"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Provider
		ProviderBaseURL: getEnv("PROVIDER_BASE_URL", "https://financialmodelingprep.com/api/v3"),
		ProviderAPIKey:  getEnv("PROVIDER_API_KEY", ""),

		// Jobs
		PriceSyncSchedule: getEnv("PRICE_SYNC_SCHEDULE", "0 */4 * * *"),
		FXSyncSchedule:    getEnv("FX_SYNC_SCHEDULE", "30 */4 * * *"),
	}

	timeoutStr := getEnv("PROVIDER_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		log.Printf("Warning: invalid PROVIDER_TIMEOUT value '%s', falling back to 10s\n", timeoutStr)
		timeout = 10 * time.Second
	}
	config.ProviderTimeout = timeout

	retentionStr := getEnv("SNAPSHOT_RETENTION", "3")
	retention, err := strconv.Atoi(retentionStr)
	if err != nil || retention < 1 {
		log.Printf("Warning: invalid SNAPSHOT_RETENTION value '%s', falling back to 3\n", retentionStr)
		retention = 3
	}
	config.SnapshotRetention = retention

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
