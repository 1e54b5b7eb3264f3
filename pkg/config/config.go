package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort      string
	FirebaseProject string
	Environment     string

	// Background cleanup of expired notifications.
	NotificationCleanupInterval time.Duration

	// Default page size for message history reads.
	MessagePageSize int
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:                  getEnv("SERVER_PORT", "8080"),
		FirebaseProject:             getEnv("FIREBASE_PROJECT_ID", ""),
		Environment:                 getEnv("ENVIRONMENT", "development"),
		NotificationCleanupInterval: time.Duration(getEnvAsInt64("NOTIFICATION_CLEANUP_INTERVAL_MINUTES", 60)) * time.Minute,
		MessagePageSize:             int(getEnvAsInt64("MESSAGE_PAGE_SIZE", 50)),
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}
