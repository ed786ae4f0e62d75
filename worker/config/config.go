package config

import (
	"os"
	"strconv"
)

type Config struct {
	LabelsFile    string
	ThumbnailSize int
	Verbose       bool
}

func Load() *Config {
	return &Config{
		LabelsFile:    getEnv("WORKER_LABELS_FILE", "labels.json"),
		ThumbnailSize: getEnvAsInt("WORKER_THUMBNAIL_SIZE", 32),
		Verbose:       getEnv("WORKER_VERBOSE", "") != "",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil && intVal > 0 {
			return intVal
		}
	}
	return defaultValue
}
