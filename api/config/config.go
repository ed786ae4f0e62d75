package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultMaxFileSize = 10 * 1024 * 1024

type Config struct {
	Port             string
	Env              string
	WorkerExecutable string
	WorkerScript     string
	ModelDir         string
	ArtifactDir      string
	MaxFileSize      int64
	WorkerTimeout    time.Duration
	KafkaBrokers     []string
	KafkaTopic       string
	DatabaseURL      string
}

// Load reads the service configuration from the environment. A .env file in
// the working directory is applied first when present; variables already set
// in the environment win.
func Load() *Config {
	_ = godotenv.Load()

	baseDir, err := os.Getwd()
	if err != nil {
		baseDir = "."
	}

	return &Config{
		Port:             getEnv("PORT", "3000"),
		Env:              getEnv("ENV", "production"),
		WorkerExecutable: resolveExecutable(baseDir),
		WorkerScript:     getEnvAllowEmpty("WORKER_SCRIPT", "inference.py"),
		ModelDir:         getEnv("MODEL_DIR", baseDir),
		ArtifactDir:      getEnv("ARTIFACT_DIR", baseDir),
		MaxFileSize:      getEnvAsInt64("MAX_FILE_SIZE", defaultMaxFileSize),
		WorkerTimeout:    getEnvAsDuration("WORKER_TIMEOUT", 0),
		KafkaBrokers:     splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "classification_events"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// resolveExecutable prefers a python interpreter from a venv next to the
// service, then WORKER_EXECUTABLE, then PYTHON_EXECUTABLE.
func resolveExecutable(baseDir string) string {
	if venv := venvPython(baseDir); venv != "" {
		return venv
	}
	if exe := os.Getenv("WORKER_EXECUTABLE"); exe != "" {
		return exe
	}
	return getEnv("PYTHON_EXECUTABLE", "python3")
}

func venvPython(baseDir string) string {
	bin, name := "bin", "python"
	if runtime.GOOS == "windows" {
		bin, name = "Scripts", "python.exe"
	}
	path := filepath.Join(baseDir, "venv", bin, name)
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty distinguishes an unset variable from one set to "".
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil && intVal > 0 {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d >= 0 {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
