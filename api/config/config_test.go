package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "WORKER_EXECUTABLE", "PYTHON_EXECUTABLE", "MODEL_DIR",
		"ARTIFACT_DIR", "MAX_FILE_SIZE", "WORKER_TIMEOUT", "KAFKA_BROKERS", "KAFKA_TOPIC", "DATABASE_URL"} {
		t.Setenv(key, "")
	}
	t.Setenv("WORKER_SCRIPT", "")
	os.Unsetenv("WORKER_SCRIPT")

	cfg := Load()

	if cfg.Port != "3000" {
		t.Errorf("Expected port 3000, got %s", cfg.Port)
	}
	if cfg.WorkerExecutable != "python3" {
		t.Errorf("Expected python3, got %s", cfg.WorkerExecutable)
	}
	if cfg.WorkerScript != "inference.py" {
		t.Errorf("Expected inference.py, got %s", cfg.WorkerScript)
	}
	if cfg.MaxFileSize != 10*1024*1024 {
		t.Errorf("Expected 10MiB limit, got %d", cfg.MaxFileSize)
	}
	if cfg.WorkerTimeout != 0 {
		t.Errorf("Expected no timeout, got %s", cfg.WorkerTimeout)
	}
	if len(cfg.KafkaBrokers) != 0 {
		t.Errorf("Expected no brokers, got %v", cfg.KafkaBrokers)
	}
	if cfg.IsDevelopment() {
		t.Error("Expected production env by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("ENV", "development")
	t.Setenv("WORKER_EXECUTABLE", "/usr/local/bin/classify")
	t.Setenv("WORKER_SCRIPT", "")
	t.Setenv("MAX_FILE_SIZE", "2048")
	t.Setenv("WORKER_TIMEOUT", "30s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg := Load()

	if cfg.Port != "8081" {
		t.Errorf("Expected port 8081, got %s", cfg.Port)
	}
	if !cfg.IsDevelopment() {
		t.Error("Expected development env")
	}
	if cfg.WorkerExecutable != "/usr/local/bin/classify" {
		t.Errorf("Unexpected executable %s", cfg.WorkerExecutable)
	}
	if cfg.WorkerScript != "" {
		t.Errorf("Expected empty script, got %q", cfg.WorkerScript)
	}
	if cfg.MaxFileSize != 2048 {
		t.Errorf("Expected 2048, got %d", cfg.MaxFileSize)
	}
	if cfg.WorkerTimeout != 30*time.Second {
		t.Errorf("Expected 30s, got %s", cfg.WorkerTimeout)
	}
	if want := []string{"k1:9092", "k2:9092"}; !reflect.DeepEqual(cfg.KafkaBrokers, want) {
		t.Errorf("Expected %v, got %v", want, cfg.KafkaBrokers)
	}
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("MAX_FILE_SIZE", "lots")
	t.Setenv("WORKER_TIMEOUT", "-5s")

	cfg := Load()

	if cfg.MaxFileSize != defaultMaxFileSize {
		t.Errorf("Expected default size, got %d", cfg.MaxFileSize)
	}
	if cfg.WorkerTimeout != 0 {
		t.Errorf("Expected no timeout, got %s", cfg.WorkerTimeout)
	}
}

func TestResolveExecutable_PrefersVenv(t *testing.T) {
	t.Setenv("WORKER_EXECUTABLE", "/opt/other")
	baseDir := t.TempDir()
	binDir := filepath.Join(baseDir, "venv", "bin")
	if err := os.MkdirAll(binDir, 0755); err != nil {
		t.Fatalf("Failed to create venv: %v", err)
	}
	python := filepath.Join(binDir, "python")
	if err := os.WriteFile(python, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("Failed to create interpreter: %v", err)
	}

	if got := resolveExecutable(baseDir); got != python {
		t.Errorf("Expected %s, got %s", python, got)
	}
	if got := resolveExecutable(t.TempDir()); got != "/opt/other" {
		t.Errorf("Expected /opt/other, got %s", got)
	}
}
