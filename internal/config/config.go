// Package config reads component configuration from the environment. Each
// component gets its own Config struct built by a FromEnv constructor that
// validates the values it cannot default.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotenv pulls a local .env file into the environment when one exists.
// Deployed environments configure variables directly and have no .env file,
// so a missing file is not an error.
func LoadDotenv() {
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded configuration from .env file.")
	}
}

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// ServerConfig configures the viewer HTTP server.
type ServerConfig struct {
	Addr             string
	ProjectID        string
	DocumentBucket   string
	WorkflowID       string
	WorkflowLocation string

	// DevMode swaps the GCP backends for the in-memory one so the server can
	// run without credentials.
	DevMode bool
}

// ServerFromEnv builds the server configuration. PROJECT_ID and
// DOCUMENT_BUCKET are required unless DEV_MODE is set.
func ServerFromEnv() (ServerConfig, error) {
	cfg := ServerConfig{
		Addr:             GetEnv("LISTEN_ADDR", ":8080"),
		ProjectID:        GetEnv("PROJECT_ID", ""),
		DocumentBucket:   GetEnv("DOCUMENT_BUCKET", ""),
		WorkflowID:       GetEnv("WORKFLOW_ID", "plan-processing"),
		WorkflowLocation: GetEnv("WORKFLOW_LOCATION", "us-central1"),
		DevMode:          GetEnv("DEV_MODE", "") != "",
	}
	if cfg.DevMode {
		return cfg, nil
	}
	if cfg.ProjectID == "" {
		return ServerConfig{}, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	if cfg.DocumentBucket == "" {
		return ServerConfig{}, fmt.Errorf("DOCUMENT_BUCKET environment variable must be set")
	}
	return cfg, nil
}

// IngestConfig configures the upload-ingest function.
type IngestConfig struct {
	ProjectID string
}

// IngestFromEnv builds the ingest configuration.
func IngestFromEnv() (IngestConfig, error) {
	cfg := IngestConfig{
		ProjectID: GetEnv("PROJECT_ID", ""),
	}
	if cfg.ProjectID == "" {
		return IngestConfig{}, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	return cfg, nil
}
