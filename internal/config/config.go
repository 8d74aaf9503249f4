package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the omp CLI.
type Config struct {
	DatabaseURL string
	RedisURL    string
	Telescope   string
	BackupDir   string
	BandsFile   string
	ProjectRoot string
}

// Load reads configuration from the environment with sensible defaults.
// A .env file in the working directory is honoured if present.
func Load() (*Config, error) {
	projectRoot, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	// Optional; real deployments set environment variables directly.
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: getEnv("OMP_DATABASE_URL", "postgres://localhost:5432/omp?sslmode=disable"),
		RedisURL:    getEnv("OMP_REDIS_URL", "redis://localhost:6379/0"),
		Telescope:   getEnv("OMP_TELESCOPE", "JCMT"),
		BackupDir:   getEnv("OMP_BACKUP_DIR", filepath.Join(projectRoot, "backup_msbs")),
		BandsFile:   getEnv("OMP_BANDS_FILE", ""),
		ProjectRoot: getEnv("OMP_PROJECT_ROOT", projectRoot),
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
