package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/germanamz/videocapture/pkg/config"
	"github.com/joho/godotenv"
)

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// loadConfig loads .env, resolves the config file and validates the result.
// Config resolution: explicit flag → ./videocapture.yaml → defaults.
func loadConfig(configPath, envFile string) (config.Config, string, error) {
	if err := loadDotEnv(envFile); err != nil {
		return config.Config{}, "", fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg, used, err := config.Resolve(configPath, ".")
	if err != nil {
		return config.Config{}, "", err
	}

	return cfg, used, nil
}
