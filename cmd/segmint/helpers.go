package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/wellbank/segmint/internal/storage"
)

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// dataDir resolves the application data directory.
func dataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "segmint"), nil
}

// databasePath resolves the configured or default database path.
func databasePath() (string, error) {
	if path := viper.GetString("database.path"); path != "" {
		return expandPath(path)
	}
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "segmint.db"), nil
}

// modelsDir resolves the configured or default model artifact directory.
func modelsDir() (string, error) {
	if dir := viper.GetString("models.dir"); dir != "" {
		return expandPath(dir)
	}
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "models"), nil
}

// openStorage opens the SQLite store at the configured path.
func openStorage() (*storage.SQLiteStorage, error) {
	path, err := databasePath()
	if err != nil {
		return nil, err
	}
	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}
	return store, nil
}
