// Package config locates and loads the bot's env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	AppName     = "telegram-ebay-bot"
	EnvFileName = "config.env"
)

// RequiredEnvVars must be set for the bot to start. The eBay credentials are
// checked later, when a user first needs them.
var RequiredEnvVars = []string{"BOT_TOKEN", "GEMINI_API_KEY", "EBAY_TOKEN_KEY", "ADMIN_TELEGRAM_ID"}

// envFileOrder is the order keys are written in. Keys not listed follow in
// the order given by the caller.
var envFileOrder = []string{
	"BOT_TOKEN",
	"GEMINI_API_KEY",
	"ADMIN_TELEGRAM_ID",
	"EBAY_TOKEN_KEY",
	"EBAY_CLIENT_ID",
	"EBAY_CLIENT_SECRET",
	"EBAY_REDIRECT_URI",
	"EBAY_SANDBOX",
}

// Dir returns the application's config directory, creating it if needed.
func Dir() (string, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	configDir := filepath.Join(configBase, AppName)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// FilePath returns the full path to the env file.
func FilePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, EnvFileName), nil
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory. Errors are ignored since the file may not exist.
// Variables already set in the environment win.
func LoadEnvFile() {
	path, err := FilePath()
	if err != nil {
		return
	}
	_ = godotenv.Load(path)
}

// Missing returns the names of required variables that are not set.
func Missing() []string {
	var missing []string
	for _, v := range RequiredEnvVars {
		if os.Getenv(v) == "" {
			missing = append(missing, v)
		}
	}
	return missing
}

// WriteEnvFile writes values to the env file with 0600 permissions since it
// holds secrets. Returns the path written.
func WriteEnvFile(values map[string]string) (string, error) {
	path, err := FilePath()
	if err != nil {
		return "", err
	}

	ordered := make(map[string]string, len(values))
	keys := make([]string, 0, len(values))
	for _, k := range envFileOrder {
		if v, ok := values[k]; ok {
			ordered[k] = v
			keys = append(keys, k)
		}
	}
	for k, v := range values {
		if _, ok := ordered[k]; !ok {
			ordered[k] = v
			keys = append(keys, k)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	for _, k := range keys {
		line, err := godotenv.Marshal(map[string]string{k: ordered[k]})
		if err != nil {
			return "", fmt.Errorf("failed to encode %s: %w", k, err)
		}
		if _, err := fmt.Fprintln(f, line); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", k, err)
		}
	}
	return path, nil
}
