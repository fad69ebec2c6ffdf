package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// ErrMissingCredential is returned when the API key variable is unset or empty.
var ErrMissingCredential = errors.New("missing API credential")

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Variables already set are kept. A missing file is not an error.
func LoadEnvFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// ResolveAPIKey reads the credential named by auth.APIKeyEnv after loading
// auth.EnvFile.
func ResolveAPIKey(auth AuthConfig) (string, error) {
	if err := LoadEnvFile(auth.EnvFile); err != nil {
		return "", err
	}
	name := strings.TrimSpace(auth.APIKeyEnv)
	if name == "" {
		name = DefaultAPIKeyEnv
	}
	key := strings.TrimSpace(os.Getenv(name))
	if key == "" {
		return "", fmt.Errorf("%w: set %s in the environment or in %s", ErrMissingCredential, name, auth.EnvFile)
	}
	return key, nil
}
