package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/torosent/capfire/internal/config"
)

func TestResolveAPIKeyFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("CAPFIRE_TEST_KEY_FILE=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("CAPFIRE_TEST_KEY_FILE", "")
	os.Unsetenv("CAPFIRE_TEST_KEY_FILE")

	key, err := config.ResolveAPIKey(config.AuthConfig{EnvFile: envFile, APIKeyEnv: "CAPFIRE_TEST_KEY_FILE"})
	if err != nil {
		t.Fatalf("ResolveAPIKey() error = %v", err)
	}
	if key != "from-file" {
		t.Errorf("key = %q, want from-file", key)
	}
}

func TestResolveAPIKeyEnvWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("CAPFIRE_TEST_KEY_SET=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("CAPFIRE_TEST_KEY_SET", "from-env")

	key, err := config.ResolveAPIKey(config.AuthConfig{EnvFile: envFile, APIKeyEnv: "CAPFIRE_TEST_KEY_SET"})
	if err != nil {
		t.Fatalf("ResolveAPIKey() error = %v", err)
	}
	if key != "from-env" {
		t.Errorf("key = %q, want from-env", key)
	}
}

func TestResolveAPIKeyMissing(t *testing.T) {
	t.Setenv("CAPFIRE_TEST_KEY_MISSING", "  ")

	_, err := config.ResolveAPIKey(config.AuthConfig{
		EnvFile:   filepath.Join(t.TempDir(), "absent.env"),
		APIKeyEnv: "CAPFIRE_TEST_KEY_MISSING",
	})
	if !errors.Is(err, config.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}
