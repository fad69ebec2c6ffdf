package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/torosent/capfire/internal/config"
)

func TestAPIKeyProvider(t *testing.T) {
	provider, err := NewAPIKeyProvider("Token", "my-key")
	if err != nil {
		t.Fatalf("NewAPIKeyProvider() error = %v", err)
	}

	gotToken, err := provider.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if gotToken != "my-key" {
		t.Errorf("Token() = %q, want my-key", gotToken)
	}

	req := httptest.NewRequest("GET", "http://example.com", nil)
	if err := provider.InjectHeader(context.Background(), req); err != nil {
		t.Fatalf("InjectHeader() error = %v", err)
	}
	if got := req.Header.Get("Authorization"); got != "Token my-key" {
		t.Errorf("Authorization header = %q, want %q", got, "Token my-key")
	}

	if err := provider.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestAPIKeyProviderBareKey(t *testing.T) {
	provider, err := NewAPIKeyProvider("", "raw")
	if err != nil {
		t.Fatalf("NewAPIKeyProvider() error = %v", err)
	}
	if got := provider.HeaderValue(); got != "raw" {
		t.Errorf("HeaderValue() = %q, want raw", got)
	}
}

func TestAPIKeyProviderRejectsEmptyKey(t *testing.T) {
	if _, err := NewAPIKeyProvider("Token", "  "); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestFromConfig(t *testing.T) {
	t.Setenv("CAPFIRE_AUTH_TEST_KEY", "secret")
	provider, err := FromConfig(config.AuthConfig{APIKeyEnv: "CAPFIRE_AUTH_TEST_KEY", Scheme: "Bearer"})
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if got := provider.HeaderValue(); got != "Bearer secret" {
		t.Errorf("HeaderValue() = %q", got)
	}

	t.Setenv("CAPFIRE_AUTH_TEST_KEY", "")
	if _, err := FromConfig(config.AuthConfig{APIKeyEnv: "CAPFIRE_AUTH_TEST_KEY"}); !errors.Is(err, config.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}
