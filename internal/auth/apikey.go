package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/torosent/capfire/internal/config"
)

// APIKeyProvider sends a fixed API key as "Authorization: <scheme> <key>".
type APIKeyProvider struct {
	scheme string
	key    string
}

// NewAPIKeyProvider creates a provider for key. An empty scheme sends the
// bare key.
func NewAPIKeyProvider(scheme, key string) (*APIKeyProvider, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("api key cannot be empty")
	}
	return &APIKeyProvider{scheme: strings.TrimSpace(scheme), key: key}, nil
}

// FromConfig resolves the key named by cfg and builds a provider for it.
// It returns config.ErrMissingCredential when the key is not set.
func FromConfig(cfg config.AuthConfig) (*APIKeyProvider, error) {
	key, err := config.ResolveAPIKey(cfg)
	if err != nil {
		return nil, err
	}
	scheme := cfg.Scheme
	if strings.TrimSpace(scheme) == "" {
		scheme = config.DefaultAuthScheme
	}
	return NewAPIKeyProvider(scheme, key)
}

// Token returns the key without any network calls.
func (p *APIKeyProvider) Token(ctx context.Context) (string, error) {
	return p.key, nil
}

// HeaderValue is the full Authorization header value.
func (p *APIKeyProvider) HeaderValue() string {
	if p.scheme == "" {
		return p.key
	}
	return p.scheme + " " + p.key
}

// InjectHeader sets the Authorization header.
func (p *APIKeyProvider) InjectHeader(ctx context.Context, req *http.Request) error {
	req.Header.Set("Authorization", p.HeaderValue())
	return nil
}

// Close is a no-op.
func (p *APIKeyProvider) Close() error {
	return nil
}
