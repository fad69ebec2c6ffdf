package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/torosent/capfire/internal/config"
)

// AuthProvider supplies authentication tokens and injects them into HTTP requests.
type AuthProvider interface {
	Token(ctx context.Context) (string, error)
	InjectHeader(ctx context.Context, req *http.Request) error
	Close() error
}

type RequestBuilder struct {
	headers      http.Header
	authProvider AuthProvider
}

// NewRequestBuilder validates the configured headers.
func NewRequestBuilder(target config.Target) (*RequestBuilder, error) {
	headers := http.Header{}
	for key, value := range target.Headers {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" || strings.ContainsAny(trimmedKey, "\r\n") {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		canonicalKey := http.CanonicalHeaderKey(trimmedKey)
		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", canonicalKey)
		}
		headers.Set(canonicalKey, value)
	}
	return &RequestBuilder{headers: headers}, nil
}

// NewRequestBuilderWithAuth creates a RequestBuilder that injects the
// provider's credential into every request.
func NewRequestBuilderWithAuth(target config.Target, provider AuthProvider) (*RequestBuilder, error) {
	builder, err := NewRequestBuilder(target)
	if err != nil {
		return nil, err
	}
	builder.authProvider = provider
	return builder, nil
}

// Build creates a GET request for endpoint.
func (b *RequestBuilder) Build(ctx context.Context, endpoint string) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header = b.headers.Clone()
	if req.Header == nil {
		req.Header = http.Header{}
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if b.authProvider != nil {
		if err := b.authProvider.InjectHeader(ctx, req); err != nil {
			return nil, fmt.Errorf("auth provider inject header: %w", err)
		}
	}
	return req, nil
}

// ResolveEndpoint returns the absolute URL to test: the endpoint itself when
// it is already absolute, otherwise the endpoint joined to the base URL.
func ResolveEndpoint(target config.Target) string {
	endpoint := strings.TrimSpace(target.Endpoint)
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	base := strings.TrimRight(strings.TrimSpace(target.BaseURL), "/")
	return base + "/" + strings.TrimLeft(endpoint, "/")
}

// NewClient creates a client tuned for load testing. Redirects are returned
// to the caller instead of being followed. Per-request timeouts are applied
// by the executor through the request context.
func NewClient(maxIdlePerHost int) *http.Client {
	if maxIdlePerHost < 32 {
		maxIdlePerHost = 32
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   maxIdlePerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
