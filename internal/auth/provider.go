// Package auth injects the API credential into outgoing requests.
package auth

import (
	"context"
	"net/http"
)

// Provider supplies a credential and injects it into HTTP requests.
type Provider interface {
	// Token returns the credential value.
	Token(ctx context.Context) (string, error)

	// InjectHeader sets the Authorization header on req.
	InjectHeader(ctx context.Context, req *http.Request) error

	// Close releases any resources held by the provider.
	Close() error
}
