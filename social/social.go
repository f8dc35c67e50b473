// Package social verifies third-party provider tokens and normalizes the
// identities behind them. The engine registers one Verifier per provider
// name; a login naming an unregistered provider is rejected upstream.
package social

import (
	"context"
	"errors"
)

// ErrTokenRejected means the provider did not accept the presented token.
var ErrTokenRejected = errors.New("provider rejected access token")

// Identity is the normalized subject a provider vouches for.
type Identity struct {
	Provider   string
	ProviderID string
	Email      string
	FullName   string
	Verified   bool
}

// Verifier validates a provider access token and returns the identity it
// belongs to.
type Verifier interface {
	Verify(ctx context.Context, accessToken string) (*Identity, error)
}
