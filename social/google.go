package social

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// ProviderGoogle is the provider name the engine dispatches on.
const ProviderGoogle = "google"

const googleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleVerifier resolves Google access tokens through the userinfo
// endpoint. The client presents a token it obtained itself; no authorization
// code exchange happens here.
type GoogleVerifier struct {
	userinfoURL string
	timeout     time.Duration
}

// GoogleOption tweaks a [GoogleVerifier].
type GoogleOption func(*GoogleVerifier)

// WithUserinfoURL overrides the endpoint. Tests point it at a local server.
func WithUserinfoURL(url string) GoogleOption {
	return func(v *GoogleVerifier) { v.userinfoURL = url }
}

// NewGoogleVerifier creates a verifier with a 10 second call timeout.
func NewGoogleVerifier(opts ...GoogleOption) *GoogleVerifier {
	v := &GoogleVerifier{
		userinfoURL: googleUserinfoURL,
		timeout:     10 * time.Second,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type googleUserinfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	VerifiedEmail bool   `json:"verified_email"`
}

// Verify calls the userinfo endpoint with the token as a bearer credential.
func (v *GoogleVerifier) Verify(ctx context.Context, accessToken string) (*Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	client := oauth2.NewClient(ctx, source)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userinfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call userinfo: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrTokenRejected
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var info googleUserinfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if info.ID == "" {
		return nil, ErrTokenRejected
	}

	return &Identity{
		Provider:   ProviderGoogle,
		ProviderID: info.ID,
		Email:      info.Email,
		FullName:   info.Name,
		Verified:   info.VerifiedEmail,
	}, nil
}
