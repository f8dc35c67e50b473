package airauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AuthenticateWithSocial signs a user in with a provider access token.
// First-time identities get a USER account created on the spot; an existing
// account with the same email is linked to the provider instead. Social
// logins still pass through the MFA check, so an account that enabled a
// second factor is challenged here too.
func (e *Engine) AuthenticateWithSocial(ctx context.Context, in SocialLoginInput) (*AuthResult, error) {
	verifier, ok := e.verifiers[in.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedChannel, in.Provider)
	}

	identity, err := verifier.Verify(ctx, in.AccessToken)
	if err != nil {
		e.metrics.Inc(MetricLoginFailure)
		e.emit(AuditSocialLogin, nil, in.RemoteIP, false, err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	acc, err := e.resolveSocialAccount(ctx, identity.Provider, identity.ProviderID, identity.Email, identity.FullName)
	if err != nil {
		return nil, err
	}

	if acc.AccountLocked {
		e.metrics.Inc(MetricLoginLocked)
		e.emit(AuditSocialLogin, acc, in.RemoteIP, false, ErrAccountLocked)
		return nil, ErrAccountLocked
	}

	result, err := e.completeSocialFactor(ctx, acc, in.RemoteIP)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// resolveSocialAccount finds the account behind a provider identity,
// linking or creating as needed. Provider logins only ever touch the USER
// store; staff accounts cannot be reached through a social token.
func (e *Engine) resolveSocialAccount(ctx context.Context, provider, providerID, email, fullName string) (*Account, error) {
	store, err := e.directory.Store(RoleUser)
	if err != nil {
		return nil, err
	}

	acc, err := store.FindByProvider(ctx, provider, providerID)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	email = strings.TrimSpace(strings.ToLower(email))
	acc, err = store.FindByEmail(ctx, email)
	if err == nil {
		acc.Provider = provider
		acc.ProviderID = providerID
		if err := store.Update(ctx, acc); err != nil {
			return nil, fmt.Errorf("link provider identity: %w", err)
		}
		return acc, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	// The provider vouched for the address, so the account starts verified
	// and without a password.
	acc = &Account{
		ID:            uuid.NewString(),
		Email:         email,
		FullName:      fullName,
		Role:          RoleUser,
		Provider:      provider,
		ProviderID:    providerID,
		EmailVerified: true,
		CreatedAt:     e.now(),
	}
	if err := store.Create(ctx, acc); err != nil {
		return nil, fmt.Errorf("create social account: %w", err)
	}
	return acc, nil
}

func (e *Engine) completeSocialFactor(ctx context.Context, acc *Account, ip string) (*AuthResult, error) {
	enabled, err := e.mfaEnabled(ctx, acc.ID, acc.Role)
	if err != nil {
		return nil, fmt.Errorf("mfa state lookup: %w", err)
	}
	if enabled {
		session, err := e.signer.SignMFASession(acc.ID, acc.Email, string(acc.Role))
		if err != nil {
			return nil, fmt.Errorf("issue mfa session token: %w", err)
		}
		e.metrics.Inc(MetricMFAChallengeIssued)
		e.emit(AuditMFAChallenge, acc, ip, true, nil)
		return &AuthResult{
			Success:         false,
			Message:         "MFA verification required",
			MFARequired:     true,
			MFASessionToken: session,
			Email:           acc.Email,
		}, nil
	}

	result, err := e.issueSession(ctx, acc.ID, acc.Email, acc.Role)
	if err != nil {
		return nil, err
	}
	e.stampLogin(ctx, acc)
	e.metrics.Inc(MetricLoginSuccess)
	e.emit(AuditSocialLogin, acc, ip, true, nil)
	return result, nil
}
