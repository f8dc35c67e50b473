package airauth

import "errors"

var (
	// ErrInvalidCredentials covers every failed login and every failed refresh.
	// Refresh failures are wrapped around their cause so callers can log it
	// while the API surface stays uniform.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound signals a lookup miss in a credential store.
	ErrUserNotFound = errors.New("user not found")
	// ErrMFAValidation covers failed TOTP or backup-code checks and invalid
	// MFA state transitions.
	ErrMFAValidation = errors.New("mfa validation failed")
	// ErrMFAAlreadyEnabled is returned by SetupMFA when a verified secret exists.
	ErrMFAAlreadyEnabled = errors.New("mfa already enabled")
	// ErrInvalidToken signals a malformed, expired, revoked, or used token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrValidation signals malformed caller input.
	ErrValidation = errors.New("validation failed")
	// ErrUnsupportedChannel signals a social provider the engine has no verifier for.
	ErrUnsupportedChannel = errors.New("unsupported authentication channel")
	// ErrAccountLocked signals a lockout after repeated failed logins.
	ErrAccountLocked = errors.New("account locked")
	// ErrEmailNotVerified blocks password logins for unverified user accounts.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrAccountExists signals a registration attempt for a taken email.
	ErrAccountExists = errors.New("account already exists")
	// ErrRateLimited signals the login throttle rejected the attempt.
	ErrRateLimited = errors.New("rate limited")
	// ErrAbuseCheckFailed signals the anti-abuse verifier rejected the request.
	ErrAbuseCheckFailed = errors.New("abuse check failed")
	// ErrEngineNotReady is returned by Build when required collaborators are missing.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrTokenNotFound is returned by token stores on a lookup miss. Flows map
	// it to ErrInvalidToken or ErrInvalidCredentials at the API boundary.
	ErrTokenNotFound = errors.New("token not found")
	// ErrSecretNotFound is returned by the secret store when no MFA record
	// exists for a (user, role) pair.
	ErrSecretNotFound = errors.New("mfa secret not found")
)
