package airauth

import (
	"context"
	"strings"
	"time"
)

// Role distinguishes the three credential populations. Each role has its own
// [CredentialStore]; dispatch happens through [RoleDirectory].
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperadmin Role = "SUPERADMIN"
)

// ParseRole maps a claim string back to a [Role]. Unknown values fall back to
// [RoleUser], mirroring how tokens minted before a role rename stay usable.
func ParseRole(s string) Role {
	switch r := Role(strings.ToUpper(s)); r {
	case RoleUser, RoleAdmin, RoleSuperadmin:
		return r
	default:
		return RoleUser
	}
}

// Account is the per-role credential record held by a [CredentialStore].
// PasswordHash is empty for social-only accounts. MFAEnabled is a cache of
// the secret store's derived state and is refreshed on enable/disable.
type Account struct {
	ID                  string
	Email               string
	FullName            string
	PasswordHash        string
	Role                Role
	Provider            string
	ProviderID          string
	MFAEnabled          bool
	EmailVerified       bool
	AccountLocked       bool
	FailedLoginAttempts int
	LastLoginAt         time.Time
	CreatedAt           time.Time
}

// RefreshToken is one rotation generation of a session. A refresh consumes
// the record (Revoked=true) before its successor is returned.
type RefreshToken struct {
	ID        string
	Token     string
	UserID    string
	Role      Role
	Email     string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// Expired reports whether the record's lifetime has passed. The instant of
// ExpiresAt counts as expired, matching JWT exp validation. Revocation is
// checked first by the refresh flow; an expired-but-unrevoked token is still
// dead.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// PasswordResetToken is a single-use, time-boxed reset grant. Requesting a
// new reset does not touch earlier outstanding tokens.
type PasswordResetToken struct {
	ID        string
	Token     string
	UserID    string
	Role      Role
	Email     string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// EmailVerificationToken is a single-use grant that flips
// [Account.EmailVerified] when confirmed.
type EmailVerificationToken struct {
	ID        string
	Token     string
	UserID    string
	Email     string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// MFASecret is the stored second-factor state for one (user, role) pair.
// BackupCodes holds the encrypted envelope produced by [CodeCipher]; the
// plaintext codes leave the engine exactly once, at setup or regeneration.
// Enabled state is never stored here: it is derived as "record exists and
// Verified".
type MFASecret struct {
	ID          string
	UserID      string
	Role        Role
	Secret      string
	BackupCodes string
	Verified    bool
	CreatedAt   time.Time
}

// CredentialStore is the per-role account repository.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByProvider(ctx context.Context, provider, providerID string) (*Account, error)
	Create(ctx context.Context, acc *Account) error
	Update(ctx context.Context, acc *Account) error
}

// TokenStore persists refresh tokens.
type TokenStore interface {
	Save(ctx context.Context, t *RefreshToken) error
	FindByToken(ctx context.Context, token string) (*RefreshToken, error)
	Revoke(ctx context.Context, token string) error
}

// ResetTokenStore persists password reset tokens.
type ResetTokenStore interface {
	Save(ctx context.Context, t *PasswordResetToken) error
	FindByToken(ctx context.Context, token string) (*PasswordResetToken, error)
	MarkUsed(ctx context.Context, id string) error
}

// VerificationTokenStore persists email verification tokens.
type VerificationTokenStore interface {
	Save(ctx context.Context, t *EmailVerificationToken) error
	FindByToken(ctx context.Context, token string) (*EmailVerificationToken, error)
	MarkUsed(ctx context.Context, id string) error
}

// SecretStore persists MFA secrets keyed by (user, role).
type SecretStore interface {
	Find(ctx context.Context, userID string, role Role) (*MFASecret, error)
	Save(ctx context.Context, s *MFASecret) error
	Delete(ctx context.Context, userID string, role Role) error
}

// AbuseVerifier screens login and registration attempts. Implementations
// typically call a captcha or fraud-scoring backend. The zero configuration
// allows everything.
type AbuseVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// AuthResult is returned by every flow that can end a session handshake:
// email and social login, MFA completion, and refresh.
//
// When MFARequired is set the handshake is not finished: AccessToken and
// RefreshToken are empty and MFASessionToken carries the short-lived
// challenge token for [Engine.VerifyMFA].
type AuthResult struct {
	Success      bool
	Message      string
	AccessToken  string
	RefreshToken string

	MFARequired     bool
	MFASessionToken string
	Email           string
}

// MFASetupResult is returned by [Engine.SetupMFA]. BackupCodes is the only
// time the plaintext codes are visible; QRCodeURL wraps the otpauth URI and
// QRCodePNG is the same URI rendered locally.
type MFASetupResult struct {
	Secret      string
	OtpauthURI  string
	QRCodeURL   string
	QRCodePNG   []byte
	BackupCodes []string
}

// ResetResult is the deliberately uniform response of
// [Engine.RequestPasswordReset]. Hit or miss, the message is identical.
type ResetResult struct {
	Message string
}

// RegisterInput is the input for [Engine.RegisterWithEmail].
type RegisterInput struct {
	Email      string
	FullName   string
	Password   string
	AbuseToken string
	RemoteIP   string
}

// EmailLoginInput is the input for [Engine.AuthenticateWithEmail].
type EmailLoginInput struct {
	Email      string
	Password   string
	AbuseToken string
	RemoteIP   string
}

// SocialLoginInput is the input for [Engine.AuthenticateWithSocial].
// Provider selects the registered verifier; AccessToken is the provider
// token presented by the client.
type SocialLoginInput struct {
	Provider    string
	AccessToken string
	RemoteIP    string
}
