package airauth

import (
	"errors"
	"time"
)

// Config carries all tunables for the engine. It is assembled once, validated
// by [Builder.Build], and treated as immutable afterwards.
type Config struct {
	JWT           JWTConfig
	TOTP          TOTPConfig
	Password      PasswordConfig
	PasswordReset PasswordResetConfig
	Verification  VerificationConfig
	Lockout       LockoutConfig
	RateLimit     RateLimitConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

// JWTConfig configures token issuance. Secret is the HMAC key shared by
// access, refresh, and MFA session tokens; the token type claim keeps the
// three audiences apart.
type JWTConfig struct {
	Secret        []byte
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	MFASessionTTL time.Duration
	Leeway        time.Duration
}

// TOTPConfig configures authenticator enrollment. The code parameters are
// fixed by what deployed authenticator apps expect (SHA-1, 6 digits, 30s
// steps); only presentation and skew tolerance are tunable.
type TOTPConfig struct {
	Issuer      string
	SecretBytes int
	SkewSteps   int
	BackupCodes int
	QRCodeSize  int
}

// PasswordConfig holds the Argon2id parameters, in the shape
// [password.Params] expects.
type PasswordConfig struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// PasswordResetConfig configures the reset flow. NeutralMessage is returned
// for both hits and misses so the endpoint cannot be used to probe for
// accounts.
type PasswordResetConfig struct {
	TokenTTL       time.Duration
	NeutralMessage string
	LinkBaseURL    string
}

// VerificationConfig configures email verification tokens.
type VerificationConfig struct {
	TokenTTL    time.Duration
	LinkBaseURL string
}

// LockoutConfig configures the consecutive-failure account lock.
// MaxFailedAttempts <= 0 disables locking.
type LockoutConfig struct {
	MaxFailedAttempts int
}

// RateLimitConfig configures the Redis fixed-window login throttle.
// Disabled when MaxAttempts <= 0 or no Redis client is supplied.
type RateLimitConfig struct {
	MaxAttempts int
	Window      time.Duration
	KeyPrefix   string
}

// AuditConfig configures the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the production defaults: 15m access tokens, 7d
// refresh tokens, 5m MFA challenges, 1h reset tokens, 24h verification
// tokens, lockout after 5 failures.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			Issuer:        "airauth",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			MFASessionTTL: 5 * time.Minute,
			Leeway:        30 * time.Second,
		},
		TOTP: TOTPConfig{
			Issuer:      "airauth",
			SecretBytes: 20,
			SkewSteps:   1,
			BackupCodes: 10,
			QRCodeSize:  256,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		PasswordReset: PasswordResetConfig{
			TokenTTL:       time.Hour,
			NeutralMessage: "If an account exists with this email, a reset link has been sent.",
		},
		Verification: VerificationConfig{
			TokenTTL: 24 * time.Hour,
		},
		Lockout: LockoutConfig{
			MaxFailedAttempts: 5,
		},
		RateLimit: RateLimitConfig{
			MaxAttempts: 10,
			Window:      time.Minute,
			KeyPrefix:   "airauth:rl",
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < 32 {
		return errors.New("jwt secret must be at least 32 bytes")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 || c.JWT.MFASessionTTL <= 0 {
		return errors.New("jwt TTLs must be positive")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("refresh TTL must exceed access TTL")
	}
	if c.TOTP.SecretBytes < 16 {
		return errors.New("totp secret must be at least 16 bytes")
	}
	if c.TOTP.SkewSteps < 0 || c.TOTP.SkewSteps > 2 {
		return errors.New("totp skew must be between 0 and 2 steps")
	}
	if c.TOTP.BackupCodes <= 0 {
		return errors.New("backup code count must be positive")
	}
	if c.Password.Memory < 8*1024 || c.Password.Time == 0 || c.Password.Parallelism == 0 {
		return errors.New("argon2 parameters below minimum")
	}
	if c.Password.SaltLength < 8 || c.Password.KeyLength < 16 {
		return errors.New("argon2 salt/key length below minimum")
	}
	if c.PasswordReset.TokenTTL <= 0 {
		return errors.New("password reset TTL must be positive")
	}
	if c.Verification.TokenTTL <= 0 {
		return errors.New("verification TTL must be positive")
	}
	if c.RateLimit.MaxAttempts > 0 && c.RateLimit.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}
	return nil
}
