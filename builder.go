package airauth

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aerovia/airauth/internal/rate"
	"github.com/aerovia/airauth/jwt"
	"github.com/aerovia/airauth/mailer"
	"github.com/aerovia/airauth/password"
	"github.com/aerovia/airauth/social"
)

// Builder assembles an [Engine]. Stores are required; Redis, mail, social
// verifiers, abuse checking, and the audit sink are optional and degrade to
// no-ops when absent.
type Builder struct {
	config Config

	stores        map[Role]CredentialStore
	tokens        TokenStore
	resets        ResetTokenStore
	verifications VerificationTokenStore
	secrets       SecretStore

	redis     redis.UniversalClient
	abuse     AbuseVerifier
	mail      mailer.Sender
	verifiers map[string]social.Verifier
	cipher    CodeCipher
	sink      AuditSink
	logger    *slog.Logger
	now       func() time.Time

	built bool
}

// New starts a builder with [DefaultConfig]. The JWT secret must still be
// set through the config.
func New() *Builder {
	return &Builder{
		config:    DefaultConfig(),
		verifiers: make(map[string]social.Verifier),
	}
}

// WithConfig replaces the whole config.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithJWTSecret sets the token signing key.
func (b *Builder) WithJWTSecret(secret []byte) *Builder {
	b.config.JWT.Secret = secret
	return b
}

// WithCredentialStores registers the per-role account stores.
func (b *Builder) WithCredentialStores(stores map[Role]CredentialStore) *Builder {
	b.stores = stores
	return b
}

// WithTokenStore registers the refresh token store.
func (b *Builder) WithTokenStore(s TokenStore) *Builder {
	b.tokens = s
	return b
}

// WithResetTokenStore registers the password reset token store.
func (b *Builder) WithResetTokenStore(s ResetTokenStore) *Builder {
	b.resets = s
	return b
}

// WithVerificationTokenStore registers the email verification token store.
func (b *Builder) WithVerificationTokenStore(s VerificationTokenStore) *Builder {
	b.verifications = s
	return b
}

// WithSecretStore registers the MFA secret store.
func (b *Builder) WithSecretStore(s SecretStore) *Builder {
	b.secrets = s
	return b
}

// WithRedis enables login rate limiting over the given client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAbuseVerifier screens logins and registrations before credentials are
// checked.
func (b *Builder) WithAbuseVerifier(v AbuseVerifier) *Builder {
	b.abuse = v
	return b
}

// WithMailer sets the outbound mail backend for reset and verification
// links.
func (b *Builder) WithMailer(m mailer.Sender) *Builder {
	b.mail = m
	return b
}

// WithSocialVerifier registers a provider for [Engine.AuthenticateWithSocial].
func (b *Builder) WithSocialVerifier(provider string, v social.Verifier) *Builder {
	b.verifiers[provider] = v
	return b
}

// WithCodeCipher overrides the backup-code cipher. The default is the
// inline-key compatibility cipher.
func (b *Builder) WithCodeCipher(c CodeCipher) *Builder {
	b.cipher = c
	return b
}

// WithAuditSink sets the audit destination.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// WithLogger sets the engine logger. Nil discards.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the engine time source. Tests use this to cross TTL
// boundaries without sleeping.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and wiring and returns the engine.
// A builder can be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, fmt.Errorf("%w: builder already used", ErrEngineNotReady)
	}
	b.built = true

	if err := b.config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineNotReady, err)
	}
	if b.tokens == nil || b.resets == nil || b.verifications == nil || b.secrets == nil {
		return nil, fmt.Errorf("%w: token, reset, verification, and secret stores are required", ErrEngineNotReady)
	}

	directory, err := NewRoleDirectory(b.stores)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineNotReady, err)
	}

	signer, err := jwt.NewSigner(jwt.Config{
		Secret:        b.config.JWT.Secret,
		Issuer:        b.config.JWT.Issuer,
		AccessTTL:     b.config.JWT.AccessTTL,
		RefreshTTL:    b.config.JWT.RefreshTTL,
		MFASessionTTL: b.config.JWT.MFASessionTTL,
		Leeway:        b.config.JWT.Leeway,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineNotReady, err)
	}

	hasher, err := password.NewHasher(password.Params{
		Memory:      b.config.Password.Memory,
		Time:        b.config.Password.Time,
		Parallelism: b.config.Password.Parallelism,
		SaltLength:  b.config.Password.SaltLength,
		KeyLength:   b.config.Password.KeyLength,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineNotReady, err)
	}

	var limiter *rate.Limiter
	if b.redis != nil && b.config.RateLimit.MaxAttempts > 0 {
		limiter = rate.New(b.redis, rate.Config{
			KeyPrefix:   b.config.RateLimit.KeyPrefix,
			MaxAttempts: b.config.RateLimit.MaxAttempts,
			Window:      b.config.RateLimit.Window,
		})
	}

	cipher := b.cipher
	if cipher == nil {
		cipher = NewInlineKeyCipher()
	}
	logger := b.logger
	if logger == nil {
		logger = discardLogger()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	e := &Engine{
		config:        b.config,
		signer:        signer.WithClock(now),
		hasher:        hasher,
		totp:          newTOTPManager(b.config.TOTP),
		cipher:        cipher,
		directory:     directory,
		tokens:        b.tokens,
		resets:        b.resets,
		verifications: b.verifications,
		secrets:       b.secrets,
		limiter:       limiter,
		abuse:         b.abuse,
		mail:          b.mail,
		verifiers:     b.verifiers,
		audit:         newAuditDispatcher(b.config.Audit, b.sink),
		metrics:       NewMetrics(b.config.Metrics),
		logger:        logger,
		now:           now,
	}
	return e, nil
}
