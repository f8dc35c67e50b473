// Package jwt issues and validates the three token kinds used by the
// authentication engine: access tokens, refresh tokens, and short-lived MFA
// session tokens. All three share one HMAC key; the typ claim keeps them
// from standing in for one another.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType is the value of the typ claim.
type TokenType string

const (
	// TypeAccess tokens carry no typ claim on the wire for compatibility
	// with earlier issuers.
	TypeAccess TokenType = ""
	// TypeRefresh marks tokens accepted only by the refresh flow.
	TypeRefresh TokenType = "refresh"
	// TypeMFASession marks the challenge token bridging a password login and
	// its MFA completion.
	TypeMFASession TokenType = "mfa_session"
)

var (
	// ErrInvalidToken covers signature, expiry, and claim failures.
	ErrInvalidToken = errors.New("invalid token")
	// ErrWrongTokenType is returned when a token is presented to a flow it
	// was not minted for.
	ErrWrongTokenType = errors.New("wrong token type")
)

// Config configures a [Signer]. Secret is the HS512 key.
type Config struct {
	Secret        []byte
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	MFASessionTTL time.Duration
	Leeway        time.Duration
}

// Claims is the claim set shared by all token kinds. Subject (from
// RegisteredClaims) carries the user ID.
type Claims struct {
	Email string    `json:"email"`
	Role  string    `json:"role"`
	Type  TokenType `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// Signer mints and validates tokens. Safe for concurrent use.
type Signer struct {
	config Config
	now    func() time.Time
}

// NewSigner validates the config and returns a ready signer.
func NewSigner(cfg Config) (*Signer, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("signing secret must be at least 32 bytes")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.MFASessionTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Signer{config: cfg, now: time.Now}, nil
}

// WithClock replaces the signer's time source. Tests use this to cross
// expiry boundaries without sleeping.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	s.now = now
	return s
}

// SignAccess mints an access token.
func (s *Signer) SignAccess(userID, email, role string) (string, error) {
	return s.sign(userID, email, role, TypeAccess, s.config.AccessTTL)
}

// SignRefresh mints a refresh token. The flow persists the signed string;
// validation later checks both the signature and the stored record.
func (s *Signer) SignRefresh(userID, email, role string) (string, error) {
	return s.sign(userID, email, role, TypeRefresh, s.config.RefreshTTL)
}

// SignMFASession mints the challenge token returned when a password login
// hits an MFA-enabled account.
func (s *Signer) SignMFASession(userID, email, role string) (string, error) {
	return s.sign(userID, email, role, TypeMFASession, s.config.MFASessionTTL)
}

func (s *Signer) sign(userID, email, role string, typ TokenType, ttl time.Duration) (string, error) {
	issued := s.now()
	claims := Claims{
		Email: email,
		Role:  role,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			// The jti keeps tokens for the same subject distinct even when
			// minted within one second, so rotation can never reissue the
			// string it just revoked.
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString(s.config.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates signature, expiry, issuer, and the typ claim. A token of
// any other type fails with [ErrWrongTokenType] even when otherwise valid,
// so an MFA session token can never be replayed as an access token.
func (s *Signer) Parse(tokenStr string, want TokenType) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(s.config.Leeway))
	}
	if s.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.config.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if claims.Type != want {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}
