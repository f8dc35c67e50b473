package airauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aerovia/airauth/internal/rate"
	"github.com/aerovia/airauth/jwt"
	"github.com/aerovia/airauth/mailer"
	"github.com/aerovia/airauth/password"
	"github.com/aerovia/airauth/social"
)

// Engine orchestrates authentication, session tokens, MFA, and account
// recovery over pluggable stores. Build one with [New]; all methods are safe
// for concurrent use.
type Engine struct {
	config Config

	signer *jwt.Signer
	hasher *password.Hasher
	totp   *totpManager
	cipher CodeCipher

	directory     *RoleDirectory
	tokens        TokenStore
	resets        ResetTokenStore
	verifications VerificationTokenStore
	secrets       SecretStore

	limiter   *rate.Limiter
	abuse     AbuseVerifier
	mail      mailer.Sender
	verifiers map[string]social.Verifier

	audit   *auditDispatcher
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// Close flushes the audit dispatcher. Call it on shutdown.
func (e *Engine) Close() {
	e.audit.Close()
}

// Metrics exposes the engine's counter block.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// AuditDropped reports audit events lost to buffer overflow.
func (e *Engine) AuditDropped() uint64 {
	return e.audit.Dropped()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mfaEnabled derives the authoritative MFA state: a secret record exists and
// has been verified. The flag cached on the account is refreshed from this,
// never trusted over it.
func (e *Engine) mfaEnabled(ctx context.Context, userID string, role Role) (bool, error) {
	sec, err := e.secrets.Find(ctx, userID, role)
	if err != nil {
		if errors.Is(err, ErrSecretNotFound) {
			return false, nil
		}
		return false, err
	}
	return sec.Verified, nil
}

// issueSession mints the access/refresh pair and persists the refresh
// record. This is the single exit point of every successful handshake.
func (e *Engine) issueSession(ctx context.Context, userID, email string, role Role) (*AuthResult, error) {
	access, err := e.signer.SignAccess(userID, email, string(role))
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := e.signer.SignRefresh(userID, email, string(role))
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	record := &RefreshToken{
		Token:     refresh,
		UserID:    userID,
		Role:      role,
		Email:     email,
		ExpiresAt: e.now().Add(e.config.JWT.RefreshTTL),
	}
	if err := e.tokens.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}

	return &AuthResult{
		Success:      true,
		Message:      "Login successful",
		AccessToken:  access,
		RefreshToken: refresh,
		Email:        email,
	}, nil
}

// stampLogin updates the account's last-login time, best effort.
func (e *Engine) stampLogin(ctx context.Context, acc *Account) {
	store, err := e.directory.Store(acc.Role)
	if err != nil {
		return
	}
	acc.LastLoginAt = e.now()
	if err := store.Update(ctx, acc); err != nil {
		e.logger.WarnContext(ctx, "last login stamp failed",
			slog.String("user_id", acc.ID), slog.Any("error", err))
	}
}

func (e *Engine) emit(action string, acc *Account, ip string, success bool, cause error) {
	event := AuditEvent{
		Timestamp: e.now(),
		Action:    action,
		IP:        ip,
		Success:   success,
	}
	if acc != nil {
		event.UserID = acc.ID
		event.Role = string(acc.Role)
		event.Email = acc.Email
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	e.audit.Emit(event)
}

func (e *Engine) emitFor(action, userID string, role Role, success bool, cause error) {
	event := AuditEvent{
		Timestamp: e.now(),
		Action:    action,
		UserID:    userID,
		Role:      string(role),
		Success:   success,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	e.audit.Emit(event)
}
