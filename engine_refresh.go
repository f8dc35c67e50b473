package airauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aerovia/airauth/jwt"
)

// Refresh rotates a refresh token: the presented token is revoked and a new
// access/refresh pair is issued. A token can therefore be redeemed exactly
// once; replaying it fails.
//
// Every failure surfaces as [ErrInvalidCredentials]. The caller learns that
// the session is dead, never why.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := e.signer.Parse(refreshToken, jwt.TypeRefresh)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	record, err := e.tokens.FindByToken(ctx, refreshToken)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		e.emitFor(AuditRefresh, claims.Subject, ParseRole(claims.Role), false, err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	// Revocation outranks expiry: a revoked token stays revoked even after
	// its window has passed.
	if record.Revoked {
		e.metrics.Inc(MetricRefreshFailure)
		e.emitFor(AuditRefresh, record.UserID, record.Role, false, errors.New("token revoked"))
		return nil, fmt.Errorf("%w: token revoked", ErrInvalidCredentials)
	}
	if record.Expired(e.now()) {
		e.metrics.Inc(MetricRefreshFailure)
		e.emitFor(AuditRefresh, record.UserID, record.Role, false, errors.New("token expired"))
		return nil, fmt.Errorf("%w: token expired", ErrInvalidCredentials)
	}

	if err := e.tokens.Revoke(ctx, refreshToken); err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	result, err := e.issueSession(ctx, record.UserID, record.Email, record.Role)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	e.metrics.Inc(MetricRefreshSuccess)
	e.emitFor(AuditRefresh, record.UserID, record.Role, true, nil)
	return result, nil
}

// Logout revokes the session's refresh token. It never fails: an unknown or
// already-revoked token leaves logout idempotent, and store errors are
// logged rather than returned so the client can always discard its tokens.
func (e *Engine) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	if err := e.tokens.Revoke(ctx, refreshToken); err != nil {
		e.logger.WarnContext(ctx, "logout revoke failed", slog.Any("error", err))
		return
	}
	e.metrics.Inc(MetricLogout)
	if claims, err := e.signer.Parse(refreshToken, jwt.TypeRefresh); err == nil {
		e.emitFor(AuditLogout, claims.Subject, ParseRole(claims.Role), true, nil)
	}
}
