package airauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aerovia/airauth/internal/rate"
)

// AuthenticateWithEmail runs the password login flow. The outcome is either
// a full session, an MFA challenge (MFARequired set, with the session token
// for [Engine.VerifyMFA]), or an error.
//
// Credential misses and bad passwords both return [ErrInvalidCredentials];
// nothing in the error distinguishes an unknown email from a wrong password.
func (e *Engine) AuthenticateWithEmail(ctx context.Context, in EmailLoginInput) (*AuthResult, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	if e.abuse != nil {
		if err := e.abuse.Verify(ctx, in.AbuseToken, in.RemoteIP); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAbuseCheckFailed, err)
		}
	}

	if err := e.checkThrottle(ctx, email, in.RemoteIP); err != nil {
		e.metrics.Inc(MetricLoginRateLimited)
		e.emit(AuditLogin, nil, in.RemoteIP, false, err)
		return nil, err
	}

	acc, _, err := e.directory.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.recordFailure(ctx, email, in.RemoteIP)
			e.metrics.Inc(MetricLoginFailure)
			e.emit(AuditLogin, nil, in.RemoteIP, false, ErrUserNotFound)
			return nil, fmt.Errorf("%w: unknown account", ErrInvalidCredentials)
		}
		return nil, err
	}

	if acc.AccountLocked {
		e.metrics.Inc(MetricLoginLocked)
		e.emit(AuditLogin, acc, in.RemoteIP, false, ErrAccountLocked)
		return nil, ErrAccountLocked
	}
	// Staff accounts are provisioned verified; the gate applies to
	// self-registered users only.
	if acc.Role == RoleUser && !acc.EmailVerified {
		e.emit(AuditLogin, acc, in.RemoteIP, false, ErrEmailNotVerified)
		return nil, ErrEmailNotVerified
	}

	ok := false
	if acc.PasswordHash != "" {
		ok, err = e.hasher.Verify(in.Password, acc.PasswordHash)
		if err != nil {
			return nil, fmt.Errorf("verify password: %w", err)
		}
	}
	if !ok {
		e.registerFailedLogin(ctx, acc, in.RemoteIP)
		e.metrics.Inc(MetricLoginFailure)
		e.emit(AuditLogin, acc, in.RemoteIP, false, ErrInvalidCredentials)
		return nil, fmt.Errorf("%w: password mismatch", ErrInvalidCredentials)
	}

	e.clearFailures(ctx, acc, email, in.RemoteIP)

	return e.completeFirstFactor(ctx, acc, in.RemoteIP)
}

// completeFirstFactor decides between issuing a session and demanding a
// second factor. Superadmins always get the challenge; everyone else gets
// one when their secret store record is verified.
func (e *Engine) completeFirstFactor(ctx context.Context, acc *Account, ip string) (*AuthResult, error) {
	enabled, err := e.mfaEnabled(ctx, acc.ID, acc.Role)
	if err != nil {
		return nil, fmt.Errorf("mfa state lookup: %w", err)
	}

	if enabled || acc.Role == RoleSuperadmin {
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
	e.emit(AuditLogin, acc, ip, true, nil)
	return result, nil
}

// checkThrottle consults the Redis window. Redis being down fails open with
// a warning: losing the throttle must not take logins down with it.
func (e *Engine) checkThrottle(ctx context.Context, email, ip string) error {
	if e.limiter == nil {
		return nil
	}
	err := e.limiter.Allow(ctx, email, ip)
	if err == nil {
		return nil
	}
	if errors.Is(err, rate.ErrRateLimited) {
		return ErrRateLimited
	}
	e.logger.WarnContext(ctx, "rate limiter unavailable", slog.Any("error", err))
	return nil
}

func (e *Engine) recordFailure(ctx context.Context, email, ip string) {
	if e.limiter == nil {
		return
	}
	if err := e.limiter.RecordFailure(ctx, email, ip); err != nil && !errors.Is(err, rate.ErrRateLimited) {
		e.logger.WarnContext(ctx, "rate limiter unavailable", slog.Any("error", err))
	}
}

// registerFailedLogin counts the miss on the account and locks it once the
// budget is spent. The lock is reported on the next attempt, not this one.
func (e *Engine) registerFailedLogin(ctx context.Context, acc *Account, ip string) {
	e.recordFailure(ctx, acc.Email, ip)

	limit := e.config.Lockout.MaxFailedAttempts
	if limit <= 0 {
		return
	}
	store, err := e.directory.Store(acc.Role)
	if err != nil {
		return
	}
	acc.FailedLoginAttempts++
	if acc.FailedLoginAttempts >= limit {
		acc.AccountLocked = true
	}
	if err := store.Update(ctx, acc); err != nil {
		e.logger.WarnContext(ctx, "failed attempt update failed",
			slog.String("user_id", acc.ID), slog.Any("error", err))
	}
}

func (e *Engine) clearFailures(ctx context.Context, acc *Account, email, ip string) {
	if e.limiter != nil {
		if err := e.limiter.Reset(ctx, email, ip); err != nil {
			e.logger.WarnContext(ctx, "rate limiter reset failed", slog.Any("error", err))
		}
	}
	if acc.FailedLoginAttempts > 0 {
		acc.FailedLoginAttempts = 0
		if store, err := e.directory.Store(acc.Role); err == nil {
			if err := store.Update(ctx, acc); err != nil {
				e.logger.WarnContext(ctx, "failed attempt reset failed",
					slog.String("user_id", acc.ID), slog.Any("error", err))
			}
		}
	}
}
