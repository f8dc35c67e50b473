package airauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aerovia/airauth/mailer"
	"github.com/google/uuid"
)

// RequestPasswordReset starts the recovery flow. The response message is
// identical whether or not the address matches an account, so the endpoint
// cannot be used to enumerate users. A matching account gets a single-use
// link valid for the configured TTL; requesting again issues a fresh token
// without invalidating earlier ones, and each still burns on first use.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) (*ResetResult, error) {
	neutral := &ResetResult{Message: e.config.PasswordReset.NeutralMessage}

	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return neutral, nil
	}

	acc, role, err := e.directory.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.emit(AuditResetRequest, nil, "", false, ErrUserNotFound)
			return neutral, nil
		}
		return nil, err
	}

	token := &PasswordResetToken{
		ID:        uuid.NewString(),
		Token:     uuid.NewString(),
		UserID:    acc.ID,
		Role:      role,
		Email:     acc.Email,
		ExpiresAt: e.now().Add(e.config.PasswordReset.TokenTTL),
		CreatedAt: e.now(),
	}
	if err := e.resets.Save(ctx, token); err != nil {
		return nil, fmt.Errorf("persist reset token: %w", err)
	}

	if e.mail != nil {
		link := e.config.PasswordReset.LinkBaseURL + token.Token
		msg := mailer.Message{
			To:      acc.Email,
			Subject: "Reset your password",
			TextBody: "A password reset was requested for your account.\n\n" +
				"Reset link: " + link + "\n\n" +
				"If you did not request this, ignore this email.",
			Tag: "password-reset",
		}
		if err := e.mail.Send(ctx, msg); err != nil {
			e.logger.WarnContext(ctx, "reset mail failed",
				slog.String("user_id", acc.ID), slog.Any("error", err))
		}
	}

	e.metrics.Inc(MetricResetRequested)
	e.emit(AuditResetRequest, acc, "", true, nil)
	return neutral, nil
}

// ConfirmPasswordReset redeems a reset token and installs the new password.
// The two password fields must match before the token is even looked up, so
// a typo does not consume the link. Redeeming does not unlock a locked
// account and does not revoke live sessions.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, token, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return fmt.Errorf("%w: passwords do not match", ErrValidation)
	}

	rec, err := e.resets.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			e.metrics.Inc(MetricResetRejected)
			return fmt.Errorf("%w: unknown reset token", ErrInvalidToken)
		}
		return err
	}
	if rec.Used {
		e.metrics.Inc(MetricResetRejected)
		e.emitFor(AuditResetConfirm, rec.UserID, rec.Role, false, ErrInvalidToken)
		return fmt.Errorf("%w: reset token already used", ErrInvalidToken)
	}
	if e.now().After(rec.ExpiresAt) {
		e.metrics.Inc(MetricResetRejected)
		e.emitFor(AuditResetConfirm, rec.UserID, rec.Role, false, ErrInvalidToken)
		return fmt.Errorf("%w: reset token expired", ErrInvalidToken)
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	store, err := e.directory.Store(rec.Role)
	if err != nil {
		return err
	}
	acc, err := store.FindByID(ctx, rec.UserID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	acc.PasswordHash = hash
	if err := store.Update(ctx, acc); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := e.resets.MarkUsed(ctx, rec.ID); err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}

	e.metrics.Inc(MetricResetConfirmed)
	e.emitFor(AuditResetConfirm, rec.UserID, rec.Role, true, nil)
	return nil
}
