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

// RequestEmailVerification mails a fresh verification link to an
// unverified USER account. Like password reset, the response never reveals
// whether the address exists; an already-verified account gets no mail.
func (e *Engine) RequestEmailVerification(ctx context.Context, email string) (*ResetResult, error) {
	neutral := &ResetResult{Message: "If an account exists with this email, a verification link has been sent."}

	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return neutral, nil
	}

	store, err := e.directory.Store(RoleUser)
	if err != nil {
		return nil, err
	}
	acc, err := store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return neutral, nil
		}
		return nil, err
	}
	if acc.EmailVerified {
		return neutral, nil
	}

	if err := e.sendVerification(ctx, acc); err != nil {
		e.logger.WarnContext(ctx, "verification mail failed",
			slog.String("user_id", acc.ID), slog.Any("error", err))
	}
	e.metrics.Inc(MetricVerificationRequested)
	e.emit(AuditVerifyRequest, acc, "", true, nil)
	return neutral, nil
}

// ConfirmEmailVerification redeems a verification token and marks the
// account verified. Tokens are single use and expire on schedule; every
// rejection is the same [ErrInvalidToken].
func (e *Engine) ConfirmEmailVerification(ctx context.Context, token string) error {
	rec, err := e.verifications.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return fmt.Errorf("%w: unknown verification token", ErrInvalidToken)
		}
		return err
	}
	if rec.Used {
		return fmt.Errorf("%w: verification token already used", ErrInvalidToken)
	}
	if e.now().After(rec.ExpiresAt) {
		return fmt.Errorf("%w: verification token expired", ErrInvalidToken)
	}

	store, err := e.directory.Store(RoleUser)
	if err != nil {
		return err
	}
	acc, err := store.FindByID(ctx, rec.UserID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !acc.EmailVerified {
		acc.EmailVerified = true
		if err := store.Update(ctx, acc); err != nil {
			return fmt.Errorf("mark account verified: %w", err)
		}
	}

	if err := e.verifications.MarkUsed(ctx, rec.ID); err != nil {
		return fmt.Errorf("consume verification token: %w", err)
	}

	e.metrics.Inc(MetricVerificationConfirmed)
	e.emitFor(AuditVerifyConfirm, rec.UserID, RoleUser, true, nil)
	return nil
}

// sendVerification issues a verification token and mails the link.
func (e *Engine) sendVerification(ctx context.Context, acc *Account) error {
	token := &EmailVerificationToken{
		ID:        uuid.NewString(),
		Token:     uuid.NewString(),
		UserID:    acc.ID,
		Email:     acc.Email,
		ExpiresAt: e.now().Add(e.config.Verification.TokenTTL),
		CreatedAt: e.now(),
	}
	if err := e.verifications.Save(ctx, token); err != nil {
		return fmt.Errorf("persist verification token: %w", err)
	}

	if e.mail == nil {
		return nil
	}
	link := e.config.Verification.LinkBaseURL + token.Token
	msg := mailer.Message{
		To:      acc.Email,
		Subject: "Verify your email address",
		TextBody: "Welcome aboard.\n\n" +
			"Confirm your email address to activate your account: " + link + "\n\n" +
			"The link expires in " + e.config.Verification.TokenTTL.String() + ".",
		Tag: "email-verification",
	}
	return e.mail.Send(ctx, msg)
}
