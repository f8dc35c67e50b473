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

// RegisterWithEmail creates a USER account. The account starts unverified;
// a verification link is mailed and the user cannot log in with a password
// until [Engine.ConfirmEmailVerification] has been called with its token.
//
// Registration is for passengers only. Admin and superadmin accounts are
// provisioned directly through their credential store.
func (e *Engine) RegisterWithEmail(ctx context.Context, in RegisterInput) (*Account, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !mailer.ValidAddress(email) {
		return nil, fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if strings.TrimSpace(in.FullName) == "" {
		return nil, fmt.Errorf("%w: full name is required", ErrValidation)
	}

	if e.abuse != nil {
		if err := e.abuse.Verify(ctx, in.AbuseToken, in.RemoteIP); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAbuseCheckFailed, err)
		}
	}

	// A clash with any role is a clash; a passenger cannot shadow an
	// admin's address.
	if _, _, err := e.directory.FindByEmail(ctx, email); err == nil {
		e.metrics.Inc(MetricRegisterDuplicate)
		e.emit(AuditRegister, nil, in.RemoteIP, false, ErrAccountExists)
		return nil, ErrAccountExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := e.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	store, err := e.directory.Store(RoleUser)
	if err != nil {
		return nil, err
	}
	acc := &Account{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     strings.TrimSpace(in.FullName),
		PasswordHash: hash,
		Role:         RoleUser,
		CreatedAt:    e.now(),
	}
	if err := store.Create(ctx, acc); err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.metrics.Inc(MetricRegisterDuplicate)
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	if err := e.sendVerification(ctx, acc); err != nil {
		// The account exists either way; the user can request another link.
		e.logger.WarnContext(ctx, "verification mail failed",
			slog.String("user_id", acc.ID), slog.Any("error", err))
	}

	e.metrics.Inc(MetricRegisterSuccess)
	e.emit(AuditRegister, acc, in.RemoteIP, true, nil)
	return acc, nil
}
