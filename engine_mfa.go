package airauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// SetupMFA provisions a new TOTP secret and backup code set for the account.
// An account with a verified secret must disable MFA before setting it up
// again; an unverified leftover from an abandoned setup is silently replaced.
//
// The returned result carries the only plaintext copy of the backup codes.
func (e *Engine) SetupMFA(ctx context.Context, userID string, role Role) (*MFASetupResult, error) {
	store, err := e.directory.Store(role)
	if err != nil {
		return nil, err
	}
	acc, err := store.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing, err := e.secrets.Find(ctx, userID, role)
	switch {
	case err == nil && existing.Verified:
		return nil, ErrMFAAlreadyEnabled
	case err == nil:
		if err := e.secrets.Delete(ctx, userID, role); err != nil {
			return nil, fmt.Errorf("replace pending secret: %w", err)
		}
	case !errors.Is(err, ErrSecretNotFound):
		return nil, err
	}

	secret, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}
	codes, err := generateBackupCodes(e.config.TOTP.BackupCodes)
	if err != nil {
		return nil, fmt.Errorf("generate backup codes: %w", err)
	}
	envelope, err := e.cipher.Seal(codes)
	if err != nil {
		return nil, fmt.Errorf("seal backup codes: %w", err)
	}

	record := &MFASecret{
		ID:          uuid.NewString(),
		UserID:      userID,
		Role:        role,
		Secret:      secret,
		BackupCodes: envelope,
		Verified:    false,
		CreatedAt:   e.now(),
	}
	if err := e.secrets.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("persist mfa secret: %w", err)
	}

	uri := e.totp.ProvisionURI(secret, acc.Email)
	png, err := e.totp.QRCodePNG(uri)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}

	e.emitFor(AuditMFASetup, userID, role, true, nil)
	return &MFASetupResult{
		Secret:      secret,
		OtpauthURI:  uri,
		QRCodeURL:   e.totp.QRCodeURL(uri),
		QRCodePNG:   png,
		BackupCodes: codes,
	}, nil
}

// VerifyAndEnableMFA confirms a pending setup. The code goes through
// [Engine.ValidateMFACode], so a current TOTP and a backup code both
// qualify. On success the secret is marked verified and the account's
// cached flag is refreshed; verifying an already-enabled secret is a no-op.
func (e *Engine) VerifyAndEnableMFA(ctx context.Context, userID string, role Role, code string) error {
	sec, err := e.secrets.Find(ctx, userID, role)
	if err != nil {
		if errors.Is(err, ErrSecretNotFound) {
			return fmt.Errorf("%w: mfa is not set up", ErrMFAValidation)
		}
		return err
	}

	if err := e.ValidateMFACode(ctx, userID, role, code); err != nil {
		e.emitFor(AuditMFAEnable, userID, role, false, err)
		return err
	}
	if sec.Verified {
		return nil
	}

	sec.Verified = true
	if err := e.secrets.Save(ctx, sec); err != nil {
		return fmt.Errorf("persist mfa secret: %w", err)
	}
	e.refreshMFAFlag(ctx, userID, role, true)
	e.emitFor(AuditMFAEnable, userID, role, true, nil)
	return nil
}

// GetMFAStatus reports whether MFA is enabled for the account, derived from
// the secret store rather than the account's cached flag.
func (e *Engine) GetMFAStatus(ctx context.Context, userID string, role Role) (bool, error) {
	return e.mfaEnabled(ctx, userID, role)
}

// DisableMFA removes the account's second factor. Callers gate this behind
// a fresh code check via [Engine.ValidateMFACode]; superadmins get a new
// challenge on their next login regardless.
func (e *Engine) DisableMFA(ctx context.Context, userID string, role Role) error {
	if _, err := e.secrets.Find(ctx, userID, role); err != nil {
		if errors.Is(err, ErrSecretNotFound) {
			return fmt.Errorf("%w: mfa is not set up", ErrMFAValidation)
		}
		return err
	}
	if err := e.secrets.Delete(ctx, userID, role); err != nil {
		return fmt.Errorf("delete mfa secret: %w", err)
	}
	e.refreshMFAFlag(ctx, userID, role, false)
	e.emitFor(AuditMFADisable, userID, role, true, nil)
	return nil
}

// RegenerateBackupCodes replaces the account's backup code set and returns
// the new plaintext codes. The previous set stops working immediately.
func (e *Engine) RegenerateBackupCodes(ctx context.Context, userID string, role Role) ([]string, error) {
	sec, err := e.secrets.Find(ctx, userID, role)
	if err != nil {
		if errors.Is(err, ErrSecretNotFound) {
			return nil, fmt.Errorf("%w: mfa is not set up", ErrMFAValidation)
		}
		return nil, err
	}

	codes, err := generateBackupCodes(e.config.TOTP.BackupCodes)
	if err != nil {
		return nil, fmt.Errorf("generate backup codes: %w", err)
	}
	envelope, err := e.cipher.Seal(codes)
	if err != nil {
		return nil, fmt.Errorf("seal backup codes: %w", err)
	}
	sec.BackupCodes = envelope
	if err := e.secrets.Save(ctx, sec); err != nil {
		return nil, fmt.Errorf("persist mfa secret: %w", err)
	}
	e.emitFor(AuditBackupRegenerate, userID, role, true, nil)
	return codes, nil
}

// ValidateMFACode checks one second-factor code against the account's
// stored secret. Six digits are treated as a TOTP, eight characters as a
// backup code; anything else is rejected outright. Backup codes are matched
// case-sensitively and remain valid until the set is regenerated.
func (e *Engine) ValidateMFACode(ctx context.Context, userID string, role Role, code string) error {
	sec, err := e.secrets.Find(ctx, userID, role)
	if err != nil {
		if errors.Is(err, ErrSecretNotFound) {
			return fmt.Errorf("%w: mfa is not set up", ErrMFAValidation)
		}
		return err
	}

	switch {
	case len(code) == totpDigits && isDigits(code):
		ok, err := e.totp.VerifyCode(sec.Secret, code, e.now())
		if err != nil {
			return fmt.Errorf("verify totp: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: invalid code", ErrMFAValidation)
		}
		e.metrics.Inc(MetricTOTPValidated)
		return nil

	case len(code) == backupCodeLength:
		codes, err := e.cipher.Open(sec.BackupCodes)
		if err != nil {
			return fmt.Errorf("open backup codes: %w", err)
		}
		for _, c := range codes {
			if c == code {
				e.metrics.Inc(MetricBackupCodeUsed)
				return nil
			}
		}
		return fmt.Errorf("%w: invalid code", ErrMFAValidation)

	default:
		return fmt.Errorf("%w: invalid code", ErrMFAValidation)
	}
}

// refreshMFAFlag pushes the derived state into the account record, best
// effort. The cached flag is display metadata only.
func (e *Engine) refreshMFAFlag(ctx context.Context, userID string, role Role, enabled bool) {
	store, err := e.directory.Store(role)
	if err != nil {
		return
	}
	acc, err := store.FindByID(ctx, userID)
	if err != nil || acc.MFAEnabled == enabled {
		return
	}
	acc.MFAEnabled = enabled
	_ = store.Update(ctx, acc)
}
