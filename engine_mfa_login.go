package airauth

import (
	"context"
	"fmt"

	"github.com/aerovia/airauth/jwt"
)

// VerifyMFA completes a challenged login. The session token is the one
// handed out by [Engine.AuthenticateWithEmail] when it demanded a second
// factor; code is either a 6-digit TOTP or an 8-character backup code.
//
// Failures collapse to [ErrInvalidCredentials] so a probing client cannot
// tell a stale session token from a wrong code.
func (e *Engine) VerifyMFA(ctx context.Context, sessionToken, code string) (*AuthResult, error) {
	claims, err := e.signer.Parse(sessionToken, jwt.TypeMFASession)
	if err != nil {
		e.metrics.Inc(MetricMFACompleteFailure)
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	role := ParseRole(claims.Role)
	if err := e.ValidateMFACode(ctx, claims.Subject, role, code); err != nil {
		e.metrics.Inc(MetricMFACompleteFailure)
		e.emitFor(AuditMFAComplete, claims.Subject, role, false, err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	result, err := e.issueSession(ctx, claims.Subject, claims.Email, role)
	if err != nil {
		return nil, err
	}

	if store, serr := e.directory.Store(role); serr == nil {
		if acc, ferr := store.FindByID(ctx, claims.Subject); ferr == nil {
			e.stampLogin(ctx, acc)
		}
	}
	e.metrics.Inc(MetricMFACompleteSuccess)
	e.emitFor(AuditMFAComplete, claims.Subject, role, true, nil)
	return result, nil
}
