package airauth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aerovia/airauth"
)

func TestLoginIssuesSession(t *testing.T) {
	rig := newTestRig(t)
	rig.seedAccount(t, airauth.RoleUser, "alice@example.com", "correct horse")

	res := rig.login(t, "alice@example.com", "correct horse")
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}
	if res.MFARequired {
		t.Fatal("no MFA is configured, challenge not expected")
	}
	if got := rig.engine.Metrics().Value(airauth.MetricLoginSuccess); got != 1 {
		t.Fatalf("login success counter = %d, want 1", got)
	}
}

func TestLoginEmailIsCaseInsensitive(t *testing.T) {
	rig := newTestRig(t)
	rig.seedAccount(t, airauth.RoleUser, "alice@example.com", "correct horse")

	res := rig.login(t, "ALICE@Example.COM", "correct horse")
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	rig := newTestRig(t)
	rig.seedAccount(t, airauth.RoleUser, "alice@example.com", "correct horse")

	ctx := context.Background()
	_, errUnknown := rig.engine.AuthenticateWithEmail(ctx, airauth.EmailLoginInput{
		Email: "nobody@example.com", Password: "whatever",
	})
	_, errWrongPw := rig.engine.AuthenticateWithEmail(ctx, airauth.EmailLoginInput{
		Email: "alice@example.com", Password: "wrong",
	})

	if !errors.Is(errUnknown, airauth.ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v", errUnknown)
	}
	if !errors.Is(errWrongPw, airauth.ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", errWrongPw)
	}
}

func TestLoginValidation(t *testing.T) {
	rig := newTestRig(t)

	_, err := rig.engine.AuthenticateWithEmail(context.Background(), airauth.EmailLoginInput{})
	if !errors.Is(err, airauth.ErrValidation) {
		t.Fatalf("empty input: got %v, want ErrValidation", err)
	}
}

func TestLockoutAfterRepeatedFailures(t *testing.T) {
	rig := newTestRig(t)
	rig.seedAccount(t, airauth.RoleUser, "alice@example.com", "correct horse")

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := rig.engine.AuthenticateWithEmail(ctx, airauth.EmailLoginInput{
			Email: "alice@example.com", Password: "wrong",
		})
		if !errors.Is(err, airauth.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: got %v", i+1, err)
		}
	}

	// Sixth attempt hits the lock, even with the right password.
	_, err := rig.engine.AuthenticateWithEmail(ctx, airauth.EmailLoginInput{
		Email: "alice@example.com", Password: "correct horse",
	})
	if !errors.Is(err, airauth.ErrAccountLocked) {
		t.Fatalf("locked account: got %v, want ErrAccountLocked", err)
	}
	if got := rig.engine.Metrics().Value(airauth.MetricLoginLocked); got != 1 {
		t.Fatalf("locked counter = %d, want 1", got)
	}
}

func TestFailureCountResetsOnSuccess(t *testing.T) {
	rig := newTestRig(t)
	rig.seedAccount(t, airauth.RoleUser, "alice@example.com", "correct horse")

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, _ = rig.engine.AuthenticateWithEmail(ctx, airauth.EmailLoginInput{
			Email: "alice@example.com", Password: "wrong",
		})
	}
	rig.login(t, "alice@example.com", "correct horse")

	// The slate is clean: four more misses must not lock.
	for i := 0; i < 4; i++ {
		_, _ = rig.engine.AuthenticateWithEmail(ctx, airauth.EmailLoginInput{
			Email: "alice@example.com", Password: "wrong",
		})
	}
	res := rig.login(t, "alice@example.com", "correct horse")
	if !res.Success {
		t.Fatalf("expected success after reset, got %+v", res)
	}
}

func TestUnverifiedUserCannotLogIn(t *testing.T) {
	rig := newTestRig(t)
	acc := rig.seedAccount(t, airauth.RoleUser, "alice@example.com", "correct horse")
	acc.EmailVerified = false
	if err := rig.stores[airauth.RoleUser].Update(context.Background(), acc); err != nil {
		t.Fatalf("update account: %v", err)
	}

	_, err := rig.engine.AuthenticateWithEmail(context.Background(), airauth.EmailLoginInput{
		Email: "alice@example.com", Password: "correct horse",
	})
	if !errors.Is(err, airauth.ErrEmailNotVerified) {
		t.Fatalf("got %v, want ErrEmailNotVerified", err)
	}
}

func TestAdminSkipsVerificationGate(t *testing.T) {
	rig := newTestRig(t)
	acc := rig.seedAccount(t, airauth.RoleAdmin, "ops@example.com", "correct horse")
	acc.EmailVerified = false
	if err := rig.stores[airauth.RoleAdmin].Update(context.Background(), acc); err != nil {
		t.Fatalf("update account: %v", err)
	}

	res := rig.login(t, "ops@example.com", "correct horse")
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
}

func TestSuperadminAlwaysChallenged(t *testing.T) {
	rig := newTestRig(t)
	rig.seedAccount(t, airauth.RoleSuperadmin, "root@example.com", "correct horse")

	res := rig.login(t, "root@example.com", "correct horse")
	if res.Success || !res.MFARequired {
		t.Fatalf("superadmin must be challenged, got %+v", res)
	}
	if res.MFASessionToken == "" {
		t.Fatal("expected an MFA session token")
	}
	if res.AccessToken != "" || res.RefreshToken != "" {
		t.Fatal("no session tokens may be issued before the second factor")
	}
}

func TestMFAEnabledUserIsChallenged(t *testing.T) {
	rig := newTestRig(t)
	acc := rig.seedAccount(t, airauth.RoleUser, "alice@example.com", "correct horse")
	rig.enableMFA(t, acc)

	res := rig.login(t, "alice@example.com", "correct horse")
	if res.Success || !res.MFARequired {
		t.Fatalf("expected a challenge, got %+v", res)
	}
}

func TestPendingSetupDoesNotChallenge(t *testing.T) {
	rig := newTestRig(t)
	acc := rig.seedAccount(t, airauth.RoleUser, "alice@example.com", "correct horse")

	// Setup without verification leaves MFA disabled.
	if _, err := rig.engine.SetupMFA(context.Background(), acc.ID, acc.Role); err != nil {
		t.Fatalf("setup mfa: %v", err)
	}
	res := rig.login(t, "alice@example.com", "correct horse")
	if !res.Success || res.MFARequired {
		t.Fatalf("unverified secret must not gate login, got %+v", res)
	}
}

func TestLoginStampsLastLogin(t *testing.T) {
	rig := newTestRig(t)
	acc := rig.seedAccount(t, airauth.RoleUser, "alice@example.com", "correct horse")

	rig.login(t, "alice@example.com", "correct horse")

	got, err := rig.stores[airauth.RoleUser].FindByID(context.Background(), acc.ID)
	if err != nil {
		t.Fatalf("find account: %v", err)
	}
	if !got.LastLoginAt.Equal(rig.clock.Now()) {
		t.Fatalf("last login = %v, want %v", got.LastLoginAt, rig.clock.Now())
	}
}

type denyAllAbuse struct{}

func (denyAllAbuse) Verify(context.Context, string, string) error {
	return errors.New("token rejected")
}

func TestAbuseVerifierBlocksLogin(t *testing.T) {
	clock := newFakeClock()
	stores := newSeededStores(t, clock, "alice@example.com", "correct horse")

	engine := buildEngine(t, stores, clock, func(b *airauth.Builder) *airauth.Builder {
		return b.WithAbuseVerifier(denyAllAbuse{})
	})

	_, err := engine.AuthenticateWithEmail(context.Background(), airauth.EmailLoginInput{
		Email: "alice@example.com", Password: "correct horse", AbuseToken: "bogus",
	})
	if !errors.Is(err, airauth.ErrAbuseCheckFailed) {
		t.Fatalf("got %v, want ErrAbuseCheckFailed", err)
	}
}
