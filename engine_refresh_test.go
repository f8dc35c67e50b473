package airauth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aerovia/airauth"
)

func TestRefreshRotatesTokens(t *testing.T) {
	rig := newTestRig(t)
	rig.seedAccount(t, airauth.RoleUser, "alice@example.com", "correct horse")
	first := rig.login(t, "alice@example.com", "correct horse")

	second, err := rig.engine.Refresh(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !second.Success || second.AccessToken == "" || second.RefreshToken == "" {
		t.Fatalf("expected a full session, got %+v", second)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}
}

func TestRefreshReplayFails(t *testing.T) {
	rig := newTestRig(t)
	rig.seedAccount(t, airauth.RoleUser, "alice@example.com", "correct horse")
	first := rig.login(t, "alice@example.com", "correct horse")

	if _, err := rig.engine.Refresh(context.Background(), first.RefreshToken); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	_, err := rig.engine.Refresh(context.Background(), first.RefreshToken)
	if !errors.Is(err, airauth.ErrInvalidCredentials) {
		t.Fatalf("replay: got %v, want ErrInvalidCredentials", err)
	}
}

func TestRevokedOutranksExpired(t *testing.T) {
	rig := newTestRig(t)
	rig.seedAccount(t, airauth.RoleUser, "alice@example.com", "correct horse")
	res := rig.login(t, "alice@example.com", "correct horse")

	rig.engine.Logout(context.Background(), res.RefreshToken)
	rig.clock.Advance(8 * 24 * time.Hour)

	_, err := rig.engine.Refresh(context.Background(), res.RefreshToken)
	if !errors.Is(err, airauth.ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestExpiredRefreshFails(t *testing.T) {
	rig := newTestRig(t)
	rig.seedAccount(t, airauth.RoleUser, "alice@example.com", "correct horse")
	res := rig.login(t, "alice@example.com", "correct horse")

	rig.clock.Advance(8 * 24 * time.Hour)

	_, err := rig.engine.Refresh(context.Background(), res.RefreshToken)
	if !errors.Is(err, airauth.ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestRefreshRejectsForeignTokenTypes(t *testing.T) {
	rig := newTestRig(t)
	rig.seedAccount(t, airauth.RoleSuperadmin, "root@example.com", "correct horse")
	res := rig.login(t, "root@example.com", "correct horse")

	// The MFA session token is signed with the same key but must not be
	// accepted here.
	_, err := rig.engine.Refresh(context.Background(), res.MFASessionToken)
	if !errors.Is(err, airauth.ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}

	_, err = rig.engine.Refresh(context.Background(), "not-a-jwt")
	if !errors.Is(err, airauth.ErrInvalidCredentials) {
		t.Fatalf("garbage token: got %v, want ErrInvalidCredentials", err)
	}
}

func TestLogoutIsSilent(t *testing.T) {
	rig := newTestRig(t)
	rig.seedAccount(t, airauth.RoleUser, "alice@example.com", "correct horse")
	res := rig.login(t, "alice@example.com", "correct horse")

	ctx := context.Background()
	rig.engine.Logout(ctx, res.RefreshToken)
	rig.engine.Logout(ctx, res.RefreshToken) // repeat is a no-op
	rig.engine.Logout(ctx, "unknown-token")
	rig.engine.Logout(ctx, "")

	_, err := rig.engine.Refresh(ctx, res.RefreshToken)
	if !errors.Is(err, airauth.ErrInvalidCredentials) {
		t.Fatalf("token must be dead after logout, got %v", err)
	}
}
