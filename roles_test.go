package airauth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aerovia/airauth"
	"github.com/aerovia/airauth/store/memory"
)

func TestParseRole(t *testing.T) {
	cases := map[string]airauth.Role{
		"USER":       airauth.RoleUser,
		"admin":      airauth.RoleAdmin,
		"SuperAdmin": airauth.RoleSuperadmin,
		"":           airauth.RoleUser,
		"pilot":      airauth.RoleUser,
	}
	for in, want := range cases {
		if got := airauth.ParseRole(in); got != want {
			t.Errorf("ParseRole(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRoleDirectoryRequiresAllRoles(t *testing.T) {
	_, err := airauth.NewRoleDirectory(map[airauth.Role]airauth.CredentialStore{
		airauth.RoleUser: memory.NewCredentialStore(airauth.RoleUser),
	})
	if err == nil {
		t.Fatal("expected an error for missing roles")
	}
}

func TestRoleDirectorySearchOrder(t *testing.T) {
	stores := memory.NewDirectory()
	dir, err := airauth.NewRoleDirectory(stores)
	if err != nil {
		t.Fatalf("new directory: %v", err)
	}
	ctx := context.Background()

	// The same address exists as both an admin and a superadmin; lookup
	// must settle on the earlier role in USER, ADMIN, SUPERADMIN order.
	for _, role := range []airauth.Role{airauth.RoleAdmin, airauth.RoleSuperadmin} {
		err := stores[role].Create(ctx, &airauth.Account{
			Email: "shared@example.com",
			Role:  role,
		})
		if err != nil {
			t.Fatalf("seed %s: %v", role, err)
		}
	}

	_, role, err := dir.FindByEmail(ctx, "shared@example.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if role != airauth.RoleAdmin {
		t.Fatalf("resolved role %q, want ADMIN", role)
	}
}

func TestRoleDirectoryMiss(t *testing.T) {
	dir, err := airauth.NewRoleDirectory(memory.NewDirectory())
	if err != nil {
		t.Fatalf("new directory: %v", err)
	}

	_, _, err = dir.FindByEmail(context.Background(), "ghost@example.com")
	if !errors.Is(err, airauth.ErrUserNotFound) {
		t.Fatalf("got %v, want ErrUserNotFound", err)
	}
}
