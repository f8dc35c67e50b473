package airauth_test

import (
	"errors"
	"testing"

	"github.com/aerovia/airauth"
	"github.com/aerovia/airauth/store/memory"
)

func TestBuildRejectsMissingWiring(t *testing.T) {
	cases := []struct {
		name string
		b    *airauth.Builder
	}{
		{"empty builder", airauth.New()},
		{"no stores", airauth.New().WithJWTSecret(testSecret)},
		{"no token store", airauth.New().
			WithJWTSecret(testSecret).
			WithCredentialStores(memory.NewDirectory())},
		{"short secret", airauth.New().
			WithJWTSecret([]byte("short")).
			WithCredentialStores(memory.NewDirectory()).
			WithTokenStore(memory.NewTokenStore()).
			WithResetTokenStore(memory.NewResetTokenStore()).
			WithVerificationTokenStore(memory.NewVerificationTokenStore()).
			WithSecretStore(memory.NewSecretStore())},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.b.Build()
			if !errors.Is(err, airauth.ErrEngineNotReady) {
				t.Fatalf("got %v, want ErrEngineNotReady", err)
			}
		})
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	b := airauth.New().
		WithJWTSecret(testSecret).
		WithCredentialStores(memory.NewDirectory()).
		WithTokenStore(memory.NewTokenStore()).
		WithResetTokenStore(memory.NewResetTokenStore()).
		WithVerificationTokenStore(memory.NewVerificationTokenStore()).
		WithSecretStore(memory.NewSecretStore())

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	t.Cleanup(engine.Close)

	if _, err := b.Build(); !errors.Is(err, airauth.ErrEngineNotReady) {
		t.Fatalf("second build: got %v, want ErrEngineNotReady", err)
	}
}
