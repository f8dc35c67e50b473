package airauth_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aerovia/airauth"
	"github.com/aerovia/airauth/mailer"
	"github.com/aerovia/airauth/password"
	"github.com/aerovia/airauth/store/memory"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// fakeClock is a settable time source shared between a test and its engine.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingMailer captures outbound messages for assertions.
type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) last(t *testing.T) mailer.Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no mail was sent")
	}
	return m.sent[len(m.sent)-1]
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// testRig bundles an engine with the fakes its tests poke at.
type testRig struct {
	engine *airauth.Engine
	clock  *fakeClock
	stores map[airauth.Role]airauth.CredentialStore
	mail   *recordingMailer
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()

	clock := newFakeClock()
	stores := memory.NewDirectory()
	mail := &recordingMailer{}

	// Keep argon2 cheap so the suite stays fast; the PHC encoding makes
	// hashes self-describing either way.
	cfg := airauth.DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.PasswordReset.LinkBaseURL = "https://app.example.com/reset/"
	cfg.Verification.LinkBaseURL = "https://app.example.com/verify/"

	engine, err := airauth.New().
		WithConfig(cfg).
		WithJWTSecret(testSecret).
		WithCredentialStores(stores).
		WithTokenStore(memory.NewTokenStore()).
		WithResetTokenStore(memory.NewResetTokenStore()).
		WithVerificationTokenStore(memory.NewVerificationTokenStore()).
		WithSecretStore(memory.NewSecretStore()).
		WithMailer(mail).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testRig{engine: engine, clock: clock, stores: stores, mail: mail}
}

// seedAccount creates a verified account with the given password directly in
// the role's store.
func (r *testRig) seedAccount(t *testing.T, role airauth.Role, email, password string) *airauth.Account {
	t.Helper()

	hasher := testHasher(t)
	hash, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	acc := &airauth.Account{
		Email:         email,
		FullName:      "Test Passenger",
		PasswordHash:  hash,
		Role:          role,
		EmailVerified: true,
		CreatedAt:     r.clock.Now(),
	}
	if err := r.stores[role].Create(context.Background(), acc); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return acc
}

// login runs the password flow and fails the test on error.
func (r *testRig) login(t *testing.T, email, password string) *airauth.AuthResult {
	t.Helper()
	res, err := r.engine.AuthenticateWithEmail(context.Background(), airauth.EmailLoginInput{
		Email:    email,
		Password: password,
	})
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	return res
}

// enableMFA walks an account through setup and enable, returning the setup
// result so tests can use the secret and backup codes.
func (r *testRig) enableMFA(t *testing.T, acc *airauth.Account) *airauth.MFASetupResult {
	t.Helper()
	ctx := context.Background()

	setup, err := r.engine.SetupMFA(ctx, acc.ID, acc.Role)
	if err != nil {
		t.Fatalf("setup mfa: %v", err)
	}
	code := totpCode(t, setup.Secret, r.clock.Now())
	if err := r.engine.VerifyAndEnableMFA(ctx, acc.ID, acc.Role, code); err != nil {
		t.Fatalf("enable mfa: %v", err)
	}
	return setup
}

// buildEngine assembles an engine over the given stores with an optional
// builder customization, for tests that need wiring the default rig lacks.
func buildEngine(t *testing.T, stores map[airauth.Role]airauth.CredentialStore, clock *fakeClock, mod func(*airauth.Builder) *airauth.Builder) *airauth.Engine {
	t.Helper()

	cfg := airauth.DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	b := airauth.New().
		WithConfig(cfg).
		WithJWTSecret(testSecret).
		WithCredentialStores(stores).
		WithTokenStore(memory.NewTokenStore()).
		WithResetTokenStore(memory.NewResetTokenStore()).
		WithVerificationTokenStore(memory.NewVerificationTokenStore()).
		WithSecretStore(memory.NewSecretStore()).
		WithClock(clock.Now)
	if mod != nil {
		b = mod(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

// newSeededStores returns a fresh directory with one verified USER account.
func newSeededStores(t *testing.T, clock *fakeClock, email, password string) map[airauth.Role]airauth.CredentialStore {
	t.Helper()

	stores := memory.NewDirectory()
	hash, err := testHasher(t).Hash(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	acc := &airauth.Account{
		Email:         email,
		PasswordHash:  hash,
		Role:          airauth.RoleUser,
		EmailVerified: true,
		CreatedAt:     clock.Now(),
	}
	if err := stores[airauth.RoleUser].Create(context.Background(), acc); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return stores
}

// testHasher mirrors the rig's lightweight argon2 parameters for seeding
// accounts outside the engine.
func testHasher(t *testing.T) *password.Hasher {
	t.Helper()
	h, err := password.NewHasher(password.Params{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	return h
}

// totpCode derives the RFC 6238 code for the secret at the given instant,
// independently of the engine's implementation.
func totpCode(t *testing.T, secret string, now time.Time) string {
	t.Helper()
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret)
	if err != nil {
		t.Fatalf("decode totp secret: %v", err)
	}
	counter := now.Unix() / 30

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))
	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)
	offset := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
	return fmt.Sprintf("%06d", code%1_000_000)
}
