// Package memory provides in-memory implementations of the engine's store
// interfaces. They back the test suite and single-process deployments;
// nothing survives a restart.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aerovia/airauth"
)

// CredentialStore keeps one role's accounts in a map keyed by ID.
type CredentialStore struct {
	mu       sync.RWMutex
	role     airauth.Role
	accounts map[string]airauth.Account
}

// NewCredentialStore creates an empty store for the role.
func NewCredentialStore(role airauth.Role) *CredentialStore {
	return &CredentialStore{
		role:     role,
		accounts: make(map[string]airauth.Account),
	}
}

// NewDirectory creates one store per role, ready for the engine builder.
func NewDirectory() map[airauth.Role]airauth.CredentialStore {
	return map[airauth.Role]airauth.CredentialStore{
		airauth.RoleUser:       NewCredentialStore(airauth.RoleUser),
		airauth.RoleAdmin:      NewCredentialStore(airauth.RoleAdmin),
		airauth.RoleSuperadmin: NewCredentialStore(airauth.RoleSuperadmin),
	}
}

func (s *CredentialStore) FindByEmail(_ context.Context, email string) (*airauth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acc := range s.accounts {
		if strings.EqualFold(acc.Email, email) {
			out := acc
			return &out, nil
		}
	}
	return nil, airauth.ErrUserNotFound
}

func (s *CredentialStore) FindByID(_ context.Context, id string) (*airauth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil, airauth.ErrUserNotFound
	}
	out := acc
	return &out, nil
}

func (s *CredentialStore) FindByProvider(_ context.Context, provider, providerID string) (*airauth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acc := range s.accounts {
		if acc.Provider == provider && acc.ProviderID == providerID {
			out := acc
			return &out, nil
		}
	}
	return nil, airauth.ErrUserNotFound
}

func (s *CredentialStore) Create(_ context.Context, acc *airauth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if strings.EqualFold(existing.Email, acc.Email) {
			return airauth.ErrAccountExists
		}
	}
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = time.Now().UTC()
	}
	acc.Role = s.role
	s.accounts[acc.ID] = *acc
	return nil
}

func (s *CredentialStore) Update(_ context.Context, acc *airauth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[acc.ID]; !ok {
		return airauth.ErrUserNotFound
	}
	s.accounts[acc.ID] = *acc
	return nil
}

// TokenStore keeps refresh tokens keyed by the signed string.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]airauth.RefreshToken
}

// NewTokenStore creates an empty token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[string]airauth.RefreshToken)}
}

func (s *TokenStore) Save(_ context.Context, t *airauth.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	s.tokens[t.Token] = *t
	return nil
}

func (s *TokenStore) FindByToken(_ context.Context, token string) (*airauth.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[token]
	if !ok {
		return nil, airauth.ErrTokenNotFound
	}
	out := t
	return &out, nil
}

func (s *TokenStore) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[token]; ok {
		t.Revoked = true
		s.tokens[token] = t
	}
	return nil
}

// ResetTokenStore keeps password reset tokens.
type ResetTokenStore struct {
	mu    sync.RWMutex
	byID  map[string]airauth.PasswordResetToken
	byTok map[string]string
}

// NewResetTokenStore creates an empty reset token store.
func NewResetTokenStore() *ResetTokenStore {
	return &ResetTokenStore{
		byID:  make(map[string]airauth.PasswordResetToken),
		byTok: make(map[string]string),
	}
}

func (s *ResetTokenStore) Save(_ context.Context, t *airauth.PasswordResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	s.byID[t.ID] = *t
	s.byTok[t.Token] = t.ID
	return nil
}

func (s *ResetTokenStore) FindByToken(_ context.Context, token string) (*airauth.PasswordResetToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byTok[token]
	if !ok {
		return nil, airauth.ErrTokenNotFound
	}
	out := s.byID[id]
	return &out, nil
}

func (s *ResetTokenStore) MarkUsed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return airauth.ErrTokenNotFound
	}
	t.Used = true
	s.byID[id] = t
	return nil
}

// VerificationTokenStore keeps email verification tokens.
type VerificationTokenStore struct {
	mu    sync.RWMutex
	byID  map[string]airauth.EmailVerificationToken
	byTok map[string]string
}

// NewVerificationTokenStore creates an empty verification token store.
func NewVerificationTokenStore() *VerificationTokenStore {
	return &VerificationTokenStore{
		byID:  make(map[string]airauth.EmailVerificationToken),
		byTok: make(map[string]string),
	}
}

func (s *VerificationTokenStore) Save(_ context.Context, t *airauth.EmailVerificationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	s.byID[t.ID] = *t
	s.byTok[t.Token] = t.ID
	return nil
}

func (s *VerificationTokenStore) FindByToken(_ context.Context, token string) (*airauth.EmailVerificationToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byTok[token]
	if !ok {
		return nil, airauth.ErrTokenNotFound
	}
	out := s.byID[id]
	return &out, nil
}

func (s *VerificationTokenStore) MarkUsed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return airauth.ErrTokenNotFound
	}
	t.Used = true
	s.byID[id] = t
	return nil
}

// SecretStore keeps MFA secrets keyed by (user, role).
type SecretStore struct {
	mu      sync.RWMutex
	secrets map[string]airauth.MFASecret
}

// NewSecretStore creates an empty secret store.
func NewSecretStore() *SecretStore {
	return &SecretStore{secrets: make(map[string]airauth.MFASecret)}
}

func secretKey(userID string, role airauth.Role) string {
	return userID + "/" + string(role)
}

func (s *SecretStore) Find(_ context.Context, userID string, role airauth.Role) (*airauth.MFASecret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sec, ok := s.secrets[secretKey(userID, role)]
	if !ok {
		return nil, airauth.ErrSecretNotFound
	}
	out := sec
	return &out, nil
}

func (s *SecretStore) Save(_ context.Context, sec *airauth.MFASecret) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sec.ID == "" {
		sec.ID = uuid.NewString()
	}
	if sec.CreatedAt.IsZero() {
		sec.CreatedAt = time.Now().UTC()
	}
	s.secrets[secretKey(sec.UserID, sec.Role)] = *sec
	return nil
}

func (s *SecretStore) Delete(_ context.Context, userID string, role airauth.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := secretKey(userID, role)
	if _, ok := s.secrets[key]; !ok {
		return airauth.ErrSecretNotFound
	}
	delete(s.secrets, key)
	return nil
}
