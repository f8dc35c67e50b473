package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/aerovia/airauth"
)

type accountDoc struct {
	ID                  string    `bson:"_id"`
	Email               string    `bson:"email"`
	FullName            string    `bson:"full_name,omitempty"`
	PasswordHash        string    `bson:"password_hash,omitempty"`
	Provider            string    `bson:"provider,omitempty"`
	ProviderID          string    `bson:"provider_id,omitempty"`
	MFAEnabled          bool      `bson:"mfa_enabled"`
	EmailVerified       bool      `bson:"email_verified"`
	AccountLocked       bool      `bson:"account_locked"`
	FailedLoginAttempts int       `bson:"failed_login_attempts"`
	LastLoginAt         time.Time `bson:"last_login_at,omitempty"`
	CreatedAt           time.Time `bson:"created_at"`
}

// CredentialStore persists one role's accounts in its own collection.
type CredentialStore struct {
	coll *mongo.Collection
	role airauth.Role
}

// FindByEmail looks an account up by email.
func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*airauth.Account, error) {
	const op = "store.mongo.CredentialStore.FindByEmail"
	return s.findOne(ctx, op, bson.D{{Key: "email", Value: email}})
}

// FindByID looks an account up by ID.
func (s *CredentialStore) FindByID(ctx context.Context, id string) (*airauth.Account, error) {
	const op = "store.mongo.CredentialStore.FindByID"
	return s.findOne(ctx, op, bson.D{{Key: "_id", Value: id}})
}

// FindByProvider looks an account up by its social identity.
func (s *CredentialStore) FindByProvider(ctx context.Context, provider, providerID string) (*airauth.Account, error) {
	const op = "store.mongo.CredentialStore.FindByProvider"
	return s.findOne(ctx, op, bson.D{
		{Key: "provider", Value: provider},
		{Key: "provider_id", Value: providerID},
	})
}

func (s *CredentialStore) findOne(ctx context.Context, op string, filter bson.D) (*airauth.Account, error) {
	var doc accountDoc
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, airauth.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.toAccount(&doc), nil
}

// Create inserts a new account, assigning an ID when the caller left it
// empty. A duplicate email maps to [airauth.ErrAccountExists].
func (s *CredentialStore) Create(ctx context.Context, acc *airauth.Account) error {
	const op = "store.mongo.CredentialStore.Create"

	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = time.Now().UTC()
	}
	acc.Role = s.role

	if _, err := s.coll.InsertOne(ctx, s.toDoc(acc)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, airauth.ErrAccountExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Update replaces the stored account document.
func (s *CredentialStore) Update(ctx context.Context, acc *airauth.Account) error {
	const op = "store.mongo.CredentialStore.Update"

	res, err := s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: acc.ID}}, s.toDoc(acc))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, airauth.ErrUserNotFound)
	}
	return nil
}

func (s *CredentialStore) toDoc(acc *airauth.Account) *accountDoc {
	return &accountDoc{
		ID:                  acc.ID,
		Email:               acc.Email,
		FullName:            acc.FullName,
		PasswordHash:        acc.PasswordHash,
		Provider:            acc.Provider,
		ProviderID:          acc.ProviderID,
		MFAEnabled:          acc.MFAEnabled,
		EmailVerified:       acc.EmailVerified,
		AccountLocked:       acc.AccountLocked,
		FailedLoginAttempts: acc.FailedLoginAttempts,
		LastLoginAt:         acc.LastLoginAt,
		CreatedAt:           acc.CreatedAt,
	}
}

func (s *CredentialStore) toAccount(doc *accountDoc) *airauth.Account {
	return &airauth.Account{
		ID:                  doc.ID,
		Email:               doc.Email,
		FullName:            doc.FullName,
		PasswordHash:        doc.PasswordHash,
		Role:                s.role,
		Provider:            doc.Provider,
		ProviderID:          doc.ProviderID,
		MFAEnabled:          doc.MFAEnabled,
		EmailVerified:       doc.EmailVerified,
		AccountLocked:       doc.AccountLocked,
		FailedLoginAttempts: doc.FailedLoginAttempts,
		LastLoginAt:         doc.LastLoginAt,
		CreatedAt:           doc.CreatedAt,
	}
}
