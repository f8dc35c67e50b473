package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/aerovia/airauth"
)

type mfaSecretDoc struct {
	ID          string    `bson:"_id"`
	UserID      string    `bson:"user_id"`
	Role        string    `bson:"role"`
	Secret      string    `bson:"secret"`
	BackupCodes string    `bson:"backup_codes,omitempty"`
	Verified    bool      `bson:"verified"`
	CreatedAt   time.Time `bson:"created_at"`
}

// SecretStore persists MFA secrets, unique per (user, role).
type SecretStore struct {
	coll *mongo.Collection
}

// Find returns the secret record for a (user, role) pair.
func (s *SecretStore) Find(ctx context.Context, userID string, role airauth.Role) (*airauth.MFASecret, error) {
	const op = "store.mongo.SecretStore.Find"

	var doc mfaSecretDoc
	err := s.coll.FindOne(ctx, bson.D{
		{Key: "user_id", Value: userID},
		{Key: "role", Value: string(role)},
	}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, airauth.ErrSecretNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &airauth.MFASecret{
		ID:          doc.ID,
		UserID:      doc.UserID,
		Role:        airauth.ParseRole(doc.Role),
		Secret:      doc.Secret,
		BackupCodes: doc.BackupCodes,
		Verified:    doc.Verified,
		CreatedAt:   doc.CreatedAt,
	}, nil
}

// Save upserts the secret record for its (user, role) pair.
func (s *SecretStore) Save(ctx context.Context, secret *airauth.MFASecret) error {
	const op = "store.mongo.SecretStore.Save"

	if secret.ID == "" {
		secret.ID = uuid.NewString()
	}
	if secret.CreatedAt.IsZero() {
		secret.CreatedAt = time.Now().UTC()
	}

	doc := mfaSecretDoc{
		ID:          secret.ID,
		UserID:      secret.UserID,
		Role:        string(secret.Role),
		Secret:      secret.Secret,
		BackupCodes: secret.BackupCodes,
		Verified:    secret.Verified,
		CreatedAt:   secret.CreatedAt,
	}
	_, err := s.coll.ReplaceOne(ctx,
		bson.D{
			{Key: "user_id", Value: secret.UserID},
			{Key: "role", Value: string(secret.Role)},
		},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Delete removes the secret record, disabling MFA for the pair.
func (s *SecretStore) Delete(ctx context.Context, userID string, role airauth.Role) error {
	const op = "store.mongo.SecretStore.Delete"

	res, err := s.coll.DeleteOne(ctx, bson.D{
		{Key: "user_id", Value: userID},
		{Key: "role", Value: string(role)},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, airauth.ErrSecretNotFound)
	}
	return nil
}
