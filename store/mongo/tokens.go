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

type refreshTokenDoc struct {
	ID        string    `bson:"_id"`
	Token     string    `bson:"token"`
	UserID    string    `bson:"user_id"`
	Role      string    `bson:"role"`
	Email     string    `bson:"email,omitempty"`
	ExpiresAt time.Time `bson:"expires_at"`
	Revoked   bool      `bson:"revoked"`
	CreatedAt time.Time `bson:"created_at"`
}

// TokenStore persists refresh tokens.
type TokenStore struct {
	coll *mongo.Collection
}

// Save inserts one rotation generation.
func (s *TokenStore) Save(ctx context.Context, t *airauth.RefreshToken) error {
	const op = "store.mongo.TokenStore.Save"

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	doc := refreshTokenDoc{
		ID:        t.ID,
		Token:     t.Token,
		UserID:    t.UserID,
		Role:      string(t.Role),
		Email:     t.Email,
		ExpiresAt: t.ExpiresAt,
		Revoked:   t.Revoked,
		CreatedAt: t.CreatedAt,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// FindByToken looks a token record up by its signed string.
func (s *TokenStore) FindByToken(ctx context.Context, token string) (*airauth.RefreshToken, error) {
	const op = "store.mongo.TokenStore.FindByToken"

	var doc refreshTokenDoc
	if err := s.coll.FindOne(ctx, bson.D{{Key: "token", Value: token}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, airauth.ErrTokenNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &airauth.RefreshToken{
		ID:        doc.ID,
		Token:     doc.Token,
		UserID:    doc.UserID,
		Role:      airauth.ParseRole(doc.Role),
		Email:     doc.Email,
		ExpiresAt: doc.ExpiresAt,
		Revoked:   doc.Revoked,
		CreatedAt: doc.CreatedAt,
	}, nil
}

// Revoke flips the revoked flag. Revoking a token that is already revoked
// or absent is not an error; logout is best-effort.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	const op = "store.mongo.TokenStore.Revoke"

	_, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "token", Value: token}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "revoked", Value: true}}}},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
