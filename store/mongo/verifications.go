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

type verificationTokenDoc struct {
	ID        string    `bson:"_id"`
	Token     string    `bson:"token"`
	UserID    string    `bson:"user_id"`
	Email     string    `bson:"email"`
	ExpiresAt time.Time `bson:"expires_at"`
	Used      bool      `bson:"used"`
	CreatedAt time.Time `bson:"created_at"`
}

// VerificationTokenStore persists email verification tokens.
type VerificationTokenStore struct {
	coll *mongo.Collection
}

// Save inserts a new verification token.
func (s *VerificationTokenStore) Save(ctx context.Context, t *airauth.EmailVerificationToken) error {
	const op = "store.mongo.VerificationTokenStore.Save"

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	doc := verificationTokenDoc{
		ID:        t.ID,
		Token:     t.Token,
		UserID:    t.UserID,
		Email:     t.Email,
		ExpiresAt: t.ExpiresAt,
		Used:      t.Used,
		CreatedAt: t.CreatedAt,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// FindByToken looks a verification token up by its opaque value.
func (s *VerificationTokenStore) FindByToken(ctx context.Context, token string) (*airauth.EmailVerificationToken, error) {
	const op = "store.mongo.VerificationTokenStore.FindByToken"

	var doc verificationTokenDoc
	if err := s.coll.FindOne(ctx, bson.D{{Key: "token", Value: token}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, airauth.ErrTokenNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &airauth.EmailVerificationToken{
		ID:        doc.ID,
		Token:     doc.Token,
		UserID:    doc.UserID,
		Email:     doc.Email,
		ExpiresAt: doc.ExpiresAt,
		Used:      doc.Used,
		CreatedAt: doc.CreatedAt,
	}, nil
}

// MarkUsed burns the token.
func (s *VerificationTokenStore) MarkUsed(ctx context.Context, id string) error {
	const op = "store.mongo.VerificationTokenStore.MarkUsed"

	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "used", Value: true}}}},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, airauth.ErrTokenNotFound)
	}
	return nil
}
