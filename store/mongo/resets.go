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

type resetTokenDoc struct {
	ID        string    `bson:"_id"`
	Token     string    `bson:"token"`
	UserID    string    `bson:"user_id"`
	Role      string    `bson:"role"`
	Email     string    `bson:"email"`
	ExpiresAt time.Time `bson:"expires_at"`
	Used      bool      `bson:"used"`
	CreatedAt time.Time `bson:"created_at"`
}

// ResetTokenStore persists password reset tokens. Records are kept after
// use; the used flag, not deletion, is what exhausts a token.
type ResetTokenStore struct {
	coll *mongo.Collection
}

// Save inserts a new reset token.
func (s *ResetTokenStore) Save(ctx context.Context, t *airauth.PasswordResetToken) error {
	const op = "store.mongo.ResetTokenStore.Save"

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	doc := resetTokenDoc{
		ID:        t.ID,
		Token:     t.Token,
		UserID:    t.UserID,
		Role:      string(t.Role),
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

// FindByToken looks a reset token up by its opaque value.
func (s *ResetTokenStore) FindByToken(ctx context.Context, token string) (*airauth.PasswordResetToken, error) {
	const op = "store.mongo.ResetTokenStore.FindByToken"

	var doc resetTokenDoc
	if err := s.coll.FindOne(ctx, bson.D{{Key: "token", Value: token}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, airauth.ErrTokenNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &airauth.PasswordResetToken{
		ID:        doc.ID,
		Token:     doc.Token,
		UserID:    doc.UserID,
		Role:      airauth.ParseRole(doc.Role),
		Email:     doc.Email,
		ExpiresAt: doc.ExpiresAt,
		Used:      doc.Used,
		CreatedAt: doc.CreatedAt,
	}, nil
}

// MarkUsed burns the token.
func (s *ResetTokenStore) MarkUsed(ctx context.Context, id string) error {
	const op = "store.mongo.ResetTokenStore.MarkUsed"

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
