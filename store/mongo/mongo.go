// Package mongo provides the MongoDB-backed implementations of the engine's
// store interfaces. One Store owns the client; typed views over the
// collections satisfy the per-concern interfaces.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/aerovia/airauth"
)

// Collection names. Each role keeps its own credential collection; the
// remaining collections are shared across roles.
const (
	collUsers         = "users"
	collAdmins        = "admins"
	collSuperadmins   = "superadmins"
	collRefreshTokens = "refresh_tokens"
	collResetTokens   = "password_reset_tokens"
	collVerifications = "email_verification_tokens"
	collMFASecrets    = "mfa_secrets"
)

// Store owns the MongoDB client and hands out typed stores over its
// collections.
type Store struct {
	client   *mongo.Client
	database *mongo.Database
}

// New connects, pings, and ensures indexes. The caller owns the context
// deadline for the initial round trips.
func New(ctx context.Context, uri, database string) (*Store, error) {
	const op = "store.mongo.New"

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: connect: %w", op, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	s := &Store{
		client:   client,
		database: client.Database(database),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("%s: indexes: %w", op, err)
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	for _, coll := range []string{collUsers, collAdmins, collSuperadmins} {
		if err := createIndex(ctx, s.database.Collection(coll), bson.D{{Key: "email", Value: 1}}, options.Index().SetUnique(true)); err != nil {
			return fmt.Errorf("%s.email index: %w", coll, err)
		}
		if err := createIndex(ctx, s.database.Collection(coll), bson.D{{Key: "provider", Value: 1}, {Key: "provider_id", Value: 1}}, nil); err != nil {
			return fmt.Errorf("%s.provider index: %w", coll, err)
		}
	}

	if err := createIndex(ctx, s.database.Collection(collRefreshTokens), bson.D{{Key: "token", Value: 1}}, options.Index().SetUnique(true)); err != nil {
		return fmt.Errorf("refresh_tokens.token index: %w", err)
	}
	// Expired refresh tokens age out server-side.
	if err := createIndex(ctx, s.database.Collection(collRefreshTokens), bson.D{{Key: "expires_at", Value: 1}}, options.Index().SetExpireAfterSeconds(0)); err != nil {
		return fmt.Errorf("refresh_tokens.expires_at TTL index: %w", err)
	}

	for _, coll := range []string{collResetTokens, collVerifications} {
		if err := createIndex(ctx, s.database.Collection(coll), bson.D{{Key: "token", Value: 1}}, options.Index().SetUnique(true)); err != nil {
			return fmt.Errorf("%s.token index: %w", coll, err)
		}
	}

	if err := createIndex(ctx, s.database.Collection(collMFASecrets), bson.D{{Key: "user_id", Value: 1}, {Key: "role", Value: 1}}, options.Index().SetUnique(true)); err != nil {
		return fmt.Errorf("mfa_secrets.user_role index: %w", err)
	}
	return nil
}

func createIndex(ctx context.Context, coll *mongo.Collection, keys bson.D, opts *options.IndexOptionsBuilder) error {
	model := mongo.IndexModel{Keys: keys}
	if opts != nil {
		model.Options = opts
	}
	_, err := coll.Indexes().CreateOne(ctx, model)
	return err
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Credentials returns the credential store for a role.
func (s *Store) Credentials(role airauth.Role) *CredentialStore {
	coll := collUsers
	switch role {
	case airauth.RoleAdmin:
		coll = collAdmins
	case airauth.RoleSuperadmin:
		coll = collSuperadmins
	}
	return &CredentialStore{coll: s.database.Collection(coll), role: role}
}

// Directory assembles the per-role credential stores into the engine's
// role dispatch map.
func (s *Store) Directory() map[airauth.Role]airauth.CredentialStore {
	return map[airauth.Role]airauth.CredentialStore{
		airauth.RoleUser:       s.Credentials(airauth.RoleUser),
		airauth.RoleAdmin:      s.Credentials(airauth.RoleAdmin),
		airauth.RoleSuperadmin: s.Credentials(airauth.RoleSuperadmin),
	}
}

// Tokens returns the refresh token store.
func (s *Store) Tokens() *TokenStore {
	return &TokenStore{coll: s.database.Collection(collRefreshTokens)}
}

// Resets returns the password reset token store.
func (s *Store) Resets() *ResetTokenStore {
	return &ResetTokenStore{coll: s.database.Collection(collResetTokens)}
}

// Verifications returns the email verification token store.
func (s *Store) Verifications() *VerificationTokenStore {
	return &VerificationTokenStore{coll: s.database.Collection(collVerifications)}
}

// Secrets returns the MFA secret store.
func (s *Store) Secrets() *SecretStore {
	return &SecretStore{coll: s.database.Collection(collMFASecrets)}
}
