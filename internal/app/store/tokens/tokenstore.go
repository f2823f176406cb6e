// internal/app/store/tokens/tokenstore.go
package tokenstore

import (
	"context"
	"time"

	"github.com/dalemusser/recipehub/internal/app/system/timeouts"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Token is an opaque bearer credential issued at login. The SPA stores it
// and sends it as "Authorization: Bearer <token>". Tokens are revoked on
// logout and expire via the TTL index on expires_at.
type Token struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Token     string             `bson:"token"`
	UserID    primitive.ObjectID `bson:"user_id"`
	IssuedAt  time.Time          `bson:"issued_at"`
	ExpiresAt time.Time          `bson:"expires_at"`
	IP        string             `bson:"ip,omitempty"`
	UserAgent string             `bson:"user_agent,omitempty"`
}

// Store manages bearer tokens.
type Store struct {
	c   *mongo.Collection
	ttl time.Duration
}

// New creates a token Store issuing tokens valid for ttl.
func New(db *mongo.Database, ttl time.Duration) *Store {
	return &Store{c: db.Collection("tokens"), ttl: ttl}
}

// Issue creates and persists a fresh token for userID.
func (s *Store) Issue(ctx context.Context, userID primitive.ObjectID, ip, userAgent string) (Token, error) {
	now := time.Now().UTC()
	t := Token{
		ID:        primitive.NewObjectID(),
		Token:     uuid.NewString() + uuid.NewString(),
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
		IP:        ip,
		UserAgent: userAgent,
	}
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return Token{}, err
	}
	return t, nil
}

// Revoke deletes a token (logout).
func (s *Store) Revoke(ctx context.Context, token string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"token": token})
	return err
}

// RevokeAllForUser deletes every token for a user (password change, account
// disable).
func (s *Store) RevokeAllForUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ResolveToken implements auth.TokenResolver. Expired-but-not-yet-reaped
// tokens are rejected here rather than waiting on the TTL monitor.
func (s *Store) ResolveToken(ctx context.Context, token string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var t Token
	err := s.c.FindOne(ctx, bson.M{
		"token":      token,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&t)
	if err != nil {
		return "", false
	}
	return t.UserID.Hex(), true
}
