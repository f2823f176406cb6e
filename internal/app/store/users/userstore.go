// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/recipehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var ErrDuplicateEmail = errors.New("an account with this email already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// GetByEmail looks a user up by the normalized (lowercased, trimmed) email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"email": normalizeEmail(email)}).Decode(&u)
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

// Create inserts a new user. Role defaults to "user"; the global admin role
// is only ever granted by EnsureAdmin or by an existing admin.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	now := time.Now().UTC()
	u.ID = primitive.NewObjectID()
	u.Email = normalizeEmail(u.Email)
	u.FullNameCI = text.Fold(u.FullName)
	if u.Role == "" {
		u.Role = models.GlobalRoleUser
	}
	if u.Status == "" {
		u.Status = "active"
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// EnsureAdmin promotes the user with the given email to global admin,
// creating a password-less account if none exists. Called at startup when
// admin_email is configured, so a fresh deployment always has a moderator.
func (s *Store) EnsureAdmin(ctx context.Context, email, fullName string) error {
	email = normalizeEmail(email)
	if email == "" {
		return nil
	}
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"role":       models.GlobalRoleAdmin,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"_id":          primitive.NewObjectID(),
			"email":        email,
			"full_name":    fullName,
			"full_name_ci": text.Fold(fullName),
			"auth_method":  models.AuthMethodGoogle,
			"status":       "active",
			"created_at":   now,
		},
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"email": email}, update, options.Update().SetUpsert(true))
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
