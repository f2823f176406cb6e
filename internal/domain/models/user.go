// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Global (site-wide) roles. A global admin's authority is independent of any
// group's roles: it overrides moderation decisions and group deletion but is
// granted through the user record, never through a membership.
const (
	GlobalRoleUser  = "user"
	GlobalRoleAdmin = "admin"
)

// Auth methods recorded on the user.
const (
	AuthMethodPassword = "password"
	AuthMethodGoogle   = "google"
)

// User represents an account holder. Group membership is not embedded here;
// use the group_members collection to discover a user's groups.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName     string             `bson:"full_name" json:"fullName"`
	FullNameCI   string             `bson:"full_name_ci" json:"-"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`
	AuthMethod   string             `bson:"auth_method,omitempty" json:"-"`
	Role         string             `bson:"role" json:"role"` // "user" | "admin"
	Status       string             `bson:"status,omitempty" json:"status,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
