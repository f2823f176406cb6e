// internal/domain/models/groupmember.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GroupRole is a user's role within one specific group.
//
// RoleOwner is assigned exactly once, to the creator when the group is
// created. It can never be reassigned, demoted, or removed while the group
// exists; ownership transfer is unsupported.
type GroupRole string

const (
	RoleOwner  GroupRole = "owner"
	RoleAdmin  GroupRole = "admin"
	RoleMember GroupRole = "member"
)

// Assignable reports whether r may be set through role changes. Only admin
// and member are assignable; owner exists solely through group creation.
func (r GroupRole) Assignable() bool {
	return r == RoleAdmin || r == RoleMember
}

// CanModerateJoins reports whether r may approve or reject join requests
// and manage other members.
func (r GroupRole) CanModerateJoins() bool {
	return r == RoleOwner || r == RoleAdmin
}

// GroupMember is the authoritative join between users and groups.
// Exactly one document per (group_id, user_id); enforced by a unique index.
type GroupMember struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID  primitive.ObjectID `bson:"group_id" json:"groupId"`
	UserID   primitive.ObjectID `bson:"user_id" json:"userId"`
	Role     GroupRole          `bson:"role" json:"role"`
	JoinedAt time.Time          `bson:"joined_at" json:"joinedAt"`
}

// JoinRequest is a pending, unresolved request by a user to join a private
// group. At most one active request per (group_id, user_id); a user who is
// already a member never holds a request for the same group. Resolving a
// request (approve or reject) removes it, exactly once. No history is kept
// for rejected requests.
type JoinRequest struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID     primitive.ObjectID `bson:"group_id" json:"groupId"`
	UserID      primitive.ObjectID `bson:"user_id" json:"userId"`
	RequestedAt time.Time          `bson:"requested_at" json:"requestedAt"`
}
