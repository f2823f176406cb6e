// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryAuth       = "auth"
	CategoryMembership = "membership"
	CategoryModeration = "moderation"
)

// Auth event types
const (
	EventLoginSuccess             = "login_success"
	EventLoginFailedUserNotFound  = "login_failed_user_not_found"
	EventLoginFailedWrongPassword = "login_failed_wrong_password"
	EventLoginFailedUserDisabled  = "login_failed_user_disabled"
	EventLogout                   = "logout"
	EventRegistered               = "registered"
)

// Membership event types
const (
	EventGroupCreated      = "group_created"
	EventGroupUpdated      = "group_updated"
	EventGroupDeleted      = "group_deleted"
	EventJoinRequested     = "join_requested"
	EventJoinedGroup       = "joined_group"
	EventJoinApproved      = "join_approved"
	EventJoinRejected      = "join_rejected"
	EventMemberRoleChanged = "member_role_changed"
	EventMemberRemoved     = "member_removed"
)

// Moderation event types
const (
	EventContentApproved = "content_approved"
	EventContentRejected = "content_rejected"
)

// Event is one audit record. Membership and moderation decisions are the
// authorization-sensitive mutations in this service, so they all land here.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`

	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	// ActorID performed the action; UserID is the affected user (join
	// approvals, role changes, removals).
	ActorID *primitive.ObjectID `bson:"actor_id,omitempty"`
	UserID  *primitive.ObjectID `bson:"user_id,omitempty"`
	GroupID *primitive.ObjectID `bson:"group_id,omitempty"`
	ItemID  *primitive.ObjectID `bson:"item_id,omitempty"`

	IP string `bson:"ip,omitempty"`

	Success       bool              `bson:"success"`
	FailureReason string            `bson:"failure_reason,omitempty"`
	Details       map[string]string `bson:"details,omitempty"`
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Insert writes one event. Timestamp is stamped here if the caller left it
// zero.
func (s *Store) Insert(ctx context.Context, e Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, e)
	return err
}

// Recent returns the newest events, capped at limit.
func (s *Store) Recent(ctx context.Context, limit int64) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
