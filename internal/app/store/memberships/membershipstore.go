// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/recipehub/internal/app/system/grouplock"
	"github.com/dalemusser/recipehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store owns the group_members and join_requests collections and every
// transition between them. All handler paths go through these operations;
// nothing else writes either collection.
//
// Mutations on a single group are serialized two ways: the per-group lock
// keeps multi-document sequences from interleaving, and the unique
// (group_id, user_id) indexes backstop duplicates if a write slips past the
// lock (a second process, a crash mid-sequence).
type Store struct {
	members  *mongo.Collection
	requests *mongo.Collection
	locks    *grouplock.Keyed
}

var (
	// ErrAlreadyMember: the user already holds a membership in this group.
	ErrAlreadyMember = errors.New("user is already a member of this group")
	// ErrAlreadyRequested: the user already has a pending join request.
	ErrAlreadyRequested = errors.New("user already has a pending join request for this group")
	// ErrNotMember: the target user holds no membership in this group.
	ErrNotMember = errors.New("user is not a member of this group")
	// ErrNoRequest: no pending join request exists to resolve. Also what the
	// loser of a concurrent double-approval observes.
	ErrNoRequest = errors.New("no pending join request for this user")
	// ErrOwnerImmutable: the owner role can never be assigned, demoted, or
	// removed, for any caller including global administrators.
	ErrOwnerImmutable = errors.New("the group owner cannot be changed or removed")
	// ErrBadRole: the requested role is outside {admin, member}.
	ErrBadRole = errors.New(`role must be "admin" or "member"`)
)

func New(db *mongo.Database, locks *grouplock.Keyed) *Store {
	return &Store{
		members:  db.Collection("group_members"),
		requests: db.Collection("join_requests"),
		locks:    locks,
	}
}

// JoinOutcome reports how RequestJoin resolved.
type JoinOutcome struct {
	// Member is set when the group is public and the caller became a member
	// immediately.
	Member *models.GroupMember
	// Request is set when the group is private and a pending request was
	// created instead.
	Request *models.JoinRequest
}

// RequestJoin handles a user asking to join a group located by invite code.
// Public groups are self-service: the user becomes a member on the spot.
// Private groups require explicit approval: a pending JoinRequest is created
// and an owner or group admin resolves it later.
func (s *Store) RequestJoin(ctx context.Context, group models.Group, userID primitive.ObjectID) (JoinOutcome, error) {
	unlock := s.locks.Lock(group.ID)
	defer unlock()

	isMember, err := s.exists(ctx, s.members, group.ID, userID)
	if err != nil {
		return JoinOutcome{}, err
	}
	if isMember {
		return JoinOutcome{}, ErrAlreadyMember
	}

	now := time.Now().UTC()

	if !group.IsPrivate {
		m := models.GroupMember{
			ID:       primitive.NewObjectID(),
			GroupID:  group.ID,
			UserID:   userID,
			Role:     models.RoleMember,
			JoinedAt: now,
		}
		if _, err := s.members.InsertOne(ctx, m); err != nil {
			if wafflemongo.IsDup(err) {
				return JoinOutcome{}, ErrAlreadyMember
			}
			return JoinOutcome{}, err
		}
		// The group may have been private when the user first asked to
		// join. Consume any request left over from that, so a member
		// never also holds a pending request.
		if _, err := s.requests.DeleteOne(ctx, bson.M{"group_id": group.ID, "user_id": userID}); err != nil {
			return JoinOutcome{}, err
		}
		return JoinOutcome{Member: &m}, nil
	}

	req := models.JoinRequest{
		ID:          primitive.NewObjectID(),
		GroupID:     group.ID,
		UserID:      userID,
		RequestedAt: now,
	}
	if _, err := s.requests.InsertOne(ctx, req); err != nil {
		if wafflemongo.IsDup(err) {
			return JoinOutcome{}, ErrAlreadyRequested
		}
		return JoinOutcome{}, err
	}
	return JoinOutcome{Request: &req}, nil
}

// ApproveJoin resolves a pending request into a membership with role member.
// The request is consumed atomically (FindOneAndDelete), so of two
// concurrent approvals exactly one wins; the other observes ErrNoRequest and
// no duplicate member is ever created.
func (s *Store) ApproveJoin(ctx context.Context, groupID, userID primitive.ObjectID) (models.GroupMember, error) {
	unlock := s.locks.Lock(groupID)
	defer unlock()

	err := s.requests.FindOneAndDelete(ctx, bson.M{"group_id": groupID, "user_id": userID}).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.GroupMember{}, ErrNoRequest
		}
		return models.GroupMember{}, err
	}

	m := models.GroupMember{
		ID:       primitive.NewObjectID(),
		GroupID:  groupID,
		UserID:   userID,
		Role:     models.RoleMember,
		JoinedAt: time.Now().UTC(),
	}
	if _, err := s.members.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.GroupMember{}, ErrAlreadyMember
		}
		return models.GroupMember{}, err
	}
	return m, nil
}

// RejectJoin deletes the pending request outright. No rejection history is
// retained for join requests.
func (s *Store) RejectJoin(ctx context.Context, groupID, userID primitive.ObjectID) error {
	unlock := s.locks.Lock(groupID)
	defer unlock()

	res, err := s.requests.DeleteOne(ctx, bson.M{"group_id": groupID, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNoRequest
	}
	return nil
}

// ChangeRole moves an existing member between admin and member. The owner
// role can be neither the target role nor the target member; both are
// rejected before any write.
func (s *Store) ChangeRole(ctx context.Context, groupID, targetID primitive.ObjectID, newRole models.GroupRole) (models.GroupMember, error) {
	if !newRole.Assignable() {
		return models.GroupMember{}, ErrBadRole
	}

	unlock := s.locks.Lock(groupID)
	defer unlock()

	m, err := s.get(ctx, groupID, targetID)
	if err != nil {
		return models.GroupMember{}, err
	}
	if m.Role == models.RoleOwner {
		return models.GroupMember{}, ErrOwnerImmutable
	}

	if _, err := s.members.UpdateByID(ctx, m.ID, bson.M{"$set": bson.M{"role": newRole}}); err != nil {
		return models.GroupMember{}, err
	}
	m.Role = newRole
	return m, nil
}

// RemoveMember removes a non-owner member. The removed member's recipes keep
// their group reference; only visibility rules change.
func (s *Store) RemoveMember(ctx context.Context, groupID, targetID primitive.ObjectID) error {
	unlock := s.locks.Lock(groupID)
	defer unlock()

	m, err := s.get(ctx, groupID, targetID)
	if err != nil {
		return err
	}
	if m.Role == models.RoleOwner {
		return ErrOwnerImmutable
	}

	_, err = s.members.DeleteOne(ctx, bson.M{"_id": m.ID})
	return err
}

// RoleOf returns the user's role in the group, or ErrNotMember.
func (s *Store) RoleOf(ctx context.Context, groupID, userID primitive.ObjectID) (models.GroupRole, error) {
	m, err := s.get(ctx, groupID, userID)
	if err != nil {
		return "", err
	}
	return m.Role, nil
}

// IsMember reports whether the user holds any role in the group.
func (s *Store) IsMember(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error) {
	return s.exists(ctx, s.members, groupID, userID)
}

// ListMembers returns the group's members, owner first, then by join time.
func (s *Store) ListMembers(ctx context.Context, groupID primitive.ObjectID) ([]models.GroupMember, error) {
	cur, err := s.members.Find(ctx, bson.M{"group_id": groupID},
		options.Find().SetSort(bson.D{{Key: "joined_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var members []models.GroupMember
	if err := cur.All(ctx, &members); err != nil {
		return nil, err
	}
	// Owner first for display; the rest keep join order.
	for i, m := range members {
		if m.Role == models.RoleOwner && i != 0 {
			members[0], members[i] = members[i], members[0]
			break
		}
	}
	return members, nil
}

// ListRequests returns the group's pending join requests, oldest first.
func (s *Store) ListRequests(ctx context.Context, groupID primitive.ObjectID) ([]models.JoinRequest, error) {
	cur, err := s.requests.Find(ctx, bson.M{"group_id": groupID},
		options.Find().SetSort(bson.D{{Key: "requested_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var requests []models.JoinRequest
	if err := cur.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// HasRequest reports whether the user has a pending request for the group.
func (s *Store) HasRequest(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error) {
	return s.exists(ctx, s.requests, groupID, userID)
}

func (s *Store) get(ctx context.Context, groupID, userID primitive.ObjectID) (models.GroupMember, error) {
	var m models.GroupMember
	err := s.members.FindOne(ctx, bson.M{"group_id": groupID, "user_id": userID}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.GroupMember{}, ErrNotMember
		}
		return models.GroupMember{}, err
	}
	return m, nil
}

func (s *Store) exists(ctx context.Context, c *mongo.Collection, groupID, userID primitive.ObjectID) (bool, error) {
	err := c.FindOne(ctx, bson.M{"group_id": groupID, "user_id": userID}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
