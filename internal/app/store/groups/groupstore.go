// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/recipehub/internal/app/system/invitecode"
	"github.com/dalemusser/recipehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c        *mongo.Collection
	members  *mongo.Collection
	requests *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:        db.Collection("groups"),
		members:  db.Collection("group_members"),
		requests: db.Collection("join_requests"),
	}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// FindByInviteCode looks up the live group owning a code.
func (s *Store) FindByInviteCode(ctx context.Context, code string) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"invite_code": code}).Decode(&g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// Create inserts a new group in pending moderation state and, in the same
// operation, the creator's owner membership. A group never exists without
// exactly one owner; the membership insert follows the group insert, and a
// failure there rolls the group back out.
//
// The invite code comes from the allocator with a bounded retry loop against
// the unique index; exhausting the retries surfaces
// invitecode.ErrSpaceExhausted.
func (s *Store) Create(ctx context.Context, g models.Group) (models.Group, error) {
	now := time.Now().UTC()
	g.ID = primitive.NewObjectID()
	g.NameCI = text.Fold(g.Name)
	g.Moderation = models.NewModeration()
	g.CreatedAt = now
	g.UpdatedAt = now

	inserted := false
	for attempt := 0; attempt < invitecode.MaxAttempts; attempt++ {
		code, err := invitecode.Generate()
		if err != nil {
			return models.Group{}, err
		}
		g.InviteCode = code
		if _, err := s.c.InsertOne(ctx, g); err != nil {
			if wafflemongo.IsDup(err) {
				continue
			}
			return models.Group{}, err
		}
		inserted = true
		break
	}
	if !inserted {
		return models.Group{}, invitecode.ErrSpaceExhausted
	}

	owner := models.GroupMember{
		ID:       primitive.NewObjectID(),
		GroupID:  g.ID,
		UserID:   g.CreatorID,
		Role:     models.RoleOwner,
		JoinedAt: now,
	}
	if _, err := s.members.InsertOne(ctx, owner); err != nil {
		// Leave no ownerless group behind.
		_, _ = s.c.DeleteOne(ctx, bson.M{"_id": g.ID})
		return models.Group{}, err
	}
	return g, nil
}

// UpdateInfo changes the editable fields. Moderation status is deliberately
// not touched: editing a rejected or pending group does not re-submit it.
func (s *Store) UpdateInfo(ctx context.Context, id primitive.ObjectID, name, desc, imageURL string, isPrivate bool) error {
	set := bson.M{
		"description": desc,
		"image_url":   imageURL,
		"is_private":  isPrivate,
		"updated_at":  time.Now().UTC(),
	}
	if strings.TrimSpace(name) != "" {
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a group with its memberships and pending join requests.
// Member and join-request records never survive group deletion; recipes keep
// their group reference as historical fact. Returns the number of group
// documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	if res.DeletedCount > 0 {
		_, _ = s.members.DeleteMany(ctx, bson.M{"group_id": id})
		_, _ = s.requests.DeleteMany(ctx, bson.M{"group_id": id})
	}
	return res.DeletedCount, nil
}

// ListApproved returns approved groups, newest first. Pending and rejected
// groups are excluded from all public listings regardless of privacy.
func (s *Store) ListApproved(ctx context.Context) ([]models.Group, error) {
	return s.find(ctx, bson.M{"moderation.status": models.ModerationApproved})
}

// Search returns approved groups whose folded name contains the folded
// query.
func (s *Store) Search(ctx context.Context, query string) ([]models.Group, error) {
	folded := text.Fold(strings.TrimSpace(query))
	if folded == "" {
		return nil, nil
	}
	return s.find(ctx, bson.M{
		"moderation.status": models.ModerationApproved,
		"name_ci":           bson.M{"$regex": regexEscape(folded)},
	})
}

// ListByMember returns every group the user belongs to, regardless of the
// group's moderation state: members (including the creator) can always reach
// their own groups.
func (s *Store) ListByMember(ctx context.Context, userID primitive.ObjectID) ([]models.Group, error) {
	cur, err := s.members.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var memberships []models.GroupMember
	if err := cur.All(ctx, &memberships); err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return nil, nil
	}

	ids := make([]primitive.ObjectID, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.GroupID)
	}
	return s.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// ListPending returns groups awaiting moderation, oldest first, so
// moderators work the backlog in arrival order.
func (s *Store) ListPending(ctx context.Context) ([]models.Group, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"moderation.status": models.ModerationPending},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var groups []models.Group
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// ListByCreator returns groups created by the user, any moderation state.
func (s *Store) ListByCreator(ctx context.Context, userID primitive.ObjectID) ([]models.Group, error) {
	return s.find(ctx, bson.M{"creator_id": userID})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Group, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var groups []models.Group
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// regexEscape quotes regex metacharacters so a user query is matched
// literally.
func regexEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\.+*?()|[]{}^$`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsNotFound reports whether err means the group does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
