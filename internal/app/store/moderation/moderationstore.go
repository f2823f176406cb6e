// internal/app/store/moderation/moderationstore.go
package moderationstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/recipehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ContentType names a moderated collection. The two moderated entities share
// the same moderation field layout, so one store serves both.
type ContentType string

const (
	ContentGroups  ContentType = "groups"
	ContentRecipes ContentType = "recipes"
)

// Valid reports whether t is a known content type. Used at the API boundary
// to reject arbitrary collection names.
func (t ContentType) Valid() bool {
	return t == ContentGroups || t == ContentRecipes
}

// ErrAlreadyDecided is returned when a decision cannot apply to the item's
// current state: approving an approved item, or rejecting an approved item.
// Of two concurrent identical decisions, the loser observes this error; the
// winner's state is never silently overwritten.
//
// A rejected item may still be approved (moderator reversal) or re-rejected
// with a new reason; those are the only paths out of rejected, and neither
// returns the item to pending.
var ErrAlreadyDecided = errors.New("item has already been decided")

// Store applies moderation decisions to one moderated collection.
type Store struct {
	c           *mongo.Collection
	contentType ContentType
}

func New(db *mongo.Database, t ContentType) *Store {
	return &Store{c: db.Collection(string(t)), contentType: t}
}

// ContentType returns the collection this store moderates.
func (s *Store) ContentType() ContentType { return s.contentType }

// decidable matches items a new decision may apply to. Decisions are
// conditional single-document updates, so concurrent decisions on one item
// serialize at the database and the loser fails instead of overwriting.
var decidable = bson.M{"$in": bson.A{models.ModerationPending, models.ModerationRejected}}

// Approve moves an item to approved, clearing any prior rejection reason and
// stamping the decision time. Allowed from pending and from rejected.
func (s *Store) Approve(ctx context.Context, id primitive.ObjectID) (models.Moderation, error) {
	now := time.Now().UTC()
	res := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "moderation.status": decidable},
		bson.M{
			"$set": bson.M{
				"moderation.status":       models.ModerationApproved,
				"moderation.moderated_at": now,
			},
			"$unset": bson.M{"moderation.rejection_reason": ""},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	return s.decideResult(ctx, id, res)
}

// Reject moves an item to rejected with the given reason, stored verbatim —
// the empty string is a valid "no reason given" and stays distinct from
// absent. Allowed from pending and from rejected (re-reject replaces the
// reason); rejecting an approved item fails with ErrAlreadyDecided.
func (s *Store) Reject(ctx context.Context, id primitive.ObjectID, reason string) (models.Moderation, error) {
	now := time.Now().UTC()
	res := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "moderation.status": decidable},
		bson.M{
			"$set": bson.M{
				"moderation.status":           models.ModerationRejected,
				"moderation.rejection_reason": reason,
				"moderation.moderated_at":     now,
			},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	return s.decideResult(ctx, id, res)
}

// decideResult maps a conditional-update miss to the right error: the item
// is either gone (NotFound) or already decided (Conflict).
func (s *Store) decideResult(ctx context.Context, id primitive.ObjectID, res *mongo.SingleResult) (models.Moderation, error) {
	var doc struct {
		Moderation models.Moderation `bson:"moderation"`
	}
	err := res.Decode(&doc)
	if err == nil {
		return doc.Moderation, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Moderation{}, err
	}
	exists := s.c.FindOne(ctx, bson.M{"_id": id}).Err()
	if errors.Is(exists, mongo.ErrNoDocuments) {
		return models.Moderation{}, mongo.ErrNoDocuments
	}
	if exists != nil {
		return models.Moderation{}, exists
	}
	return models.Moderation{}, ErrAlreadyDecided
}

// PendingIDs returns the ids of pending items, oldest first, so moderators
// work the backlog in arrival order.
func (s *Store) PendingIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"moderation.status": models.ModerationPending},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: 1}}).
			SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids, nil
}

// CountPending returns the number of items awaiting a decision.
func (s *Store) CountPending(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"moderation.status": models.ModerationPending})
}
