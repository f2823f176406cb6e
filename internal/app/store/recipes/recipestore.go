// internal/app/store/recipes/recipestore.go
package recipestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/recipehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("recipes")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Recipe, error) {
	var r models.Recipe
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return models.Recipe{}, err
	}
	return r, nil
}

// Create inserts a recipe in pending moderation state.
func (s *Store) Create(ctx context.Context, r models.Recipe) (models.Recipe, error) {
	now := time.Now().UTC()
	r.ID = primitive.NewObjectID()
	r.TitleCI = text.Fold(r.Title)
	r.Moderation = models.NewModeration()
	r.CreatedAt = now
	r.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return models.Recipe{}, err
	}
	return r, nil
}

// UpdateInfo changes the editable fields. AuthorID is immutable and
// moderation status is never reset by an edit: a rejected recipe stays
// rejected.
func (s *Store) UpdateInfo(ctx context.Context, id primitive.ObjectID, title, desc string, ingredients, steps []string, imageURL string, groupID *primitive.ObjectID) error {
	set := bson.M{
		"description": desc,
		"ingredients": ingredients,
		"steps":       steps,
		"image_url":   imageURL,
		"updated_at":  time.Now().UTC(),
	}
	if strings.TrimSpace(title) != "" {
		set["title"] = title
		set["title_ci"] = text.Fold(title)
	}
	update := bson.M{"$set": set}
	if groupID != nil {
		set["group_id"] = *groupID
	} else {
		update["$unset"] = bson.M{"group_id": ""}
	}
	res, err := s.c.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a recipe. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListApproved returns approved recipes, newest first.
func (s *Store) ListApproved(ctx context.Context) ([]models.Recipe, error) {
	return s.find(ctx, bson.M{"moderation.status": models.ModerationApproved})
}

// ListByAuthor returns the author's recipes, any moderation state. Authors
// always see their own pending and rejected work.
func (s *Store) ListByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Recipe, error) {
	return s.find(ctx, bson.M{"author_id": authorID})
}

// ListByGroup returns the recipes shared into a group, any moderation state
// of the group itself; recipe-level pending/rejected entries are filtered
// unless includePending is set (group members see pending recipes of their
// group, outsiders never reach this listing).
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID, includePending bool) ([]models.Recipe, error) {
	filter := bson.M{"group_id": groupID}
	if !includePending {
		filter["moderation.status"] = models.ModerationApproved
	}
	return s.find(ctx, filter)
}

// ListPending returns recipes awaiting moderation, oldest first.
func (s *Store) ListPending(ctx context.Context) ([]models.Recipe, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"moderation.status": models.ModerationPending},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var recipes []models.Recipe
	if err := cur.All(ctx, &recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Recipe, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var recipes []models.Recipe
	if err := cur.All(ctx, &recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

// IsNotFound reports whether err means the recipe does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
