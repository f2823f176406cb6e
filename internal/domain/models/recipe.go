// internal/domain/models/recipe.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Recipe is a user-submitted recipe, optionally shared into one group.
//
// AuthorID is immutable for the recipe's lifetime. GroupID is a historical
// fact: it survives the author leaving (or being removed from) the group,
// and only listing/visibility rules change. A recipe's moderation status is
// independent of its group's status — a recipe attached to a still-pending
// group is reachable by that group's members.
type Recipe struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	Title       string              `bson:"title" json:"title"`
	TitleCI     string              `bson:"title_ci" json:"-"`
	Description string              `bson:"description" json:"description"`
	Ingredients []string            `bson:"ingredients" json:"ingredients"`
	Steps       []string            `bson:"steps" json:"steps"`
	ImageURL    string              `bson:"image_url,omitempty" json:"image,omitempty"`
	AuthorID    primitive.ObjectID  `bson:"author_id" json:"authorId"`
	GroupID     *primitive.ObjectID `bson:"group_id,omitempty" json:"groupId,omitempty"`

	Moderation Moderation `bson:"moderation" json:"moderation"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
