// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group is an invite-gated collection of members and recipes.
//
// NOTE:
//   - Member and join-request records are not embedded on Group.
//     All membership is stored in the group_members and join_requests
//     collections.
//   - InviteCode is unique among live groups and stable for the group's
//     lifetime; deleting the group frees the code for reuse.
type Group struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description" json:"description"`
	ImageURL    string             `bson:"image_url,omitempty" json:"image,omitempty"`
	IsPrivate   bool               `bson:"is_private" json:"isPrivate"`
	InviteCode  string             `bson:"invite_code" json:"inviteCode"`
	CreatorID   primitive.ObjectID `bson:"creator_id" json:"creatorId"`

	Moderation Moderation `bson:"moderation" json:"moderation"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
