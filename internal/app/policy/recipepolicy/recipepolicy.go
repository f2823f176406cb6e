// internal/app/policy/recipepolicy/recipepolicy.go
package recipepolicy

import (
	"context"

	groupstore "github.com/dalemusser/recipehub/internal/app/store/groups"
	membershipstore "github.com/dalemusser/recipehub/internal/app/store/memberships"
	"github.com/dalemusser/recipehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Viewer identifies who is asking. A zero Viewer is an anonymous visitor.
type Viewer struct {
	ID            primitive.ObjectID
	IsGlobalAdmin bool
	SignedIn      bool
}

// CanEdit reports whether the viewer may edit or delete the recipe.
// Only the author and global admins can; there is no per-group
// delegation for recipes.
func CanEdit(v Viewer, recipe *models.Recipe) bool {
	if !v.SignedIn {
		return false
	}
	return v.IsGlobalAdmin || recipe.AuthorID == v.ID
}

// CanView reports whether the viewer may see the recipe.
//
// Pending and rejected recipes are visible only to their author and to
// global admins. Approved recipes shared to a private group are visible
// to that group's members; everything else approved is public.
func CanView(ctx context.Context, v Viewer, recipe *models.Recipe, groupStore *groupstore.Store, members *membershipstore.Store) (bool, error) {
	if v.SignedIn && (v.IsGlobalAdmin || recipe.AuthorID == v.ID) {
		return true, nil
	}
	if recipe.Moderation.Status != models.ModerationApproved {
		return false, nil
	}
	if recipe.GroupID == nil {
		return true, nil
	}

	group, err := groupStore.GetByID(ctx, *recipe.GroupID)
	if err != nil {
		if groupstore.IsNotFound(err) {
			// The group is gone; treat the recipe as ungrouped.
			return true, nil
		}
		return false, err
	}
	if !group.IsPrivate {
		return true, nil
	}
	if !v.SignedIn {
		return false, nil
	}
	return members.IsMember(ctx, group.ID, v.ID)
}
