// internal/app/policy/grouppolicy/grouppolicy.go
package grouppolicy

import (
	"context"
	"errors"
	"net/http"

	membershipstore "github.com/dalemusser/recipehub/internal/app/store/memberships"
	"github.com/dalemusser/recipehub/internal/app/system/authz"
	"github.com/dalemusser/recipehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Action is a group operation subject to authorization.
type Action string

const (
	ActionEdit         Action = "edit"
	ActionDelete       Action = "delete"
	ActionApproveJoin  Action = "approve_join"
	ActionRejectJoin   Action = "reject_join"
	ActionChangeRole   Action = "change_role"
	ActionRemoveMember Action = "remove_member"
	ActionAddRecipe    Action = "add_recipe"
)

// Allows reports whether a user with the given group role may perform the
// action. Global admins bypass the table entirely; pass role "" for
// non-members.
//
// Deleting a group is reserved for its owner. Everything else that counts
// as management (editing, join decisions, role changes, removals) extends
// to group admins. Adding a recipe only requires membership.
func Allows(role models.GroupRole, isGlobalAdmin bool, action Action) bool {
	if isGlobalAdmin {
		return true
	}
	switch action {
	case ActionDelete:
		return role == models.RoleOwner
	case ActionEdit, ActionApproveJoin, ActionRejectJoin, ActionChangeRole, ActionRemoveMember:
		return role == models.RoleOwner || role == models.RoleAdmin
	case ActionAddRecipe:
		return role != ""
	default:
		return false
	}
}

// Authorize resolves the request user's role in the group from the
// authoritative memberships collection and applies the action table.
// Returns an error only if the database check fails, so callers can
// distinguish "not authorized" (false, nil) from "database error"
// (false, err).
func Authorize(ctx context.Context, r *http.Request, members *membershipstore.Store, groupID primitive.ObjectID, action Action) (bool, error) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		return false, nil
	}
	if authz.IsAdmin(r) {
		return true, nil
	}

	role, err := members.RoleOf(ctx, groupID, uid)
	if err != nil {
		if errors.Is(err, membershipstore.ErrNotMember) {
			return false, nil
		}
		return false, err
	}
	return Allows(role, false, action), nil
}
