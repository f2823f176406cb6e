package grouppolicy_test

import (
	"testing"

	"github.com/dalemusser/recipehub/internal/app/policy/grouppolicy"
	"github.com/dalemusser/recipehub/internal/domain/models"
)

func TestAllows(t *testing.T) {
	cases := []struct {
		name   string
		role   models.GroupRole
		admin  bool
		action grouppolicy.Action
		want   bool
	}{
		{"owner can delete", models.RoleOwner, false, grouppolicy.ActionDelete, true},
		{"admin cannot delete", models.RoleAdmin, false, grouppolicy.ActionDelete, false},
		{"member cannot delete", models.RoleMember, false, grouppolicy.ActionDelete, false},
		{"global admin can delete", "", true, grouppolicy.ActionDelete, true},

		{"owner can edit", models.RoleOwner, false, grouppolicy.ActionEdit, true},
		{"admin can edit", models.RoleAdmin, false, grouppolicy.ActionEdit, true},
		{"member cannot edit", models.RoleMember, false, grouppolicy.ActionEdit, false},
		{"non-member cannot edit", "", false, grouppolicy.ActionEdit, false},

		{"admin can approve joins", models.RoleAdmin, false, grouppolicy.ActionApproveJoin, true},
		{"member cannot approve joins", models.RoleMember, false, grouppolicy.ActionApproveJoin, false},
		{"admin can reject joins", models.RoleAdmin, false, grouppolicy.ActionRejectJoin, true},
		{"admin can change roles", models.RoleAdmin, false, grouppolicy.ActionChangeRole, true},
		{"admin can remove members", models.RoleAdmin, false, grouppolicy.ActionRemoveMember, true},
		{"member cannot remove members", models.RoleMember, false, grouppolicy.ActionRemoveMember, false},

		{"member can add recipes", models.RoleMember, false, grouppolicy.ActionAddRecipe, true},
		{"owner can add recipes", models.RoleOwner, false, grouppolicy.ActionAddRecipe, true},
		{"non-member cannot add recipes", "", false, grouppolicy.ActionAddRecipe, false},
		{"global admin can add recipes", "", true, grouppolicy.ActionAddRecipe, true},

		{"unknown action denied", models.RoleOwner, false, grouppolicy.Action("bogus"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := grouppolicy.Allows(tc.role, tc.admin, tc.action); got != tc.want {
				t.Errorf("Allows(%q, %v, %q) = %v, want %v", tc.role, tc.admin, tc.action, got, tc.want)
			}
		})
	}
}
