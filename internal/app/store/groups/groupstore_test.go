package groupstore_test

import (
	"testing"

	groupstore "github.com/dalemusser/recipehub/internal/app/store/groups"
	"github.com/dalemusser/recipehub/internal/app/system/invitecode"
	"github.com/dalemusser/recipehub/internal/domain/models"
	"github.com/dalemusser/recipehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Alice Baker", "alice@example.com")

	created, err := store.Create(ctx, models.Group{
		Name:        "Sourdough Club",
		Description: "All things sourdough",
		IsPrivate:   true,
		CreatorID:   owner.ID,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.NameCI == "" {
		t.Error("expected NameCI to be set")
	}
	if !invitecode.Valid(created.InviteCode) {
		t.Errorf("invite code %q is not valid", created.InviteCode)
	}
	if created.Moderation.Status != models.ModerationPending {
		t.Errorf("status: got %q, want %q", created.Moderation.Status, models.ModerationPending)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	// The creator's owner membership is created with the group.
	var member models.GroupMember
	err = db.Collection("group_members").
		FindOne(ctx, bson.M{"group_id": created.ID, "user_id": owner.ID}).
		Decode(&member)
	if err != nil {
		t.Fatalf("owner membership lookup failed: %v", err)
	}
	if member.Role != models.RoleOwner {
		t.Errorf("creator role: got %q, want %q", member.Role, models.RoleOwner)
	}

	// Exactly one owner.
	n, err := db.Collection("group_members").
		CountDocuments(ctx, bson.M{"group_id": created.ID, "role": models.RoleOwner})
	if err != nil {
		t.Fatalf("count owners failed: %v", err)
	}
	if n != 1 {
		t.Errorf("owner count: got %d, want 1", n)
	}
}

func TestStore_FindByInviteCode(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Alice Baker", "alice@example.com")
	group := fixtures.CreateGroup(ctx, "Sourdough Club", owner.ID, testutil.GroupOpts{})

	found, err := store.FindByInviteCode(ctx, group.InviteCode)
	if err != nil {
		t.Fatalf("FindByInviteCode failed: %v", err)
	}
	if found.ID != group.ID {
		t.Errorf("ID: got %v, want %v", found.ID, group.ID)
	}

	_, err = store.FindByInviteCode(ctx, "ZZZZZZZZ")
	if !groupstore.IsNotFound(err) {
		t.Errorf("expected not-found for unknown code, got %v", err)
	}
}

func TestStore_UpdateInfo_DoesNotTouchModeration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Alice Baker", "alice@example.com")
	group := fixtures.CreateGroup(ctx, "Sourdough Club", owner.ID,
		testutil.GroupOpts{Status: models.ModerationRejected})

	if err := store.UpdateInfo(ctx, group.ID, "Rye Club", "now with rye", "", true); err != nil {
		t.Fatalf("UpdateInfo failed: %v", err)
	}

	updated, err := store.GetByID(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Name != "Rye Club" {
		t.Errorf("Name: got %q, want %q", updated.Name, "Rye Club")
	}
	if !updated.IsPrivate {
		t.Error("expected IsPrivate true")
	}
	// Editing never re-submits: the rejection stands.
	if updated.Moderation.Status != models.ModerationRejected {
		t.Errorf("status: got %q, want %q", updated.Moderation.Status, models.ModerationRejected)
	}
	if updated.InviteCode != group.InviteCode {
		t.Errorf("invite code changed on edit: got %q, want %q", updated.InviteCode, group.InviteCode)
	}
}

func TestStore_UpdateInfo_MissingGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := store.UpdateInfo(ctx, primitive.NewObjectID(), "Nope", "", "", false)
	if !groupstore.IsNotFound(err) {
		t.Errorf("expected not-found, got %v", err)
	}
}

func TestStore_Delete_CascadesMembershipsAndRequests(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Alice Baker", "alice@example.com")
	member := fixtures.CreateUser(ctx, "Bob Cook", "bob@example.com")
	requester := fixtures.CreateUser(ctx, "Cara Dill", "cara@example.com")

	group := fixtures.CreateGroup(ctx, "Sourdough Club", owner.ID, testutil.GroupOpts{Private: true})
	fixtures.CreateMember(ctx, group.ID, member.ID, models.RoleMember)
	fixtures.CreateJoinRequest(ctx, group.ID, requester.ID)

	deleted, err := store.Delete(ctx, group.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted: got %d, want 1", deleted)
	}

	for _, coll := range []string{"group_members", "join_requests"} {
		n, err := db.Collection(coll).CountDocuments(ctx, bson.M{"group_id": group.ID})
		if err != nil {
			t.Fatalf("count %s failed: %v", coll, err)
		}
		if n != 0 {
			t.Errorf("%s: got %d records after delete, want 0", coll, n)
		}
	}
}

func TestStore_ListApproved_ExcludesPendingAndRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Alice Baker", "alice@example.com")
	approved := fixtures.CreateGroup(ctx, "Approved Club", owner.ID, testutil.GroupOpts{})
	fixtures.CreateGroup(ctx, "Pending Club", owner.ID, testutil.GroupOpts{Status: models.ModerationPending})
	fixtures.CreateGroup(ctx, "Rejected Club", owner.ID, testutil.GroupOpts{Status: models.ModerationRejected})

	list, err := store.ListApproved(ctx)
	if err != nil {
		t.Fatalf("ListApproved failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d groups, want 1", len(list))
	}
	if list[0].ID != approved.ID {
		t.Errorf("got %v, want %v", list[0].ID, approved.ID)
	}
}

func TestStore_Search(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Alice Baker", "alice@example.com")
	fixtures.CreateGroup(ctx, "Sourdough Club", owner.ID, testutil.GroupOpts{})
	fixtures.CreateGroup(ctx, "Pasta People", owner.ID, testutil.GroupOpts{})
	fixtures.CreateGroup(ctx, "Secret Sourdough", owner.ID, testutil.GroupOpts{Status: models.ModerationPending})

	list, err := store.Search(ctx, "sourdough")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d results, want 1 (pending groups are not searchable)", len(list))
	}
	if list[0].Name != "Sourdough Club" {
		t.Errorf("got %q, want %q", list[0].Name, "Sourdough Club")
	}

	empty, err := store.Search(ctx, "   ")
	if err != nil {
		t.Fatalf("Search with blank query failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("blank query: got %d results, want 0", len(empty))
	}
}

func TestStore_ListByMember_IncludesUnapprovedGroups(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Alice Baker", "alice@example.com")
	other := fixtures.CreateUser(ctx, "Bob Cook", "bob@example.com")

	mine := fixtures.CreateGroup(ctx, "My Pending Club", owner.ID,
		testutil.GroupOpts{Status: models.ModerationPending})
	fixtures.CreateGroup(ctx, "Not Mine", other.ID, testutil.GroupOpts{})

	list, err := store.ListByMember(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ListByMember failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d groups, want 1", len(list))
	}
	if list[0].ID != mine.ID {
		t.Errorf("got %v, want %v", list[0].ID, mine.ID)
	}
}
