package recipestore_test

import (
	"testing"
	"time"

	recipestore "github.com/dalemusser/recipehub/internal/app/store/recipes"
	"github.com/dalemusser/recipehub/internal/domain/models"
	"github.com/dalemusser/recipehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := recipestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	author := fixtures.CreateUser(ctx, "Alice Baker", "alice@example.com")

	created, err := store.Create(ctx, models.Recipe{
		Title:       "Sourdough Loaf",
		Description: "A weekend bake.",
		Ingredients: []string{"flour", "water", "salt"},
		Steps:       []string{"mix", "ferment", "bake"},
		AuthorID:    author.ID,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID.IsZero() {
		t.Error("expected an id to be assigned")
	}
	if created.TitleCI != "sourdough loaf" {
		t.Errorf("title_ci: got %q, want %q", created.TitleCI, "sourdough loaf")
	}
	if created.Moderation.Status != models.ModerationPending {
		t.Errorf("new recipes start pending, got %q", created.Moderation.Status)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Title != "Sourdough Loaf" {
		t.Errorf("title: got %q", got.Title)
	}
}

func TestUpdateInfo_KeepsModerationAndAuthor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := recipestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	author := fixtures.CreateUser(ctx, "Alice Baker", "alice@example.com")
	recipe := fixtures.CreateRecipe(ctx, "Flat Bread", author.ID,
		testutil.RecipeOpts{Status: models.ModerationRejected})

	err := store.UpdateInfo(ctx, recipe.ID, "Better Bread", "fixed it",
		[]string{"flour"}, []string{"bake"}, "", nil)
	if err != nil {
		t.Fatalf("UpdateInfo failed: %v", err)
	}

	got, err := store.GetByID(ctx, recipe.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Title != "Better Bread" {
		t.Errorf("title: got %q", got.Title)
	}
	// Editing never resubmits: a rejected recipe stays rejected.
	if got.Moderation.Status != models.ModerationRejected {
		t.Errorf("moderation: got %q, want %q", got.Moderation.Status, models.ModerationRejected)
	}
	if got.AuthorID != author.ID {
		t.Error("author must not change on edit")
	}
}

func TestUpdateInfo_GroupAssignmentAndClear(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := recipestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	author := fixtures.CreateUser(ctx, "Alice Baker", "alice@example.com")
	group := fixtures.CreateGroup(ctx, "Bakers", author.ID, testutil.GroupOpts{})
	recipe := fixtures.CreateRecipe(ctx, "Rolls", author.ID, testutil.RecipeOpts{})

	if err := store.UpdateInfo(ctx, recipe.ID, "", "now shared",
		recipe.Ingredients, recipe.Steps, "", &group.ID); err != nil {
		t.Fatalf("assign group failed: %v", err)
	}
	got, err := store.GetByID(ctx, recipe.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.GroupID == nil || *got.GroupID != group.ID {
		t.Fatal("expected recipe to be attached to the group")
	}
	// Blank title leaves the existing title alone.
	if got.Title != "Rolls" {
		t.Errorf("title: got %q, want unchanged", got.Title)
	}

	if err := store.UpdateInfo(ctx, recipe.ID, "", "personal again",
		recipe.Ingredients, recipe.Steps, "", nil); err != nil {
		t.Fatalf("clear group failed: %v", err)
	}
	got, err = store.GetByID(ctx, recipe.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.GroupID != nil {
		t.Error("expected group reference to be cleared")
	}
}

func TestUpdateInfo_MissingRecipe(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := recipestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := store.UpdateInfo(ctx, primitive.NewObjectID(), "X", "", nil, nil, "", nil)
	if !recipestore.IsNotFound(err) {
		t.Errorf("got %v, want not-found", err)
	}
}

func TestDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := recipestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	author := fixtures.CreateUser(ctx, "Alice Baker", "alice@example.com")
	recipe := fixtures.CreateRecipe(ctx, "Rolls", author.ID, testutil.RecipeOpts{})

	n, err := store.Delete(ctx, recipe.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted: got %d, want 1", n)
	}

	n, err = store.Delete(ctx, recipe.ID)
	if err != nil {
		t.Fatalf("second delete failed: %v", err)
	}
	if n != 0 {
		t.Errorf("deleted: got %d, want 0", n)
	}
}

func TestListApproved(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := recipestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	author := fixtures.CreateUser(ctx, "Alice Baker", "alice@example.com")
	approved := fixtures.CreateRecipe(ctx, "Visible", author.ID, testutil.RecipeOpts{})
	fixtures.CreateRecipe(ctx, "Waiting", author.ID,
		testutil.RecipeOpts{Status: models.ModerationPending})
	fixtures.CreateRecipe(ctx, "Declined", author.ID,
		testutil.RecipeOpts{Status: models.ModerationRejected})

	recipes, err := store.ListApproved(ctx)
	if err != nil {
		t.Fatalf("ListApproved failed: %v", err)
	}
	if len(recipes) != 1 {
		t.Fatalf("got %d recipes, want 1", len(recipes))
	}
	if recipes[0].ID != approved.ID {
		t.Error("expected only the approved recipe")
	}
}

func TestListByAuthor_AllStates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := recipestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	author := fixtures.CreateUser(ctx, "Alice Baker", "alice@example.com")
	other := fixtures.CreateUser(ctx, "Bob Cook", "bob@example.com")
	fixtures.CreateRecipe(ctx, "Mine Approved", author.ID, testutil.RecipeOpts{})
	fixtures.CreateRecipe(ctx, "Mine Pending", author.ID,
		testutil.RecipeOpts{Status: models.ModerationPending})
	fixtures.CreateRecipe(ctx, "Mine Rejected", author.ID,
		testutil.RecipeOpts{Status: models.ModerationRejected})
	fixtures.CreateRecipe(ctx, "Theirs", other.ID, testutil.RecipeOpts{})

	recipes, err := store.ListByAuthor(ctx, author.ID)
	if err != nil {
		t.Fatalf("ListByAuthor failed: %v", err)
	}
	if len(recipes) != 3 {
		t.Errorf("got %d recipes, want 3", len(recipes))
	}
}

func TestListByGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := recipestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	author := fixtures.CreateUser(ctx, "Alice Baker", "alice@example.com")
	group := fixtures.CreateGroup(ctx, "Bakers", author.ID, testutil.GroupOpts{})
	fixtures.CreateRecipe(ctx, "Shared Approved", author.ID,
		testutil.RecipeOpts{GroupID: &group.ID})
	fixtures.CreateRecipe(ctx, "Shared Pending", author.ID,
		testutil.RecipeOpts{GroupID: &group.ID, Status: models.ModerationPending})
	fixtures.CreateRecipe(ctx, "Unshared", author.ID, testutil.RecipeOpts{})

	visible, err := store.ListByGroup(ctx, group.ID, false)
	if err != nil {
		t.Fatalf("ListByGroup failed: %v", err)
	}
	if len(visible) != 1 {
		t.Errorf("outsider view: got %d recipes, want 1", len(visible))
	}

	all, err := store.ListByGroup(ctx, group.ID, true)
	if err != nil {
		t.Fatalf("ListByGroup with pending failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("member view: got %d recipes, want 2", len(all))
	}
}

func TestListPending_OldestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := recipestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	author := fixtures.CreateUser(ctx, "Alice Baker", "alice@example.com")
	first, err := store.Create(ctx, models.Recipe{Title: "First", AuthorID: author.ID})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	second, err := store.Create(ctx, models.Recipe{Title: "Second", AuthorID: author.ID})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	fixtures.CreateRecipe(ctx, "Already In", author.ID, testutil.RecipeOpts{})

	pending, err := store.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("got %d pending recipes, want 2", len(pending))
	}
	if pending[0].ID != first.ID || pending[1].ID != second.ID {
		t.Error("expected pending recipes in creation order")
	}
}
