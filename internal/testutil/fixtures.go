// internal/testutil/fixtures.go
package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/recipehub/internal/app/system/invitecode"
	"github.com/dalemusser/recipehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures inserts test documents directly into the test database,
// bypassing the stores, so tests can arrange arbitrary starting states.
type Fixtures struct {
	t  *testing.T
	db *mongo.Database
}

// NewFixtures wraps the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{t: t, db: db}
}

// DB exposes the underlying database for direct assertions.
func (f *Fixtures) DB() *mongo.Database { return f.db }

// CreateUser inserts an active user with the "user" global role.
func (f *Fixtures) CreateUser(ctx context.Context, name, email string) *models.User {
	return f.createUser(ctx, name, email, models.GlobalRoleUser)
}

// CreateAdmin inserts an active user with the "admin" global role.
func (f *Fixtures) CreateAdmin(ctx context.Context, name, email string) *models.User {
	return f.createUser(ctx, name, email, models.GlobalRoleAdmin)
}

func (f *Fixtures) createUser(ctx context.Context, name, email, role string) *models.User {
	f.t.Helper()
	now := time.Now().UTC()
	u := &models.User{
		ID:         primitive.NewObjectID(),
		FullName:   name,
		FullNameCI: strings.ToLower(name),
		Email:      strings.ToLower(email),
		AuthMethod: models.AuthMethodPassword,
		Role:       role,
		Status:     "active",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("fixture: insert user: %v", err)
	}
	return u
}

// GroupOpts customizes CreateGroup. Zero value: public, approved group.
type GroupOpts struct {
	Private bool
	Status  models.ModerationStatus
}

// CreateGroup inserts a group owned by ownerID, along with the owner's
// membership record.
func (f *Fixtures) CreateGroup(ctx context.Context, name string, ownerID primitive.ObjectID, opts GroupOpts) *models.Group {
	f.t.Helper()
	status := opts.Status
	if status == "" {
		status = models.ModerationApproved
	}
	now := time.Now().UTC()
	g := &models.Group{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      strings.ToLower(name),
		Description: "test group",
		IsPrivate:   opts.Private,
		InviteCode:  randomInviteCode(f.t),
		CreatorID:   ownerID,
		Moderation:  models.Moderation{Status: status},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("fixture: insert group: %v", err)
	}
	f.CreateMember(ctx, g.ID, ownerID, models.RoleOwner)
	return g
}

// CreateMember inserts a membership record.
func (f *Fixtures) CreateMember(ctx context.Context, groupID, userID primitive.ObjectID, role models.GroupRole) *models.GroupMember {
	f.t.Helper()
	m := &models.GroupMember{
		ID:       primitive.NewObjectID(),
		GroupID:  groupID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("group_members").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("fixture: insert group member: %v", err)
	}
	return m
}

// CreateJoinRequest inserts a pending join request.
func (f *Fixtures) CreateJoinRequest(ctx context.Context, groupID, userID primitive.ObjectID) *models.JoinRequest {
	f.t.Helper()
	jr := &models.JoinRequest{
		ID:          primitive.NewObjectID(),
		GroupID:     groupID,
		UserID:      userID,
		RequestedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("join_requests").InsertOne(ctx, jr); err != nil {
		f.t.Fatalf("fixture: insert join request: %v", err)
	}
	return jr
}

// RecipeOpts customizes CreateRecipe. Zero value: approved, ungrouped.
type RecipeOpts struct {
	GroupID *primitive.ObjectID
	Status  models.ModerationStatus
}

// CreateRecipe inserts a recipe by the given author.
func (f *Fixtures) CreateRecipe(ctx context.Context, title string, authorID primitive.ObjectID, opts RecipeOpts) *models.Recipe {
	f.t.Helper()
	status := opts.Status
	if status == "" {
		status = models.ModerationApproved
	}
	now := time.Now().UTC()
	rec := &models.Recipe{
		ID:          primitive.NewObjectID(),
		Title:       title,
		TitleCI:     strings.ToLower(title),
		Description: "test recipe",
		Ingredients: []string{"flour", "water"},
		Steps:       []string{"mix", "bake"},
		AuthorID:    authorID,
		GroupID:     opts.GroupID,
		Moderation:  models.Moderation{Status: status},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("recipes").InsertOne(ctx, rec); err != nil {
		f.t.Fatalf("fixture: insert recipe: %v", err)
	}
	return rec
}

func randomInviteCode(t *testing.T) string {
	t.Helper()
	code, err := invitecode.Generate()
	if err != nil {
		t.Fatalf("fixture: generate invite code: %v", err)
	}
	return code
}
