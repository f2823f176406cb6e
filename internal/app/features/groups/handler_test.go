package groups_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/recipehub/internal/app/features/groups"
	"github.com/dalemusser/recipehub/internal/app/store/audit"
	groupstore "github.com/dalemusser/recipehub/internal/app/store/groups"
	membershipstore "github.com/dalemusser/recipehub/internal/app/store/memberships"
	userstore "github.com/dalemusser/recipehub/internal/app/store/users"
	"github.com/dalemusser/recipehub/internal/app/system/auditlog"
	"github.com/dalemusser/recipehub/internal/app/system/auth"
	"github.com/dalemusser/recipehub/internal/app/system/grouplock"
	"github.com/dalemusser/recipehub/internal/domain/models"
	"github.com/dalemusser/recipehub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newHandler(db *mongo.Database) *groups.Handler {
	logger := zap.NewNop()
	return groups.NewHandler(
		groupstore.New(db),
		membershipstore.New(db, grouplock.NewKeyed()),
		userstore.New(db),
		auditlog.New(audit.New(db), logger),
		logger,
	)
}

func asUser(r *http.Request, u *models.User) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.FullName,
		Email: u.Email,
		Role:  u.Role,
	})
}

func TestHandleCreate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fixtures.CreateUser(ctx, "Alice Baker", "alice@example.com")

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/groups", map[string]any{
		"name":        "Weekend Bakers",
		"description": "Sourdough and <script>alert(1)</script> more",
		"isPrivate":   true,
	})
	req = asUser(req, user)
	rec := httptest.NewRecorder()
	h.HandleCreate(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (body: %s)", rec.Code, rec.Body.String())
	}
	var created models.Group
	testutil.DecodeJSON(t, rec, &created)
	if created.Name != "Weekend Bakers" {
		t.Errorf("name: got %q", created.Name)
	}
	if !created.IsPrivate {
		t.Error("expected a private group")
	}
	if created.Moderation.Status != models.ModerationPending {
		t.Errorf("new groups start pending, got %q", created.Moderation.Status)
	}
	if created.InviteCode == "" {
		t.Error("expected an invite code")
	}
}

func TestHandleCreate_RequiresName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fixtures.CreateUser(ctx, "Alice Baker", "alice@example.com")

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/groups", map[string]any{
		"name": "   ",
	})
	req = asUser(req, user)
	rec := httptest.NewRecorder()
	h.HandleCreate(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestHandleCreate_Anonymous(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/groups", map[string]any{"name": "X"})
	rec := httptest.NewRecorder()
	h.HandleCreate(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
}

func TestHandleGet_UnapprovedHiddenFromOutsiders(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Alice Baker", "alice@example.com")
	outsider := fixtures.CreateUser(ctx, "Bob Cook", "bob@example.com")
	admin := fixtures.CreateAdmin(ctx, "Root", "root@example.com")
	group := fixtures.CreateGroup(ctx, "Hidden", owner.ID,
		testutil.GroupOpts{Status: models.ModerationPending})

	get := func(u *models.User) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/groups/"+group.ID.Hex(), nil)
		req = testutil.WithChiURLParam(req, "id", group.ID.Hex())
		if u != nil {
			req = asUser(req, u)
		}
		rec := httptest.NewRecorder()
		h.HandleGet(rec, req)
		return rec
	}

	// Pending groups look exactly like missing groups to outsiders.
	if rec := get(nil); rec.Code != http.StatusNotFound {
		t.Errorf("anonymous: got %d, want 404", rec.Code)
	}
	if rec := get(outsider); rec.Code != http.StatusNotFound {
		t.Errorf("outsider: got %d, want 404", rec.Code)
	}
	if rec := get(owner); rec.Code != http.StatusOK {
		t.Errorf("owner: got %d, want 200", rec.Code)
	}
	if rec := get(admin); rec.Code != http.StatusOK {
		t.Errorf("admin: got %d, want 200", rec.Code)
	}
}

func TestHandleGet_PendingRequestsOnlyForManagers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Alice Baker", "alice@example.com")
	member := fixtures.CreateUser(ctx, "Bob Cook", "bob@example.com")
	applicant := fixtures.CreateUser(ctx, "Cara Dill", "cara@example.com")
	group := fixtures.CreateGroup(ctx, "Club", owner.ID, testutil.GroupOpts{Private: true})
	fixtures.CreateMember(ctx, group.ID, member.ID, models.RoleMember)
	fixtures.CreateJoinRequest(ctx, group.ID, applicant.ID)

	get := func(u *models.User) map[string]any {
		req := httptest.NewRequest(http.MethodGet, "/api/groups/"+group.ID.Hex(), nil)
		req = testutil.WithChiURLParam(req, "id", group.ID.Hex())
		req = asUser(req, u)
		rec := httptest.NewRecorder()
		h.HandleGet(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status: got %d (body: %s)", rec.Code, rec.Body.String())
		}
		var body map[string]any
		testutil.DecodeJSON(t, rec, &body)
		return body
	}

	if _, found := get(owner)["pendingRequests"]; !found {
		t.Error("expected the owner to see pending requests")
	}
	if _, found := get(member)["pendingRequests"]; found {
		t.Error("expected a plain member not to see pending requests")
	}
}

func TestHandleUpdate_MemberForbidden(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Alice Baker", "alice@example.com")
	member := fixtures.CreateUser(ctx, "Bob Cook", "bob@example.com")
	group := fixtures.CreateGroup(ctx, "Club", owner.ID, testutil.GroupOpts{})
	fixtures.CreateMember(ctx, group.ID, member.ID, models.RoleMember)

	req := testutil.NewJSONRequest(t, http.MethodPut, "/api/groups/"+group.ID.Hex(),
		map[string]any{"name": "Renamed"})
	req = testutil.WithChiURLParam(req, "id", group.ID.Hex())
	req = asUser(req, member)
	rec := httptest.NewRecorder()
	h.HandleUpdate(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want 403", rec.Code)
	}
}

func TestHandleDelete_OwnerOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Alice Baker", "alice@example.com")
	groupAdmin := fixtures.CreateUser(ctx, "Bob Cook", "bob@example.com")
	group := fixtures.CreateGroup(ctx, "Club", owner.ID, testutil.GroupOpts{})
	fixtures.CreateMember(ctx, group.ID, groupAdmin.ID, models.RoleAdmin)

	del := func(u *models.User) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, "/api/groups/"+group.ID.Hex(), nil)
		req = testutil.WithChiURLParam(req, "id", group.ID.Hex())
		req = asUser(req, u)
		rec := httptest.NewRecorder()
		h.HandleDelete(rec, req)
		return rec
	}

	// Group admins manage members, they do not own the group.
	if rec := del(groupAdmin); rec.Code != http.StatusForbidden {
		t.Errorf("group admin: got %d, want 403", rec.Code)
	}
	if rec := del(owner); rec.Code != http.StatusNoContent {
		t.Errorf("owner: got %d, want 204", rec.Code)
	}
}

func TestHandleJoin_PublicAndPrivate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Alice Baker", "alice@example.com")
	joiner := fixtures.CreateUser(ctx, "Bob Cook", "bob@example.com")
	public := fixtures.CreateGroup(ctx, "Open Club", owner.ID, testutil.GroupOpts{})
	private := fixtures.CreateGroup(ctx, "Closed Club", owner.ID, testutil.GroupOpts{Private: true})

	join := func(code string) (*httptest.ResponseRecorder, map[string]any) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/groups/invite/"+code+"/join", nil)
		req = testutil.WithChiURLParam(req, "code", code)
		req = asUser(req, joiner)
		rec := httptest.NewRecorder()
		h.HandleJoin(rec, req)
		var body map[string]any
		if rec.Code == http.StatusCreated {
			testutil.DecodeJSON(t, rec, &body)
		}
		return rec, body
	}

	rec, body := join(public.InviteCode)
	if rec.Code != http.StatusCreated {
		t.Fatalf("public join: got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if body["status"] != "joined" {
		t.Errorf(`public join status: got %v, want "joined"`, body["status"])
	}

	rec, body = join(private.InviteCode)
	if rec.Code != http.StatusCreated {
		t.Fatalf("private join: got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if body["status"] != "requested" {
		t.Errorf(`private join status: got %v, want "requested"`, body["status"])
	}

	// Joining again is a conflict.
	if rec, _ := join(public.InviteCode); rec.Code != http.StatusConflict {
		t.Errorf("repeat public join: got %d, want 409", rec.Code)
	}
	if rec, _ := join(private.InviteCode); rec.Code != http.StatusConflict {
		t.Errorf("repeat private request: got %d, want 409", rec.Code)
	}
}

// A freshly created group sits in moderation, but its owner can hand the
// invite code out right away. Joining a pending private group must queue a
// join request just as it would for an approved one.
func TestHandleJoin_PendingGroupCodeStillWorks(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Alice Baker", "alice@example.com")
	joiner := fixtures.CreateUser(ctx, "Bob Cook", "bob@example.com")
	pending := fixtures.CreateGroup(ctx, "Not Yet", owner.ID,
		testutil.GroupOpts{Private: true, Status: models.ModerationPending})

	req := testutil.NewJSONRequest(t, http.MethodPost,
		"/api/groups/invite/"+pending.InviteCode+"/join", nil)
	req = testutil.WithChiURLParam(req, "code", pending.InviteCode)
	req = asUser(req, joiner)
	rec := httptest.NewRecorder()
	h.HandleJoin(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201", rec.Code)
	}
	var body map[string]any
	testutil.DecodeJSON(t, rec, &body)
	if body["status"] != "requested" {
		t.Errorf(`status: got %v, want "requested"`, body["status"])
	}

	members := membershipstore.New(db, grouplock.NewKeyed())
	has, err := members.HasRequest(ctx, pending.ID, joiner.ID)
	if err != nil {
		t.Fatalf("HasRequest failed: %v", err)
	}
	if !has {
		t.Error("expected a pending join request for the joiner")
	}
	isMember, err := members.IsMember(ctx, pending.ID, joiner.ID)
	if err != nil {
		t.Fatalf("IsMember failed: %v", err)
	}
	if isMember {
		t.Error("joiner must not become a member before approval")
	}
}

func TestHandleApproveJoin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Alice Baker", "alice@example.com")
	applicant := fixtures.CreateUser(ctx, "Bob Cook", "bob@example.com")
	stranger := fixtures.CreateUser(ctx, "Cara Dill", "cara@example.com")
	group := fixtures.CreateGroup(ctx, "Club", owner.ID, testutil.GroupOpts{Private: true})
	fixtures.CreateJoinRequest(ctx, group.ID, applicant.ID)

	approve := func(actor *models.User, target string) *httptest.ResponseRecorder {
		req := testutil.NewJSONRequest(t, http.MethodPost,
			"/api/groups/"+group.ID.Hex()+"/approve/"+target, nil)
		req = testutil.WithChiURLParam(req, "id", group.ID.Hex())
		req = testutil.WithChiURLParam(req, "userID", target)
		req = asUser(req, actor)
		rec := httptest.NewRecorder()
		h.HandleApproveJoin(rec, req)
		return rec
	}

	if rec := approve(stranger, applicant.ID.Hex()); rec.Code != http.StatusForbidden {
		t.Errorf("stranger approve: got %d, want 403", rec.Code)
	}
	if rec := approve(owner, applicant.ID.Hex()); rec.Code != http.StatusOK {
		t.Errorf("owner approve: got %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	// The request is gone now.
	if rec := approve(owner, applicant.ID.Hex()); rec.Code != http.StatusNotFound {
		t.Errorf("repeat approve: got %d, want 404", rec.Code)
	}
}

func TestHandleChangeRole_OwnerImmutable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Alice Baker", "alice@example.com")
	admin := fixtures.CreateAdmin(ctx, "Root", "root@example.com")
	group := fixtures.CreateGroup(ctx, "Club", owner.ID, testutil.GroupOpts{})

	// Not even a global admin can touch the owner's role.
	req := testutil.NewJSONRequest(t, http.MethodPut,
		"/api/groups/"+group.ID.Hex()+"/members/"+owner.ID.Hex()+"/role",
		map[string]any{"role": "member"})
	req = testutil.WithChiURLParam(req, "id", group.ID.Hex())
	req = testutil.WithChiURLParam(req, "userID", owner.ID.Hex())
	req = asUser(req, admin)
	rec := httptest.NewRecorder()
	h.HandleChangeRole(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want 403", rec.Code)
	}
}

func TestHandleRemoveMember_SelfLeave(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Alice Baker", "alice@example.com")
	member := fixtures.CreateUser(ctx, "Bob Cook", "bob@example.com")
	group := fixtures.CreateGroup(ctx, "Club", owner.ID, testutil.GroupOpts{})
	fixtures.CreateMember(ctx, group.ID, member.ID, models.RoleMember)

	remove := func(actor *models.User, target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete,
			"/api/groups/"+group.ID.Hex()+"/members/"+target, nil)
		req = testutil.WithChiURLParam(req, "id", group.ID.Hex())
		req = testutil.WithChiURLParam(req, "userID", target)
		req = asUser(req, actor)
		rec := httptest.NewRecorder()
		h.HandleRemoveMember(rec, req)
		return rec
	}

	// Leaving needs no manage permission.
	if rec := remove(member, member.ID.Hex()); rec.Code != http.StatusNoContent {
		t.Errorf("self leave: got %d, want 204 (body: %s)", rec.Code, rec.Body.String())
	}
	// The owner cannot leave their own group.
	if rec := remove(owner, owner.ID.Hex()); rec.Code != http.StatusForbidden {
		t.Errorf("owner leave: got %d, want 403", rec.Code)
	}
}
