package login_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/recipehub/internal/app/features/login"
	"github.com/dalemusser/recipehub/internal/app/store/audit"
	tokenstore "github.com/dalemusser/recipehub/internal/app/store/tokens"
	userstore "github.com/dalemusser/recipehub/internal/app/store/users"
	"github.com/dalemusser/recipehub/internal/app/system/auditlog"
	"github.com/dalemusser/recipehub/internal/app/system/auth"
	"github.com/dalemusser/recipehub/internal/app/system/ratelimit"
	"github.com/dalemusser/recipehub/internal/domain/models"
	"github.com/dalemusser/recipehub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newHandler(t *testing.T, db *mongo.Database, limit int) *login.Handler {
	t.Helper()
	logger := zap.NewNop()
	sessionMgr, err := auth.NewSessionManager("test-session-key-32-bytes-long!!", "recipehub-session", "", false, logger)
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	return login.NewHandler(
		userstore.New(db),
		tokenstore.New(db, time.Hour),
		sessionMgr,
		auditlog.New(audit.New(db), logger),
		ratelimit.New(limit, time.Minute),
		logger,
	)
}

func createUser(t *testing.T, db *mongo.Database, email, password string) models.User {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u, err := userstore.New(db).Create(ctx, models.User{
		FullName:     "Alice Baker",
		Email:        email,
		PasswordHash: string(hash),
		AuthMethod:   models.AuthMethodPassword,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func attempt(t *testing.T, h *login.Handler, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	rec := httptest.NewRecorder()
	h.HandleLogin(rec, req)
	return rec
}

func TestHandleLogin_Success(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db, 10)
	user := createUser(t, db, "alice@example.com", "hunter2hunter2")

	rec := attempt(t, h, "alice@example.com", "hunter2hunter2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	testutil.DecodeJSON(t, rec, &body)
	if body.Token == "" {
		t.Error("expected a bearer token")
	}
	if body.User.ID != user.ID {
		t.Error("expected the signed-in user in the response")
	}
}

func TestHandleLogin_WrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db, 10)
	createUser(t, db, "alice@example.com", "hunter2hunter2")

	wrongPassword := attempt(t, h, "alice@example.com", "not-the-password")
	unknownEmail := attempt(t, h, "nobody@example.com", "whatever123")

	if wrongPassword.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: got %d, want 401", wrongPassword.Code)
	}
	if unknownEmail.Code != http.StatusUnauthorized {
		t.Errorf("unknown email: got %d, want 401", unknownEmail.Code)
	}
	// Identical bodies: the endpoint must not reveal which accounts exist.
	if wrongPassword.Body.String() != unknownEmail.Body.String() {
		t.Errorf("responses differ:\n%s\n%s", wrongPassword.Body.String(), unknownEmail.Body.String())
	}
}

func TestHandleLogin_DisabledAccount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db, 10)
	user := createUser(t, db, "alice@example.com", "hunter2hunter2")

	ctx, cancel := testutil.TestContext()
	defer cancel()
	if _, err := db.Collection("users").UpdateByID(ctx, user.ID,
		map[string]any{"$set": map[string]any{"status": "disabled"}}); err != nil {
		t.Fatalf("disable user: %v", err)
	}

	rec := attempt(t, h, "alice@example.com", "hunter2hunter2")
	if rec.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want 403", rec.Code)
	}
}

func TestHandleLogin_RateLimited(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db, 3)
	createUser(t, db, "alice@example.com", "hunter2hunter2")

	for i := 0; i < 3; i++ {
		if rec := attempt(t, h, "alice@example.com", "wrong"); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: got %d, want 401", i+1, rec.Code)
		}
	}
	if rec := attempt(t, h, "alice@example.com", "hunter2hunter2"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("after burst: got %d, want 429", rec.Code)
	}
}

func TestHandleLogin_SuccessResetsLimiter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db, 3)
	createUser(t, db, "alice@example.com", "hunter2hunter2")

	attempt(t, h, "alice@example.com", "wrong")
	if rec := attempt(t, h, "alice@example.com", "hunter2hunter2"); rec.Code != http.StatusOK {
		t.Fatalf("login: got %d (body: %s)", rec.Code, rec.Body.String())
	}
	// The successful login cleared the counter, so the budget is full again.
	for i := 0; i < 2; i++ {
		if rec := attempt(t, h, "alice@example.com", "wrong"); rec.Code != http.StatusUnauthorized {
			t.Errorf("attempt %d after reset: got %d, want 401", i+1, rec.Code)
		}
	}
}
