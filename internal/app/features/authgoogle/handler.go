// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/recipehub/internal/app/store/audit"
	tokenstore "github.com/dalemusser/recipehub/internal/app/store/tokens"
	userstore "github.com/dalemusser/recipehub/internal/app/store/users"
	"github.com/dalemusser/recipehub/internal/app/system/auditlog"
	"github.com/dalemusser/recipehub/internal/app/system/auth"
	"github.com/dalemusser/recipehub/internal/app/system/ratelimit"
	"github.com/dalemusser/recipehub/internal/app/system/timeouts"
	"github.com/dalemusser/recipehub/internal/domain/models"
	"github.com/gorilla/securecookie"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const stateCookieName = "oauth_state"

// Handler handles Google OAuth authentication.
type Handler struct {
	Users      *userstore.Store
	Tokens     *tokenstore.Store
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	Log        *zap.Logger

	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g. "https://recipehub.example.com/auth/google/callback"
	FrontendURL  string // where the browser lands after the callback
	Secure       bool
}

// NewHandler creates a new Google OAuth handler.
func NewHandler(
	users *userstore.Store,
	tokens *tokenstore.Store,
	sessionMgr *auth.SessionManager,
	auditLog *auditlog.Logger,
	clientID, clientSecret, baseURL string,
	secure bool,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Users:        users,
		Tokens:       tokens,
		SessionMgr:   sessionMgr,
		AuditLog:     auditLog,
		Log:          logger,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  baseURL + "/auth/google/callback",
		FrontendURL:  baseURL,
		Secure:       secure,
	}
}

func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

// ServeLogin handles GET /auth/google. Generates a state nonce, pins it in a
// short-lived cookie, and redirects to Google's consent screen.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		http.Redirect(w, r, h.FrontendURL+"/login?error=google_not_configured", http.StatusSeeOther)
		return
	}

	state, err := generateState()
	if err != nil {
		h.Log.Error("failed to generate OAuth state", zap.Error(err))
		http.Redirect(w, r, h.FrontendURL+"/login?error=internal", http.StatusSeeOther)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.oauth2Config().AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// ServeCallback handles GET /auth/google/callback. Exchanges the code,
// fetches the Google profile, provisions an account on first login, and
// signs the browser in.
func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", r.URL.Query().Get("error_description")))
		http.Redirect(w, r, h.FrontendURL+"/login?error=google_denied", http.StatusSeeOther)
		return
	}

	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(stateCookieName)
	if state == "" || err != nil || cookie.Value != state {
		h.Log.Warn("invalid or expired OAuth state")
		http.Redirect(w, r, h.FrontendURL+"/login?error=invalid_state", http.StatusSeeOther)
		return
	}
	// State is single-use.
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Path: "/auth/google", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, h.FrontendURL+"/login?error=invalid_code", http.StatusSeeOther)
		return
	}

	token, err := h.oauth2Config().Exchange(r.Context(), code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		http.Redirect(w, r, h.FrontendURL+"/login?error=token_exchange", http.StatusSeeOther)
		return
	}

	googleUser, err := fetchGoogleUserInfo(r.Context(), token)
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		http.Redirect(w, r, h.FrontendURL+"/login?error=user_info", http.StatusSeeOther)
		return
	}
	if !googleUser.EmailVerified {
		http.Redirect(w, r, h.FrontendURL+"/login?error=email_unverified", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	user, err := h.findOrCreateUser(ctx, googleUser)
	if err != nil {
		if errors.Is(err, errUserDisabled) {
			h.AuditLog.Auth(r, audit.EventLoginFailedUserDisabled, &user.ID, false, "account disabled")
			http.Redirect(w, r, h.FrontendURL+"/login?error=account_disabled", http.StatusSeeOther)
			return
		}
		h.Log.Error("google login: user lookup failed", zap.Error(err))
		http.Redirect(w, r, h.FrontendURL+"/login?error=internal", http.StatusSeeOther)
		return
	}

	bearer, err := h.Tokens.Issue(ctx, user.ID, ratelimit.ClientIP(r), r.UserAgent())
	if err != nil {
		h.Log.Error("google login: token issue failed", zap.Error(err))
		http.Redirect(w, r, h.FrontendURL+"/login?error=internal", http.StatusSeeOther)
		return
	}
	if err := h.SessionMgr.SignIn(w, r, user.ID.Hex()); err != nil {
		h.Log.Warn("google login: cookie sign-in failed", zap.Error(err))
	}

	h.AuditLog.Auth(r, audit.EventLoginSuccess, &user.ID, true, "")

	// The SPA picks the bearer token off the fragment so it never hits
	// server logs.
	http.Redirect(w, r, h.FrontendURL+"/login#token="+bearer.Token, http.StatusSeeOther)
}

var errUserDisabled = errors.New("user disabled")

func (h *Handler) findOrCreateUser(ctx context.Context, gu *googleUserInfo) (models.User, error) {
	user, err := h.Users.GetByEmail(ctx, gu.Email)
	if err == nil {
		if user.Status != "" && user.Status != "active" {
			return user, errUserDisabled
		}
		return user, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, err
	}

	name := gu.Name
	if name == "" {
		name = gu.Email
	}
	return h.Users.Create(ctx, models.User{
		FullName:   name,
		Email:      gu.Email,
		AuthMethod: models.AuthMethodGoogle,
	})
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func fetchGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &info, nil
}

func generateState() (string, error) {
	b := securecookie.GenerateRandomKey(32)
	if b == nil {
		return "", errors.New("no entropy available for oauth state")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
