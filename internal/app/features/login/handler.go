// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/recipehub/internal/app/store/audit"
	tokenstore "github.com/dalemusser/recipehub/internal/app/store/tokens"
	userstore "github.com/dalemusser/recipehub/internal/app/store/users"
	"github.com/dalemusser/recipehub/internal/app/system/auditlog"
	"github.com/dalemusser/recipehub/internal/app/system/auth"
	"github.com/dalemusser/recipehub/internal/app/system/httpjson"
	"github.com/dalemusser/recipehub/internal/app/system/ratelimit"
	"github.com/dalemusser/recipehub/internal/app/system/timeouts"
	"github.com/dalemusser/recipehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Handler struct {
	Users      *userstore.Store
	Tokens     *tokenstore.Store
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	Limiter    *ratelimit.Limiter
	Log        *zap.Logger
}

func NewHandler(users *userstore.Store, tokens *tokenstore.Store, sessionMgr *auth.SessionManager, audit *auditlog.Logger, limiter *ratelimit.Limiter, logger *zap.Logger) *Handler {
	return &Handler{
		Users:      users,
		Tokens:     tokens,
		SessionMgr: sessionMgr,
		AuditLog:   audit,
		Limiter:    limiter,
		Log:        logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// HandleLogin handles POST /api/auth/login.
//
// Failed attempts are rate limited per client IP. The response for an
// unknown email and a wrong password is identical so the endpoint does not
// leak which accounts exist.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ip := ratelimit.ClientIP(r)
	if !h.Limiter.Allow(ip) {
		httpjson.Write(w, http.StatusTooManyRequests, map[string]string{
			"error":   "rate_limited",
			"message": "too many login attempts; try again later",
		})
		return
	}

	var req loginRequest
	if !httpjson.Decode(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		httpjson.BadRequest(w, "email and password are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	user, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			h.AuditLog.Auth(r, audit.EventLoginFailedUserNotFound, nil, false, "user not found")
			httpjson.Write(w, http.StatusUnauthorized, map[string]string{
				"error":   "unauthorized",
				"message": "invalid email or password",
			})
			return
		}
		httpjson.Unavailable(w, h.Log, "login: lookup user", err)
		return
	}

	if user.Status != "" && user.Status != "active" {
		h.AuditLog.Auth(r, audit.EventLoginFailedUserDisabled, &user.ID, false, "account disabled")
		httpjson.Forbidden(w, "this account is disabled")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		h.AuditLog.Auth(r, audit.EventLoginFailedWrongPassword, &user.ID, false, "wrong password")
		httpjson.Write(w, http.StatusUnauthorized, map[string]string{
			"error":   "unauthorized",
			"message": "invalid email or password",
		})
		return
	}

	token, err := h.Tokens.Issue(ctx, user.ID, ip, r.UserAgent())
	if err != nil {
		httpjson.Unavailable(w, h.Log, "login: issue token", err)
		return
	}
	if err := h.SessionMgr.SignIn(w, r, user.ID.Hex()); err != nil {
		h.Log.Warn("login: cookie sign-in failed", zap.Error(err))
	}

	h.Limiter.Reset(ip)
	h.AuditLog.Auth(r, audit.EventLoginSuccess, &user.ID, true, "")

	httpjson.OK(w, authResponse{Token: token.Token, User: user})
}
