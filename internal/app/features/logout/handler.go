// internal/app/features/logout/handler.go
package logout

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/recipehub/internal/app/store/audit"
	tokenstore "github.com/dalemusser/recipehub/internal/app/store/tokens"
	"github.com/dalemusser/recipehub/internal/app/system/auditlog"
	"github.com/dalemusser/recipehub/internal/app/system/auth"
	"github.com/dalemusser/recipehub/internal/app/system/authz"
	"github.com/dalemusser/recipehub/internal/app/system/httpjson"
	"github.com/dalemusser/recipehub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type Handler struct {
	Tokens     *tokenstore.Store
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	Log        *zap.Logger
}

func NewHandler(tokens *tokenstore.Store, sessionMgr *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Tokens: tokens, SessionMgr: sessionMgr, AuditLog: audit, Log: logger}
}

// HandleLogout handles POST /api/auth/logout. Revokes the bearer token that
// authenticated this request (if any) and clears the session cookie.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		token := strings.TrimPrefix(header, "Bearer ")
		if err := h.Tokens.Revoke(ctx, token); err != nil {
			h.Log.Warn("logout: token revoke failed", zap.Error(err))
		}
	}
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Warn("logout: cookie sign-out failed", zap.Error(err))
	}

	if _, _, uid, ok := authz.UserCtx(r); ok {
		h.AuditLog.Auth(r, audit.EventLogout, &uid, true, "")
	}

	httpjson.NoContent(w)
}
