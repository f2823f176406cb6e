// internal/app/features/groups/routes.go
package groups

import (
	"github.com/dalemusser/recipehub/internal/app/system/auth"
	"github.com/dalemusser/recipehub/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes returns the subrouter mounted at /api/groups. The invite-code
// endpoints sit behind inviteLimiter so codes cannot be scanned by brute
// force.
func Routes(h *Handler, sessionMgr *auth.SessionManager, inviteLimiter *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.HandleList)
	r.Get("/search", h.HandleSearch)
	r.With(inviteLimiter.Middleware).Get("/invite/{code}", h.HandleInviteLookup)
	r.Get("/{id}", h.HandleGet)

	r.Group(func(r chi.Router) {
		r.Use(sessionMgr.RequireSignedIn)
		r.Post("/", h.HandleCreate)
		r.Get("/user", h.HandleListMine)
		r.With(inviteLimiter.Middleware).Post("/invite/{code}/join", h.HandleJoin)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
		r.Post("/{id}/approve/{userID}", h.HandleApproveJoin)
		r.Post("/{id}/reject/{userID}", h.HandleRejectJoin)
		r.Put("/{id}/members/{userID}/role", h.HandleChangeRole)
		r.Delete("/{id}/members/{userID}", h.HandleRemoveMember)
	})

	return r
}
