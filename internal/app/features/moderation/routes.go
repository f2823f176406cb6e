// internal/app/features/moderation/routes.go
package moderation

import (
	"github.com/dalemusser/recipehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// GroupRoutes returns the moderation subrouter mounted at
// /api/groups/moderation. Global admins only.
func GroupRoutes(h *Handler, sessionMgr *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireAdmin)
	r.Get("/pending", h.HandlePendingGroups)
	r.Post("/{id}/approve", h.HandleApproveGroup)
	r.Post("/{id}/reject", h.HandleRejectGroup)
	return r
}

// RecipeRoutes returns the moderation subrouter mounted at
// /api/recipes/moderation. Global admins only.
func RecipeRoutes(h *Handler, sessionMgr *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireAdmin)
	r.Get("/pending", h.HandlePendingRecipes)
	r.Post("/{id}/approve", h.HandleApproveRecipe)
	r.Post("/{id}/reject", h.HandleRejectRecipe)
	return r
}

// CountRoutes returns the subrouter mounted at /api/moderation. Global
// admins only.
func CountRoutes(h *Handler, sessionMgr *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireAdmin)
	r.Get("/counts", h.HandleCounts)
	return r
}
