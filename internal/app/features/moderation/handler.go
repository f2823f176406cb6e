// internal/app/features/moderation/handler.go
package moderation

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/recipehub/internal/app/store/audit"
	groupstore "github.com/dalemusser/recipehub/internal/app/store/groups"
	moderationstore "github.com/dalemusser/recipehub/internal/app/store/moderation"
	recipestore "github.com/dalemusser/recipehub/internal/app/store/recipes"
	"github.com/dalemusser/recipehub/internal/app/system/auditlog"
	"github.com/dalemusser/recipehub/internal/app/system/authz"
	"github.com/dalemusser/recipehub/internal/app/system/httpjson"
	"github.com/dalemusser/recipehub/internal/app/system/pendingcounts"
	"github.com/dalemusser/recipehub/internal/app/system/timeouts"
	"github.com/dalemusser/recipehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the global-admin moderation endpoints. The routes are
// mounted behind RequireAdmin, so every request here already carries an
// admin user.
type Handler struct {
	GroupDecisions  *moderationstore.Store
	RecipeDecisions *moderationstore.Store
	Groups          *groupstore.Store
	Recipes         *recipestore.Store
	Counts          *pendingcounts.Aggregator
	AuditLog        *auditlog.Logger
	Log             *zap.Logger
}

func NewHandler(
	groupDecisions, recipeDecisions *moderationstore.Store,
	groups *groupstore.Store,
	recipes *recipestore.Store,
	counts *pendingcounts.Aggregator,
	auditLog *auditlog.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		GroupDecisions:  groupDecisions,
		RecipeDecisions: recipeDecisions,
		Groups:          groups,
		Recipes:         recipes,
		Counts:          counts,
		AuditLog:        auditLog,
		Log:             logger,
	}
}

type rejectRequest struct {
	RejectionReason string `json:"rejectionReason"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| Pending queues                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// HandlePendingGroups handles GET /api/groups/moderation/pending.
func (h *Handler) HandlePendingGroups(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Groups.ListPending(ctx)
	if err != nil {
		httpjson.Unavailable(w, h.Log, "moderation: pending groups", err)
		return
	}
	if list == nil {
		list = []models.Group{}
	}
	httpjson.OK(w, list)
}

// HandlePendingRecipes handles GET /api/recipes/moderation/pending.
func (h *Handler) HandlePendingRecipes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Recipes.ListPending(ctx)
	if err != nil {
		httpjson.Unavailable(w, h.Log, "moderation: pending recipes", err)
		return
	}
	if list == nil {
		list = []models.Recipe{}
	}
	httpjson.OK(w, list)
}

// HandleCounts handles GET /api/moderation/counts: the cached pending
// counts the admin UI polls for its badge. ?refresh=1 forces a recompute
// instead of serving the cache.
func (h *Handler) HandleCounts(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "1" {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
		defer cancel()
		counts, err := h.Counts.Refresh(ctx)
		if err != nil {
			httpjson.Unavailable(w, h.Log, "moderation: refresh counts", err)
			return
		}
		httpjson.OK(w, counts)
		return
	}
	httpjson.OK(w, h.Counts.Counts())
}

/*─────────────────────────────────────────────────────────────────────────────*
| Decisions                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleApproveGroup handles POST /api/groups/moderation/{id}/approve.
func (h *Handler) HandleApproveGroup(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.GroupDecisions, decisionApprove)
}

// HandleRejectGroup handles POST /api/groups/moderation/{id}/reject.
func (h *Handler) HandleRejectGroup(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.GroupDecisions, decisionReject)
}

// HandleApproveRecipe handles POST /api/recipes/moderation/{id}/approve.
func (h *Handler) HandleApproveRecipe(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.RecipeDecisions, decisionApprove)
}

// HandleRejectRecipe handles POST /api/recipes/moderation/{id}/reject.
func (h *Handler) HandleRejectRecipe(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.RecipeDecisions, decisionReject)
}

type decision int

const (
	decisionApprove decision = iota
	decisionReject
)

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, store *moderationstore.Store, d decision) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, "invalid id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var result models.Moderation
	eventType := audit.EventContentApproved
	details := map[string]string{"content_type": string(store.ContentType())}

	switch d {
	case decisionApprove:
		result, err = store.Approve(ctx, id)
	case decisionReject:
		var req rejectRequest
		if !httpjson.Decode(w, r, &req) {
			return
		}
		eventType = audit.EventContentRejected
		details["reason"] = req.RejectionReason
		result, err = store.Reject(ctx, id, req.RejectionReason)
	}

	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			httpjson.NotFound(w, "item not found")
		case errors.Is(err, moderationstore.ErrAlreadyDecided):
			httpjson.Conflict(w, "item has already been decided")
		default:
			httpjson.Unavailable(w, h.Log, "moderation: decide", err)
		}
		return
	}

	_, _, actorID, _ := authz.UserCtx(r)
	h.AuditLog.Moderation(r, eventType, actorID, id, details)

	// Keep the badge fresh without waiting for the next refresh tick.
	if _, err := h.Counts.Refresh(ctx); err != nil {
		h.Log.Warn("moderation: counts refresh failed", zap.Error(err))
	}

	httpjson.OK(w, result)
}
