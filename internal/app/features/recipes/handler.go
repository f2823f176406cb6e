// internal/app/features/recipes/handler.go
package recipes

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/recipehub/internal/app/policy/grouppolicy"
	"github.com/dalemusser/recipehub/internal/app/policy/recipepolicy"
	groupstore "github.com/dalemusser/recipehub/internal/app/store/groups"
	membershipstore "github.com/dalemusser/recipehub/internal/app/store/memberships"
	recipestore "github.com/dalemusser/recipehub/internal/app/store/recipes"
	"github.com/dalemusser/recipehub/internal/app/system/authz"
	"github.com/dalemusser/recipehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/recipehub/internal/app/system/httpjson"
	"github.com/dalemusser/recipehub/internal/app/system/timeouts"
	"github.com/dalemusser/recipehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Recipes     *recipestore.Store
	Groups      *groupstore.Store
	Memberships *membershipstore.Store
	Log         *zap.Logger
}

func NewHandler(recipes *recipestore.Store, groups *groupstore.Store, memberships *membershipstore.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Recipes:     recipes,
		Groups:      groups,
		Memberships: memberships,
		Log:         logger,
	}
}

type recipeRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"`
	ImageURL    string   `json:"image,omitempty"`
	GroupID     string   `json:"groupId,omitempty"`
}

// HandleCreate handles POST /api/recipes. New recipes start out pending
// moderation. Sharing into a group requires membership in that group.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Unauthorized(w)
		return
	}

	var req recipeRequest
	if !httpjson.Decode(w, r, &req) {
		return
	}
	title := strings.TrimSpace(htmlsanitize.PlainText(req.Title))
	if title == "" {
		httpjson.BadRequest(w, "recipe title is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	groupID, ok := h.resolveGroupID(ctx, w, r, req.GroupID)
	if !ok {
		return
	}

	recipe, err := h.Recipes.Create(ctx, models.Recipe{
		Title:       title,
		Description: htmlsanitize.Sanitize(req.Description),
		Ingredients: sanitizeList(req.Ingredients),
		Steps:       sanitizeList(req.Steps),
		ImageURL:    strings.TrimSpace(req.ImageURL),
		AuthorID:    uid,
		GroupID:     groupID,
	})
	if err != nil {
		httpjson.Unavailable(w, h.Log, "recipes: create", err)
		return
	}
	httpjson.Created(w, recipe)
}

// HandleList handles GET /api/recipes: the approved, public feed.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Recipes.ListApproved(ctx)
	if err != nil {
		httpjson.Unavailable(w, h.Log, "recipes: list", err)
		return
	}
	if list == nil {
		list = []models.Recipe{}
	}
	httpjson.OK(w, list)
}

// HandleListMine handles GET /api/recipes/user: the signed-in user's own
// recipes in every moderation state, so authors can see their pending and
// rejected submissions alongside the approved ones.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Unauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Recipes.ListByAuthor(ctx, uid)
	if err != nil {
		httpjson.Unavailable(w, h.Log, "recipes: list mine", err)
		return
	}
	if list == nil {
		list = []models.Recipe{}
	}
	httpjson.OK(w, list)
}

// HandleListByGroup handles GET /api/groups/{id}/recipes. Members of the
// group see the full shared list (including pending items); everyone else
// only sees approved recipes, and only for approved, visible groups.
func (h *Handler) HandleListByGroup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	groupID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, "invalid group id")
		return
	}
	group, err := h.Groups.GetByID(ctx, groupID)
	if err != nil {
		if groupstore.IsNotFound(err) {
			httpjson.NotFound(w, "group not found")
			return
		}
		httpjson.Unavailable(w, h.Log, "recipes: load group", err)
		return
	}

	_, _, uid, signedIn := authz.UserCtx(r)
	isAdmin := authz.IsAdmin(r)
	isMember := false
	if signedIn && !isAdmin {
		isMember, err = h.Memberships.IsMember(ctx, group.ID, uid)
		if err != nil {
			httpjson.Unavailable(w, h.Log, "recipes: membership check", err)
			return
		}
	}

	if !isAdmin && !isMember {
		if group.Moderation.Status != models.ModerationApproved || group.IsPrivate {
			httpjson.NotFound(w, "group not found")
			return
		}
	}

	list, err := h.Recipes.ListByGroup(ctx, group.ID, isAdmin || isMember)
	if err != nil {
		httpjson.Unavailable(w, h.Log, "recipes: list by group", err)
		return
	}
	if list == nil {
		list = []models.Recipe{}
	}
	httpjson.OK(w, list)
}

// HandleGet handles GET /api/recipes/{id} with the visibility rules applied.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	recipe, ok := h.loadRecipe(ctx, w, r)
	if !ok {
		return
	}

	visible, err := recipepolicy.CanView(ctx, h.viewer(r), &recipe, h.Groups, h.Memberships)
	if err != nil {
		httpjson.Unavailable(w, h.Log, "recipes: visibility check", err)
		return
	}
	if !visible {
		httpjson.NotFound(w, "recipe not found")
		return
	}
	httpjson.OK(w, recipe)
}

// HandleUpdate handles PUT /api/recipes/{id}. Author or global admin only;
// editing never resets the moderation status.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	recipe, ok := h.loadRecipe(ctx, w, r)
	if !ok {
		return
	}
	if !h.requireEditable(w, r, &recipe) {
		return
	}

	var req recipeRequest
	if !httpjson.Decode(w, r, &req) {
		return
	}
	title := strings.TrimSpace(htmlsanitize.PlainText(req.Title))
	if title == "" {
		httpjson.BadRequest(w, "recipe title is required")
		return
	}

	groupID, ok := h.resolveGroupID(ctx, w, r, req.GroupID)
	if !ok {
		return
	}

	err := h.Recipes.UpdateInfo(ctx, recipe.ID, title,
		htmlsanitize.Sanitize(req.Description),
		sanitizeList(req.Ingredients),
		sanitizeList(req.Steps),
		strings.TrimSpace(req.ImageURL),
		groupID)
	if err != nil {
		if recipestore.IsNotFound(err) {
			httpjson.NotFound(w, "recipe not found")
			return
		}
		httpjson.Unavailable(w, h.Log, "recipes: update", err)
		return
	}

	updated, err := h.Recipes.GetByID(ctx, recipe.ID)
	if err != nil {
		httpjson.Unavailable(w, h.Log, "recipes: reload", err)
		return
	}
	httpjson.OK(w, updated)
}

// HandleDelete handles DELETE /api/recipes/{id}. Author or global admin.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	recipe, ok := h.loadRecipe(ctx, w, r)
	if !ok {
		return
	}
	if !h.requireEditable(w, r, &recipe) {
		return
	}

	deleted, err := h.Recipes.Delete(ctx, recipe.ID)
	if err != nil {
		httpjson.Unavailable(w, h.Log, "recipes: delete", err)
		return
	}
	if deleted == 0 {
		httpjson.NotFound(w, "recipe not found")
		return
	}
	httpjson.NoContent(w)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) loadRecipe(ctx context.Context, w http.ResponseWriter, r *http.Request) (models.Recipe, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, "invalid recipe id")
		return models.Recipe{}, false
	}
	recipe, err := h.Recipes.GetByID(ctx, id)
	if err != nil {
		if recipestore.IsNotFound(err) {
			httpjson.NotFound(w, "recipe not found")
			return models.Recipe{}, false
		}
		httpjson.Unavailable(w, h.Log, "recipes: load", err)
		return models.Recipe{}, false
	}
	return recipe, true
}

func (h *Handler) viewer(r *http.Request) recipepolicy.Viewer {
	_, _, uid, signedIn := authz.UserCtx(r)
	return recipepolicy.Viewer{
		ID:            uid,
		SignedIn:      signedIn,
		IsGlobalAdmin: authz.IsAdmin(r),
	}
}

func (h *Handler) requireEditable(w http.ResponseWriter, r *http.Request, recipe *models.Recipe) bool {
	v := h.viewer(r)
	if !v.SignedIn {
		httpjson.Unauthorized(w)
		return false
	}
	if !recipepolicy.CanEdit(v, recipe) {
		httpjson.Forbidden(w, "only the author can modify this recipe")
		return false
	}
	return true
}

// resolveGroupID parses and authorizes an optional group reference. Sharing
// into a group requires membership (any role) in that group.
func (h *Handler) resolveGroupID(ctx context.Context, w http.ResponseWriter, r *http.Request, raw string) (*primitive.ObjectID, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	groupID, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		httpjson.BadRequest(w, "invalid group id")
		return nil, false
	}
	if _, err := h.Groups.GetByID(ctx, groupID); err != nil {
		if groupstore.IsNotFound(err) {
			httpjson.NotFound(w, "group not found")
			return nil, false
		}
		httpjson.Unavailable(w, h.Log, "recipes: resolve group", err)
		return nil, false
	}

	allowed, err := grouppolicy.Authorize(ctx, r, h.Memberships, groupID, grouppolicy.ActionAddRecipe)
	if err != nil {
		httpjson.Unavailable(w, h.Log, "recipes: group authorize", err)
		return nil, false
	}
	if !allowed {
		httpjson.Forbidden(w, "you must be a member of the group to share a recipe into it")
		return nil, false
	}
	return &groupID, true
}

func sanitizeList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(htmlsanitize.PlainText(item))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
