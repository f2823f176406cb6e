// internal/app/features/groups/handler.go
package groups

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/recipehub/internal/app/policy/grouppolicy"
	"github.com/dalemusser/recipehub/internal/app/store/audit"
	groupstore "github.com/dalemusser/recipehub/internal/app/store/groups"
	membershipstore "github.com/dalemusser/recipehub/internal/app/store/memberships"
	userstore "github.com/dalemusser/recipehub/internal/app/store/users"
	"github.com/dalemusser/recipehub/internal/app/system/auditlog"
	"github.com/dalemusser/recipehub/internal/app/system/authz"
	"github.com/dalemusser/recipehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/recipehub/internal/app/system/httpjson"
	"github.com/dalemusser/recipehub/internal/app/system/invitecode"
	"github.com/dalemusser/recipehub/internal/app/system/timeouts"
	"github.com/dalemusser/recipehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Groups      *groupstore.Store
	Memberships *membershipstore.Store
	Users       *userstore.Store
	AuditLog    *auditlog.Logger
	Log         *zap.Logger
}

func NewHandler(groups *groupstore.Store, memberships *membershipstore.Store, users *userstore.Store, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Groups:      groups,
		Memberships: memberships,
		Users:       users,
		AuditLog:    auditLog,
		Log:         logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Request / response shapes                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

type groupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image,omitempty"`
	IsPrivate   bool   `json:"isPrivate"`
}

type memberView struct {
	UserID   string           `json:"userId"`
	FullName string           `json:"fullName"`
	Role     models.GroupRole `json:"role"`
}

type requestView struct {
	UserID   string `json:"userId"`
	FullName string `json:"fullName"`
}

type groupDetail struct {
	models.Group
	Members  []memberView  `json:"members"`
	Requests []requestView `json:"pendingRequests,omitempty"`
	Role     string        `json:"viewerRole,omitempty"`
}

type invitePreview struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image,omitempty"`
	IsPrivate   bool   `json:"isPrivate"`
	MemberCount int    `json:"memberCount"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| CRUD                                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleCreate handles POST /api/groups. The group starts out pending
// moderation with the creator as its sole owner.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Unauthorized(w)
		return
	}

	var req groupRequest
	if !httpjson.Decode(w, r, &req) {
		return
	}
	name := strings.TrimSpace(htmlsanitize.PlainText(req.Name))
	if name == "" {
		httpjson.BadRequest(w, "group name is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	group, err := h.Groups.Create(ctx, models.Group{
		Name:        name,
		Description: htmlsanitize.Sanitize(req.Description),
		ImageURL:    strings.TrimSpace(req.ImageURL),
		IsPrivate:   req.IsPrivate,
		CreatorID:   uid,
	})
	if err != nil {
		if errors.Is(err, invitecode.ErrSpaceExhausted) {
			httpjson.Unavailable(w, h.Log, "groups: allocate invite code", err)
			return
		}
		httpjson.Unavailable(w, h.Log, "groups: create", err)
		return
	}

	h.AuditLog.Membership(r, audit.EventGroupCreated, uid, group.ID, nil, nil)
	httpjson.Created(w, group)
}

// HandleList handles GET /api/groups: approved groups only.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Groups.ListApproved(ctx)
	if err != nil {
		httpjson.Unavailable(w, h.Log, "groups: list", err)
		return
	}
	if list == nil {
		list = []models.Group{}
	}
	httpjson.OK(w, list)
}

// HandleListMine handles GET /api/groups/user: every group the signed-in
// user belongs to, regardless of moderation state.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Unauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Groups.ListByMember(ctx, uid)
	if err != nil {
		httpjson.Unavailable(w, h.Log, "groups: list mine", err)
		return
	}
	if list == nil {
		list = []models.Group{}
	}
	httpjson.OK(w, list)
}

// HandleSearch handles GET /api/groups/search?q=…. Only approved groups are
// searchable; an empty query returns an empty list.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Groups.Search(ctx, r.URL.Query().Get("q"))
	if err != nil {
		httpjson.Unavailable(w, h.Log, "groups: search", err)
		return
	}
	if list == nil {
		list = []models.Group{}
	}
	httpjson.OK(w, list)
}

// HandleGet handles GET /api/groups/{id}. Approved groups are visible to
// everyone; pending and rejected groups only to their members and to global
// admins. Managers additionally see the pending join requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	group, ok := h.loadGroup(ctx, w, r)
	if !ok {
		return
	}

	_, _, uid, signedIn := authz.UserCtx(r)
	isAdmin := authz.IsAdmin(r)

	var viewerRole models.GroupRole
	if signedIn {
		role, err := h.Memberships.RoleOf(ctx, group.ID, uid)
		if err != nil && !errors.Is(err, membershipstore.ErrNotMember) {
			httpjson.Unavailable(w, h.Log, "groups: viewer role", err)
			return
		}
		viewerRole = role
	}

	if group.Moderation.Status != models.ModerationApproved && viewerRole == "" && !isAdmin {
		// Same response as a missing group so unapproved groups don't leak.
		httpjson.NotFound(w, "group not found")
		return
	}

	members, err := h.Memberships.ListMembers(ctx, group.ID)
	if err != nil {
		httpjson.Unavailable(w, h.Log, "groups: list members", err)
		return
	}

	detail := groupDetail{
		Group:   group,
		Members: h.memberViews(ctx, members),
		Role:    string(viewerRole),
	}

	if viewerRole.CanModerateJoins() || isAdmin {
		requests, err := h.Memberships.ListRequests(ctx, group.ID)
		if err != nil {
			httpjson.Unavailable(w, h.Log, "groups: list requests", err)
			return
		}
		detail.Requests = h.requestViews(ctx, requests)
	}

	httpjson.OK(w, detail)
}

// HandleUpdate handles PUT /api/groups/{id}. Editing never changes the
// moderation status; a rejected group stays rejected until a moderator
// decides otherwise.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	group, ok := h.loadGroup(ctx, w, r)
	if !ok {
		return
	}
	if !h.authorize(ctx, w, r, group.ID, grouppolicy.ActionEdit) {
		return
	}

	var req groupRequest
	if !httpjson.Decode(w, r, &req) {
		return
	}
	name := strings.TrimSpace(htmlsanitize.PlainText(req.Name))

	err := h.Groups.UpdateInfo(ctx, group.ID, name,
		htmlsanitize.Sanitize(req.Description),
		strings.TrimSpace(req.ImageURL),
		req.IsPrivate)
	if err != nil {
		if groupstore.IsNotFound(err) {
			httpjson.NotFound(w, "group not found")
			return
		}
		httpjson.Unavailable(w, h.Log, "groups: update", err)
		return
	}

	updated, err := h.Groups.GetByID(ctx, group.ID)
	if err != nil {
		httpjson.Unavailable(w, h.Log, "groups: reload", err)
		return
	}

	if _, _, uid, ok := authz.UserCtx(r); ok {
		h.AuditLog.Membership(r, audit.EventGroupUpdated, uid, group.ID, nil, nil)
	}
	httpjson.OK(w, updated)
}

// HandleDelete handles DELETE /api/groups/{id}. Owner or global admin only.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	group, ok := h.loadGroup(ctx, w, r)
	if !ok {
		return
	}
	if !h.authorize(ctx, w, r, group.ID, grouppolicy.ActionDelete) {
		return
	}

	deleted, err := h.Groups.Delete(ctx, group.ID)
	if err != nil {
		httpjson.Unavailable(w, h.Log, "groups: delete", err)
		return
	}
	if deleted == 0 {
		httpjson.NotFound(w, "group not found")
		return
	}

	if _, _, uid, ok := authz.UserCtx(r); ok {
		h.AuditLog.Membership(r, audit.EventGroupDeleted, uid, group.ID, nil, nil)
	}
	httpjson.NoContent(w)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Invite codes and joining                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleInviteLookup handles GET /api/groups/invite/{code}: a preview of the
// group behind a code, shown before the user commits to joining. Possession
// of the code is the capability, so the group's moderation state is not
// checked here; a pending group's members can be invited while it awaits
// review.
func (h *Handler) HandleInviteLookup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	group, ok := h.loadGroupByCode(ctx, w, r)
	if !ok {
		return
	}

	members, err := h.Memberships.ListMembers(ctx, group.ID)
	if err != nil {
		httpjson.Unavailable(w, h.Log, "groups: invite lookup members", err)
		return
	}

	httpjson.OK(w, invitePreview{
		ID:          group.ID.Hex(),
		Name:        group.Name,
		Description: group.Description,
		ImageURL:    group.ImageURL,
		IsPrivate:   group.IsPrivate,
		MemberCount: len(members),
	})
}

// HandleJoin handles POST /api/groups/invite/{code}/join. Public group:
// immediate membership. Private group: a pending join request.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Unauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	group, ok := h.loadGroupByCode(ctx, w, r)
	if !ok {
		return
	}

	outcome, err := h.Memberships.RequestJoin(ctx, group, uid)
	if err != nil {
		switch {
		case errors.Is(err, membershipstore.ErrAlreadyMember):
			httpjson.Conflict(w, "you are already a member of this group")
		case errors.Is(err, membershipstore.ErrAlreadyRequested):
			httpjson.Conflict(w, "you already have a pending request for this group")
		default:
			httpjson.Unavailable(w, h.Log, "groups: join", err)
		}
		return
	}

	if outcome.Member != nil {
		h.AuditLog.Membership(r, audit.EventJoinedGroup, uid, group.ID, nil, nil)
		httpjson.Created(w, map[string]any{"status": "joined", "member": outcome.Member})
		return
	}
	h.AuditLog.Membership(r, audit.EventJoinRequested, uid, group.ID, nil, nil)
	httpjson.Created(w, map[string]any{"status": "requested", "request": outcome.Request})
}

// HandleApproveJoin handles POST /api/groups/{id}/approve/{userID}.
func (h *Handler) HandleApproveJoin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	group, ok := h.loadGroup(ctx, w, r)
	if !ok {
		return
	}
	targetID, ok := h.targetUserID(w, r)
	if !ok {
		return
	}
	if !h.authorize(ctx, w, r, group.ID, grouppolicy.ActionApproveJoin) {
		return
	}

	member, err := h.Memberships.ApproveJoin(ctx, group.ID, targetID)
	if err != nil {
		switch {
		case errors.Is(err, membershipstore.ErrNoRequest):
			httpjson.NotFound(w, "no pending join request for this user")
		case errors.Is(err, membershipstore.ErrAlreadyMember):
			httpjson.Conflict(w, "user is already a member of this group")
		default:
			httpjson.Unavailable(w, h.Log, "groups: approve join", err)
		}
		return
	}

	_, _, actorID, _ := authz.UserCtx(r)
	h.AuditLog.Membership(r, audit.EventJoinApproved, actorID, group.ID, &targetID, nil)
	httpjson.OK(w, member)
}

// HandleRejectJoin handles POST /api/groups/{id}/reject/{userID}. The
// request is dropped with no record; the user may request again later.
func (h *Handler) HandleRejectJoin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	group, ok := h.loadGroup(ctx, w, r)
	if !ok {
		return
	}
	targetID, ok := h.targetUserID(w, r)
	if !ok {
		return
	}
	if !h.authorize(ctx, w, r, group.ID, grouppolicy.ActionRejectJoin) {
		return
	}

	if err := h.Memberships.RejectJoin(ctx, group.ID, targetID); err != nil {
		if errors.Is(err, membershipstore.ErrNoRequest) {
			httpjson.NotFound(w, "no pending join request for this user")
			return
		}
		httpjson.Unavailable(w, h.Log, "groups: reject join", err)
		return
	}

	_, _, actorID, _ := authz.UserCtx(r)
	h.AuditLog.Membership(r, audit.EventJoinRejected, actorID, group.ID, &targetID, nil)
	httpjson.NoContent(w)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Member management                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

type roleChangeRequest struct {
	Role models.GroupRole `json:"role"`
}

// HandleChangeRole handles PUT /api/groups/{id}/members/{userID}/role.
// Only admin and member are assignable; the owner can never be the target.
func (h *Handler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	group, ok := h.loadGroup(ctx, w, r)
	if !ok {
		return
	}
	targetID, ok := h.targetUserID(w, r)
	if !ok {
		return
	}
	if !h.authorize(ctx, w, r, group.ID, grouppolicy.ActionChangeRole) {
		return
	}

	var req roleChangeRequest
	if !httpjson.Decode(w, r, &req) {
		return
	}

	member, err := h.Memberships.ChangeRole(ctx, group.ID, targetID, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, membershipstore.ErrBadRole):
			httpjson.BadRequest(w, `role must be "admin" or "member"`)
		case errors.Is(err, membershipstore.ErrNotMember):
			httpjson.NotFound(w, "user is not a member of this group")
		case errors.Is(err, membershipstore.ErrOwnerImmutable):
			httpjson.Forbidden(w, "the group owner's role cannot be changed")
		default:
			httpjson.Unavailable(w, h.Log, "groups: change role", err)
		}
		return
	}

	_, _, actorID, _ := authz.UserCtx(r)
	h.AuditLog.Membership(r, audit.EventMemberRoleChanged, actorID, group.ID, &targetID,
		map[string]string{"role": string(req.Role)})
	httpjson.OK(w, member)
}

// HandleRemoveMember handles DELETE /api/groups/{id}/members/{userID}.
// Members may remove themselves (leave); managers remove others. The owner
// can never be removed, including by themselves.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	group, ok := h.loadGroup(ctx, w, r)
	if !ok {
		return
	}
	targetID, ok := h.targetUserID(w, r)
	if !ok {
		return
	}

	_, _, actorID, signedIn := authz.UserCtx(r)
	if !signedIn {
		httpjson.Unauthorized(w)
		return
	}
	if actorID != targetID {
		if !h.authorize(ctx, w, r, group.ID, grouppolicy.ActionRemoveMember) {
			return
		}
	}

	if err := h.Memberships.RemoveMember(ctx, group.ID, targetID); err != nil {
		switch {
		case errors.Is(err, membershipstore.ErrNotMember):
			httpjson.NotFound(w, "user is not a member of this group")
		case errors.Is(err, membershipstore.ErrOwnerImmutable):
			httpjson.Forbidden(w, "the group owner cannot be removed")
		default:
			httpjson.Unavailable(w, h.Log, "groups: remove member", err)
		}
		return
	}

	h.AuditLog.Membership(r, audit.EventMemberRemoved, actorID, group.ID, &targetID, nil)
	httpjson.NoContent(w)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) loadGroup(ctx context.Context, w http.ResponseWriter, r *http.Request) (models.Group, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, "invalid group id")
		return models.Group{}, false
	}
	group, err := h.Groups.GetByID(ctx, id)
	if err != nil {
		if groupstore.IsNotFound(err) {
			httpjson.NotFound(w, "group not found")
			return models.Group{}, false
		}
		httpjson.Unavailable(w, h.Log, "groups: load", err)
		return models.Group{}, false
	}
	return group, true
}

func (h *Handler) loadGroupByCode(ctx context.Context, w http.ResponseWriter, r *http.Request) (models.Group, bool) {
	code := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code")))
	if !invitecode.Valid(code) {
		httpjson.NotFound(w, "invite code not found")
		return models.Group{}, false
	}
	group, err := h.Groups.FindByInviteCode(ctx, code)
	if err != nil {
		if groupstore.IsNotFound(err) {
			httpjson.NotFound(w, "invite code not found")
			return models.Group{}, false
		}
		httpjson.Unavailable(w, h.Log, "groups: invite lookup", err)
		return models.Group{}, false
	}
	return group, true
}

func (h *Handler) targetUserID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		httpjson.BadRequest(w, "invalid user id")
		return primitive.NilObjectID, false
	}
	return id, true
}

// authorize applies the group action table, writing the error response on
// denial. 401 for anonymous callers, 403 for signed-in callers without the
// needed role.
func (h *Handler) authorize(ctx context.Context, w http.ResponseWriter, r *http.Request, groupID primitive.ObjectID, action grouppolicy.Action) bool {
	if _, _, _, signedIn := authz.UserCtx(r); !signedIn {
		httpjson.Unauthorized(w)
		return false
	}
	allowed, err := grouppolicy.Authorize(ctx, r, h.Memberships, groupID, action)
	if err != nil {
		httpjson.Unavailable(w, h.Log, "groups: authorize", err)
		return false
	}
	if !allowed {
		httpjson.Forbidden(w, "you do not have permission to do that")
		return false
	}
	return true
}

func (h *Handler) memberViews(ctx context.Context, members []models.GroupMember) []memberView {
	views := make([]memberView, 0, len(members))
	for _, m := range members {
		v := memberView{UserID: m.UserID.Hex(), Role: m.Role}
		if u, err := h.Users.GetByID(ctx, m.UserID); err == nil {
			v.FullName = u.FullName
		}
		views = append(views, v)
	}
	return views
}

func (h *Handler) requestViews(ctx context.Context, requests []models.JoinRequest) []requestView {
	views := make([]requestView, 0, len(requests))
	for _, jr := range requests {
		v := requestView{UserID: jr.UserID.Hex()}
		if u, err := h.Users.GetByID(ctx, jr.UserID); err == nil {
			v.FullName = u.FullName
		}
		views = append(views, v)
	}
	return views
}
