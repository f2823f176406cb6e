// internal/app/features/auditevents/handler.go
package auditevents

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/recipehub/internal/app/store/audit"
	"github.com/dalemusser/recipehub/internal/app/system/httpjson"
	"github.com/dalemusser/recipehub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler serves the admin view of recent audit events.
type Handler struct {
	Audit *audit.Store
	Log   *zap.Logger
}

func NewHandler(auditStore *audit.Store, logger *zap.Logger) *Handler {
	return &Handler{Audit: auditStore, Log: logger}
}

// HandleRecent handles GET /api/admin/audit?limit=N.
func (h *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			httpjson.BadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	events, err := h.Audit.Recent(ctx, limit)
	if err != nil {
		httpjson.Unavailable(w, h.Log, "audit: recent", err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httpjson.OK(w, events)
}
