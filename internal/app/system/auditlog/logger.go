// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/recipehub/internal/app/store/audit"
	"github.com/dalemusser/recipehub/internal/app/system/ratelimit"
	"github.com/dalemusser/recipehub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Logger records audit events to both MongoDB (via audit.Store) and
// structured logs (via zap). A failed database write never fails the
// request; it is logged and dropped.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger) *Logger {
	return &Logger{store: store, zapLog: zapLog}
}

// Record persists the event and mirrors it to zap.
func (l *Logger) Record(ctx context.Context, e audit.Event) {
	l.logToZap(e)

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()
	if err := l.store.Insert(ctx, e); err != nil {
		l.zapLog.Warn("audit event insert failed", zap.Error(err))
	}
}

// Auth records an authentication event from an HTTP request.
func (l *Logger) Auth(r *http.Request, eventType string, userID *primitive.ObjectID, success bool, failureReason string) {
	l.Record(r.Context(), audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     eventType,
		UserID:        userID,
		IP:            ratelimit.ClientIP(r),
		Success:       success,
		FailureReason: failureReason,
	})
}

// Membership records a membership mutation performed by actor on the group,
// optionally affecting another user.
func (l *Logger) Membership(r *http.Request, eventType string, actorID, groupID primitive.ObjectID, userID *primitive.ObjectID, details map[string]string) {
	l.Record(r.Context(), audit.Event{
		Category:  audit.CategoryMembership,
		EventType: eventType,
		ActorID:   &actorID,
		GroupID:   &groupID,
		UserID:    userID,
		IP:        ratelimit.ClientIP(r),
		Success:   true,
		Details:   details,
	})
}

// Moderation records an approve/reject decision on a content item.
func (l *Logger) Moderation(r *http.Request, eventType string, actorID, itemID primitive.ObjectID, details map[string]string) {
	l.Record(r.Context(), audit.Event{
		Category:  audit.CategoryModeration,
		EventType: eventType,
		ActorID:   &actorID,
		ItemID:    &itemID,
		IP:        ratelimit.ClientIP(r),
		Success:   true,
		Details:   details,
	})
}

func (l *Logger) logToZap(e audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", e.Category),
		zap.String("event_type", e.EventType),
		zap.Bool("success", e.Success),
	}
	if e.ActorID != nil {
		fields = append(fields, zap.String("actor_id", e.ActorID.Hex()))
	}
	if e.UserID != nil {
		fields = append(fields, zap.String("user_id", e.UserID.Hex()))
	}
	if e.GroupID != nil {
		fields = append(fields, zap.String("group_id", e.GroupID.Hex()))
	}
	if e.ItemID != nil {
		fields = append(fields, zap.String("item_id", e.ItemID.Hex()))
	}
	if e.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", e.FailureReason))
	}
	l.zapLog.Info("audit", fields...)
}
