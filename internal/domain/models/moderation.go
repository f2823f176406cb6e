// internal/domain/models/moderation.go
package models

import "time"

// ModerationStatus is the lifecycle state that gates public visibility of a
// group or recipe. It is a closed set; any other value is rejected at the
// boundary before it reaches a store.
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

// Valid reports whether s is one of the three known statuses.
func (s ModerationStatus) Valid() bool {
	switch s {
	case ModerationPending, ModerationApproved, ModerationRejected:
		return true
	}
	return false
}

// Moderation holds the moderation fields shared by groups and recipes.
//
// RejectionReason is a pointer so that an empty string ("rejected, no reason
// given") stays distinct from absent (never rejected, or cleared on approve).
type Moderation struct {
	Status          ModerationStatus `bson:"status" json:"status"`
	RejectionReason *string          `bson:"rejection_reason,omitempty" json:"rejectionReason,omitempty"`
	ModeratedAt     *time.Time       `bson:"moderated_at,omitempty" json:"moderatedAt,omitempty"`
}

// NewModeration returns the initial moderation state for freshly created
// content. Every group and recipe starts out pending.
func NewModeration() Moderation {
	return Moderation{Status: ModerationPending}
}
