package models

import (
	"time"
)

// PendingResponse statuses. The lifecycle is a one-shot gate:
// pending -> approved | rejected | edited, with no path back.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusEdited   = "edited"
)

// Review actions accepted from the GM
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionEdit    = "edit"
)

// Priority tiers used for queue ordering only
const (
	PriorityLow    = 1
	PriorityMedium = 2
	PriorityHigh   = 3
)

// Notification types
const (
	NotificationNewReview    = "new_review"
	NotificationUrgentReview = "urgent_review"
)

// PendingResponse is an AI-generated response held for GM review before
// delivery to the player. Rows are never deleted; decided rows double as
// the delivery record.
type PendingResponse struct {
	ID            string     `json:"id" gorm:"primaryKey"`
	SessionID     string     `json:"session_id" gorm:"index:idx_pending_session_status"`
	UserID        string     `json:"user_id" gorm:"index"`
	Context       string     `json:"context"`
	AIResponse    string     `json:"ai_response" gorm:"column:ai_response"`
	ResponseType  string     `json:"response_type"`
	Status        string     `json:"status" gorm:"index:idx_pending_session_status;default:pending"`
	DMNotes       string     `json:"dm_notes,omitempty" gorm:"column:dm_notes"`
	FinalResponse *string    `json:"final_response"`
	Priority      int        `json:"priority" gorm:"default:1"`
	CreatedAt     time.Time  `json:"created_at"`
	ReviewedAt    *time.Time `json:"reviewed_at"`
}

// Decided reports whether the record has left the pending state.
func (p *PendingResponse) Decided() bool {
	return p.Status != StatusPending
}

// DmNotification alerts a GM that a pending response needs attention.
// Delivery is polling only; a row simply exists until marked read.
type DmNotification struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	SessionID         string    `json:"session_id" gorm:"index:idx_notifications_unread"`
	DMUserID          string    `json:"dm_user_id" gorm:"column:dm_user_id;index:idx_notifications_unread"`
	PendingResponseID string    `json:"pending_response_id" gorm:"index"`
	NotificationType  string    `json:"notification_type"`
	Message           string    `json:"message"`
	IsRead            bool      `json:"is_read" gorm:"index:idx_notifications_unread"`
	CreatedAt         time.Time `json:"created_at"`
}

// ReviewHistory is the append-only audit record of a GM decision.
// Created exactly once per decided response, never mutated.
type ReviewHistory struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	PendingResponseID string    `json:"pending_response_id" gorm:"index"`
	DMUserID          string    `json:"dm_user_id" gorm:"column:dm_user_id"`
	Action            string    `json:"action"`
	OriginalResponse  string    `json:"original_response"`
	FinalResponse     *string   `json:"final_response"`
	Notes             string    `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
