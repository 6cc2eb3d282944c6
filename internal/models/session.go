package models

import (
	"time"
)

// Session roles
const (
	RolePlayer   = "player"
	RoleGM       = "gm"
	RoleObserver = "observer"
)

// ValidRole reports whether r is one of the session roles.
func ValidRole(r string) bool {
	return r == RolePlayer || r == RoleGM || r == RoleObserver
}

// Session represents a campaign session with a GM and player participants
type Session struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name"`
	GMUserID  string    `json:"gm_user_id" gorm:"column:gm_user_id;index"`
	CreatedAt time.Time `json:"created_at"`
}

// UserRole binds a user to a role within a single session
type UserRole struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	SessionID string `json:"session_id" gorm:"index:idx_user_roles_session_user"`
	UserID    string `json:"user_id" gorm:"index:idx_user_roles_session_user"`
	Role      string `json:"role"`
}

// Scene holds the current narrative scene summary for a session
type Scene struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	SessionID string `json:"session_id" gorm:"uniqueIndex"`
	Summary   string `json:"summary"`
}

// Entity is a generic session-scoped game object (NPC, spirit, drone, ...).
// ExtraData carries a JSON-encoded blob for anything the fixed columns
// don't cover.
type Entity struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	SessionID string `json:"session_id" gorm:"index"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Status    string `json:"status,omitempty"`
	ExtraData string `json:"extra_data,omitempty"`
}
