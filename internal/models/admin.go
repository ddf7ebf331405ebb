package models

import "time"

// Admin action kinds
const (
	ActionFlagMessage    = "flag_message"
	ActionDeleteMessage  = "delete_message"
	ActionStorageCleanup = "storage_cleanup"
)

// AdminAction is an entry of the append-only moderation log
type AdminAction struct {
	ID        string    `json:"id"`
	AdminID   string    `json:"adminId"`
	Action    string    `json:"action"`
	TargetID  string    `json:"targetId"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// FlagMessageRequest defines the request body for flagging a message
type FlagMessageRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=200"`
}

// CleanupRequest defines the request body for a manual storage cleanup
type CleanupRequest struct {
	Level string `json:"level" validate:"required,oneof=aggressive emergency"`
}
