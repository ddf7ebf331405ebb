package models

import (
	"fmt"
	"time"
)

// NotificationType is the kind of event a talent is notified about
type NotificationType string

const (
	NotificationFavorite  NotificationType = "favorite"
	NotificationShortlist NotificationType = "shortlist"
	NotificationMessage   NotificationType = "message"
)

// Valid reports whether t is a known notification type
func (t NotificationType) Valid() bool {
	return t == NotificationFavorite || t == NotificationShortlist || t == NotificationMessage
}

// TalentNotification represents a notification shown to a talent
type TalentNotification struct {
	ID         string           `json:"id"`
	Type       NotificationType `json:"type"`
	TalentID   string           `json:"talentId"`
	ClientID   string           `json:"clientId"`
	ClientName string           `json:"clientName"`
	ProjectID  string           `json:"projectId,omitempty"`
	MessageID  string           `json:"messageId,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
	Read       bool             `json:"read"` // false -> true only
}

// MarkReadRequest defines the request body for marking notifications as read
type MarkReadRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// Validate checks a decoded record before it is trusted
func (n *TalentNotification) Validate() error {
	if n.ID == "" || n.TalentID == "" {
		return fmt.Errorf("notification missing id or talent")
	}
	if !n.Type.Valid() {
		return fmt.Errorf("notification %s has unknown type %q", n.ID, n.Type)
	}
	return nil
}
