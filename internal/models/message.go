package models

import (
	"fmt"
	"time"
)

// MaxDeliveryRetries is the number of failed sweeps after which a pending
// message is kept but no longer retried.
const MaxDeliveryRetries = 3

// MaxMessageLength caps message content, in characters.
const MaxMessageLength = 4000

// Message represents a chat message between a client and a talent
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversationId"`
	FromID         string     `json:"fromId"`
	ToID           string     `json:"toId"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"createdAt"`
	Flagged        bool       `json:"flagged"`
	FlagReason     string     `json:"flagReason,omitempty"`
	FlaggedBy      string     `json:"flaggedBy,omitempty"`
	FlaggedAt      *time.Time `json:"flaggedAt,omitempty"`
}

// PendingMessage is an outbound message whose remote delivery failed
type PendingMessage struct {
	ID          string     `json:"id"`
	FromID      string     `json:"fromId"`
	FromName    string     `json:"fromName,omitempty"`
	ToID        string     `json:"toId"`
	Content     string     `json:"content"`
	Timestamp   time.Time  `json:"timestamp"`
	RetryCount  int        `json:"retryCount"`
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
}

// Abandoned reports whether the message has exhausted its retries
func (p PendingMessage) Abandoned() bool {
	return p.RetryCount >= MaxDeliveryRetries
}

// SendMessageRequest defines the request body for sending a message
type SendMessageRequest struct {
	ToID    string `json:"toId" validate:"required"`
	Content string `json:"content" validate:"required,min=1,max=4000"`
}

// ConversationID returns a stable id for the pair of participants
func ConversationID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// Validate checks a decoded record before it is trusted
func (p *PendingMessage) Validate() error {
	if p.ID == "" || p.FromID == "" || p.ToID == "" {
		return fmt.Errorf("pending message missing id or participants")
	}
	if p.RetryCount < 0 {
		return fmt.Errorf("pending message %s has negative retry count", p.ID)
	}
	return nil
}
