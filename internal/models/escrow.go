package models

import (
	"fmt"
	"time"
)

// EscrowStatus is the lifecycle state of an escrow payment
type EscrowStatus string

const (
	EscrowPending  EscrowStatus = "pending"
	EscrowHeld     EscrowStatus = "held"
	EscrowReleased EscrowStatus = "released"
	EscrowDisputed EscrowStatus = "disputed"
	EscrowRefunded EscrowStatus = "refunded"
)

// Valid reports whether s is one of the known escrow statuses
func (s EscrowStatus) Valid() bool {
	switch s {
	case EscrowPending, EscrowHeld, EscrowReleased, EscrowDisputed, EscrowRefunded:
		return true
	}
	return false
}

// Terminal reports whether no further transition leaves s
func (s EscrowStatus) Terminal() bool {
	return s == EscrowReleased || s == EscrowDisputed || s == EscrowRefunded
}

// EscrowPayment represents funds held between a client and a talent
type EscrowPayment struct {
	ID            string       `json:"id"`
	Amount        float64      `json:"amount"`
	Currency      string       `json:"currency"`
	ClientID      string       `json:"clientId"`
	TalentID      string       `json:"talentId"`
	ProjectID     string       `json:"projectId"`
	Description   string       `json:"description,omitempty"`
	Status        EscrowStatus `json:"status"`
	PayeeEmail    string       `json:"payeeEmail,omitempty"`
	DisputeReason string       `json:"disputeReason,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	CapturedAt    *time.Time   `json:"capturedAt,omitempty"`
	ReleasedAt    *time.Time   `json:"releasedAt,omitempty"`
	ClosedAt      *time.Time   `json:"closedAt,omitempty"` // disputed or refunded
}

// CreateEscrowRequest defines the request body for opening an escrow payment
type CreateEscrowRequest struct {
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Currency    string  `json:"currency" validate:"required,len=3,alpha"`
	TalentID    string  `json:"talentId" validate:"required"`
	ProjectID   string  `json:"projectId" validate:"required"`
	Description string  `json:"description" validate:"max=500"`
}

// ReleaseEscrowRequest defines the request body for releasing held funds
type ReleaseEscrowRequest struct {
	PayeeEmail string `json:"payeeEmail" validate:"required,email"`
}

// DisputeEscrowRequest defines the request body for disputing held funds
type DisputeEscrowRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

// Validate checks a decoded record before it is trusted
func (p *EscrowPayment) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("escrow payment without id")
	}
	if !p.Status.Valid() {
		return fmt.Errorf("escrow payment %s has unknown status %q", p.ID, p.Status)
	}
	if p.Status == EscrowReleased && (p.ReleasedAt == nil || p.ReleasedAt.Before(p.CreatedAt)) {
		return fmt.Errorf("escrow payment %s released without a valid releasedAt", p.ID)
	}
	return nil
}
