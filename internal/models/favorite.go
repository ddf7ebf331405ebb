package models

import "time"

// Favorite is a client's general bookmark of a talent
type Favorite struct {
	ClientID  string    `json:"clientId"`
	TalentID  string    `json:"talentId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Shortlist places a talent on a client's shortlist for a project
type Shortlist struct {
	ClientID  string    `json:"clientId"`
	TalentID  string    `json:"talentId"`
	ProjectID string    `json:"projectId"`
	CreatedAt time.Time `json:"createdAt"`
}

// ShortlistRequest defines the request body for shortlisting a talent
type ShortlistRequest struct {
	ProjectID string `json:"projectId" validate:"required"`
}
