package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Request lifecycle. Pending is the only non-terminal state; a request
// is mutated exactly once by an admin decision and never again.
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusDeclined = "declined"
)

// FlagRequest is a user-submitted creation or edit proposal.
//
// FlagID nil means "new flag"; set means "edit of that flag". On
// approval of a new flag it is back-filled with the created flag's id.
// OldFlag holds a FlagSnapshot of the published fields at submission
// time and is used to detect which fields the edit actually changed.
type FlagRequest struct {
	ID          uuid.UUID                   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID                   `gorm:"type:uuid;not null;index" json:"user_id"`
	FlagID      *uuid.UUID                  `gorm:"type:uuid;index" json:"flag_id"`
	Name        string                      `gorm:"size:255;not null" json:"name"`
	Image       string                      `gorm:"type:text;not null" json:"image"`
	Link        string                      `gorm:"type:text;not null" json:"link"`
	Description string                      `gorm:"type:text" json:"description"`
	Tags        datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"tags"`
	Message     string                      `gorm:"type:text" json:"message"`
	OldFlag     datatypes.JSON              `gorm:"type:jsonb" json:"old_flag"`
	Status      string                      `gorm:"size:10;not null;default:'pending';index" json:"status"`
	IsEdit      bool                        `gorm:"default:false" json:"is_edit"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
	User        User                        `gorm:"foreignKey:UserID" json:"-"`
}

// FlagSnapshot is the shape stored in FlagRequest.OldFlag.
type FlagSnapshot struct {
	Name        string   `json:"name"`
	Image       string   `json:"image"`
	Link        string   `json:"link"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}
