package models

import (
	"time"

	"github.com/google/uuid"
)

// LeaderboardEntry credits approved contributions. Count is
// monotonically non-decreasing; contributions are never revoked even
// if the underlying flag is later deleted.
type LeaderboardEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Count     int       `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
}
