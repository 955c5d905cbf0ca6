package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a catalog account. UserNumber is the stable public profile
// handle; IsAnonymous suppresses name/avatar on public leaderboards.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email        string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password     string         `gorm:"not null" json:"-"`
	Name         string         `gorm:"size:100" json:"name"`
	Image        string         `gorm:"type:text" json:"image"`
	UserNumber   int64          `gorm:"autoIncrement;uniqueIndex" json:"user_number"`
	IsAdmin      bool           `gorm:"default:false" json:"is_admin"`
	IsAnonymous  bool           `gorm:"default:false" json:"is_anonymous"`
	GitHubID     *string        `gorm:"column:github_id;size:255;index" json:"-"`
	AuthProvider string         `gorm:"size:50;default:'email'" json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}
