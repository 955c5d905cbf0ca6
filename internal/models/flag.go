package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Flag is a published catalog entry.
//
// DisplayIndex spans 0..count-1 with no gaps among live flags; random
// and flag-of-the-day selection do arithmetic on it, so deletion
// reindexes (see FlagService.DeleteFlag). Uniqueness is enforced by a
// partial unique index over non-deleted rows, created in
// database.Migrate — soft-deleted rows keep their last index, so the
// constraint cannot live in a plain column tag.
type Flag struct {
	ID           uuid.UUID                   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name         string                      `gorm:"size:255;not null;index" json:"name"`
	Image        string                      `gorm:"type:text;not null" json:"image"`
	Link         string                      `gorm:"type:text;not null" json:"link"`
	Description  string                      `gorm:"type:text" json:"description"`
	DisplayIndex int                         `gorm:"not null" json:"index"`
	Tags         datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"tags"`
	Favorites    int                         `gorm:"default:0" json:"favorites"`
	RelatedFlags datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"related_flags"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
	DeletedAt    gorm.DeletedAt              `gorm:"index" json:"-"`
}

// Favorite tracks which user favorited which flag.
type Favorite struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_favorites_user_flag" json:"user_id"`
	FlagID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_favorites_user_flag" json:"flag_id"`
	CreatedAt time.Time `json:"created_at"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Flag      Flag      `gorm:"foreignKey:FlagID" json:"-"`
}

// FlagOfTheDay records the daily pick; one row per calendar date.
type FlagOfTheDay struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Date      string    `gorm:"size:10;not null;uniqueIndex" json:"date"`
	FlagID    uuid.UUID `gorm:"type:uuid;not null" json:"flag_id"`
	CreatedAt time.Time `json:"created_at"`
	Flag      Flag      `gorm:"foreignKey:FlagID" json:"-"`
}
