package models

import (
	"time"

	"github.com/google/uuid"
)

// Tag is a denormalized aggregate: Count always equals the number of
// published flags currently holding the tag. Rows are created at count
// 1 and deleted when the count would drop to zero; they are never
// mutated outside the request workflow and flag deletion.
type Tag struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Count     int       `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
