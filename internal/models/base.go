package models

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel defines the common fields for all models.
// It includes an auto-incrementing ID, and CreatedAt and UpdatedAt timestamps.
type BaseModel struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"` // soft delete
}

// CanonicalPair orders two user IDs so that an unordered pair always maps to
// the same (low, high) tuple.
func CanonicalPair(a, b uint) (low, high uint) {
	if a > b {
		return b, a
	}
	return a, b
}
