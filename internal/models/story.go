package models

import "time"

// Story is a short-lived post. It stays in the table after ExpiresAt but is
// no longer returned by any read.
type Story struct {
	BaseModel
	UserID          uint      `gorm:"not null;index" json:"userId"`
	Content         string    `gorm:"type:text" json:"content,omitempty"`
	ImageURL        string    `gorm:"type:varchar(500)" json:"image,omitempty"`
	BackgroundColor string    `gorm:"type:varchar(20)" json:"backgroundColor,omitempty"`
	ExpiresAt       time.Time `gorm:"not null;index" json:"expiresAt"`
}

type StoryView struct {
	*Story
	Author *UserBasicInfo `json:"author"`
}
