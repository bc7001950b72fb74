package models

import "time"

type Comment struct {
	BaseModel
	PostID uint   `gorm:"not null;index" json:"postId"`
	UserID uint   `gorm:"not null;index" json:"userId"`
	Text   string `gorm:"type:text;not null" json:"text"`
}

type CommentLike struct {
	ID        uint      `gorm:"primarykey"`
	CommentID uint      `gorm:"not null;uniqueIndex:idx_comment_likes_pair"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_comment_likes_pair"`
	CreatedAt time.Time
}

type CommentView struct {
	*Comment
	Author *UserBasicInfo `json:"author"`
	Likes  []uint         `json:"likes"`
}
