package models

import "time"

// Follow is a directed edge of the social graph: FollowerID follows FolloweeID.
// It is the only place adjacency is stored; a user's followers and following
// lists are both read from this table, so the two views cannot disagree.
type Follow struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	FollowerID uint      `gorm:"not null;uniqueIndex:idx_follows_pair" json:"followerId"`
	FolloweeID uint      `gorm:"not null;uniqueIndex:idx_follows_pair;index:idx_follows_followee" json:"followeeId"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (Follow) TableName() string {
	return "follows"
}
