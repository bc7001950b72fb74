package models

import (
	"time"

	"gorm.io/datatypes"
)

// Post 代表用户发布的动态。点赞与投票保存在独立的表中。
type Post struct {
	BaseModel
	UserID          uint                        `gorm:"not null;index" json:"userId"`
	Content         string                      `gorm:"type:text" json:"content"`
	ImageURL        string                      `gorm:"type:varchar(500)" json:"image,omitempty"`
	BackgroundColor string                      `gorm:"type:varchar(20)" json:"backgroundColor,omitempty"`
	Feeling         string                      `gorm:"type:varchar(50)" json:"feeling,omitempty"`
	Hashtags        datatypes.JSONSlice[string] `json:"hashtags"`
}

// PostLike records that UserID likes PostID. The unique pair makes a like a
// set membership rather than a counter.
type PostLike struct {
	ID        uint      `gorm:"primarykey"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_post_likes_pair"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_post_likes_pair"`
	CreatedAt time.Time
}

// PollOption is one choice of a post's poll.
type PollOption struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	PostID    uint   `gorm:"not null;index" json:"postId"`
	Position  int    `gorm:"not null" json:"-"`
	Text      string `gorm:"type:varchar(200);not null" json:"text"`
	VoteCount int    `gorm:"not null;default:0" json:"voteCount"`
}

// PollVote is keyed by (PostID, UserID): one vote per user per poll.
type PollVote struct {
	ID        uint      `gorm:"primarykey"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_poll_votes_post_user"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_poll_votes_post_user"`
	OptionID  uint      `gorm:"not null;index"`
	CreatedAt time.Time
}

// PollOptionView is a poll option with its voters.
type PollOptionView struct {
	PollOption
	Voters []uint `json:"votes"`
}

// PostView is the read model returned by the post and feed endpoints.
type PostView struct {
	*Post
	Author       *UserBasicInfo   `json:"author"`
	Likes        []uint           `json:"likes"`
	LikeCount    int              `json:"likeCount"`
	Poll         []PollOptionView `json:"pollOptions,omitempty"`
	CommentCount int64            `json:"commentCount"`
}

// LikedBy reports whether userID is in the post's likes set.
func (v *PostView) LikedBy(userID uint) bool {
	for _, id := range v.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// FeedPage is one page of a composed feed.
type FeedPage struct {
	Posts   []*PostView `json:"posts"`
	Page    int         `json:"page"`
	Limit   int         `json:"limit"`
	HasMore bool        `json:"hasMore"`
}
