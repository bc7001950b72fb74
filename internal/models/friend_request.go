package models

import (
	"time"

	"gorm.io/gorm"
)

// FriendRequestStatus 定义好友请求的状态
type FriendRequestStatus string

const (
	FriendRequestStatusPending   FriendRequestStatus = "pending"
	FriendRequestStatusAccepted  FriendRequestStatus = "accepted"
	FriendRequestStatusRejected  FriendRequestStatus = "rejected"
	FriendRequestStatusCancelled FriendRequestStatus = "cancelled" // 发送方撤回或解除好友
)

// IsLive reports whether the status still occupies the pair slot.
func (s FriendRequestStatus) IsLive() bool {
	return s == FriendRequestStatusPending || s == FriendRequestStatusAccepted
}

// FriendRequest 代表一个好友请求记录
//
// UserLowID/UserHighID hold the unordered pair; the partial unique index over
// them allows at most one pending or accepted request per pair of users.
type FriendRequest struct {
	BaseModel
	SenderID    uint                `gorm:"not null;index" json:"senderId"`
	ReceiverID  uint                `gorm:"not null;index" json:"receiverId"`
	UserLowID   uint                `gorm:"not null;uniqueIndex:idx_friend_requests_live_pair,where:status = 'pending' OR status = 'accepted'" json:"-"`
	UserHighID  uint                `gorm:"not null;uniqueIndex:idx_friend_requests_live_pair" json:"-"`
	Status      FriendRequestStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Message     string              `gorm:"type:text" json:"message,omitempty"`
	RespondedAt *time.Time          `json:"respondedAt,omitempty"`
}

// BeforeCreate fills the canonical pair columns.
func (fr *FriendRequest) BeforeCreate(tx *gorm.DB) error {
	fr.UserLowID, fr.UserHighID = CanonicalPair(fr.SenderID, fr.ReceiverID)
	return nil
}

// Counterpart returns the other participant of the request.
func (fr *FriendRequest) Counterpart(userID uint) uint {
	if fr.SenderID == userID {
		return fr.ReceiverID
	}
	return fr.SenderID
}

// FriendRequestWithUser is a DTO that includes friend request details
// along with basic information about the other participant: the sender for
// incoming requests, the receiver for sent ones.
type FriendRequestWithUser struct {
	FriendRequest
	User *UserBasicInfo `json:"user"`
}
