package models

// NotificationType mirrors the social event that produced the notification.
type NotificationType string

const (
	NotificationFriendRequest  NotificationType = "friend_request.sent"
	NotificationFriendAccepted NotificationType = "friend_request.accepted"
	NotificationPostLiked      NotificationType = "post.liked"
	NotificationPostCommented  NotificationType = "post.commented"
)

// Notification 是写给接收者的一条通知。
type Notification struct {
	BaseModel
	UserID   uint             `gorm:"not null;index" json:"userId"`
	ActorID  uint             `gorm:"not null" json:"actorId"`
	Type     NotificationType `gorm:"type:varchar(50);not null" json:"type"`
	EntityID uint             `json:"entityId"`
	Read     bool             `gorm:"column:is_read;not null;default:false" json:"read"`
}

type NotificationView struct {
	*Notification
	Actor *UserBasicInfo `json:"actor"`
}
