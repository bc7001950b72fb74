package storage

import "gorm.io/gorm"

// Repositories bundles every GORM repository built on one handle.
type Repositories struct {
	Users          UserRepository
	Follows        FollowRepository
	FriendRequests FriendRequestRepository
	Posts          PostRepository
	Comments       CommentRepository
	Stories        StoryRepository
	Notifications  NotificationRepository
}

// NewRepositories 使用同一个 *gorm.DB 创建全部仓储。
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Users:          NewGormUserRepository(db),
		Follows:        NewGormFollowRepository(db),
		FriendRequests: NewGormFriendRequestRepository(db),
		Posts:          NewGormPostRepository(db),
		Comments:       NewGormCommentRepository(db),
		Stories:        NewGormStoryRepository(db),
		Notifications:  NewGormNotificationRepository(db),
	}
}
