package storage

import (
	"context"

	"gorm.io/gorm"

	"social-go/internal/models"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]*models.Notification, error)
	// MarkRead marks the given notifications of userID as read; an empty ids
	// slice marks all of them.
	MarkRead(ctx context.Context, userID uint, ids []uint) (int64, error)
}

type gormNotificationRepository struct {
	db *gorm.DB
}

func NewGormNotificationRepository(db *gorm.DB) NotificationRepository {
	return &gormNotificationRepository{db: db}
}

func (r *gormNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *gormNotificationRepository) ListByUser(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]*models.Notification, error) {
	notifications := []*models.Notification{}
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&notifications).Error
	return notifications, err
}

func (r *gormNotificationRepository) MarkRead(ctx context.Context, userID uint, ids []uint) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	res := q.Update("is_read", true)
	return res.RowsAffected, res.Error
}
