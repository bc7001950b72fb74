package services

import (
	"context"
	"fmt"

	"social-go/internal/models"
	"social-go/internal/storage"
)

// NotificationService stores notifications derived from social events and
// serves them to their recipients.
type NotificationService interface {
	// Record stores a notification for event.RecipientID. Events a user
	// triggers on their own content are dropped.
	Record(ctx context.Context, event SocialEvent) error
	List(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]*models.NotificationView, error)
	MarkRead(ctx context.Context, userID uint, ids []uint) (int64, error)
}

type notificationService struct {
	notifications storage.NotificationRepository
	users         storage.UserRepository
}

func NewNotificationService(notifications storage.NotificationRepository, users storage.UserRepository) NotificationService {
	return &notificationService{notifications: notifications, users: users}
}

func (s *notificationService) Record(ctx context.Context, event SocialEvent) error {
	if event.RecipientID == 0 || event.RecipientID == event.ActorID {
		return nil
	}
	n := &models.Notification{
		UserID:   event.RecipientID,
		ActorID:  event.ActorID,
		Type:     event.Type,
		EntityID: event.EntityID,
	}
	if !event.At.IsZero() {
		n.CreatedAt = event.At
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return fmt.Errorf("保存通知失败: %w", err)
	}
	return nil
}

func (s *notificationService) List(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]*models.NotificationView, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	items, err := s.notifications.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("获取通知失败: %w", err)
	}

	views := make([]*models.NotificationView, 0, len(items))
	if len(items) == 0 {
		return views, nil
	}
	actorIDs := make([]uint, 0, len(items))
	for _, n := range items {
		actorIDs = append(actorIDs, n.ActorID)
	}
	actors, err := s.users.GetMultipleBasicInfoByIDs(ctx, actorIDs)
	if err != nil {
		return nil, fmt.Errorf("load notification actors: %w", err)
	}
	actorByID := make(map[uint]*models.UserBasicInfo, len(actors))
	for _, a := range actors {
		actorByID[a.ID] = a
	}
	for _, n := range items {
		views = append(views, &models.NotificationView{Notification: n, Actor: actorByID[n.ActorID]})
	}
	return views, nil
}

// MarkRead marks the given notifications read; an empty ids marks all of
// the user's notifications.
func (s *notificationService) MarkRead(ctx context.Context, userID uint, ids []uint) (int64, error) {
	n, err := s.notifications.MarkRead(ctx, userID, ids)
	if err != nil {
		return 0, fmt.Errorf("标记通知已读失败: %w", err)
	}
	return n, nil
}
