package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"social-go/internal/models"
)

// FriendRequestRepository defines the interface for friend request data operations.
type FriendRequestRepository interface {
	Create(ctx context.Context, request *models.FriendRequest) error
	GetRequestByID(ctx context.Context, requestID uint) (*models.FriendRequest, error)
	// FindLiveRequest returns the pending or accepted request between the two
	// users in either direction, or nil when the pair is free.
	FindLiveRequest(ctx context.Context, userID1, userID2 uint) (*models.FriendRequest, error)
	// TransitionStatus moves a request from one status to another in a single
	// conditional update and returns the number of rows changed (0 or 1).
	TransitionStatus(ctx context.Context, requestID uint, from, to models.FriendRequestStatus, at time.Time) (int64, error)
	ListPendingForReceiver(ctx context.Context, receiverID uint) ([]models.FriendRequest, error)
	ListPendingBySender(ctx context.Context, senderID uint) ([]models.FriendRequest, error)
	AcceptedCounterpartIDs(ctx context.Context, userID uint) ([]uint, error)
}

type gormFriendRequestRepository struct {
	db *gorm.DB
}

func NewGormFriendRequestRepository(db *gorm.DB) FriendRequestRepository {
	return &gormFriendRequestRepository{db: db}
}

func (r *gormFriendRequestRepository) Create(ctx context.Context, request *models.FriendRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *gormFriendRequestRepository) GetRequestByID(ctx context.Context, requestID uint) (*models.FriendRequest, error) {
	var request models.FriendRequest
	if err := r.db.WithContext(ctx).First(&request, requestID).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *gormFriendRequestRepository) FindLiveRequest(ctx context.Context, userID1, userID2 uint) (*models.FriendRequest, error) {
	low, high := models.CanonicalPair(userID1, userID2)
	var request models.FriendRequest
	err := r.db.WithContext(ctx).
		Where("user_low_id = ? AND user_high_id = ?", low, high).
		Where("status IN ?", []models.FriendRequestStatus{models.FriendRequestStatusPending, models.FriendRequestStatusAccepted}).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // 没有进行中的请求不是错误
		}
		return nil, err
	}
	return &request, nil
}

func (r *gormFriendRequestRepository) TransitionStatus(ctx context.Context, requestID uint, from, to models.FriendRequestStatus, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.FriendRequest{}).
		Where("id = ? AND status = ?", requestID, from).
		Updates(map[string]interface{}{
			"status":       to,
			"responded_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *gormFriendRequestRepository) ListPendingForReceiver(ctx context.Context, receiverID uint) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := r.db.WithContext(ctx).
		Where("receiver_id = ? AND status = ?", receiverID, models.FriendRequestStatusPending).
		Order("created_at DESC, id DESC").
		Find(&requests).Error
	return requests, err
}

func (r *gormFriendRequestRepository) ListPendingBySender(ctx context.Context, senderID uint) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := r.db.WithContext(ctx).
		Where("sender_id = ? AND status = ?", senderID, models.FriendRequestStatusPending).
		Order("created_at DESC, id DESC").
		Find(&requests).Error
	return requests, err
}

func (r *gormFriendRequestRepository) AcceptedCounterpartIDs(ctx context.Context, userID uint) ([]uint, error) {
	var requests []models.FriendRequest
	err := r.db.WithContext(ctx).
		Select("id", "sender_id", "receiver_id").
		Where("(sender_id = ? OR receiver_id = ?) AND status = ?", userID, userID, models.FriendRequestStatusAccepted).
		Order("responded_at DESC, id DESC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(requests))
	for i := range requests {
		ids = append(ids, requests[i].Counterpart(userID))
	}
	return ids, nil
}
