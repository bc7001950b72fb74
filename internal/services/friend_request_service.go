package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"social-go/internal/models"
	"social-go/internal/storage"
)

// FriendRequestService defines the interface for friend request operations.
type FriendRequestService interface {
	SendFriendRequest(ctx context.Context, senderID, receiverID uint, message string) (*models.FriendRequest, error)
	AcceptFriendRequest(ctx context.Context, receiverID, requestID uint) (*models.FriendRequest, error)
	RejectFriendRequest(ctx context.Context, receiverID, requestID uint) (*models.FriendRequest, error)
	CancelFriendRequest(ctx context.Context, senderID, requestID uint) error
	Unfriend(ctx context.Context, userID, otherID uint) error
	ListPendingRequests(ctx context.Context, userID uint) ([]*models.FriendRequestWithUser, error)
	ListSentRequests(ctx context.Context, userID uint) ([]*models.FriendRequestWithUser, error)
	GetFriendsList(ctx context.Context, userID uint) ([]*models.UserBasicInfo, error)
	// SeedFriendship writes an accepted request and the follow edge for a
	// pair in one transaction. It reports false when the pair already has a
	// live request.
	SeedFriendship(ctx context.Context, senderID, receiverID uint) (bool, error)
}

// errPairTaken rolls back a seeding transaction when the pair is occupied.
var errPairTaken = errors.New("pair already has a live request")

type friendRequestService struct {
	db         *gorm.DB // 事务支持
	userRepo   storage.UserRepository
	friendRepo storage.FriendRequestRepository
	followRepo storage.FollowRepository
	events     EventPublisher
}

// NewFriendRequestService creates a new FriendRequestService instance.
func NewFriendRequestService(
	db *gorm.DB,
	userRepo storage.UserRepository,
	friendRepo storage.FriendRequestRepository,
	followRepo storage.FollowRepository,
	events EventPublisher,
) FriendRequestService {
	return &friendRequestService{
		db:         db,
		userRepo:   userRepo,
		friendRepo: friendRepo,
		followRepo: followRepo,
		events:     events,
	}
}

// SendFriendRequest creates a pending request from sender to receiver.
func (s *friendRequestService) SendFriendRequest(ctx context.Context, senderID, receiverID uint, message string) (*models.FriendRequest, error) {
	if senderID == receiverID {
		return nil, ErrFriendRequestSelf
	}

	// 1. 检查接收者是否存在
	if _, err := s.userRepo.GetByID(ctx, receiverID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReceiverNotFound
		}
		return nil, fmt.Errorf("检查接收用户时出错: %w", err)
	}

	// 2. 检查双方之间是否已有待处理或已接受的请求 (任一方向)
	existing, err := s.friendRepo.FindLiveRequest(ctx, senderID, receiverID)
	if err != nil {
		return nil, fmt.Errorf("检查现有请求时出错: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicatePending
	}

	// 3. 写入。并发发送由部分唯一索引兜底。
	request := &models.FriendRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     models.FriendRequestStatusPending,
		Message:    strings.TrimSpace(message),
	}
	if err := s.friendRepo.Create(ctx, request); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicatePending
		}
		return nil, fmt.Errorf("保存好友请求失败: %w", err)
	}

	zap.L().Info("friend request sent",
		zap.Uint("requestId", request.ID),
		zap.Uint("senderId", senderID),
		zap.Uint("receiverId", receiverID),
	)
	publish(ctx, s.events, models.NotificationFriendRequest, senderID, receiverID, request.ID)
	return request, nil
}

// AcceptFriendRequest moves a pending request to accepted and records the
// follow edge sender -> receiver in the same transaction.
func (s *friendRequestService) AcceptFriendRequest(ctx context.Context, receiverID, requestID uint) (*models.FriendRequest, error) {
	request, err := s.respond(ctx, receiverID, requestID, models.FriendRequestStatusAccepted)
	if err != nil {
		return nil, err
	}
	zap.L().Info("friend request accepted",
		zap.Uint("requestId", requestID),
		zap.Uint("senderId", request.SenderID),
		zap.Uint("receiverId", receiverID),
	)
	publish(ctx, s.events, models.NotificationFriendAccepted, receiverID, request.SenderID, request.ID)
	return request, nil
}

// RejectFriendRequest moves a pending request to rejected.
func (s *friendRequestService) RejectFriendRequest(ctx context.Context, receiverID, requestID uint) (*models.FriendRequest, error) {
	request, err := s.respond(ctx, receiverID, requestID, models.FriendRequestStatusRejected)
	if err != nil {
		return nil, err
	}
	zap.L().Info("friend request rejected", zap.Uint("requestId", requestID), zap.Uint("receiverId", receiverID))
	return request, nil
}

func (s *friendRequestService) respond(ctx context.Context, receiverID, requestID uint, to models.FriendRequestStatus) (*models.FriendRequest, error) {
	var request *models.FriendRequest
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txFriendRepo := storage.NewGormFriendRequestRepository(tx)
		txFollowRepo := storage.NewGormFollowRepository(tx)

		// 1. 读取请求
		var err error
		request, err = txFriendRepo.GetRequestByID(ctx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFriendRequestNotFound
			}
			return fmt.Errorf("检索好友请求失败: %w", err)
		}

		// 2. 校验
		if request.ReceiverID != receiverID {
			return ErrNotReceiver
		}
		if request.Status != models.FriendRequestStatusPending {
			return ErrAlreadyResolved
		}

		// 3. 条件更新: 只有仍为 pending 时才会生效
		now := time.Now().UTC()
		n, err := txFriendRepo.TransitionStatus(ctx, requestID, models.FriendRequestStatusPending, to, now)
		if err != nil {
			return fmt.Errorf("更新好友请求状态失败: %w", err)
		}
		if n == 0 {
			return ErrAlreadyResolved
		}
		request.Status = to
		request.RespondedAt = &now

		// 4. 接受时写入关注边
		if to == models.FriendRequestStatusAccepted {
			if _, err := txFollowRepo.Create(ctx, request.SenderID, request.ReceiverID); err != nil {
				return fmt.Errorf("创建关注关系失败: %w", err)
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return request, nil
}

// CancelFriendRequest lets the sender withdraw a request that is still pending.
func (s *friendRequestService) CancelFriendRequest(ctx context.Context, senderID, requestID uint) error {
	request, err := s.friendRepo.GetRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFriendRequestNotFound
		}
		return fmt.Errorf("检索好友请求失败: %w", err)
	}
	if request.SenderID != senderID {
		return ErrNotSender
	}
	n, err := s.friendRepo.TransitionStatus(ctx, requestID, models.FriendRequestStatusPending, models.FriendRequestStatusCancelled, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("撤回好友请求失败: %w", err)
	}
	if n == 0 {
		return ErrAlreadyResolved
	}
	return nil
}

// Unfriend ends an accepted friendship: the request becomes cancelled and the
// follow edges in both directions are removed.
func (s *friendRequestService) Unfriend(ctx context.Context, userID, otherID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txFriendRepo := storage.NewGormFriendRequestRepository(tx)
		txFollowRepo := storage.NewGormFollowRepository(tx)

		live, err := txFriendRepo.FindLiveRequest(ctx, userID, otherID)
		if err != nil {
			return fmt.Errorf("检查好友关系时出错: %w", err)
		}
		if live == nil || live.Status != models.FriendRequestStatusAccepted {
			return ErrNotFriends
		}
		n, err := txFriendRepo.TransitionStatus(ctx, live.ID, models.FriendRequestStatusAccepted, models.FriendRequestStatusCancelled, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("解除好友关系失败: %w", err)
		}
		if n == 0 {
			return ErrNotFriends
		}
		if _, err := txFollowRepo.Delete(ctx, userID, otherID); err != nil {
			return fmt.Errorf("删除关注关系失败: %w", err)
		}
		if _, err := txFollowRepo.Delete(ctx, otherID, userID); err != nil {
			return fmt.Errorf("删除关注关系失败: %w", err)
		}
		return nil
	})
}

// ListPendingRequests returns incoming pending requests with sender info.
func (s *friendRequestService) ListPendingRequests(ctx context.Context, userID uint) ([]*models.FriendRequestWithUser, error) {
	requests, err := s.friendRepo.ListPendingForReceiver(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取待处理好友请求失败: %w", err)
	}
	return s.withCounterpart(ctx, userID, requests)
}

// ListSentRequests returns outgoing pending requests with receiver info.
func (s *friendRequestService) ListSentRequests(ctx context.Context, userID uint) ([]*models.FriendRequestWithUser, error) {
	requests, err := s.friendRepo.ListPendingBySender(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取已发送好友请求失败: %w", err)
	}
	return s.withCounterpart(ctx, userID, requests)
}

func (s *friendRequestService) withCounterpart(ctx context.Context, userID uint, requests []models.FriendRequest) ([]*models.FriendRequestWithUser, error) {
	result := make([]*models.FriendRequestWithUser, 0, len(requests))
	if len(requests) == 0 {
		return result, nil
	}

	ids := make([]uint, 0, len(requests))
	for i := range requests {
		ids = append(ids, requests[i].Counterpart(userID))
	}
	infos, err := s.userRepo.GetMultipleBasicInfoByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("获取用户信息失败: %w", err)
	}
	byID := make(map[uint]*models.UserBasicInfo, len(infos))
	for _, info := range infos {
		byID[info.ID] = info
	}

	for i := range requests {
		result = append(result, &models.FriendRequestWithUser{
			FriendRequest: requests[i],
			User:          byID[requests[i].Counterpart(userID)],
		})
	}
	return result, nil
}

// GetFriendsList retrieves the basic info for all friends of the given user.
func (s *friendRequestService) GetFriendsList(ctx context.Context, userID uint) ([]*models.UserBasicInfo, error) {
	friendIDs, err := s.friendRepo.AcceptedCounterpartIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取好友列表失败: %w", err)
	}
	if len(friendIDs) == 0 {
		return []*models.UserBasicInfo{}, nil
	}
	friends, err := s.userRepo.GetMultipleBasicInfoByIDs(ctx, friendIDs)
	if err != nil {
		return nil, fmt.Errorf("获取好友信息失败: %w", err)
	}
	return friends, nil
}

func (s *friendRequestService) SeedFriendship(ctx context.Context, senderID, receiverID uint) (bool, error) {
	if senderID == receiverID {
		return false, ErrFriendRequestSelf
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txFriendRepo := storage.NewGormFriendRequestRepository(tx)
		txFollowRepo := storage.NewGormFollowRepository(tx)

		live, err := txFriendRepo.FindLiveRequest(ctx, senderID, receiverID)
		if err != nil {
			return err
		}
		if live != nil {
			return errPairTaken
		}

		now := time.Now().UTC()
		request := &models.FriendRequest{
			SenderID:    senderID,
			ReceiverID:  receiverID,
			Status:      models.FriendRequestStatusAccepted,
			RespondedAt: &now,
		}
		if err := txFriendRepo.Create(ctx, request); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errPairTaken
			}
			return err
		}
		_, err = txFollowRepo.Create(ctx, senderID, receiverID)
		return err
	})
	if errors.Is(err, errPairTaken) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("seed friendship %d-%d: %w", senderID, receiverID, err)
	}
	return true, nil
}
