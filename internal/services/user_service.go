package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"social-go/internal/blob"
	"social-go/internal/models"
	"social-go/internal/storage"
)

// ProfileUpdate holds the profile fields a user may change; nil leaves a
// field as is.
type ProfileUpdate struct {
	FullName *string `json:"fullName" validate:"omitempty,min=3,max=100"`
	Bio      *string `json:"bio" validate:"omitempty,max=500"`
	Location *string `json:"location" validate:"omitempty,max=100"`
}

// UserService 定义了用户资料及关注关系的查询与更新接口。
type UserService interface {
	GetUserProfile(ctx context.Context, userID uint) (*models.UserProfile, error)
	ListUsers(ctx context.Context, query string, page, limit int) ([]*models.UserBasicInfo, error)
	UpdateUserProfile(ctx context.Context, userID uint, update ProfileUpdate) (*models.UserProfile, error)
	UpdateAvatar(ctx context.Context, userID uint, file Attachment) (*models.UserProfile, error)
	UpdateCover(ctx context.Context, userID uint, file Attachment) (*models.UserProfile, error)
	Followers(ctx context.Context, userID uint) ([]*models.UserBasicInfo, error)
	Following(ctx context.Context, userID uint) ([]*models.UserBasicInfo, error)
	// UploadImage stores a standalone image and returns where it is served.
	UploadImage(ctx context.Context, userID uint, file Attachment) (*blob.FileInfo, error)
}

type userService struct {
	userRepo   storage.UserRepository
	followRepo storage.FollowRepository
	uploader   imageUploader
}

func NewUserService(userRepo storage.UserRepository, followRepo storage.FollowRepository, store blob.Store, maxUploadBytes int64) UserService {
	return &userService{
		userRepo:   userRepo,
		followRepo: followRepo,
		uploader:   imageUploader{store: store, maxBytes: maxUploadBytes},
	}
}

// GetUserProfile 获取用户资料，关注与粉丝列表由 follows 表推导。
func (s *userService) GetUserProfile(ctx context.Context, userID uint) (*models.UserProfile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("获取用户 %d 失败: %w", userID, err)
	}
	followers, err := s.followRepo.FollowerIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取粉丝列表失败: %w", err)
	}
	following, err := s.followRepo.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取关注列表失败: %w", err)
	}
	return &models.UserProfile{
		User:           user,
		Followers:      followers,
		Following:      following,
		FollowerCount:  len(followers),
		FollowingCount: len(following),
	}, nil
}

func (s *userService) ListUsers(ctx context.Context, query string, page, limit int) ([]*models.UserBasicInfo, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	users, err := s.userRepo.List(ctx, query, storage.Offset(page, limit), limit)
	if err != nil {
		return nil, fmt.Errorf("获取用户列表失败: %w", err)
	}
	return users, nil
}

func (s *userService) UpdateUserProfile(ctx context.Context, userID uint, update ProfileUpdate) (*models.UserProfile, error) {
	trim := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		return &v
	}
	update.FullName, update.Bio, update.Location = trim(update.FullName), trim(update.Bio), trim(update.Location)
	if err := validate(update); err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if update.FullName != nil {
		fields["full_name"] = *update.FullName
	}
	if update.Bio != nil {
		fields["bio"] = *update.Bio
	}
	if update.Location != nil {
		fields["location"] = *update.Location
	}
	if err := s.updateFields(ctx, userID, fields); err != nil {
		return nil, err
	}
	return s.GetUserProfile(ctx, userID)
}

func (s *userService) UpdateAvatar(ctx context.Context, userID uint, file Attachment) (*models.UserProfile, error) {
	return s.updateImage(ctx, userID, "profilePicture", "avatar_url", file)
}

func (s *userService) UpdateCover(ctx context.Context, userID uint, file Attachment) (*models.UserProfile, error) {
	return s.updateImage(ctx, userID, "coverImage", "cover_url", file)
}

func (s *userService) updateImage(ctx context.Context, userID uint, field, column string, file Attachment) (*models.UserProfile, error) {
	info, err := s.uploader.upload(ctx, field, file)
	if err != nil {
		return nil, err
	}
	if err := s.updateFields(ctx, userID, map[string]interface{}{column: info.URL}); err != nil {
		s.uploader.discard(ctx, info)
		return nil, err
	}
	zap.L().Info("profile image updated", zap.Uint("userId", userID), zap.String("field", field), zap.String("url", info.URL))
	return s.GetUserProfile(ctx, userID)
}

func (s *userService) updateFields(ctx context.Context, userID uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.userRepo.UpdateFields(ctx, userID, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("更新用户资料失败: %w", err)
	}
	return nil
}

func (s *userService) Followers(ctx context.Context, userID uint) ([]*models.UserBasicInfo, error) {
	if _, err := s.userRepo.GetBasicInfoByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	ids, err := s.followRepo.FollowerIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取粉丝列表失败: %w", err)
	}
	return s.userRepo.GetMultipleBasicInfoByIDs(ctx, ids)
}

func (s *userService) Following(ctx context.Context, userID uint) ([]*models.UserBasicInfo, error) {
	if _, err := s.userRepo.GetBasicInfoByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	ids, err := s.followRepo.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取关注列表失败: %w", err)
	}
	return s.userRepo.GetMultipleBasicInfoByIDs(ctx, ids)
}

func (s *userService) UploadImage(ctx context.Context, userID uint, file Attachment) (*blob.FileInfo, error) {
	info, err := s.uploader.upload(ctx, "file", file)
	if err != nil {
		return nil, err
	}
	zap.L().Info("image uploaded", zap.Uint("userId", userID), zap.String("key", info.Key), zap.Int64("size", info.Size))
	return info, nil
}
