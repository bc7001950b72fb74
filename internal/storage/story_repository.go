package storage

import (
	"context"
	"time"

	"gorm.io/gorm"

	"social-go/internal/models"
)

type StoryRepository interface {
	Create(ctx context.Context, story *models.Story) error
	GetByID(ctx context.Context, id uint) (*models.Story, error)
	// ListActiveByUsers returns stories of the given authors that have not
	// expired at now, newest first.
	ListActiveByUsers(ctx context.Context, userIDs []uint, now time.Time) ([]*models.Story, error)
	Delete(ctx context.Context, id uint) error
}

type gormStoryRepository struct {
	db *gorm.DB
}

func NewGormStoryRepository(db *gorm.DB) StoryRepository {
	return &gormStoryRepository{db: db}
}

func (r *gormStoryRepository) Create(ctx context.Context, story *models.Story) error {
	return r.db.WithContext(ctx).Create(story).Error
}

func (r *gormStoryRepository) GetByID(ctx context.Context, id uint) (*models.Story, error) {
	var story models.Story
	if err := r.db.WithContext(ctx).First(&story, id).Error; err != nil {
		return nil, err
	}
	return &story, nil
}

func (r *gormStoryRepository) ListActiveByUsers(ctx context.Context, userIDs []uint, now time.Time) ([]*models.Story, error) {
	stories := []*models.Story{}
	if len(userIDs) == 0 {
		return stories, nil
	}
	err := r.db.WithContext(ctx).
		Where("user_id IN ? AND expires_at > ?", userIDs, now).
		Order("created_at DESC, id DESC").
		Find(&stories).Error
	return stories, err
}

func (r *gormStoryRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Story{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
