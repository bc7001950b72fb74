package storage

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"social-go/internal/models"
)

// FollowRepository stores the directed follow edges.
type FollowRepository interface {
	// Create inserts follower -> followee; an existing edge is left untouched
	// and reported as created == false.
	Create(ctx context.Context, followerID, followeeID uint) (created bool, err error)
	Delete(ctx context.Context, followerID, followeeID uint) (int64, error)
	IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error)
	FollowerIDs(ctx context.Context, userID uint) ([]uint, error)
	FollowingIDs(ctx context.Context, userID uint) ([]uint, error)
}

type gormFollowRepository struct {
	db *gorm.DB
}

func NewGormFollowRepository(db *gorm.DB) FollowRepository {
	return &gormFollowRepository{db: db}
}

func (r *gormFollowRepository) Create(ctx context.Context, followerID, followeeID uint) (bool, error) {
	edge := models.Follow{FollowerID: followerID, FolloweeID: followeeID}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&edge)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormFollowRepository) Delete(ctx context.Context, followerID, followeeID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Follow{})
	return res.RowsAffected, res.Error
}

func (r *gormFollowRepository) IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&count).Error
	return count > 0, err
}

// FollowerIDs returns the users following userID, oldest edge first.
func (r *gormFollowRepository) FollowerIDs(ctx context.Context, userID uint) ([]uint, error) {
	ids := []uint{}
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("followee_id = ?", userID).
		Order("id ASC").
		Pluck("follower_id", &ids).Error
	return ids, err
}

// FollowingIDs returns the users userID follows, oldest edge first.
func (r *gormFollowRepository) FollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	ids := []uint{}
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Order("id ASC").
		Pluck("followee_id", &ids).Error
	return ids, err
}
