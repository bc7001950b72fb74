package storage

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"social-go/internal/models"
)

type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error)
	Delete(ctx context.Context, id uint) error
	CountByPosts(ctx context.Context, postIDs []uint) (map[uint]int64, error)
	InsertLike(ctx context.Context, commentID, userID uint) (int64, error)
	DeleteLike(ctx context.Context, commentID, userID uint) (int64, error)
	LikesForComments(ctx context.Context, commentIDs []uint) ([]models.CommentLike, error)
}

type gormCommentRepository struct {
	db *gorm.DB
}

func NewGormCommentRepository(db *gorm.DB) CommentRepository {
	return &gormCommentRepository{db: db}
}

func (r *gormCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *gormCommentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByPost 按时间正序返回帖子的评论。
func (r *gormCommentRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

func (r *gormCommentRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormCommentRepository) CountByPosts(ctx context.Context, postIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		PostID uint
		Total  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Select("post_id, COUNT(*) AS total").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.PostID] = row.Total
	}
	return counts, nil
}

func (r *gormCommentRepository) InsertLike(ctx context.Context, commentID, userID uint) (int64, error) {
	like := models.CommentLike{CommentID: commentID, UserID: userID}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
	return res.RowsAffected, res.Error
}

func (r *gormCommentRepository) DeleteLike(ctx context.Context, commentID, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("comment_id = ? AND user_id = ?", commentID, userID).
		Delete(&models.CommentLike{})
	return res.RowsAffected, res.Error
}

func (r *gormCommentRepository) LikesForComments(ctx context.Context, commentIDs []uint) ([]models.CommentLike, error) {
	var likes []models.CommentLike
	if len(commentIDs) == 0 {
		return likes, nil
	}
	err := r.db.WithContext(ctx).Where("comment_id IN ?", commentIDs).Order("id ASC").Find(&likes).Error
	return likes, err
}
