package storage

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"social-go/internal/models"
)

// PostRepository covers posts and the per-post sets hanging off them:
// likes, poll options and poll votes.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	CreatePollOptions(ctx context.Context, options []models.PollOption) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	Delete(ctx context.Context, id uint) error

	// ListFeed returns posts authored by userID or by anyone userID follows,
	// newest first.
	ListFeed(ctx context.Context, userID uint, offset, limit int) ([]*models.Post, error)
	ListByUser(ctx context.Context, userID uint, offset, limit int) ([]*models.Post, error)

	InsertLike(ctx context.Context, postID, userID uint) (int64, error)
	DeleteLike(ctx context.Context, postID, userID uint) (int64, error)
	LikesForPosts(ctx context.Context, postIDs []uint) ([]models.PostLike, error)

	GetPollOption(ctx context.Context, optionID uint) (*models.PollOption, error)
	PollOptionsForPosts(ctx context.Context, postIDs []uint) ([]models.PollOption, error)
	InsertVote(ctx context.Context, vote *models.PollVote) (int64, error)
	IncrementVoteCount(ctx context.Context, optionID uint) error
	VotesForPosts(ctx context.Context, postIDs []uint) ([]models.PollVote, error)
}

type gormPostRepository struct {
	db *gorm.DB
}

func NewGormPostRepository(db *gorm.DB) PostRepository {
	return &gormPostRepository{db: db}
}

func (r *gormPostRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *gormPostRepository) CreatePollOptions(ctx context.Context, options []models.PollOption) error {
	if len(options) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&options).Error
}

func (r *gormPostRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *gormPostRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormPostRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormPostRepository) ListFeed(ctx context.Context, userID uint, offset, limit int) ([]*models.Post, error) {
	following := r.db.WithContext(ctx).Model(&models.Follow{}).Select("followee_id").Where("follower_id = ?", userID)

	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Where("user_id = ? OR user_id IN (?)", userID, following).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

func (r *gormPostRepository) ListByUser(ctx context.Context, userID uint, offset, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

func (r *gormPostRepository) InsertLike(ctx context.Context, postID, userID uint) (int64, error) {
	like := models.PostLike{PostID: postID, UserID: userID}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
	return res.RowsAffected, res.Error
}

func (r *gormPostRepository) DeleteLike(ctx context.Context, postID, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.PostLike{})
	return res.RowsAffected, res.Error
}

func (r *gormPostRepository) LikesForPosts(ctx context.Context, postIDs []uint) ([]models.PostLike, error) {
	var likes []models.PostLike
	if len(postIDs) == 0 {
		return likes, nil
	}
	err := r.db.WithContext(ctx).Where("post_id IN ?", postIDs).Order("id ASC").Find(&likes).Error
	return likes, err
}

func (r *gormPostRepository) GetPollOption(ctx context.Context, optionID uint) (*models.PollOption, error) {
	var option models.PollOption
	if err := r.db.WithContext(ctx).First(&option, optionID).Error; err != nil {
		return nil, err
	}
	return &option, nil
}

func (r *gormPostRepository) PollOptionsForPosts(ctx context.Context, postIDs []uint) ([]models.PollOption, error) {
	var options []models.PollOption
	if len(postIDs) == 0 {
		return options, nil
	}
	err := r.db.WithContext(ctx).Where("post_id IN ?", postIDs).Order("post_id ASC, position ASC").Find(&options).Error
	return options, err
}

// InsertVote returns 0 rows when the user already voted on this poll.
func (r *gormPostRepository) InsertVote(ctx context.Context, vote *models.PollVote) (int64, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(vote)
	return res.RowsAffected, res.Error
}

func (r *gormPostRepository) IncrementVoteCount(ctx context.Context, optionID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.PollOption{}).
		Where("id = ?", optionID).
		UpdateColumn("vote_count", gorm.Expr("vote_count + ?", 1)).Error
}

func (r *gormPostRepository) VotesForPosts(ctx context.Context, postIDs []uint) ([]models.PollVote, error) {
	var votes []models.PollVote
	if len(postIDs) == 0 {
		return votes, nil
	}
	err := r.db.WithContext(ctx).Where("post_id IN ?", postIDs).Order("id ASC").Find(&votes).Error
	return votes, err
}
