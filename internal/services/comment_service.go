package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"social-go/internal/models"
	"social-go/internal/storage"
)

type commentInput struct {
	Text string `json:"text" validate:"required,max=1000"`
}

// CommentService 处理动态下的评论及评论点赞。
type CommentService interface {
	AddComment(ctx context.Context, postID, userID uint, text string) (*models.CommentView, error)
	ListComments(ctx context.Context, postID uint) ([]*models.CommentView, error)
	ToggleCommentLike(ctx context.Context, commentID, userID uint) (*models.CommentView, bool, error)
	DeleteComment(ctx context.Context, commentID, actorID uint) error
}

type commentService struct {
	db       *gorm.DB
	comments storage.CommentRepository
	posts    storage.PostRepository
	users    storage.UserRepository
	events   EventPublisher
}

func NewCommentService(db *gorm.DB, comments storage.CommentRepository, posts storage.PostRepository, users storage.UserRepository, events EventPublisher) CommentService {
	return &commentService{db: db, comments: comments, posts: posts, users: users, events: events}
}

func (s *commentService) AddComment(ctx context.Context, postID, userID uint, text string) (*models.CommentView, error) {
	input := commentInput{Text: strings.TrimSpace(text)}
	if err := validate(input); err != nil {
		return nil, err
	}
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("获取动态失败: %w", err)
	}

	comment := &models.Comment{PostID: postID, UserID: userID, Text: input.Text}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("保存评论失败: %w", err)
	}
	publish(ctx, s.events, models.NotificationPostCommented, userID, post.UserID, post.ID)

	views, err := s.build(ctx, []*models.Comment{comment})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *commentService) ListComments(ctx context.Context, postID uint) ([]*models.CommentView, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("获取动态失败: %w", err)
	}
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("获取评论失败: %w", err)
	}
	return s.build(ctx, comments)
}

func (s *commentService) ToggleCommentLike(ctx context.Context, commentID, userID uint) (*models.CommentView, bool, error) {
	comment, err := s.getComment(ctx, commentID)
	if err != nil {
		return nil, false, err
	}

	liked := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txComments := storage.NewGormCommentRepository(tx)
		removed, err := txComments.DeleteLike(ctx, commentID, userID)
		if err != nil || removed > 0 {
			return err
		}
		inserted, err := txComments.InsertLike(ctx, commentID, userID)
		liked = inserted > 0
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("评论点赞失败: %w", err)
	}

	views, err := s.build(ctx, []*models.Comment{comment})
	if err != nil {
		return nil, false, err
	}
	return views[0], liked, nil
}

func (s *commentService) DeleteComment(ctx context.Context, commentID, actorID uint) error {
	comment, err := s.getComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != actorID {
		return ErrNotOwner
	}
	if err := s.comments.Delete(ctx, commentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return fmt.Errorf("删除评论失败: %w", err)
	}
	return nil
}

func (s *commentService) getComment(ctx context.Context, commentID uint) (*models.Comment, error) {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("获取评论失败: %w", err)
	}
	return comment, nil
}

func (s *commentService) build(ctx context.Context, comments []*models.Comment) ([]*models.CommentView, error) {
	views := make([]*models.CommentView, 0, len(comments))
	if len(comments) == 0 {
		return views, nil
	}

	ids := make([]uint, 0, len(comments))
	authorIDs := make([]uint, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
		authorIDs = append(authorIDs, c.UserID)
	}
	authors, err := s.users.GetMultipleBasicInfoByIDs(ctx, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("load comment authors: %w", err)
	}
	authorByID := make(map[uint]*models.UserBasicInfo, len(authors))
	for _, a := range authors {
		authorByID[a.ID] = a
	}
	likes, err := s.comments.LikesForComments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load comment likes: %w", err)
	}
	likesByComment := make(map[uint][]uint)
	for _, l := range likes {
		likesByComment[l.CommentID] = append(likesByComment[l.CommentID], l.UserID)
	}

	for _, c := range comments {
		commentLikes := likesByComment[c.ID]
		if commentLikes == nil {
			commentLikes = []uint{}
		}
		views = append(views, &models.CommentView{Comment: c, Author: authorByID[c.UserID], Likes: commentLikes})
	}
	return views, nil
}
