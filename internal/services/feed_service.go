package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"

	"gorm.io/gorm"

	"social-go/internal/config"
	"social-go/internal/models"
	"social-go/internal/storage"
)

// FeedService composes reverse-chronological post pages from the follow graph.
//
// Pages are offset-based and recomputed on every call; a post created while
// a client pages through the feed shifts later pages by one.
type FeedService interface {
	ComposeFeed(ctx context.Context, userID uint, page, limit int) (*models.FeedPage, error)
	// FeedIterator yields the whole feed lazily, fetching pageSize posts at a
	// time. Iteration stops after the first short page or the first error.
	FeedIterator(ctx context.Context, userID uint, pageSize int) iter.Seq2[*models.PostView, error]
	ListUserPosts(ctx context.Context, authorID uint, page, limit int) (*models.FeedPage, error)
	GetPost(ctx context.Context, postID uint) (*models.PostView, error)
}

const fallbackPageLimit = 20

type feedService struct {
	posts storage.PostRepository
	views postViews
	cfg   config.FeedConfig
}

func NewFeedService(posts storage.PostRepository, users storage.UserRepository, comments storage.CommentRepository, cfg config.FeedConfig) FeedService {
	return &feedService{
		posts: posts,
		views: postViews{posts: posts, users: users, comments: comments},
		cfg:   cfg,
	}
}

// normalizePage clamps page to >= 1 and limit to (0, MaxLimit].
func (s *feedService) normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit <= 0 {
		limit = fallbackPageLimit
	}
	if s.cfg.MaxLimit > 0 && limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	return page, limit
}

// pastEnd reports pages whose row offset does not fit in an int.
func pastEnd(page, limit int) bool {
	return page-1 > math.MaxInt/limit
}

func (s *feedService) ComposeFeed(ctx context.Context, userID uint, page, limit int) (*models.FeedPage, error) {
	page, limit = s.normalizePage(page, limit)
	if pastEnd(page, limit) {
		return &models.FeedPage{Posts: []*models.PostView{}, Page: page, Limit: limit}, nil
	}
	// 多取一条判断是否还有下一页
	posts, err := s.posts.ListFeed(ctx, userID, storage.Offset(page, limit), limit+1)
	if err != nil {
		return nil, fmt.Errorf("获取动态流失败: %w", err)
	}
	return s.page(ctx, posts, page, limit)
}

func (s *feedService) ListUserPosts(ctx context.Context, authorID uint, page, limit int) (*models.FeedPage, error) {
	page, limit = s.normalizePage(page, limit)
	if pastEnd(page, limit) {
		return &models.FeedPage{Posts: []*models.PostView{}, Page: page, Limit: limit}, nil
	}
	posts, err := s.posts.ListByUser(ctx, authorID, storage.Offset(page, limit), limit+1)
	if err != nil {
		return nil, fmt.Errorf("获取用户动态失败: %w", err)
	}
	return s.page(ctx, posts, page, limit)
}

func (s *feedService) page(ctx context.Context, posts []*models.Post, page, limit int) (*models.FeedPage, error) {
	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}
	views, err := s.views.build(ctx, posts)
	if err != nil {
		return nil, err
	}
	return &models.FeedPage{Posts: views, Page: page, Limit: limit, HasMore: hasMore}, nil
}

func (s *feedService) FeedIterator(ctx context.Context, userID uint, pageSize int) iter.Seq2[*models.PostView, error] {
	_, pageSize = s.normalizePage(1, pageSize)
	return func(yield func(*models.PostView, error) bool) {
		for offset := 0; ; offset += pageSize {
			posts, err := s.posts.ListFeed(ctx, userID, offset, pageSize)
			if err != nil {
				yield(nil, fmt.Errorf("获取动态流失败: %w", err))
				return
			}
			views, err := s.views.build(ctx, posts)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, v := range views {
				if !yield(v, nil) {
					return
				}
			}
			if len(posts) < pageSize {
				return
			}
		}
	}
}

func (s *feedService) GetPost(ctx context.Context, postID uint) (*models.PostView, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("获取动态失败: %w", err)
	}
	return s.views.one(ctx, post)
}
