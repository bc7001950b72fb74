package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"social-go/internal/blob"
	"social-go/internal/config"
	"social-go/internal/models"
	"social-go/internal/storage"
)

// StoryFields are the JSON fields of a story.
type StoryFields struct {
	Content         string `json:"content" validate:"max=1000"`
	ImageURL        string `json:"image" validate:"omitempty,max=500"`
	BackgroundColor string `json:"backgroundColor" validate:"max=20"`
}

// StoryCreate is either StoryTextOnly or StoryWithAttachment.
type StoryCreate interface {
	storyFields() StoryFields
}

type StoryTextOnly struct {
	StoryFields
}

type StoryWithAttachment struct {
	StoryFields
	File Attachment
}

func (t StoryTextOnly) storyFields() StoryFields       { return t.StoryFields }
func (w StoryWithAttachment) storyFields() StoryFields { return w.StoryFields }

// StoryService manages stories. A story is visible until ExpiresAt; expired
// rows are filtered out on every read.
type StoryService interface {
	CreateStory(ctx context.Context, authorID uint, input StoryCreate) (*models.StoryView, error)
	// StoryFeed returns active stories of userID and everyone userID follows.
	StoryFeed(ctx context.Context, userID uint) ([]*models.StoryView, error)
	ListUserStories(ctx context.Context, userID uint) ([]*models.StoryView, error)
	DeleteStory(ctx context.Context, storyID, actorID uint) error
}

type storyService struct {
	stories  storage.StoryRepository
	follows  storage.FollowRepository
	users    storage.UserRepository
	uploader imageUploader
	ttl      time.Duration
	now      func() time.Time
}

func NewStoryService(
	stories storage.StoryRepository,
	follows storage.FollowRepository,
	users storage.UserRepository,
	store blob.Store,
	maxUploadBytes int64,
	cfg config.StoryConfig,
) StoryService {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &storyService{
		stories:  stories,
		follows:  follows,
		users:    users,
		uploader: imageUploader{store: store, maxBytes: maxUploadBytes},
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *storyService) CreateStory(ctx context.Context, authorID uint, input StoryCreate) (*models.StoryView, error) {
	f := input.storyFields()
	f.Content = strings.TrimSpace(f.Content)
	f.ImageURL = strings.TrimSpace(f.ImageURL)
	f.BackgroundColor = strings.TrimSpace(f.BackgroundColor)
	if err := validate(f); err != nil {
		return nil, err
	}

	var uploaded *blob.FileInfo
	if w, ok := input.(StoryWithAttachment); ok {
		info, err := s.uploader.upload(ctx, "image", w.File)
		if err != nil {
			return nil, err
		}
		uploaded = info
		f.ImageURL = info.URL
	}
	if f.Content == "" && f.ImageURL == "" {
		return nil, ErrStoryEmpty
	}

	now := s.now()
	story := &models.Story{
		UserID:          authorID,
		Content:         f.Content,
		ImageURL:        f.ImageURL,
		BackgroundColor: f.BackgroundColor,
		ExpiresAt:       now.Add(s.ttl),
	}
	story.CreatedAt = now
	if err := s.stories.Create(ctx, story); err != nil {
		s.uploader.discard(ctx, uploaded)
		return nil, fmt.Errorf("创建快拍失败: %w", err)
	}
	zap.L().Info("story created", zap.Uint("storyId", story.ID), zap.Uint("userId", authorID), zap.Time("expiresAt", story.ExpiresAt))

	views, err := s.build(ctx, []*models.Story{story})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *storyService) StoryFeed(ctx context.Context, userID uint) ([]*models.StoryView, error) {
	following, err := s.follows.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取关注列表失败: %w", err)
	}
	return s.active(ctx, append([]uint{userID}, following...))
}

func (s *storyService) ListUserStories(ctx context.Context, userID uint) ([]*models.StoryView, error) {
	return s.active(ctx, []uint{userID})
}

func (s *storyService) active(ctx context.Context, userIDs []uint) ([]*models.StoryView, error) {
	stories, err := s.stories.ListActiveByUsers(ctx, userIDs, s.now())
	if err != nil {
		return nil, fmt.Errorf("获取快拍失败: %w", err)
	}
	return s.build(ctx, stories)
}

func (s *storyService) DeleteStory(ctx context.Context, storyID, actorID uint) error {
	story, err := s.stories.GetByID(ctx, storyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStoryNotFound
		}
		return fmt.Errorf("获取快拍失败: %w", err)
	}
	if story.UserID != actorID {
		return ErrNotOwner
	}
	if err := s.stories.Delete(ctx, storyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStoryNotFound
		}
		return fmt.Errorf("删除快拍失败: %w", err)
	}
	return nil
}

func (s *storyService) build(ctx context.Context, stories []*models.Story) ([]*models.StoryView, error) {
	views := make([]*models.StoryView, 0, len(stories))
	if len(stories) == 0 {
		return views, nil
	}
	authorIDs := make([]uint, 0, len(stories))
	for _, st := range stories {
		authorIDs = append(authorIDs, st.UserID)
	}
	authors, err := s.users.GetMultipleBasicInfoByIDs(ctx, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("load story authors: %w", err)
	}
	authorByID := make(map[uint]*models.UserBasicInfo, len(authors))
	for _, a := range authors {
		authorByID[a.ID] = a
	}
	for _, st := range stories {
		views = append(views, &models.StoryView{Story: st, Author: authorByID[st.UserID]})
	}
	return views, nil
}
