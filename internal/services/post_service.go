package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"social-go/internal/blob"
	"social-go/internal/models"
	"social-go/internal/storage"
)

var hashtagPattern = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

// PostFields are the user-editable parts of a post.
type PostFields struct {
	Content         string   `json:"content" validate:"max=5000"`
	ImageURL        string   `json:"image" validate:"omitempty,max=500"`
	BackgroundColor string   `json:"backgroundColor" validate:"max=20"`
	Feeling         string   `json:"feeling" validate:"max=50"`
	Hashtags        []string `json:"hashtags" validate:"max=30,dive,max=100"`
	PollOptions     []string `json:"pollOptions" validate:"omitempty,min=2,max=10,dive,required,max=200"`
}

// PostCreate is the input of CreatePost: either TextOnly or WithAttachment.
type PostCreate interface {
	fields() PostFields
}

// TextOnly creates a post from JSON fields; ImageURL may reference an image
// uploaded earlier through /upload.
type TextOnly struct {
	PostFields
}

// WithAttachment creates a post whose image arrives in the same request.
type WithAttachment struct {
	PostFields
	File Attachment
}

func (t TextOnly) fields() PostFields       { return t.PostFields }
func (w WithAttachment) fields() PostFields { return w.PostFields }

// PostUpdate holds the fields an owner may change; nil leaves a field as is.
type PostUpdate struct {
	Content         *string  `json:"content"`
	BackgroundColor *string  `json:"backgroundColor"`
	Feeling         *string  `json:"feeling"`
	Hashtags        []string `json:"hashtags"`
}

// PostService 定义了动态、点赞与投票相关的操作。
type PostService interface {
	CreatePost(ctx context.Context, authorID uint, input PostCreate) (*models.PostView, error)
	UpdatePost(ctx context.Context, postID, actorID uint, update PostUpdate) (*models.PostView, error)
	DeletePost(ctx context.Context, postID, actorID uint) error
	// ToggleLike flips userID's membership in the post's likes set and
	// reports whether the user likes the post afterwards.
	ToggleLike(ctx context.Context, postID, userID uint) (*models.PostView, bool, error)
	ListLikers(ctx context.Context, postID uint) ([]*models.UserBasicInfo, error)
	Vote(ctx context.Context, postID, optionID, userID uint) (*models.PostView, error)
	PollResults(ctx context.Context, postID uint) ([]models.PollOptionView, error)
}

type postService struct {
	db       *gorm.DB
	posts    storage.PostRepository
	users    storage.UserRepository
	views    postViews
	uploader imageUploader
	events   EventPublisher
}

func NewPostService(
	db *gorm.DB,
	posts storage.PostRepository,
	users storage.UserRepository,
	comments storage.CommentRepository,
	store blob.Store,
	maxUploadBytes int64,
	events EventPublisher,
) PostService {
	return &postService{
		db:       db,
		posts:    posts,
		users:    users,
		views:    postViews{posts: posts, users: users, comments: comments},
		uploader: imageUploader{store: store, maxBytes: maxUploadBytes},
		events:   events,
	}
}

func (s *postService) CreatePost(ctx context.Context, authorID uint, input PostCreate) (*models.PostView, error) {
	f := normalizePostFields(input.fields())
	if err := validate(f); err != nil {
		return nil, err
	}

	var uploaded *blob.FileInfo
	if w, ok := input.(WithAttachment); ok {
		info, err := s.uploader.upload(ctx, "image", w.File)
		if err != nil {
			return nil, err
		}
		uploaded = info
		f.ImageURL = info.URL
	}
	if f.Content == "" && f.ImageURL == "" {
		return nil, ErrPostEmpty
	}

	post := &models.Post{
		UserID:          authorID,
		Content:         f.Content,
		ImageURL:        f.ImageURL,
		BackgroundColor: f.BackgroundColor,
		Feeling:         f.Feeling,
		Hashtags:        datatypes.JSONSlice[string](f.Hashtags),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txPosts := storage.NewGormPostRepository(tx)
		if err := txPosts.Create(ctx, post); err != nil {
			return err
		}
		if len(f.PollOptions) == 0 {
			return nil
		}
		options := make([]models.PollOption, 0, len(f.PollOptions))
		for i, text := range f.PollOptions {
			options = append(options, models.PollOption{PostID: post.ID, Position: i, Text: text})
		}
		return txPosts.CreatePollOptions(ctx, options)
	})
	if err != nil {
		s.uploader.discard(ctx, uploaded)
		return nil, fmt.Errorf("创建动态失败: %w", err)
	}

	zap.L().Info("post created", zap.Uint("postId", post.ID), zap.Uint("userId", authorID), zap.Int("pollOptions", len(f.PollOptions)))
	return s.views.one(ctx, post)
}

// normalizePostFields trims input and derives hashtags from the content when
// the client sent none.
func normalizePostFields(f PostFields) PostFields {
	f.Content = strings.TrimSpace(f.Content)
	f.ImageURL = strings.TrimSpace(f.ImageURL)
	f.BackgroundColor = strings.TrimSpace(f.BackgroundColor)
	f.Feeling = strings.TrimSpace(f.Feeling)

	var options []string // nil when there is no poll
	for _, o := range f.PollOptions {
		options = append(options, strings.TrimSpace(o))
	}
	f.PollOptions = options

	if len(f.Hashtags) == 0 {
		f.Hashtags = extractHashtags(f.Content)
	} else {
		f.Hashtags = normalizeHashtags(f.Hashtags)
	}
	return f
}

func extractHashtags(content string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(content, -1)
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, m[1])
	}
	return normalizeHashtags(tags)
}

func normalizeHashtags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "#"))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// ownedPost loads a post and checks that actorID wrote it.
func (s *postService) ownedPost(ctx context.Context, postID, actorID uint) (*models.Post, error) {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != actorID {
		return nil, ErrNotOwner
	}
	return post, nil
}

func (s *postService) getPost(ctx context.Context, postID uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("获取动态失败: %w", err)
	}
	return post, nil
}

func (s *postService) UpdatePost(ctx context.Context, postID, actorID uint, update PostUpdate) (*models.PostView, error) {
	post, err := s.ownedPost(ctx, postID, actorID)
	if err != nil {
		return nil, err
	}

	// 与创建时使用同一套校验规则
	f := PostFields{
		Content:         post.Content,
		ImageURL:        post.ImageURL,
		BackgroundColor: post.BackgroundColor,
		Feeling:         post.Feeling,
		Hashtags:        post.Hashtags,
	}
	fields := make(map[string]interface{})
	if update.Content != nil {
		f.Content = strings.TrimSpace(*update.Content)
		fields["content"] = f.Content
		if update.Hashtags == nil {
			f.Hashtags = extractHashtags(f.Content)
			fields["hashtags"] = nil
		}
	}
	if update.BackgroundColor != nil {
		f.BackgroundColor = strings.TrimSpace(*update.BackgroundColor)
		fields["background_color"] = f.BackgroundColor
	}
	if update.Feeling != nil {
		f.Feeling = strings.TrimSpace(*update.Feeling)
		fields["feeling"] = f.Feeling
	}
	if update.Hashtags != nil {
		f.Hashtags = normalizeHashtags(update.Hashtags)
		fields["hashtags"] = nil
	}
	if err := validate(f); err != nil {
		return nil, err
	}
	if f.Content == "" && f.ImageURL == "" {
		return nil, ErrPostEmpty
	}
	if _, ok := fields["hashtags"]; ok {
		fields["hashtags"] = datatypes.JSONSlice[string](f.Hashtags)
	}
	if len(fields) == 0 {
		return s.views.one(ctx, post)
	}

	if err := s.posts.UpdateFields(ctx, postID, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("更新动态失败: %w", err)
	}
	updated, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return s.views.one(ctx, updated)
}

func (s *postService) DeletePost(ctx context.Context, postID, actorID uint) error {
	if _, err := s.ownedPost(ctx, postID, actorID); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		return fmt.Errorf("删除动态失败: %w", err)
	}
	zap.L().Info("post deleted", zap.Uint("postId", postID), zap.Uint("userId", actorID))
	return nil
}

func (s *postService) ToggleLike(ctx context.Context, postID, userID uint) (*models.PostView, bool, error) {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, false, err
	}

	liked := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txPosts := storage.NewGormPostRepository(tx)
		removed, err := txPosts.DeleteLike(ctx, postID, userID)
		if err != nil {
			return err
		}
		if removed > 0 {
			return nil
		}
		inserted, err := txPosts.InsertLike(ctx, postID, userID)
		if err != nil {
			return err
		}
		liked = inserted > 0
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("点赞失败: %w", err)
	}

	if liked {
		publish(ctx, s.events, models.NotificationPostLiked, userID, post.UserID, post.ID)
	}
	view, err := s.views.one(ctx, post)
	if err != nil {
		return nil, false, err
	}
	return view, liked, nil
}

func (s *postService) ListLikers(ctx context.Context, postID uint) ([]*models.UserBasicInfo, error) {
	if _, err := s.getPost(ctx, postID); err != nil {
		return nil, err
	}
	likes, err := s.posts.LikesForPosts(ctx, []uint{postID})
	if err != nil {
		return nil, fmt.Errorf("获取点赞列表失败: %w", err)
	}
	if len(likes) == 0 {
		return []*models.UserBasicInfo{}, nil
	}
	ids := make([]uint, 0, len(likes))
	for _, l := range likes {
		ids = append(ids, l.UserID)
	}
	return s.users.GetMultipleBasicInfoByIDs(ctx, ids)
}

// Vote records userID's single vote on the post's poll.
func (s *postService) Vote(ctx context.Context, postID, optionID, userID uint) (*models.PostView, error) {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	option, err := s.posts.GetPollOption(ctx, optionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPollOptionNotFound
		}
		return nil, fmt.Errorf("获取投票选项失败: %w", err)
	}
	if option.PostID != postID {
		return nil, ErrPollOptionNotFound
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txPosts := storage.NewGormPostRepository(tx)
		n, err := txPosts.InsertVote(ctx, &models.PollVote{PostID: postID, UserID: userID, OptionID: optionID})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrAlreadyVoted
		}
		return txPosts.IncrementVoteCount(ctx, optionID)
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyVoted) {
			return nil, ErrAlreadyVoted
		}
		return nil, fmt.Errorf("投票失败: %w", err)
	}
	return s.views.one(ctx, post)
}

func (s *postService) PollResults(ctx context.Context, postID uint) ([]models.PollOptionView, error) {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	view, err := s.views.one(ctx, post)
	if err != nil {
		return nil, err
	}
	if view.Poll == nil {
		return []models.PollOptionView{}, nil
	}
	return view.Poll, nil
}
