package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"social-go/internal/auth"
	"social-go/internal/blob"
	"social-go/internal/config"
	"social-go/internal/models"
	"social-go/internal/storage"
	"social-go/internal/storage/storagetest"
)

// pngBytes is the smallest header mimetype recognises as image/png.
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type recordingPublisher struct {
	mu     sync.Mutex
	events []SocialEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event SocialEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []models.NotificationType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.NotificationType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type memoryBlacklist struct {
	mu   sync.Mutex
	jtis map[string]time.Time
}

func (b *memoryBlacklist) Add(_ context.Context, jti string, exp time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jtis[jti] = exp
	return nil
}

func (b *memoryBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.jtis[jti]
	return ok, nil
}

type fakeIdentityProvider struct {
	identity *auth.ExternalIdentity
	err      error
}

func (f *fakeIdentityProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (f *fakeIdentityProvider) Exchange(context.Context, string) (*auth.ExternalIdentity, error) {
	return f.identity, f.err
}

func (f *fakeIdentityProvider) IdentityFromAccessToken(context.Context, string) (*auth.ExternalIdentity, error) {
	return f.identity, f.err
}

var testAuthConfig = config.AuthConfig{
	JWTSecretKey: "test-secret",
	JWTExpiry:    time.Hour,
	Issuer:       "social-go-test",
	TokenHeader:  "auth-token",
}

// env wires every service against one in-memory database.
type env struct {
	db        *gorm.DB
	events    *recordingPublisher
	blacklist *memoryBlacklist
	google    *fakeIdentityProvider

	users         storage.UserRepository
	friendReqRepo storage.FriendRequestRepository

	friends       FriendRequestService
	feed          FeedService
	posts         PostService
	comments      CommentService
	stories       *storyService
	userSvc       UserService
	authSvc       AuthService
	notifications NotificationService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := storagetest.NewDB(t)

	store, err := blob.NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	userRepo := storage.NewGormUserRepository(db)
	followRepo := storage.NewGormFollowRepository(db)
	frRepo := storage.NewGormFriendRequestRepository(db)
	postRepo := storage.NewGormPostRepository(db)
	commentRepo := storage.NewGormCommentRepository(db)
	storyRepo := storage.NewGormStoryRepository(db)
	notificationRepo := storage.NewGormNotificationRepository(db)

	e := &env{
		db:            db,
		events:        &recordingPublisher{},
		blacklist:     &memoryBlacklist{jtis: map[string]time.Time{}},
		google:        &fakeIdentityProvider{},
		users:         userRepo,
		friendReqRepo: frRepo,
	}
	const maxUpload = 1 << 20
	e.friends = NewFriendRequestService(db, userRepo, frRepo, followRepo, e.events)
	e.feed = NewFeedService(postRepo, userRepo, commentRepo, config.FeedConfig{DefaultLimit: 20, MaxLimit: 100})
	e.posts = NewPostService(db, postRepo, userRepo, commentRepo, store, maxUpload, e.events)
	e.comments = NewCommentService(db, commentRepo, postRepo, userRepo, e.events)
	e.stories = NewStoryService(storyRepo, followRepo, userRepo, store, maxUpload, config.StoryConfig{TTL: 24 * time.Hour}).(*storyService)
	e.userSvc = NewUserService(userRepo, followRepo, store, maxUpload)
	e.authSvc = NewAuthService(userRepo, e.blacklist, e.google, testAuthConfig)
	e.notifications = NewNotificationService(notificationRepo, userRepo)
	return e
}

func (e *env) user(t *testing.T, username string) *models.User {
	t.Helper()
	return storagetest.CreateUser(t, e.db, username)
}

func (e *env) post(t *testing.T, authorID uint, content string) *models.PostView {
	t.Helper()
	view, err := e.posts.CreatePost(context.Background(), authorID, TextOnly{PostFields{Content: content}})
	require.NoError(t, err)
	return view
}
