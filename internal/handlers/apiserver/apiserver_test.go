package apiserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-go/internal/auth"
	"social-go/internal/blob"
	"social-go/internal/config"
	appredis "social-go/internal/redis"
	"social-go/internal/services"
	"social-go/internal/storage"
	"social-go/internal/storage/storagetest"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

var testAuth = config.AuthConfig{
	JWTSecretKey: "apiserver-test-secret",
	JWTExpiry:    time.Hour,
	Issuer:       "social-go-test",
	TokenHeader:  "auth-token",
}

type googleStub struct {
	identity *auth.ExternalIdentity
}

func (g *googleStub) AuthCodeURL(state string) string {
	return "https://accounts.example.com/o/oauth2/auth?state=" + state
}

func (g *googleStub) Exchange(context.Context, string) (*auth.ExternalIdentity, error) {
	return g.identity, nil
}

func (g *googleStub) IdentityFromAccessToken(context.Context, string) (*auth.ExternalIdentity, error) {
	return g.identity, nil
}

type envelope struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Message  string          `json:"message"`
	Category string          `json:"category"`
	Field    string          `json:"field"`
}

type testServer struct {
	router http.Handler
	google *googleStub
}

func newTestServer(t *testing.T, opts ...func(*RouterConfig, goredis.UniversalClient)) *testServer {
	t.Helper()
	db := storagetest.NewDB(t)

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	blacklist := appredis.NewRedisTokenBlacklist(rdb)

	uploads := t.TempDir()
	store, err := blob.NewLocalStore(uploads, "/uploads")
	require.NoError(t, err)

	userRepo := storage.NewGormUserRepository(db)
	followRepo := storage.NewGormFollowRepository(db)
	frRepo := storage.NewGormFriendRequestRepository(db)
	postRepo := storage.NewGormPostRepository(db)
	commentRepo := storage.NewGormCommentRepository(db)
	storyRepo := storage.NewGormStoryRepository(db)
	notificationRepo := storage.NewGormNotificationRepository(db)

	const maxUpload = 1 << 20
	events := services.NewNoopPublisher()
	google := &googleStub{}

	cfg := RouterConfig{
		Auth:                testAuth,
		Blacklist:           blacklist,
		AuthService:         services.NewAuthService(userRepo, blacklist, google, testAuth),
		UserService:         services.NewUserService(userRepo, followRepo, store, maxUpload),
		FriendService:       services.NewFriendRequestService(db, userRepo, frRepo, followRepo, events),
		PostService:         services.NewPostService(db, postRepo, userRepo, commentRepo, store, maxUpload, events),
		FeedService:         services.NewFeedService(postRepo, userRepo, commentRepo, config.FeedConfig{DefaultLimit: 20, MaxLimit: 100}),
		CommentService:      services.NewCommentService(db, commentRepo, postRepo, userRepo, events),
		StoryService:        services.NewStoryService(storyRepo, followRepo, userRepo, store, maxUpload, config.StoryConfig{TTL: 24 * time.Hour}),
		NotificationService: services.NewNotificationService(notificationRepo, userRepo),
		MaxUploadBytes:      maxUpload,
		UploadsDir:          uploads,
		UploadsURL:          "/uploads",
	}
	for _, opt := range opts {
		opt(&cfg, rdb)
	}
	return &testServer{router: NewRouter(cfg), google: google}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("auth-token", token)
	}
	return s.serve(t, req)
}

func (s *testServer) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

type account struct {
	ID    uint
	Token string
}

func (s *testServer) register(t *testing.T, username string) account {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/api/user/register", "", map[string]string{
		"username":        username,
		"fullName":        username + " Tester",
		"email":           username + "@example.com",
		"password":        "secret123",
		"confirmPassword": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result struct {
		Token string `json:"token"`
		User  struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.NotEmpty(t, result.Token)
	return account{ID: result.User.ID, Token: result.Token}
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

type friendRequestJSON struct {
	ID         uint   `json:"id"`
	SenderID   uint   `json:"senderId"`
	ReceiverID uint   `json:"receiverId"`
	Status     string `json:"status"`
}

type profileJSON struct {
	ID        uint   `json:"id"`
	Followers []uint `json:"followers"`
	Following []uint `json:"following"`
}

type pollOptionJSON struct {
	ID    uint   `json:"id"`
	Text  string `json:"text"`
	Votes []uint `json:"votes"`
}

type postJSON struct {
	ID          uint             `json:"id"`
	UserID      uint             `json:"userId"`
	Content     string           `json:"content"`
	Image       string           `json:"image"`
	Likes       []uint           `json:"likes"`
	PollOptions []pollOptionJSON `json:"pollOptions"`
}

// befriend sends a request from a to b and lets b accept it.
func (s *testServer) befriend(t *testing.T, a, b account) {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/api/friend-requests", a.Token, map[string]any{"receiverId": b.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	req := decodeData[friendRequestJSON](t, env)

	rec, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/friend-requests/%d/accept", req.ID), b.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestFriendRequestFlow(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")

	rec, env := s.do(t, http.MethodPost, "/api/friend-requests", alice.Token, map[string]any{"receiverId": bob.ID, "message": "hi"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sent := decodeData[friendRequestJSON](t, env)
	assert.Equal(t, "pending", sent.Status)

	_, env = s.do(t, http.MethodGet, "/api/friend-requests/pending", bob.Token, nil)
	assert.Len(t, decodeData[[]friendRequestJSON](t, env), 1)

	rec, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/friend-requests/%d/accept", sent.ID), alice.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "only the receiver may respond")

	rec, env = s.do(t, http.MethodPost, fmt.Sprintf("/api/friend-requests/%d/accept", sent.ID), bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "accepted", decodeData[friendRequestJSON](t, env).Status)

	rec, env = s.do(t, http.MethodPost, fmt.Sprintf("/api/friend-requests/%d/reject", sent.ID), bob.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", env.Category)

	rec, env = s.do(t, http.MethodPost, "/api/friend-requests", alice.Token, map[string]any{"receiverId": bob.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "conflict", env.Category)

	_, env = s.do(t, http.MethodGet, fmt.Sprintf("/api/user/userDetails/%d", bob.ID), "", nil)
	assert.Contains(t, decodeData[profileJSON](t, env).Followers, alice.ID)
	_, env = s.do(t, http.MethodGet, "/api/user/me", alice.Token, nil)
	assert.Contains(t, decodeData[profileJSON](t, env).Following, bob.ID)

	_, env = s.do(t, http.MethodGet, "/api/friends", bob.Token, nil)
	friends := decodeData[[]struct {
		ID uint `json:"id"`
	}](t, env)
	require.Len(t, friends, 1)
	assert.Equal(t, alice.ID, friends[0].ID)
}

func TestSelfRequestIsValidationError(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")

	rec, env := s.do(t, http.MethodPost, "/api/friend-requests", alice.Token, map[string]any{"receiverId": alice.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", env.Category)
	assert.Equal(t, "receiverId", env.Field)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/posts/feed", "/api/user/me", "/api/friends", "/api/notifications"} {
		rec, env := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Equal(t, "unauthenticated", env.Category, path)
	}
}

func TestRegisterErrors(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice")

	rec, env := s.do(t, http.MethodPost, "/api/user/register", "", map[string]string{
		"username": "a!", "fullName": "Someone", "email": "x@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", env.Category)
	assert.Equal(t, "username", env.Field)

	rec, env = s.do(t, http.MethodPost, "/api/user/register", "", map[string]string{
		"username": "alice", "fullName": "Someone", "email": "other@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "username", env.Field)

	rec, env = s.do(t, http.MethodPost, "/api/user/login", "", map[string]string{"email": "alice@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", env.Category)

	rec, _ = s.do(t, http.MethodPost, "/api/user/login", "", map[string]string{"email": "alice", "password": "secret123"})
	assert.Equal(t, http.StatusOK, rec.Code, "login accepts a username too")

	_, env = s.do(t, http.MethodGet, "/api/user/check-username/alice", "", nil)
	assert.JSONEq(t, `{"exists":true}`, string(env.Data))
	_, env = s.do(t, http.MethodGet, "/api/user/check-email/nobody@example.com", "", nil)
	assert.JSONEq(t, `{"exists":false}`, string(env.Data))
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")

	rec, _ := s.do(t, http.MethodPost, "/api/user/logout", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := s.do(t, http.MethodGet, "/api/user/me", alice.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", env.Category)
}

func TestFeedLikesAndPolls(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")
	carol := s.register(t, "carol")
	s.befriend(t, alice, bob) // alice follows bob

	rec, env := s.do(t, http.MethodPost, "/api/posts", bob.Token, map[string]any{
		"content":  "Lunch? #food",
		"pollData": map[string]any{"options": []string{"pizza", "sushi"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	bobPost := decodeData[postJSON](t, env)
	require.Len(t, bobPost.PollOptions, 2)

	rec, _ = s.do(t, http.MethodPost, "/api/posts", carol.Token, map[string]any{"content": "carol only"})
	require.Equal(t, http.StatusCreated, rec.Code)

	_, env = s.do(t, http.MethodGet, "/api/posts/feed", alice.Token, nil)
	feed := decodeData[struct {
		Posts []postJSON `json:"posts"`
	}](t, env)
	require.Len(t, feed.Posts, 1)
	assert.Equal(t, bobPost.ID, feed.Posts[0].ID)

	likePath := fmt.Sprintf("/api/posts/%d/like", bobPost.ID)
	_, env = s.do(t, http.MethodPost, likePath, alice.Token, nil)
	liked := decodeData[struct {
		Post  postJSON `json:"post"`
		Liked bool     `json:"liked"`
	}](t, env)
	assert.True(t, liked.Liked)
	assert.Equal(t, []uint{alice.ID}, liked.Post.Likes)

	_, env = s.do(t, http.MethodPost, likePath, alice.Token, nil)
	unliked := decodeData[struct {
		Post  postJSON `json:"post"`
		Liked bool     `json:"liked"`
	}](t, env)
	assert.False(t, unliked.Liked)
	assert.Empty(t, unliked.Post.Likes)

	optionID := bobPost.PollOptions[0].ID
	votePath := fmt.Sprintf("/api/posts/%d/poll/%d/vote", bobPost.ID, optionID)
	rec, _ = s.do(t, http.MethodPost, votePath, alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	other := fmt.Sprintf("/api/posts/%d/poll/%d/vote", bobPost.ID, bobPost.PollOptions[1].ID)
	rec, env = s.do(t, http.MethodPost, other, alice.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", env.Category)

	_, env = s.do(t, http.MethodGet, fmt.Sprintf("/api/posts/%d/poll/results", bobPost.ID), alice.Token, nil)
	results := decodeData[[]pollOptionJSON](t, env)
	require.Len(t, results, 2)
	assert.Equal(t, []uint{alice.ID}, results[0].Votes)
	assert.Empty(t, results[1].Votes)

	rec, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/poll/%d/vote", bobPost.ID, 9999), carol.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostOwnership(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")

	_, env := s.do(t, http.MethodPost, "/api/posts", alice.Token, map[string]any{"content": "draft"})
	post := decodeData[postJSON](t, env)
	path := fmt.Sprintf("/api/posts/%d", post.ID)

	rec, env := s.do(t, http.MethodPut, path, bob.Token, map[string]any{"content": "hacked"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", env.Category)

	rec, env = s.do(t, http.MethodPut, path, alice.Token, map[string]any{"content": "final"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "final", decodeData[postJSON](t, env).Content)

	rec, _ = s.do(t, http.MethodDelete, path, alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, env = s.do(t, http.MethodGet, path, alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", env.Category)
}

func TestCommentsRoundTrip(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")

	_, env := s.do(t, http.MethodPost, "/api/posts", alice.Token, map[string]any{"content": "hello"})
	post := decodeData[postJSON](t, env)
	commentsPath := fmt.Sprintf("/api/posts/%d/comments", post.ID)

	rec, env := s.do(t, http.MethodPost, commentsPath, bob.Token, map[string]string{"text": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "text", env.Field)

	rec, env = s.do(t, http.MethodPost, commentsPath, bob.Token, map[string]string{"text": "nice"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	comment := decodeData[struct {
		ID uint `json:"id"`
	}](t, env)

	rec, _ = s.do(t, http.MethodDelete, fmt.Sprintf("/api/comments/%d", comment.ID), alice.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	_, env = s.do(t, http.MethodGet, commentsPath, alice.Token, nil)
	assert.Len(t, decodeData[[]json.RawMessage](t, env), 1)
}

func multipartRequest(t *testing.T, method, path, token string, fields map[string]string, fileField string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		part, err := mw.CreateFormFile(fileField, "photo.png")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("auth-token", token)
	return req
}

func TestMultipartPostWithImage(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")

	req := multipartRequest(t, http.MethodPost, "/api/posts", alice.Token,
		map[string]string{"content": "look", "pollOptions": `["yes","no"]`}, "image", pngBytes)
	rec, env := s.serve(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	post := decodeData[postJSON](t, env)
	assert.Len(t, post.PollOptions, 2)
	require.True(t, strings.HasPrefix(post.Image, "/uploads/"), post.Image)

	rec, _ = s.serve(t, httptest.NewRequest(http.MethodGet, post.Image, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pngBytes, rec.Body.Bytes())

	req = multipartRequest(t, http.MethodPost, "/api/posts", alice.Token,
		map[string]string{"content": "text file"}, "image", []byte("just some text"))
	rec, env = s.serve(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "image", env.Field)
}

func TestAvatarUpload(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")

	req := multipartRequest(t, http.MethodPut, "/api/user/update/avatar", alice.Token, nil, "profilePicture", pngBytes)
	rec, env := s.serve(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	profile := decodeData[struct {
		Avatar string `json:"profilePicture"`
	}](t, env)
	assert.True(t, strings.HasPrefix(profile.Avatar, "/uploads/"))

	req = multipartRequest(t, http.MethodPut, "/api/user/update/cover", alice.Token, nil, "coverImage", nil)
	rec, env = s.serve(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "coverImage", env.Field)
}

func TestStories(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")
	s.befriend(t, alice, bob)

	rec, _ := s.do(t, http.MethodPost, "/api/stories", bob.Token, map[string]string{"content": "morning"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	_, env := s.do(t, http.MethodGet, "/api/stories", alice.Token, nil)
	assert.Len(t, decodeData[[]json.RawMessage](t, env), 1)

	rec, env = s.do(t, http.MethodPost, "/api/stories", bob.Token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", env.Category)
}

func TestCredentialEndpointsAreRateLimited(t *testing.T) {
	s := newTestServer(t, func(cfg *RouterConfig, rdb goredis.UniversalClient) {
		cfg.Limiter = appredis.NewFixedWindowLimiter(rdb, 2, time.Minute)
	})

	body := map[string]string{"email": "nobody@example.com", "password": "whatever"}
	for i := 0; i < 2; i++ {
		rec, _ := s.do(t, http.MethodPost, "/api/user/login", "", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec, env := s.do(t, http.MethodPost, "/api/user/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", env.Category)
}

func TestGoogleBrowserFlow(t *testing.T) {
	s := newTestServer(t)
	s.google.identity = &auth.ExternalIdentity{
		Provider:      "google",
		Subject:       "g-1",
		Email:         "dana@example.com",
		EmailVerified: true,
		Name:          "Dana Scully",
	}

	rec, _ := s.serve(t, httptest.NewRequest(http.MethodGet, "/api/user/google/login", nil))
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	state := cookies[0].Value
	assert.Contains(t, rec.Header().Get("Location"), "state="+state)

	bad := httptest.NewRequest(http.MethodGet, "/api/user/google/callback?code=c&state=forged", nil)
	bad.AddCookie(cookies[0])
	rec, env := s.serve(t, bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "state", env.Field)

	good := httptest.NewRequest(http.MethodGet, "/api/user/google/callback?code=c&state="+state, nil)
	good.AddCookie(cookies[0])
	rec, env = s.serve(t, good)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decodeData[struct {
		Token string `json:"token"`
		User  struct {
			Username string `json:"username"`
		} `json:"user"`
	}](t, env)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "dana", result.User.Username)

	rec, env = s.do(t, http.MethodPost, "/api/user/register/google", "", map[string]string{"accessToken": "ya29"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dana", decodeData[struct {
		User struct {
			Username string `json:"username"`
		} `json:"user"`
	}](t, env).User.Username, "the same account is reused")
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	s := newTestServer(t)
	rec, env := s.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "not_found", env.Category)
}
