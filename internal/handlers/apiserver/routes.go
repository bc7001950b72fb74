package apiserver

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"social-go/internal/auth"
	"social-go/internal/config"
	"social-go/internal/middleware"
	"social-go/internal/services"
)

// RouterConfig carries everything the HTTP layer needs.
type RouterConfig struct {
	Auth      config.AuthConfig
	Blacklist auth.TokenBlacklist
	// Limiter guards the credential endpoints; nil disables rate limiting.
	Limiter middleware.Limiter

	AuthService         services.AuthService
	UserService         services.UserService
	FriendService       services.FriendRequestService
	PostService         services.PostService
	FeedService         services.FeedService
	CommentService      services.CommentService
	StoryService        services.StoryService
	NotificationService services.NotificationService

	MaxUploadBytes int64
	// FrontendURL receives the token after the Google browser flow.
	FrontendURL string
	// UploadsDir is served under UploadsURL when storage is local.
	UploadsDir string
	UploadsURL string
}

// NewRouter 注册全部 /api 路由。
func NewRouter(cfg RouterConfig) *mux.Router {
	authHandler := NewAuthHandler(cfg.AuthService, cfg.FrontendURL)
	userHandler := NewUserHandler(cfg.UserService, cfg.MaxUploadBytes)
	friendReqHandler := NewFriendRequestHandler(cfg.FriendService)
	postHandler := NewPostHandler(cfg.PostService, cfg.FeedService, cfg.MaxUploadBytes)
	commentHandler := NewCommentHandler(cfg.CommentService)
	storyHandler := NewStoryHandler(cfg.StoryService, cfg.MaxUploadBytes)
	notificationHandler := NewNotificationHandler(cfg.NotificationService)
	uploadHandler := NewUploadHandler(cfg.UserService, cfg.MaxUploadBytes)

	authMW := middleware.AuthMiddleware(cfg.Auth, cfg.Blacklist)
	protected := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	limited := func(scope string, h http.HandlerFunc) http.Handler {
		if cfg.Limiter == nil {
			return h
		}
		return middleware.RateLimit(cfg.Limiter, scope)(h)
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, string(services.KindNotFound), "", "Route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, string(services.KindValidation), "", "Method not allowed")
	})

	api := r.PathPrefix("/api").Subrouter()

	// 用户与认证 (公开)
	api.Handle("/user/register", limited("register", authHandler.Register)).Methods(http.MethodPost)
	api.Handle("/user/login", limited("login", authHandler.Login)).Methods(http.MethodPost)
	api.HandleFunc("/user/check-username/{username}", authHandler.CheckUsername).Methods(http.MethodGet)
	api.HandleFunc("/user/check-email/{email}", authHandler.CheckEmail).Methods(http.MethodGet)
	api.Handle("/user/register/google", limited("google", authHandler.GoogleToken)).Methods(http.MethodPost)
	api.Handle("/user/google/login", limited("google", authHandler.GoogleLogin)).Methods(http.MethodGet)
	api.HandleFunc("/user/google/callback", authHandler.GoogleCallback).Methods(http.MethodGet)
	api.HandleFunc("/user/userDetails/{id:[0-9]+}", userHandler.Details).Methods(http.MethodGet)
	api.HandleFunc("/user", userHandler.List).Methods(http.MethodGet)

	// 用户 (需要认证)
	api.Handle("/user/me", protected(userHandler.Me)).Methods(http.MethodGet)
	api.Handle("/user/update", protected(userHandler.Update)).Methods(http.MethodPut)
	api.Handle("/user/update/avatar", protected(userHandler.UpdateAvatar)).Methods(http.MethodPut)
	api.Handle("/user/update/cover", protected(userHandler.UpdateCover)).Methods(http.MethodPut)
	api.Handle("/user/logout", protected(authHandler.Logout)).Methods(http.MethodPost)
	api.Handle("/user/{id:[0-9]+}/followers", protected(userHandler.Followers)).Methods(http.MethodGet)
	api.Handle("/user/{id:[0-9]+}/following", protected(userHandler.Following)).Methods(http.MethodGet)

	// 好友请求
	api.Handle("/friend-requests", protected(friendReqHandler.SendFriendRequestHandler)).Methods(http.MethodPost)
	api.Handle("/friend-requests/pending", protected(friendReqHandler.ListPendingRequestsHandler)).Methods(http.MethodGet)
	api.Handle("/friend-requests/sent", protected(friendReqHandler.ListSentRequestsHandler)).Methods(http.MethodGet)
	api.Handle("/friend-requests/{id:[0-9]+}/accept", protected(friendReqHandler.AcceptFriendRequestHandler)).Methods(http.MethodPost)
	api.Handle("/friend-requests/{id:[0-9]+}/reject", protected(friendReqHandler.RejectFriendRequestHandler)).Methods(http.MethodPost)
	api.Handle("/friend-requests/{id:[0-9]+}", protected(friendReqHandler.CancelFriendRequestHandler)).Methods(http.MethodDelete)
	api.Handle("/friends", protected(friendReqHandler.ListFriendsHandler)).Methods(http.MethodGet)
	api.Handle("/friends/{userId:[0-9]+}", protected(friendReqHandler.UnfriendHandler)).Methods(http.MethodDelete)

	// 动态
	api.Handle("/posts", protected(postHandler.Create)).Methods(http.MethodPost)
	api.Handle("/posts/feed", protected(postHandler.Feed)).Methods(http.MethodGet)
	api.Handle("/posts/user/{userId:[0-9]+}", protected(postHandler.ListByUser)).Methods(http.MethodGet)
	api.Handle("/posts/{id:[0-9]+}", protected(postHandler.Get)).Methods(http.MethodGet)
	api.Handle("/posts/{id:[0-9]+}", protected(postHandler.Update)).Methods(http.MethodPut)
	api.Handle("/posts/{id:[0-9]+}", protected(postHandler.Delete)).Methods(http.MethodDelete)
	api.Handle("/posts/{id:[0-9]+}/like", protected(postHandler.ToggleLike)).Methods(http.MethodPost)
	api.Handle("/posts/{id:[0-9]+}/likers", protected(postHandler.Likers)).Methods(http.MethodGet)
	api.Handle("/posts/{id:[0-9]+}/poll/{optionId:[0-9]+}/vote", protected(postHandler.Vote)).Methods(http.MethodPost)
	api.Handle("/posts/{id:[0-9]+}/poll/results", protected(postHandler.PollResults)).Methods(http.MethodGet)

	// 评论
	api.Handle("/posts/{id:[0-9]+}/comments", protected(commentHandler.Add)).Methods(http.MethodPost)
	api.Handle("/posts/{id:[0-9]+}/comments", protected(commentHandler.List)).Methods(http.MethodGet)
	api.Handle("/comments/{id:[0-9]+}/like", protected(commentHandler.ToggleLike)).Methods(http.MethodPost)
	api.Handle("/comments/{id:[0-9]+}", protected(commentHandler.Delete)).Methods(http.MethodDelete)

	// 快拍
	api.Handle("/stories", protected(storyHandler.Create)).Methods(http.MethodPost)
	api.Handle("/stories", protected(storyHandler.Feed)).Methods(http.MethodGet)
	api.Handle("/stories/user/{userId:[0-9]+}", protected(storyHandler.ListByUser)).Methods(http.MethodGet)
	api.Handle("/stories/{id:[0-9]+}", protected(storyHandler.Delete)).Methods(http.MethodDelete)

	// 通知与上传
	api.Handle("/notifications", protected(notificationHandler.List)).Methods(http.MethodGet)
	api.Handle("/notifications/read", protected(notificationHandler.MarkRead)).Methods(http.MethodPost)
	api.Handle("/upload", protected(uploadHandler.UploadFileHandler)).Methods(http.MethodPost)

	// 静态文件服务路由 - 用于访问上传的文件
	if cfg.UploadsDir != "" && strings.HasPrefix(cfg.UploadsURL, "/") {
		staticPath := strings.TrimSuffix(cfg.UploadsURL, "/") + "/"
		r.PathPrefix(staticPath).Handler(http.StripPrefix(staticPath, http.FileServer(http.Dir(cfg.UploadsDir))))
	}

	return r
}
