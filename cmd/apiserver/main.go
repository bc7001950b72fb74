package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/gorilla/handlers"
	redisDriver "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"social-go/internal/auth"
	"social-go/internal/blob"
	"social-go/internal/config"
	"social-go/internal/handlers/apiserver"
	appKafka "social-go/internal/kafka"
	kafkahandlers "social-go/internal/kafka/handlers"
	"social-go/internal/logger"
	"social-go/internal/middleware"
	appRedis "social-go/internal/redis"
	"social-go/internal/services"
	"social-go/internal/storage"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}

	// 2. 日志与 Sentry
	lg, err := logger.Init(cfg)
	if err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	sentryEnabled, flushSentry, err := logger.InitSentry(cfg)
	if err != nil {
		lg.Warn("Sentry 初始化失败，继续运行", zap.Error(err))
	}
	defer flushSentry()
	if sentryEnabled {
		lg = logger.WithSentry(lg)
		zap.ReplaceGlobals(lg)
	}
	lg.Info("API 服务器配置加载成功", zap.String("env", cfg.AppEnv))

	// 3. 初始化数据库连接
	db, err := storage.InitDB(cfg.Database)
	if err != nil {
		lg.Fatal("无法初始化数据库", zap.Error(err))
	}
	if cfg.Database.AutoMigrate {
		if err := storage.AutoMigrateTables(db); err != nil {
			lg.Fatal("数据库表迁移失败", zap.Error(err))
		}
	}

	// 4. 初始化 Redis Client
	redisClient := redisDriver.NewClient(&redisDriver.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	err = redisClient.Ping(pingCtx).Err()
	cancelPing()
	if err != nil {
		lg.Fatal("无法连接到 Redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	tokenBlacklist := appRedis.NewRedisTokenBlacklist(redisClient)

	// 5. 初始化 Repositories
	repos := storage.NewRepositories(db)

	// 6. 文件存储
	store, err := blob.New(context.Background(), cfg.Storage)
	if err != nil {
		lg.Fatal("无法初始化文件存储", zap.String("type", cfg.Storage.Type), zap.Error(err))
	}

	// 7. Kafka 事件发布 (未配置时使用空实现)
	events := services.NewNoopPublisher()
	var producer appKafka.MessageProducer
	if cfg.Kafka.Active() {
		producer, err = appKafka.NewConfluentKafkaProducer(cfg.Kafka)
		if err != nil {
			lg.Fatal("无法创建 Kafka 生产者", zap.Error(err))
		}
		events = appKafka.NewEventPublisher(producer, cfg.Kafka.EventsTopic)
	} else {
		lg.Info("Kafka 未启用，社交事件不会生成通知")
	}

	// 8. 初始化 Services
	var google auth.IdentityProvider
	if cfg.Google.ClientID != "" {
		google = auth.NewGoogleProvider(cfg.Google)
	}
	maxUpload := cfg.Storage.MaxFileSizeBytes()

	authService := services.NewAuthService(repos.Users, tokenBlacklist, google, cfg.Auth)
	userService := services.NewUserService(repos.Users, repos.Follows, store, maxUpload)
	friendService := services.NewFriendRequestService(db, repos.Users, repos.FriendRequests, repos.Follows, events)
	postService := services.NewPostService(db, repos.Posts, repos.Users, repos.Comments, store, maxUpload, events)
	feedService := services.NewFeedService(repos.Posts, repos.Users, repos.Comments, cfg.Feed)
	commentService := services.NewCommentService(db, repos.Comments, repos.Posts, repos.Users, events)
	storyService := services.NewStoryService(repos.Stories, repos.Follows, repos.Users, store, maxUpload, cfg.Story)
	notificationService := services.NewNotificationService(repos.Notifications, repos.Users)

	// 9. 设置 HTTP 路由
	routerCfg := apiserver.RouterConfig{
		Auth:                cfg.Auth,
		Blacklist:           tokenBlacklist,
		AuthService:         authService,
		UserService:         userService,
		FriendService:       friendService,
		PostService:         postService,
		FeedService:         feedService,
		CommentService:      commentService,
		StoryService:        storyService,
		NotificationService: notificationService,
		MaxUploadBytes:      maxUpload,
		FrontendURL:         cfg.Google.FrontendURL,
	}
	if cfg.RateLimit.Enabled {
		routerCfg.Limiter = appRedis.NewFixedWindowLimiter(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}
	if cfg.Storage.Type == "local" {
		routerCfg.UploadsDir = cfg.Storage.LocalPath
		routerCfg.UploadsURL = cfg.Storage.BaseURL
	}
	router := apiserver.NewRouter(routerCfg)

	// 定义 CORS 选项，从配置中读取
	corsOptions := []handlers.CORSOption{
		handlers.AllowedOrigins(cfg.APIServer.CORS.AllowedOrigins),
		handlers.AllowedMethods(cfg.APIServer.CORS.AllowedMethods),
		handlers.AllowedHeaders(cfg.APIServer.CORS.AllowedHeaders),
		handlers.ExposedHeaders(cfg.APIServer.CORS.ExposedHeaders),
		handlers.MaxAge(cfg.APIServer.CORS.MaxAge),
	}
	if cfg.APIServer.CORS.AllowCredentials {
		corsOptions = append(corsOptions, handlers.AllowCredentials())
	}

	var handler http.Handler = middleware.RequestLogger(lg.Named("http"), "/uploads/")(router)
	if sentryEnabled {
		handler = sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle(handler)
	}
	handler = handlers.RecoveryHandler(
		handlers.RecoveryLogger(logger.StdLogger(lg, "recovery")),
		handlers.PrintRecoveryStack(cfg.IsDevelopment()),
	)(handler)
	handler = handlers.CORS(corsOptions...)(handler)

	// 10. 通知消费者
	consumerCtx, cancelConsumers := context.WithCancel(context.Background())
	defer cancelConsumers()
	var consumerWG sync.WaitGroup
	if cfg.Kafka.Active() {
		consumer, err := appKafka.NewConfluentKafkaConsumer(cfg.Kafka)
		if err != nil {
			lg.Fatal("无法创建 Kafka 消费者", zap.Error(err))
		}
		defer consumer.Close()

		notificationLogic := kafkahandlers.NewNotificationConsumerLogic(notificationService)
		consumerWG.Add(1)
		go func() {
			defer consumerWG.Done()
			topics := []string{cfg.Kafka.EventsTopic}
			lg.Info("Kafka 通知消费者启动", zap.Strings("topics", topics), zap.String("group", cfg.Kafka.ConsumerGroup))
			err := consumer.Consume(consumerCtx, topics, cfg.Kafka.ConsumerGroup, notificationLogic.HandleEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("Kafka 通知消费者错误", zap.Error(err))
			}
			lg.Info("Kafka 通知消费者已停止")
		}()
	}

	// 11. 启动 HTTP 服务器并实现优雅关闭
	serverAddr := fmt.Sprintf("%s:%s", cfg.APIServer.Host, cfg.APIServer.Port)
	srv := &http.Server{
		Addr:           serverAddr,
		Handler:        handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		ErrorLog:       logger.StdLogger(lg, "http-server"),
	}

	go func() {
		lg.Info("API 服务器启动", zap.String("addr", serverAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("API 服务器启动失败", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	lg.Info("收到关闭信号，正在关闭 API 服务器...")

	cancelConsumers()

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		lg.Error("API 服务器强制关闭", zap.Error(err))
	}

	consumerWG.Wait()
	if producer != nil {
		producer.Close()
	}
	lg.Info("API 服务器已成功关闭")
}
