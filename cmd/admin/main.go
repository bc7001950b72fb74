package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"social-go/internal/blob"
	"social-go/internal/config"
	"social-go/internal/logger"
	"social-go/internal/models"
	"social-go/internal/services"
	"social-go/internal/storage"
)

const seedPassword = "password123"

var (
	firstNames = []string{"john", "jane", "michael", "sarah", "david", "emma", "james", "olivia", "robert", "sophia"}
	lastNames  = []string{"smith", "johnson", "williams", "brown", "jones", "garcia", "miller", "davis", "wilson", "lee"}
	bios       = []string{
		"Software Developer | Tech Enthusiast",
		"Travel Blogger | Adventure Seeker",
		"Photographer | Capturing Moments",
		"Writer | Storyteller",
		"Foodie | Recipe Creator",
	}
	locations    = []string{"New York, USA", "London, UK", "Tokyo, Japan", "Paris, France", "Berlin, Germany"}
	postContents = []string{
		"Just finished an amazing project! #work",
		"Beautiful sunset today #nature",
		"Coffee and coding #dev",
		"Weekend vibes! #weekend",
		"Learning something new every day #growth",
	}
	commentTexts = []string{"Amazing!", "Love this!", "Great work!", "So cool!", "Keep it up!"}
	storyTexts   = []string{"Good morning!", "Coffee time", "Workout done!", "Late night coding"}
)

type app struct {
	auth          services.AuthService
	users         services.UserService
	friends       services.FriendRequestService
	posts         services.PostService
	comments      services.CommentService
	stories       services.StoryService
	feed          services.FeedService
	notifications services.NotificationService
}

func usage() {
	fmt.Println("使用方法:")
	fmt.Println("  ./admin seed [users]             - 生成示例用户、好友关系、动态、评论与快拍")
	fmt.Println("  ./admin show-user <userID>       - 显示用户资料及关注关系")
	fmt.Println("  ./admin feed <userID> [pageSize] - 逐页输出用户的信息流")
	fmt.Println("  ./admin notifications <userID>   - 列出用户的通知")
}

func main() {
	// 简单命令行参数解析
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}
	lg, err := logger.Init(cfg)
	if err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	a, err := newApp(cfg)
	if err != nil {
		lg.Fatal("初始化失败", zap.Error(err))
	}
	ctx := context.Background()

	// 执行指定的命令
	switch os.Args[1] {
	case "seed":
		n := 20
		if len(os.Args) > 2 {
			if n, err = strconv.Atoi(os.Args[2]); err != nil || n < 2 {
				log.Fatalf("无效的用户数量: %s", os.Args[2])
			}
		}
		err = a.seed(ctx, n)
	case "show-user":
		err = a.showUser(ctx, argID())
	case "feed":
		pageSize := 10
		if len(os.Args) > 3 {
			pageSize, _ = strconv.Atoi(os.Args[3])
		}
		err = a.dumpFeed(ctx, argID(), pageSize)
	case "notifications":
		err = a.listNotifications(ctx, argID())
	default:
		usage()
		log.Fatalf("未知命令: %s", os.Args[1])
	}
	if err != nil {
		log.Fatalf("%s 失败: %v", os.Args[1], err)
	}
}

func argID() uint {
	if len(os.Args) < 3 {
		log.Fatalf("需要指定用户ID")
	}
	id, err := strconv.ParseUint(os.Args[2], 10, 64)
	if err != nil {
		log.Fatalf("无效的用户ID: %v", err)
	}
	return uint(id)
}

func newApp(cfg config.Config) (*app, error) {
	db, err := storage.InitDB(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := storage.AutoMigrateTables(db); err != nil {
		return nil, err
	}
	store, err := blob.New(context.Background(), cfg.Storage)
	if err != nil {
		return nil, err
	}

	repos := storage.NewRepositories(db)
	events := services.NewNoopPublisher()
	maxUpload := cfg.Storage.MaxFileSizeBytes()

	return &app{
		auth:          services.NewAuthService(repos.Users, nil, nil, cfg.Auth),
		users:         services.NewUserService(repos.Users, repos.Follows, store, maxUpload),
		friends:       services.NewFriendRequestService(db, repos.Users, repos.FriendRequests, repos.Follows, events),
		posts:         services.NewPostService(db, repos.Posts, repos.Users, repos.Comments, store, maxUpload, events),
		comments:      services.NewCommentService(db, repos.Comments, repos.Posts, repos.Users, events),
		stories:       services.NewStoryService(repos.Stories, repos.Follows, repos.Users, store, maxUpload, cfg.Story),
		feed:          services.NewFeedService(repos.Posts, repos.Users, repos.Comments, cfg.Feed),
		notifications: services.NewNotificationService(repos.Notifications, repos.Users),
	}, nil
}

func pick[T any](items []T) T {
	return items[rand.IntN(len(items))]
}

// seed 生成示例数据。好友关系经由 SeedFriendship 写入，与线上请求共享同一唯一约束。
func (a *app) seed(ctx context.Context, n int) error {
	ids := make([]uint, 0, n)
	for i := 0; i < n; i++ {
		first, last := pick(firstNames), pick(lastNames)
		username := fmt.Sprintf("%s.%s%d", first, last, rand.IntN(1000))
		result, err := a.auth.Register(ctx, services.RegisterInput{
			Username: username,
			FullName: strings.ToUpper(first[:1]) + first[1:] + " " + strings.ToUpper(last[:1]) + last[1:],
			Email:    username + "@example.com",
			Password: seedPassword,
		})
		if errors.Is(err, services.ErrUsernameTaken) || errors.Is(err, services.ErrEmailTaken) {
			continue
		}
		if err != nil {
			return fmt.Errorf("创建用户 %s: %w", username, err)
		}
		bio, location := pick(bios), pick(locations)
		if _, err := a.users.UpdateUserProfile(ctx, result.User.ID, services.ProfileUpdate{Bio: &bio, Location: &location}); err != nil {
			return err
		}
		ids = append(ids, result.User.ID)
	}
	fmt.Printf("创建了 %d 个用户 (密码: %s)\n", len(ids), seedPassword)
	if len(ids) < 2 {
		return errors.New("用户数量不足，无法生成好友关系")
	}

	friendships := 0
	for _, id := range ids {
		for j := 0; j < 3; j++ {
			other := pick(ids)
			if other == id {
				continue
			}
			created, err := a.friends.SeedFriendship(ctx, id, other)
			if err != nil {
				return fmt.Errorf("写入好友关系 %d-%d: %w", id, other, err)
			}
			if created {
				friendships++
			}
		}
	}
	fmt.Printf("创建了 %d 个好友关系\n", friendships)

	posts := 0
	for _, id := range ids {
		for j := 0; j < 1+rand.IntN(3); j++ {
			fields := services.PostFields{Content: pick(postContents)}
			if rand.IntN(5) == 0 {
				fields.PollOptions = []string{"Yes", "No", "Maybe"}
			}
			post, err := a.posts.CreatePost(ctx, id, services.TextOnly{PostFields: fields})
			if err != nil {
				return fmt.Errorf("创建动态: %w", err)
			}
			posts++
			for k := 0; k < rand.IntN(4); k++ {
				liker := pick(ids)
				if _, _, err := a.posts.ToggleLike(ctx, post.ID, liker); err != nil {
					return err
				}
				if _, err := a.comments.AddComment(ctx, post.ID, liker, pick(commentTexts)); err != nil {
					return err
				}
			}
		}
		if rand.IntN(2) == 0 {
			story := services.StoryTextOnly{StoryFields: services.StoryFields{Content: pick(storyTexts), BackgroundColor: "#1877f2"}}
			if _, err := a.stories.CreateStory(ctx, id, story); err != nil {
				return fmt.Errorf("创建快拍: %w", err)
			}
		}
	}
	fmt.Printf("创建了 %d 条动态\n", posts)
	return nil
}

func (a *app) showUser(ctx context.Context, userID uint) error {
	profile, err := a.users.GetUserProfile(ctx, userID)
	if err != nil {
		return err
	}
	fmt.Printf("用户 %d 信息:\n", userID)
	fmt.Println("--------------------------------------")
	fmt.Printf("用户名: %s\n", profile.Username)
	fmt.Printf("姓名: %s\n", profile.FullName)
	fmt.Printf("邮箱: %s\n", profile.Email)
	fmt.Printf("登录方式: %s\n", profile.AuthProvider)
	fmt.Printf("注册时间: %s\n", profile.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("粉丝 (%d): %v\n", profile.FollowerCount, profile.Followers)
	fmt.Printf("关注 (%d): %v\n", profile.FollowingCount, profile.Following)

	friends, err := a.friends.GetFriendsList(ctx, userID)
	if err != nil {
		return err
	}
	fmt.Printf("好友 (%d):\n", len(friends))
	for _, f := range friends {
		fmt.Printf("  - %d %s (%s)\n", f.ID, f.Username, f.FullName)
	}
	return nil
}

func (a *app) dumpFeed(ctx context.Context, userID uint, pageSize int) error {
	i := 0
	for post, err := range a.feed.FeedIterator(ctx, userID, pageSize) {
		if err != nil {
			return err
		}
		i++
		fmt.Printf("#%d [%s] %s: %s (赞 %d, 评论 %d)\n", i,
			post.CreatedAt.Format("2006-01-02 15:04"), authorName(post.Author), post.Content, post.LikeCount, post.CommentCount)
	}
	if i == 0 {
		fmt.Println("信息流为空")
	}
	return nil
}

func (a *app) listNotifications(ctx context.Context, userID uint) error {
	items, err := a.notifications.List(ctx, userID, false, 0)
	if err != nil {
		return err
	}
	for _, n := range items {
		state := "未读"
		if n.Read {
			state = "已读"
		}
		fmt.Printf("[%s] %s %s -> entity %d (%s)\n", n.CreatedAt.Format("2006-01-02 15:04"), authorName(n.Actor), n.Type, n.EntityID, state)
	}
	return nil
}

func authorName(u *models.UserBasicInfo) string {
	if u == nil {
		return "?"
	}
	return u.Username
}
