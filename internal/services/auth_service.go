package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"social-go/internal/auth"
	"social-go/internal/config"
	"social-go/internal/models"
	"social-go/internal/storage"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 30
)

// RegisterInput is the body of POST /user/register.
type RegisterInput struct {
	Username        string `json:"username" validate:"required,min=3,max=30,username"`
	FullName        string `json:"fullName" validate:"required,min=3,max=100"`
	Email           string `json:"email" validate:"required,email,max=100"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"omitempty,eqfield=Password"`
}

// AuthResult is returned by every successful sign-in.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// AuthService 定义了用户认证服务的接口。
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, emailOrUsername, password string) (*AuthResult, error)
	UsernameAvailable(ctx context.Context, username string) (bool, error)
	EmailAvailable(ctx context.Context, email string) (bool, error)
	Logout(ctx context.Context, claims *auth.Claims) error

	GoogleAuthURL(state string) (string, error)
	SignInWithGoogleCode(ctx context.Context, code string) (*AuthResult, error)
	SignInWithGoogleToken(ctx context.Context, accessToken string) (*AuthResult, error)
}

// authService 是 AuthService 的实现。
type authService struct {
	userRepo  storage.UserRepository
	blacklist auth.TokenBlacklist
	google    auth.IdentityProvider // nil 表示未配置 Google 登录
	cfg       config.AuthConfig
}

// NewAuthService 创建一个新的 AuthService 实例。
func NewAuthService(userRepo storage.UserRepository, blacklist auth.TokenBlacklist, google auth.IdentityProvider, cfg config.AuthConfig) AuthService {
	return &authService{
		userRepo:  userRepo,
		blacklist: blacklist,
		google:    google,
		cfg:       cfg,
	}
}

// Register 处理用户注册逻辑。
func (s *authService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	input.Username = strings.ToLower(strings.TrimSpace(input.Username))
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.FullName = strings.TrimSpace(input.FullName)
	if err := validate(input); err != nil {
		return nil, err
	}

	if taken, err := s.userRepo.UsernameExists(ctx, input.Username); err != nil {
		return nil, fmt.Errorf("检查用户名时出错: %w", err)
	} else if taken {
		return nil, ErrUsernameTaken
	}
	if taken, err := s.userRepo.EmailExists(ctx, input.Email); err != nil {
		return nil, fmt.Errorf("检查邮箱时出错: %w", err)
	} else if taken {
		return nil, ErrEmailTaken
	}

	hashedPassword, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("密码哈希失败: %w", err)
	}

	user := &models.User{
		Username:     input.Username,
		FullName:     input.FullName,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		AuthProvider: models.AuthProviderLocal,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, s.duplicateField(ctx, input.Username)
		}
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}

	zap.L().Info("user registered", zap.Uint("userId", user.ID), zap.String("username", user.Username))
	return s.issue(user)
}

// duplicateField works out which unique column a concurrent registration hit.
func (s *authService) duplicateField(ctx context.Context, username string) error {
	if taken, err := s.userRepo.UsernameExists(ctx, username); err == nil && taken {
		return ErrUsernameTaken
	}
	return ErrEmailTaken
}

// Login 处理用户登录逻辑。含 @ 的标识按邮箱查找，否则按用户名查找。
func (s *authService) Login(ctx context.Context, emailOrUsername, password string) (*AuthResult, error) {
	identifier := strings.ToLower(strings.TrimSpace(emailOrUsername))
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var (
		user *models.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.userRepo.GetByEmail(ctx, identifier)
	} else {
		user, err = s.userRepo.GetByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("查找用户失败: %w", err)
	}

	if !user.HasPassword() {
		return nil, ErrPasswordLogin
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *authService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if len(username) < minUsernameLen {
		return false, ValidationError("username", "username must be at least 3 characters")
	}
	taken, err := s.userRepo.UsernameExists(ctx, username)
	if err != nil {
		return false, fmt.Errorf("检查用户名时出错: %w", err)
	}
	return !taken, nil
}

func (s *authService) EmailAvailable(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, ValidationError("email", "email is required")
	}
	taken, err := s.userRepo.EmailExists(ctx, email)
	if err != nil {
		return false, fmt.Errorf("检查邮箱时出错: %w", err)
	}
	return !taken, nil
}

// Logout 将令牌的 jti 加入黑名单，直到令牌原本的过期时间。
func (s *authService) Logout(ctx context.Context, claims *auth.Claims) error {
	if err := auth.Revoke(ctx, s.blacklist, claims); err != nil {
		return fmt.Errorf("吊销令牌失败: %w", err)
	}
	zap.L().Info("user logged out", zap.Uint("userId", claims.UserID))
	return nil
}

func (s *authService) GoogleAuthURL(state string) (string, error) {
	if s.google == nil {
		return "", ErrGoogleDisabled
	}
	return s.google.AuthCodeURL(state), nil
}

func (s *authService) SignInWithGoogleCode(ctx context.Context, code string) (*AuthResult, error) {
	if s.google == nil {
		return nil, ErrGoogleDisabled
	}
	identity, err := s.google.Exchange(ctx, code)
	if err != nil {
		zap.L().Warn("google code exchange failed", zap.Error(err))
		return nil, ErrExternalIdentity
	}
	return s.signInExternal(ctx, identity)
}

func (s *authService) SignInWithGoogleToken(ctx context.Context, accessToken string) (*AuthResult, error) {
	if s.google == nil {
		return nil, ErrGoogleDisabled
	}
	identity, err := s.google.IdentityFromAccessToken(ctx, accessToken)
	if err != nil {
		zap.L().Warn("google token verification failed", zap.Error(err))
		return nil, ErrExternalIdentity
	}
	return s.signInExternal(ctx, identity)
}

// signInExternal finds the local account for a verified email or creates one.
func (s *authService) signInExternal(ctx context.Context, identity *auth.ExternalIdentity) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if email == "" || !identity.EmailVerified {
		return nil, ErrExternalIdentity
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return s.issue(user)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("查找用户失败: %w", err)
	}

	username, err := s.uniqueUsername(ctx, email)
	if err != nil {
		return nil, err
	}
	fullName := strings.TrimSpace(identity.Name)
	if len(fullName) < 3 {
		fullName = username
	}
	user = &models.User{
		Username:     username,
		FullName:     fullName,
		Email:        email,
		AvatarURL:    identity.Picture,
		AuthProvider: models.AuthProviderGoogle,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 并发的首次登录: 另一请求已创建该用户
			if existing, getErr := s.userRepo.GetByEmail(ctx, email); getErr == nil {
				return s.issue(existing)
			}
		}
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}

	zap.L().Info("user registered via external identity",
		zap.Uint("userId", user.ID),
		zap.String("provider", identity.Provider),
		zap.String("username", username),
	)
	return s.issue(user)
}

// uniqueUsername derives a free username from the local part of email.
func (s *authService) uniqueUsername(ctx context.Context, email string) (string, error) {
	base := sanitizeUsername(strings.SplitN(email, "@", 2)[0])
	for i := 0; i < 100; i++ {
		candidate := base
		if i > 0 {
			suffix := strconv.Itoa(i)
			if len(candidate)+len(suffix) > maxUsernameLen {
				candidate = candidate[:maxUsernameLen-len(suffix)]
			}
			candidate += suffix
		}
		taken, err := s.userRepo.UsernameExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("检查用户名时出错: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free username for %q", base)
}

func sanitizeUsername(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '_' {
			b.WriteRune(r)
		}
	}
	name := b.String()
	for len(name) < minUsernameLen {
		name += "_"
	}
	if len(name) > maxUsernameLen {
		name = name[:maxUsernameLen]
	}
	return name
}

func (s *authService) issue(user *models.User) (*AuthResult, error) {
	token, err := auth.GenerateToken(user.ID, user.Username, s.cfg)
	if err != nil {
		return nil, fmt.Errorf("生成令牌失败: %w", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}
