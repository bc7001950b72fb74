package apiserver

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"social-go/internal/services"
)

const (
	googleStateCookie = "oauth_state"
	googleStateTTL    = 10 * time.Minute
)

// AuthHandler 封装了认证相关的 HTTP 处理器方法。
type AuthHandler struct {
	authService services.AuthService
	// 浏览器 OAuth 流程结束后携带 token 跳转的前端地址，为空时直接返回 JSON
	frontendURL string
}

// NewAuthHandler 创建一个新的 AuthHandler 实例。
func NewAuthHandler(authService services.AuthService, frontendURL string) *AuthHandler {
	return &AuthHandler{authService: authService, frontendURL: frontendURL}
}

// LoginRequest 是用户登录请求的结构体。
type LoginRequest struct {
	Email    string `json:"email"` // 可以是用户名或邮箱
	Username string `json:"username"`
	Password string `json:"password"`
}

// GoogleTokenRequest is the body of POST /user/register/google.
type GoogleTokenRequest struct {
	AccessToken string `json:"accessToken"`
}

// Register 处理用户注册请求。
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.authService.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, result, "User registered successfully")
}

// Login 处理用户登录请求。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	identifier := req.Email
	if identifier == "" {
		identifier = req.Username
	}
	if strings.TrimSpace(identifier) == "" {
		writeValidationError(w, "email", "Email or username is required")
		return
	}
	if req.Password == "" {
		writeValidationError(w, "password", "Password is required")
		return
	}

	result, err := h.authService.Login(r.Context(), identifier, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, result, "Login successful")
}

// Logout 吊销当前请求携带的令牌。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.authService.Logout(r.Context(), id.Claims); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil, "Logged out successfully")
}

func (h *AuthHandler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	available, err := h.authService.UsernameAvailable(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]bool{"exists": !available}, "")
}

func (h *AuthHandler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	available, err := h.authService.EmailAvailable(r.Context(), mux.Vars(r)["email"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]bool{"exists": !available}, "")
}

// GoogleToken signs in with an access token the client obtained from Google.
func (h *AuthHandler) GoogleToken(w http.ResponseWriter, r *http.Request) {
	var req GoogleTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AccessToken == "" {
		writeValidationError(w, "accessToken", "accessToken is required")
		return
	}
	result, err := h.authService.SignInWithGoogleToken(r.Context(), req.AccessToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, result, "Signed in with Google")
}

// GoogleLogin 生成 state 并重定向到 Google 授权页。
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := randomState()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	authURL, err := h.authService.GoogleAuthURL(state)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     googleStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(googleStateTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

// GoogleCallback 校验 state 并用授权码换取身份。
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(googleStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		writeValidationError(w, "state", "Invalid OAuth state")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: googleStateCookie, Value: "", Path: "/", MaxAge: -1})

	if e := r.URL.Query().Get("error"); e != "" {
		zap.L().Info("google sign-in declined", zap.String("error", e))
		writeJSONError(w, http.StatusUnauthorized, string(services.KindUnauthenticated), "", "Google sign-in was cancelled")
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		writeValidationError(w, "code", "Missing authorization code")
		return
	}

	result, err := h.authService.SignInWithGoogleCode(r.Context(), code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if h.frontendURL != "" {
		target := strings.TrimSuffix(h.frontendURL, "/") + "/auth/callback#token=" + url.QueryEscape(result.Token)
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	writeSuccess(w, http.StatusOK, result, "Signed in with Google")
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
