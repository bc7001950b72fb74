package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"social-go/internal/auth"
	"social-go/internal/config"
)

// contextKey 是用于在 context.Context 中存储值的自定义类型，以避免键冲突。
type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UserID   uint
	Username string
	Claims   *auth.Claims
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext 从上下文中获取当前用户身份。
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil
}

// AuthMiddleware 验证 JWT 并将用户身份添加到请求上下文中。
// 令牌优先从配置的头部 (默认 auth-token) 读取，其次是 Authorization: Bearer。
func AuthMiddleware(authCfg config.AuthConfig, blacklist auth.TokenBlacklist) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := tokenFromRequest(r, authCfg.TokenHeader)
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "No token, authorization denied")
				return
			}

			claims, err := auth.ValidateToken(r.Context(), tokenString, authCfg.JWTSecretKey, blacklist)
			if err != nil {
				msg := "Token is not valid"
				if errors.Is(err, auth.ErrTokenRevoked) {
					msg = "Token has been revoked"
				} else if !errors.Is(err, auth.ErrTokenInvalid) {
					zap.L().Error("token validation failed", zap.Error(err))
				}
				writeError(w, http.StatusUnauthorized, "unauthenticated", msg)
				return
			}

			ctx := WithIdentity(r.Context(), &Identity{
				UserID:   claims.UserID,
				Username: claims.Username,
				Claims:   claims,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request, header string) (string, bool) {
	if header != "" {
		if t := strings.TrimSpace(r.Header.Get(header)); t != "" {
			return t, true
		}
	}
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	t := strings.TrimSpace(parts[1])
	return t, t != ""
}
