package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"social-go/internal/auth"
)

const blacklistKeyPrefix = "bl:jti:"

// redisTokenBlacklist 是 auth.TokenBlacklist 接口的 Redis 实现
type redisTokenBlacklist struct {
	client redis.UniversalClient
}

// NewRedisTokenBlacklist 创建一个新的 redisTokenBlacklist 实例。
func NewRedisTokenBlacklist(client redis.UniversalClient) auth.TokenBlacklist {
	return &redisTokenBlacklist{client: client}
}

// Add 将 jti 加入黑名单，键在令牌原本的过期时间点自动失效。
func (r *redisTokenBlacklist) Add(ctx context.Context, jti string, originalTokenExpTime time.Time) error {
	ttl := time.Until(originalTokenExpTime)
	if ttl <= 0 {
		// already expired, signature validation rejects it
		return nil
	}
	if err := r.client.Set(ctx, blacklistKeyPrefix+jti, "revoked", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist jti %s: %w", jti, err)
	}
	return nil
}

// IsBlacklisted 检查 jti 是否在黑名单中。
func (r *redisTokenBlacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, blacklistKeyPrefix+jti).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("check blacklist for jti %s: %w", jti, err)
	}
	return n > 0, nil
}
