package internal

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/koopa0/openmusic/pkg/errors"
)

// ErrCacheMiss 表示鍵不存在或已過期
//
// miss 與「命中且值為零」是兩個不同的結果，也與傳輸失敗不同：
// 傳輸失敗以 SERVICE_UNAVAILABLE 類型的 AppError 回傳。
var ErrCacheMiss = errors.New("cache miss")

// Cache 計數快取介面
//
// 值的契約是非負整數純量，不經過通用序列化邊界，
// 零值與 miss 因此不會混淆。
type Cache interface {
	Get(ctx context.Context, key string) (int64, error)
	Set(ctx context.Context, key string, value int64, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisCache 以共用的 redis.Client 實現 Cache
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache 創建 Redis 快取實例
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get 讀取計數，鍵不存在時回傳 ErrCacheMiss
func (c *RedisCache) Get(ctx context.Context, key string) (int64, error) {
	val, err := c.client.Get(ctx, key).Int64()
	if err == nil {
		return val, nil
	}
	if errors.Is(err, redis.Nil) {
		return 0, ErrCacheMiss
	}
	return 0, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "cache get failed")
}

// Set 寫入計數並設定過期時間，覆蓋既有的值與過期時間
func (c *RedisCache) Set(ctx context.Context, key string, value int64, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "cache set failed")
	}
	return nil
}

// Delete 刪除鍵，鍵不存在時不是錯誤（失效必須冪等）
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "cache delete failed")
	}
	return nil
}
