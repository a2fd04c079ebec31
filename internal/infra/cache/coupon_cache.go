package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"app/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

const (
	couponKeyPrefix = "coupon:"
	couponTTL       = 5 * time.Minute
)

// クーポンのread-throughキャッシュ（Redis）。
// validateは読み込みが多いので、正規化済みコードをキーにJSONで持つ。
type CouponRedisCache struct {
	client *redis.Client
}

func NewCouponRedisCache(addr string) (*CouponRedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &CouponRedisCache{client: client}, nil
}

func (c *CouponRedisCache) Get(ctx context.Context, code string) (model.Coupon, error) {
	val, err := c.client.Get(ctx, couponKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return model.Coupon{}, ErrCacheMiss
	}
	if err != nil {
		return model.Coupon{}, err
	}

	var coupon model.Coupon
	if err := json.Unmarshal([]byte(val), &coupon); err != nil {
		//壊れたエントリは捨てる
		_ = c.client.Del(ctx, couponKey(code)).Err()
		return model.Coupon{}, ErrCacheMiss
	}
	return coupon, nil
}

func (c *CouponRedisCache) Set(ctx context.Context, coupon model.Coupon) error {
	b, err := json.Marshal(coupon)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, couponKey(coupon.Code), b, couponTTL).Err()
}

// 管理者の更新・削除やused_count加算のあとに呼ぶ
func (c *CouponRedisCache) Invalidate(ctx context.Context, code string) error {
	return c.client.Del(ctx, couponKey(code)).Err()
}

func (c *CouponRedisCache) Close() error {
	return c.client.Close()
}

func couponKey(code string) string {
	return couponKeyPrefix + code
}
