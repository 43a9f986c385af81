package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/utils"
)

// PurchaseCache memoizes the boolean "viewer purchased this course" lookup.
// All methods are nil-receiver safe so the cache stays optional at runtime.
type PurchaseCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

func NewPurchaseCache(log *logger.Logger) (*PurchaseCache, error) {
	cacheLog := log.With("service", "PurchaseCache")

	addr := utils.GetEnv("REDIS_ADDR", "", log)
	if addr == "" {
		cacheLog.Info("REDIS_ADDR not set, purchase cache disabled")
		return nil, nil
	}
	password := utils.GetEnv("REDIS_PASSWORD", "", log)
	ttlSeconds := utils.GetEnvAsInt("PURCHASE_CACHE_TTL", 300, log)

	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &PurchaseCache{
		client: client,
		ttl:    time.Duration(ttlSeconds) * time.Second,
		log:    cacheLog,
	}, nil
}

func purchaseKey(userID int64, courseID string) string {
	return fmt.Sprintf("purchase:%d:%s", userID, courseID)
}

// Get returns (purchased, found).
func (c *PurchaseCache) Get(ctx context.Context, userID int64, courseID string) (bool, bool) {
	if c == nil {
		return false, false
	}
	val, err := c.client.Get(ctx, purchaseKey(userID, courseID)).Result()
	if err != nil {
		return false, false
	}
	return val == "1", true
}

func (c *PurchaseCache) Set(ctx context.Context, userID int64, courseID string, purchased bool) {
	if c == nil {
		return
	}
	val := "0"
	if purchased {
		val = "1"
	}
	if err := c.client.Set(ctx, purchaseKey(userID, courseID), val, c.ttl).Err(); err != nil {
		c.log.Warn("Failed to cache purchase flag", "error", err)
	}
}

// Invalidate drops the cached flag after a purchase write.
func (c *PurchaseCache) Invalidate(ctx context.Context, userID int64, courseID string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, purchaseKey(userID, courseID)).Err(); err != nil {
		c.log.Warn("Failed to invalidate purchase flag", "error", err)
	}
}
