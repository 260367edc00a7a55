package push

import (
	"context"
	stderrors "errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"edumatch-notifications/internal/common/logger"
)

// TokenStore is the durable home of device tokens.
type TokenStore interface {
	Get(ctx context.Context, userID int64) (string, error)
	Upsert(ctx context.Context, userID int64, token string) error
	Delete(ctx context.Context, userID int64) error
	DeleteIfMatches(ctx context.Context, userID int64, token string) (bool, error)
}

// TokenCache is a Redis read-through cache in front of TokenStore. Redis
// errors are logged and fall back to the store.
type TokenCache struct {
	rdb    *redis.Client
	store  TokenStore
	ttl    time.Duration
	logger logger.Logger
}

func NewTokenCache(rdb *redis.Client, store TokenStore, ttl time.Duration, log logger.Logger) *TokenCache {
	return &TokenCache{rdb: rdb, store: store, ttl: ttl, logger: log}
}

func tokenKey(userID int64) string {
	return "fcm:" + strconv.FormatInt(userID, 10)
}

func (c *TokenCache) Lookup(ctx context.Context, userID int64) (string, error) {
	key := tokenKey(userID)

	token, err := c.rdb.Get(ctx, key).Result()
	if err == nil && token != "" {
		return token, nil
	}
	if err != nil && !stderrors.Is(err, redis.Nil) {
		c.logger.Warn("token cache read failed", map[string]interface{}{"key": key, "error": err})
	}

	token, err = c.store.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if token != "" {
		c.set(ctx, key, token)
	}
	return token, nil
}

// Register upserts the user's token; the previous one, if any, is replaced.
func (c *TokenCache) Register(ctx context.Context, userID int64, token string) error {
	if err := c.store.Upsert(ctx, userID, token); err != nil {
		return err
	}
	c.set(ctx, tokenKey(userID), token)
	return nil
}

func (c *TokenCache) Unregister(ctx context.Context, userID int64) error {
	if err := c.store.Delete(ctx, userID); err != nil {
		return err
	}
	c.del(ctx, tokenKey(userID))
	return nil
}

// Invalidate drops a token the provider rejected. A newer registration for
// the same user is left alone.
func (c *TokenCache) Invalidate(ctx context.Context, userID int64, token string) error {
	deleted, err := c.store.DeleteIfMatches(ctx, userID, token)
	if err != nil {
		return err
	}

	key := tokenKey(userID)
	if deleted {
		c.del(ctx, key)
		return nil
	}
	if cached, err := c.rdb.Get(ctx, key).Result(); err == nil && cached == token {
		c.del(ctx, key)
	}
	return nil
}

func (c *TokenCache) set(ctx context.Context, key, token string) {
	if err := c.rdb.Set(ctx, key, token, c.ttl).Err(); err != nil {
		c.logger.Warn("token cache write failed", map[string]interface{}{"key": key, "error": err})
	}
}

func (c *TokenCache) del(ctx context.Context, key string) {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("token cache delete failed", map[string]interface{}{"key": key, "error": err})
	}
}
