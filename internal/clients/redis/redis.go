package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/soulkun/soulkun-backend/internal/platform/envutil"
	"github.com/soulkun/soulkun-backend/internal/platform/logger"
)

// Client wraps the Redis connection used for short-lived dedup windows.
// A nil *Client is valid and means "no Redis": callers fall back to the DB.
type Client struct {
	rdb *goredis.Client
	log *logger.Logger
}

// New connects using REDIS_ADDR / REDIS_PASSWORD / REDIS_DB. Returns
// (nil, nil) when REDIS_ADDR is unset so the caller can run without Redis.
func New(ctx context.Context, baseLog *logger.Logger) (*Client, error) {
	addr := strings.TrimSpace(envutil.String("REDIS_ADDR", ""))
	if addr == "" {
		baseLog.Info("REDIS_ADDR not set; dedup falls back to the database")
		return nil, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     envutil.String("REDIS_PASSWORD", ""),
		DB:           envutil.Int("REDIS_DB", 0),
		DialTimeout:  envutil.Duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  envutil.Duration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: envutil.Duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Client{rdb: rdb, log: baseLog.With("client", "redis")}, nil
}

func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// ClaimOnce atomically claims key for ttl. Returns true when this caller won
// the claim, false when the key was already held. Errors are returned so the
// caller can decide to fall back rather than silently skipping dedup.
func (c *Client) ClaimOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if c == nil || c.rdb == nil {
		return false, goredis.ErrClosed
	}
	ok, err := c.rdb.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

// Release drops a claim early. Best-effort: used when the transaction that
// followed a successful claim rolled back.
func (c *Client) Release(ctx context.Context, key string) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		c.log.Warn("Failed to release dedup key", "error", err)
	}
}

// Available reports whether a live Redis connection is configured.
func (c *Client) Available() bool {
	return c != nil && c.rdb != nil
}
