// Package redis wraps go-redis with the key layout and the few atomic
// operations the API and workers share.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/housebook/housebook-backend/pkg/config"
	"github.com/housebook/housebook-backend/pkg/logger"
)

// Nil is returned by Get when the key is absent.
var Nil = redis.Nil

const namespace = "hb"

var errClosed = errors.New("redis client not initialized")

var (
	// hitScript increments a fixed-window counter and arms its expiry on the
	// first hit only.
	hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

	// releaseScript deletes KEYS[1] only while it still holds ARGV[1].
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)
)

type Client struct {
	rdb *redis.Client
}

func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "redis_addr", opts.Addr), "redis connected")
	}
	return &Client{rdb: rdb}, nil
}

// Wrap adopts an existing go-redis client. Tests pair it with miniredis.
func Wrap(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// options prefers URL and lets the explicit pool settings fill any gaps it
// leaves.
func options(cfg config.RedisConfig) (*redis.Options, error) {
	opts := &redis.Options{Addr: cfg.Address, Password: cfg.Password}
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	case cfg.Address == "":
		return nil, errors.New("redis url or address is required")
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	fill := func(dst *time.Duration, v time.Duration) {
		if *dst == 0 {
			*dst = v
		}
	}
	fill(&opts.DialTimeout, cfg.DialTimeout)
	fill(&opts.ReadTimeout, cfg.ReadTimeout)
	fill(&opts.WriteTimeout, cfg.WriteTimeout)
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	return opts, nil
}

// Key joins non-blank parts under the service namespace.
func Key(parts ...string) string {
	b := strings.Builder{}
	b.WriteString(namespace)
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			b.WriteByte(':')
			b.WriteString(p)
		}
	}
	return b.String()
}

func (c *Client) IdempotencyKey(scope, id string) string { return Key("idempotency", scope, id) }
func (c *Client) AccessSessionKey(jti string) string     { return Key("session", "access", jti) }
func (c *Client) LockKey(name string) string             { return Key("lock", name) }

func (c *Client) ready() error {
	if c == nil || c.rdb == nil {
		return errClosed
	}
	return nil
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	return c.rdb.Get(ctx, key).Result()
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	return c.rdb.SetNX(ctx, key, value, ttl).Result()
}

// GetDel reads and removes key in one step, so only one caller ever sees a
// given value.
func (c *Client) GetDel(ctx context.Context, key string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	return c.rdb.GetDel(ctx, key).Result()
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	n, err := c.rdb.Exists(ctx, key).Result()
	return n > 0, err
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// Hit counts one request against the fixed window named by scope and returns
// the running total for that window.
func (c *Client) Hit(ctx context.Context, scope string, window time.Duration) (int64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	return hitScript.Run(ctx, c.rdb, []string{Key("rate_limit", scope)}, window.Milliseconds()).Int64()
}

// DeleteIfEquals removes key when its value is still want and reports whether
// it did.
func (c *Client) DeleteIfEquals(ctx context.Context, key, want string) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	n, err := releaseScript.Run(ctx, c.rdb, []string{key}, want).Int64()
	return n > 0, err
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
