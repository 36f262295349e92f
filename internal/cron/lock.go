package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/housebook/housebook-backend/pkg/instance"
)

// LockName is the key every cron-worker instance contends on.
const LockName = "cron-cycle"

const fallbackLockTTL = 10 * time.Minute

// Lock gives one instance the cycle at a time.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockBackend interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DeleteIfEquals(ctx context.Context, key, want string) (bool, error)
}

// RedisLock is a single-key lease. The value names the holder so a stuck
// lease can be traced back to an instance.
type RedisLock struct {
	backend lockBackend
	key     string
	ttl     time.Duration
	token   string
}

// CycleLockTTL covers two intervals so a slow cycle is not overlapped by the
// next tick elsewhere.
func CycleLockTTL(interval time.Duration) time.Duration {
	if interval <= 0 {
		return fallbackLockTTL
	}
	return 2 * interval
}

func NewRedisLock(backend lockBackend, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case backend == nil:
		return nil, errors.New("cron lock needs a redis client")
	case key == "":
		return nil, errors.New("cron lock needs a key")
	}
	if ttl <= 0 {
		ttl = fallbackLockTTL
	}
	return &RedisLock{backend: backend, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := fmt.Sprintf("%s/%s", instance.ID("cron-worker"), uuid.NewString())
	won, err := l.backend.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if won {
		l.token = token
	}
	return won, nil
}

// Release is a no-op unless this instance still holds the lease.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""
	if _, err := l.backend.DeleteIfEquals(ctx, l.key, token); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
