package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisKeyLocker is a KeyLocker shared by every replica, built on redislock.
// The lease TTL bounds how long a crashed holder can block a parent.
type RedisKeyLocker struct {
	client        *redislock.Client
	ttl           time.Duration
	retryInterval time.Duration
	waitTimeout   time.Duration
	logger        *zap.Logger
}

// RedisKeyLockerOption configures a RedisKeyLocker
type RedisKeyLockerOption func(*RedisKeyLocker)

// WithLockTTL sets the lease of a held lock
func WithLockTTL(ttl time.Duration) RedisKeyLockerOption {
	return func(l *RedisKeyLocker) {
		l.ttl = ttl
	}
}

// WithLockRetry sets the pause between attempts and the overall wait limit
func WithLockRetry(interval, waitTimeout time.Duration) RedisKeyLockerOption {
	return func(l *RedisKeyLocker) {
		l.retryInterval = interval
		l.waitTimeout = waitTimeout
	}
}

// WithLockLogger sets the logger used for release failures
func WithLockLogger(logger *zap.Logger) RedisKeyLockerOption {
	return func(l *RedisKeyLocker) {
		l.logger = logger
	}
}

// NewRedisKeyLocker creates a distributed locker on an existing Redis client
func NewRedisKeyLocker(client *redis.Client, opts ...RedisKeyLockerOption) *RedisKeyLocker {
	l := &RedisKeyLocker{
		client:        redislock.New(client),
		ttl:           30 * time.Second,
		retryInterval: 50 * time.Millisecond,
		waitTimeout:   10 * time.Second,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire obtains the lock for key, retrying at a fixed interval until the wait limit
func (l *RedisKeyLocker) Acquire(ctx context.Context, key string) (func(), error) {
	obtainCtx, cancel := context.WithTimeout(ctx, l.waitTimeout)
	defer cancel()

	lock, err := l.client.Obtain(obtainCtx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(l.retryInterval),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("lock %s not obtained within %s: %w", key, l.waitTimeout, appledger.ErrLockTimeout)
		}
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

var _ appledger.KeyLocker = (*RedisKeyLocker)(nil)
