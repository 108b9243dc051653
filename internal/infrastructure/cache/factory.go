package cache

import (
	"context"
	"fmt"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Factory builds the lock and idempotency backends selected by configuration.
// A Redis client is opened lazily and shared by everything the factory creates.
type Factory struct {
	redisConfig           config.RedisConfig
	lockConfig            config.LockConfig
	logger                *zap.Logger
	allowInMemoryFallback bool

	client *redis.Client
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether the idempotency store falls back to memory
// when Redis is unavailable. Default is true. Locks never fall back.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(redisCfg config.RedisConfig, lockCfg config.LockConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           redisCfg,
		lockConfig:            lockCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RedisClient returns the shared client, connecting on first use
func (f *Factory) RedisClient(ctx context.Context) (*redis.Client, error) {
	if f.client != nil {
		return f.client, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	f.client = client
	return client, nil
}

// CreateKeyLocker returns the per-key locker for the configured backend
func (f *Factory) CreateKeyLocker(ctx context.Context) (appledger.KeyLocker, error) {
	switch f.lockConfig.Backend {
	case "redis":
		client, err := f.RedisClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("redis lock backend: %w", err)
		}
		f.logger.Info("Using Redis key locker",
			zap.Duration("ttl", f.lockConfig.TTL),
			zap.Duration("wait_timeout", f.lockConfig.WaitTimeout))
		return NewRedisKeyLocker(client,
			WithLockTTL(f.lockConfig.TTL),
			WithLockRetry(f.lockConfig.RetryInterval, f.lockConfig.WaitTimeout),
			WithLockLogger(f.logger.Named("lock")),
		), nil
	case "memory", "":
		f.logger.Warn("Using in-memory key locker; balances are only protected within this process")
		return NewInMemoryKeyLocker(f.lockConfig.WaitTimeout), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", f.lockConfig.Backend)
	}
}

// CreateIdempotencyStore tries Redis first and falls back to memory when allowed
func (f *Factory) CreateIdempotencyStore(ctx context.Context) (shared.IdempotencyStore, error) {
	client, err := f.RedisClient(ctx)
	if err == nil {
		f.logger.Info("Using Redis idempotency store")
		return NewRedisIdempotencyStore(client, ""), nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for idempotency but unavailable: %w", err)
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store. "+
		"Retried requests may be applied twice across instances.",
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(), nil
}

// Close closes the shared Redis client if one was opened
func (f *Factory) Close() error {
	if f.client == nil {
		return nil
	}
	return f.client.Close()
}
