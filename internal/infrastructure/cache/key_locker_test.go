package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryKeyLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("serializes holders of one key", func(t *testing.T) {
		locker := NewInMemoryKeyLocker(0)

		var (
			wg      sync.WaitGroup
			inside  atomic.Int32
			maxSeen atomic.Int32
		)
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				release, err := locker.Acquire(ctx, "ledger:parent:inward_lot:1")
				if !assert.NoError(t, err) {
					return
				}
				n := inside.Add(1)
				if n > maxSeen.Load() {
					maxSeen.Store(n)
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				release()
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), maxSeen.Load())
		assert.Equal(t, 0, locker.Len(), "idle keys are dropped")
	})

	t.Run("different keys do not block each other", func(t *testing.T) {
		locker := NewInMemoryKeyLocker(50 * time.Millisecond)

		releaseA, err := locker.Acquire(ctx, "ledger:parent:inward_lot:a")
		require.NoError(t, err)
		defer releaseA()

		releaseB, err := locker.Acquire(ctx, "ledger:parent:inward_lot:b")
		require.NoError(t, err)
		releaseB()
	})

	t.Run("gives up after the wait timeout", func(t *testing.T) {
		locker := NewInMemoryKeyLocker(20 * time.Millisecond)

		release, err := locker.Acquire(ctx, "ledger:reservation:1")
		require.NoError(t, err)
		defer release()

		_, err = locker.Acquire(ctx, "ledger:reservation:1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not obtained")
		assert.ErrorIs(t, err, appledger.ErrLockTimeout)
	})

	t.Run("honours context cancellation", func(t *testing.T) {
		locker := NewInMemoryKeyLocker(0)

		release, err := locker.Acquire(ctx, "ledger:reservation:2")
		require.NoError(t, err)

		cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		_, err = locker.Acquire(cctx, "ledger:reservation:2")
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		release()
		release() // second call is a no-op
		assert.Equal(t, 0, locker.Len())
	})
}

func TestRedisKeyLocker_BackendUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	locker := NewRedisKeyLocker(client, WithLockRetry(10*time.Millisecond, 200*time.Millisecond))

	_, err := locker.Acquire(context.Background(), "ledger:parent:inward_lot:x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger:parent:inward_lot:x")
	assert.NotErrorIs(t, err, appledger.ErrLockTimeout, "an unreachable backend is not contention")
}
