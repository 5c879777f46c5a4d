// internal/store/dedup/dedup_test.go
package dedup

import (
	"context"
	"sync"
	"testing"
	"time"

	"opsdesk-engine/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client, time.Hour, logger.NewTestLogger(t)), mr
}

func TestStore_AcquireWinsExactlyOnce(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	ok, err := store.Acquire(ctx, "ws-1", "rule-1", "sub-1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Redelivery of the same pair never wins again.
	for i := 0; i < 3; i++ {
		ok, err = store.Acquire(ctx, "ws-1", "rule-1", "sub-1")
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestStore_PairsAreIndependent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	ok, err := store.Acquire(ctx, "ws-1", "rule-1", "sub-1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Different rule, same submission.
	ok, err = store.Acquire(ctx, "ws-1", "rule-2", "sub-1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Same rule, different submission.
	ok, err = store.Acquire(ctx, "ws-1", "rule-1", "sub-2")
	require.NoError(t, err)
	assert.True(t, ok)

	// Same pair in another workspace.
	ok, err = store.Acquire(ctx, "ws-2", "rule-1", "sub-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_ConcurrentAcquireHasSingleWinner(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	wins := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Acquire(ctx, "ws-1", "rule-1", "sub-1")
			assert.NoError(t, err)
			if ok {
				wins <- true
			}
		}()
	}
	wg.Wait()
	close(wins)

	assert.Len(t, wins, 1)
}

func TestStore_AcquireErrorWhenRedisDown(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	_, err := store.Acquire(context.Background(), "ws-1", "rule-1", "sub-1")
	assert.Error(t, err)
}
