package idempotency

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_AcquireOnce(t *testing.T) {
	s := NewMemoryStore(time.Hour, time.Minute)
	ctx := context.Background()

	ok, err := s.Acquire(ctx, "evt-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Acquire(ctx, "evt-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Release(ctx, "evt-1"))
	ok, err = s.Acquire(ctx, "evt-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore(time.Hour, time.Minute)
	ctx := context.Background()

	ok, _ := s.Acquire(ctx, "evt-2", 10*time.Millisecond)
	require.True(t, ok)
	time.Sleep(20 * time.Millisecond)

	ok, _ = s.Acquire(ctx, "evt-2", time.Hour)
	assert.True(t, ok)
}

func TestMemoryStore_ConcurrentClaims(t *testing.T) {
	s := NewMemoryStore(time.Hour, time.Minute)
	ctx := context.Background()

	var winners int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := s.Acquire(ctx, "evt-3", time.Hour); ok {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners)
}
