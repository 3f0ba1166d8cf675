package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCounterWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	counter := NewMemoryCounter()
	counter.now = func() time.Time { return now }
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := counter.Increment(ctx, "ip", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	now = now.Add(time.Minute)
	got, err := counter.Increment(ctx, "ip", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got, "window should reset once the ttl elapses")
}

func TestMemoryCounterSweep(t *testing.T) {
	now := time.Now()
	counter := NewMemoryCounter()
	counter.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = counter.Increment(ctx, "a", time.Second)
	_, _ = counter.Increment(ctx, "b", time.Hour)

	now = now.Add(2 * time.Second)
	counter.Sweep()

	assert.Equal(t, 1, counter.Len())
}

func TestMemoryCounterConcurrent(t *testing.T) {
	counter := NewMemoryCounter()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = counter.Increment(ctx, "shared", time.Minute)
		}()
	}
	wg.Wait()

	got, err := counter.Increment(ctx, "shared", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(51), got)
}
