package resultcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetOrLoad(t *testing.T) {
	cache := New[string](Options{})
	calls := 0
	load := func(ctx context.Context) (string, error) {
		calls++
		return "value", nil
	}

	for i := 0; i < 3; i++ {
		value, err := cache.GetOrLoad(context.Background(), "k", load)
		require.NoError(t, err)
		require.Equal(t, "value", value)
	}
	require.Equal(t, 1, calls)
	require.Equal(t, Stats{Hits: 2, Misses: 1, Entries: 1}, cache.Stats())

	cache.Invalidate("k")
	_, err := cache.GetOrLoad(context.Background(), "k", load)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestErrorsAreNotCached(t *testing.T) {
	cache := New[int](Options{})
	failing := errors.New("upstream down")

	_, err := cache.GetOrLoad(context.Background(), "k", func(ctx context.Context) (int, error) {
		return 0, failing
	})
	require.ErrorIs(t, err, failing)

	value, err := cache.GetOrLoad(context.Background(), "k", func(ctx context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	require.Equal(t, 7, value)
}

func TestExpiry(t *testing.T) {
	cache := New[int](Options{TTL: 50 * time.Millisecond})
	var calls atomic.Int32
	load := func(ctx context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}

	first, err := cache.GetOrLoad(context.Background(), "k", load)
	require.NoError(t, err)
	require.Equal(t, 1, first)

	require.Eventually(t, func() bool {
		value, err := cache.GetOrLoad(context.Background(), "k", load)
		return err == nil && value == 2
	}, time.Second, 20*time.Millisecond)
}

func TestConcurrentLoadsCollapse(t *testing.T) {
	cache := New[int](Options{})
	var calls atomic.Int32
	release := make(chan struct{})
	load := func(ctx context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			value, err := cache.GetOrLoad(context.Background(), "k", load)
			require.NoError(t, err)
			results[i] = value
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		require.Equal(t, 42, r)
	}
}

func TestCallerCancellation(t *testing.T) {
	cache := New[int](Options{})
	release := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cache.GetOrLoad(ctx, "k", func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})
	require.ErrorIs(t, err, context.Canceled)
	close(release)

	require.Eventually(t, func() bool {
		return cache.Stats().Entries == 1
	}, time.Second, 10*time.Millisecond)
}

func TestKey(t *testing.T) {
	require.Equal(t, "series|ecb|2024-01-01", Key("series", "ecb", "2024-01-01"))
}
