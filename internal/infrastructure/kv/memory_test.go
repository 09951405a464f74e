package kv

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopmetrics/internal/ports"
)

func TestMemoryKVSetGet(t *testing.T) {
	store := NewMemoryKV()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))

	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)
}

func TestMemoryKVGetMissing(t *testing.T) {
	store := NewMemoryKV()

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestMemoryKVTTL(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	store := NewMemoryKVWithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	})
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Hour))

	_, err := store.Get(ctx, "k")
	require.NoError(t, err)

	mu.Lock()
	now = now.Add(61 * time.Minute)
	mu.Unlock()

	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestMemoryKVZeroTTLNeverExpires(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	store := NewMemoryKVWithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	})
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))

	mu.Lock()
	now = now.Add(1000 * time.Hour)
	mu.Unlock()

	_, err := store.Get(ctx, "k")
	assert.NoError(t, err)
}

func TestMemoryKVSetNX(t *testing.T) {
	store := NewMemoryKV()
	ctx := context.Background()

	ok, err := store.SetNX(ctx, "k", []byte("first"), 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SetNX(ctx, "k", []byte("second"), 0)
	require.NoError(t, err)
	assert.False(t, ok)

	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), value, "losing SetNX must not overwrite")
}

func TestMemoryKVSetNXConcurrent(t *testing.T) {
	store := NewMemoryKV()
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	wins := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.SetNX(ctx, "k", []byte("v"), 0)
			assert.NoError(t, err)
			wins <- ok
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for ok := range wins {
		if ok {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestMemoryKVDel(t *testing.T) {
	store := NewMemoryKV()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), 0))

	require.NoError(t, store.Del(ctx, "a", "b", "never-stored"))
	assert.Equal(t, 0, store.Len())
}

func TestMemoryKVValuesAreCopied(t *testing.T) {
	store := NewMemoryKV()
	ctx := context.Background()

	original := []byte("value")
	require.NoError(t, store.Set(ctx, "k", original, 0))
	original[0] = 'X'

	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), value, "callers mutating their slice must not corrupt the store")
}
