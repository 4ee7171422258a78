package httpcache_test

import (
	"context"
	"testing"
	"time"

	"github.com/gcristofol/httpcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorageGetSetRoundTrip(t *testing.T) {
	ms := httpcache.NewMemoryStorage(0)
	ctx := context.Background()

	entry := &httpcache.CachedEntry{Kind: httpcache.EntryKindResponse, Response: &httpcache.CachedResponse{StatusCode: 200}}
	require.NoError(t, ms.Set(ctx, "k1", entry, time.Minute))

	got, found, err := ms.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 200, got.Response.StatusCode)
}

func TestMemoryStorageMiss(t *testing.T) {
	ms := httpcache.NewMemoryStorage(0)
	_, found, err := ms.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStorageExpiresByTTL(t *testing.T) {
	withFixedClock(t, testTime)

	ms := httpcache.NewMemoryStorage(0)
	ctx := context.Background()
	entry := &httpcache.CachedEntry{Kind: httpcache.EntryKindResponse, Response: &httpcache.CachedResponse{StatusCode: 200}}
	require.NoError(t, ms.Set(ctx, "k1", entry, time.Second))

	httpcache.Clock = func() time.Time { return testTime.Add(2 * time.Second) }

	_, found, err := ms.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found, "entry should have expired")
}

func TestMemoryStorageEvictsLeastRecentlyUsed(t *testing.T) {
	ms := httpcache.NewMemoryStorage(2)
	ctx := context.Background()
	entry := &httpcache.CachedEntry{Kind: httpcache.EntryKindResponse, Response: &httpcache.CachedResponse{StatusCode: 200}}

	require.NoError(t, ms.Set(ctx, "a", entry, time.Minute))
	require.NoError(t, ms.Set(ctx, "b", entry, time.Minute))

	// touch "a" so "b" becomes the least recently used entry
	_, _, err := ms.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, ms.Set(ctx, "c", entry, time.Minute))

	_, found, err := ms.Get(ctx, "b")
	require.NoError(t, err)
	assert.False(t, found, "b should have been evicted as least recently used")

	_, found, err = ms.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestMemoryStorageDelete(t *testing.T) {
	ms := httpcache.NewMemoryStorage(0)
	ctx := context.Background()
	entry := &httpcache.CachedEntry{Kind: httpcache.EntryKindResponse, Response: &httpcache.CachedResponse{StatusCode: 200}}
	require.NoError(t, ms.Set(ctx, "k1", entry, time.Minute))
	require.NoError(t, ms.Delete(ctx, "k1"))

	_, found, err := ms.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)
}
