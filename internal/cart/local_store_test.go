package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/peersenco/storefront-backend/pkg/logger"
	"github.com/peersenco/storefront-backend/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalStore(t *testing.T) (*RedisLocalStore, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	store, err := NewRedisLocalStore(client, time.Hour, logger.Nop())
	require.NoError(t, err)
	return store, mr, client
}

func TestRedisLocalStoreRoundTrip(t *testing.T) {
	store, mr, client := newLocalStore(t)
	ctx := context.Background()

	c := mustAdd(t, Empty(), snapshot("serum", "349.50"), 2)
	require.NoError(t, store.Write(ctx, "dev-1", c))

	got, err := store.Read(ctx, "dev-1")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, c.Items[0].Product.ID, got.Items[0].Product.ID)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.Equal(t, "699.00", FormatAmount(got.Total))

	ttl := mr.TTL(client.LocalCartKey("dev-1"))
	assert.Equal(t, time.Hour, ttl)
}

func TestRedisLocalStoreMissingKeyIsEmpty(t *testing.T) {
	store, _, _ := newLocalStore(t)

	got, err := store.Read(context.Background(), "nobody")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
	assert.True(t, got.Total.IsZero())
}

func TestRedisLocalStoreMalformedSnapshotIsEmpty(t *testing.T) {
	store, mr, client := newLocalStore(t)
	ctx := context.Background()

	cases := map[string]string{
		"garbage":      "{not json",
		"zero qty":     `{"version":1,"items":[{"product":{"id":"6f1c2a8e-0a51-4b8e-9d11-3a1f5b0e9c01","price":"10"},"quantity":0}]}`,
		"missing id":   `{"version":1,"items":[{"product":{"price":"10"},"quantity":1}]}`,
		"duplicate id": `{"version":1,"items":[{"product":{"id":"6f1c2a8e-0a51-4b8e-9d11-3a1f5b0e9c01","price":"10"},"quantity":1},{"product":{"id":"6f1c2a8e-0a51-4b8e-9d11-3a1f5b0e9c01","price":"10"},"quantity":2}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, mr.Set(client.LocalCartKey("dev-x"), raw))
			got, err := store.Read(ctx, "dev-x")
			require.NoError(t, err)
			assert.True(t, got.IsEmpty())
		})
	}
}

func TestRedisLocalStoreDelete(t *testing.T) {
	store, mr, client := newLocalStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "dev-2", mustAdd(t, Empty(), snapshot("a", "1"), 1)))
	require.NoError(t, store.Delete(ctx, "dev-2"))
	assert.False(t, mr.Exists(client.LocalCartKey("dev-2")))

	// deleting twice is fine
	require.NoError(t, store.Delete(ctx, "dev-2"))
}

func TestRedisLocalStoreUnavailable(t *testing.T) {
	store, mr, _ := newLocalStore(t)
	mr.Close()

	_, err := store.Read(context.Background(), "dev-3")
	assert.Error(t, err)
}
