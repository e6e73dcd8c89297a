package revalidate

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkerBumpAndVersion(t *testing.T) {
	ctx := context.Background()
	rdb, redisMock := redismock.NewClientMock()
	marker := NewMarker(rdb)

	key := "workouts::vault-version::vault1"
	redisMock.ExpectIncr(key).SetVal(1)
	marker.Bump(ctx, "vault1")

	redisMock.ExpectGet(key).SetVal("1")
	version, err := marker.Version(ctx, "vault1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	require.NoError(t, redisMock.ExpectationsWereMet())
}

func TestMarkerVersion_MissingKeyReadsAsZero(t *testing.T) {
	ctx := context.Background()
	rdb, redisMock := redismock.NewClientMock()
	marker := NewMarker(rdb)

	redisMock.ExpectGet("workouts::vault-version::fresh-vault").RedisNil()
	version, err := marker.Version(ctx, "fresh-vault")
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)
}

func TestMarkerVersion_RedisErrorSurfaces(t *testing.T) {
	ctx := context.Background()
	rdb, redisMock := redismock.NewClientMock()
	marker := NewMarker(rdb)

	redisMock.ExpectGet("workouts::vault-version::vault1").SetErr(assert.AnError)
	_, err := marker.Version(ctx, "vault1")
	assert.Error(t, err)
}

func TestMarkerBump_SwallowsRedisError(t *testing.T) {
	ctx := context.Background()
	rdb, redisMock := redismock.NewClientMock()
	marker := NewMarker(rdb)

	redisMock.ExpectIncr("workouts::vault-version::vault1").SetErr(assert.AnError)
	// must not panic or propagate, a missed bump is a stale read at worst
	marker.Bump(ctx, "vault1")
}

func TestViewCache(t *testing.T) {
	cache := NewViewCache(1024 * 1024)

	payload := []byte(`{"sets":5}`)
	cache.Set("vault1", 3, "volume::MUSCLE_GROUP", payload)

	got, ok := cache.Get("vault1", 3, "volume::MUSCLE_GROUP")
	require.True(t, ok)
	assert.Equal(t, payload, got)

	// a different version never sees the old payload
	_, ok = cache.Get("vault1", 4, "volume::MUSCLE_GROUP")
	assert.False(t, ok)

	// other vaults and views are isolated
	_, ok = cache.Get("vault2", 3, "volume::MUSCLE_GROUP")
	assert.False(t, ok)
	_, ok = cache.Get("vault1", 3, "volume::TENDON")
	assert.False(t, ok)
}
